package workerqueue

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
)

// RunTriggeredArgs is the job a successful trigger enqueues once its Run
// row is durably persisted. The worker that executes the run is out of
// scope here; this package only guarantees durable enqueueing.
type RunTriggeredArgs struct {
	RunID       string `json:"runId"`
	MasterQueue string `json:"masterQueue"`
}

// Kind returns the River job kind.
func (RunTriggeredArgs) Kind() string { return "run_triggered" }

// InsertOpts carries masterQueue as a job tag rather than a separate River
// queue partition: each run's job goes to the River queue named by its
// resolved queueName; masterQueue is metadata for a future multi-pool router, not a partition
// switch (the single-pool design is frozen — see the Open Questions
// resolution for the master queue).
func (a RunTriggeredArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Tags: []string{"master:" + a.MasterQueue},
	}
}

// RunTriggeredWorker receives run_triggered jobs. Actually starting a run
// is the downstream execution engine's job, not the trigger pipeline's;
// this worker only confirms the job reached a consumer.
type RunTriggeredWorker struct {
	river.WorkerDefaults[RunTriggeredArgs]
	logger *slog.Logger
}

// NewRunTriggeredWorker builds a RunTriggeredWorker that logs each job it
// receives through logger, defaulting to slog's package logger when nil.
func NewRunTriggeredWorker(logger *slog.Logger) *RunTriggeredWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunTriggeredWorker{logger: logger}
}

// Work logs the run_triggered job. Dispatching it to the execution engine
// is out of scope for the trigger pipeline.
func (w *RunTriggeredWorker) Work(ctx context.Context, job *river.Job[RunTriggeredArgs]) error {
	w.logger.InfoContext(ctx, "run triggered job received",
		"runId", job.Args.RunID,
		"masterQueue", job.Args.MasterQueue,
		"attempt", job.Attempt,
	)
	return nil
}
