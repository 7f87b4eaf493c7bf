package workerqueue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"
)

// Manager owns a River client's lifecycle and the one job kind the Run
// Trigger Pipeline enqueues: run_triggered.
type Manager struct {
	riverClient *river.Client[pgx.Tx]
	config      Config
	logger      *slog.Logger
}

// NewManager builds a Manager around a fresh River client sharing dbPool.
// River only polls queues present in its Queues config, so queueNames must
// list every queue name the trigger pipeline's queue name resolver can
// produce for this deployment; river.QueueDefault is always included.
func NewManager(config Config, dbPool *pgxpool.Pool, logger *slog.Logger, queueNames ...string) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewRunTriggeredWorker(logger))

	queues := map[string]river.QueueConfig{
		river.QueueDefault: {MaxWorkers: config.MaxWorkers},
	}
	for _, name := range queueNames {
		if name == "" || name == river.QueueDefault {
			continue
		}
		queues[name] = river.QueueConfig{MaxWorkers: config.MaxWorkers}
	}

	riverClient, err := river.NewClient(riverpgxv5.New(dbPool), &river.Config{
		Logger:            logger,
		Queues:            queues,
		Workers:           workers,
		JobTimeout:        config.JobTimeout,
		FetchCooldown:     config.FetchCooldown,
		FetchPollInterval: config.FetchPollInterval,
		Schema:            config.Schema,
		TestOnly:          config.TestMode,
	})
	if err != nil {
		return nil, fmt.Errorf("create river client: %w", err)
	}

	return &Manager{riverClient: riverClient, config: config, logger: logger}, nil
}

// Start begins polling for jobs.
func (m *Manager) Start(ctx context.Context) error {
	if err := m.riverClient.Start(ctx); err != nil {
		return fmt.Errorf("start river client: %w", err)
	}
	m.logger.Info("worker queue manager started", "max_workers", m.config.MaxWorkers)
	return nil
}

// Stop drains in-flight jobs and shuts the client down.
func (m *Manager) Stop(ctx context.Context) error {
	if err := m.riverClient.Stop(ctx); err != nil {
		return fmt.Errorf("stop river client: %w", err)
	}
	m.logger.Info("worker queue manager stopped")
	return nil
}

// InsertJobTx enqueues args inside tx, so the Run row and its job commit or
// roll back together. This is what the engine calls from within the
// counter envelope's transaction.
func (m *Manager) InsertJobTx(ctx context.Context, tx pgx.Tx, args JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error) {
	riverArgs, ok := args.(river.JobArgs)
	if !ok {
		return nil, fmt.Errorf("workerqueue: %T does not implement river.JobArgs", args)
	}
	return m.riverClient.InsertTx(ctx, tx, riverArgs, opts)
}
