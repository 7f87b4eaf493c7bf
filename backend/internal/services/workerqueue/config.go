package workerqueue

import "time"

// Config configures the Manager's underlying River client. Queue names
// themselves are resolved per-run by the trigger pipeline's queue name
// resolver, not declared here: NewManager's queueNames parameter is what
// tells River which of those resolved names to actually poll, and this
// struct only tunes how many workers poll them and how often.
type Config struct {
	// MaxWorkers is each queue's worker pool size.
	MaxWorkers int

	// FetchCooldown is the minimum time between job fetches.
	FetchCooldown time.Duration

	// JobTimeout is the default per-job timeout.
	JobTimeout time.Duration

	// FetchPollInterval is the interval for polling new jobs.
	FetchPollInterval time.Duration

	// Schema is the Postgres schema River's tables live in.
	Schema string

	// TestMode runs the River client in its in-memory test driver mode.
	TestMode bool
}

// DefaultConfig returns sensible per-queue defaults; which queues get
// polled is still up to the caller of NewManager.
func DefaultConfig() Config {
	return Config{
		MaxWorkers:        10,
		FetchCooldown:     100 * time.Millisecond,
		JobTimeout:        1 * time.Minute,
		FetchPollInterval: 1 * time.Second,
		Schema:            "public",
		TestMode:          false,
	}
}
