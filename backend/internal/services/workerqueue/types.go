// Package workerqueue owns the River-backed job queue the Run Trigger
// Pipeline enqueues onto: lifecycle (start/stop), migrations, and
// transaction-scoped insertion. It deliberately knows about exactly one
// job kind, RunTriggeredArgs — the pipeline's engine is the only caller.
package workerqueue

// JobArgs mirrors river.JobArgs so callers outside this package don't need
// to import River directly just to pass a job to Manager.InsertJobTx.
type JobArgs interface {
	Kind() string
}
