package runtrigger

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const findRunByIdempotencyKeySQL = `
SELECT id, friendly_id, number, environment_id, project_id, organization_id,
       task_identifier, idempotency_key, status, queue_name, master_queue,
       payload, payload_type, metadata, metadata_type, trace_id, span_id,
       parent_span_id, concurrency_key, delay_until, queued_at, ttl,
       max_attempts, depth, parent_task_run_id, root_task_run_id, batch_id,
       resume_parent_on_completion, locked_to_version_id, is_test,
       seed_metadata, created_at
FROM runs
WHERE environment_id = $1 AND task_identifier = $2 AND idempotency_key = $3
`

func (q *Queries) findRunByIdempotencyKey(ctx context.Context, environmentID pgtype.UUID, taskIdentifier, idempotencyKey string) (*runRow, error) {
	var row runRow
	err := q.db.QueryRow(ctx, findRunByIdempotencyKeySQL, environmentID, taskIdentifier, idempotencyKey).Scan(
		&row.ID, &row.FriendlyID, &row.Number, &row.EnvironmentID, &row.ProjectID, &row.OrganizationID,
		&row.TaskIdentifier, &row.IdempotencyKey, &row.Status, &row.QueueName, &row.MasterQueue,
		&row.Payload, &row.PayloadType, &row.Metadata, &row.MetadataType, &row.TraceID, &row.SpanID,
		&row.ParentSpanID, &row.ConcurrencyKey, &row.DelayUntil, &row.QueuedAt, &row.Ttl,
		&row.MaxAttempts, &row.Depth, &row.ParentTaskRunID, &row.RootTaskRunID, &row.BatchID,
		&row.ResumeParentOnCompletion, &row.LockedToVersionID, &row.IsTest,
		&row.SeedMetadata, &row.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

const findAttemptByFriendlyIDSQL = `
SELECT id, friendly_id, task_run_id, status FROM run_attempts WHERE friendly_id = $1
`

func (q *Queries) findAttemptByFriendlyID(ctx context.Context, friendlyID string) (*runAttemptRow, error) {
	var row runAttemptRow
	err := q.db.QueryRow(ctx, findAttemptByFriendlyIDSQL, friendlyID).Scan(&row.ID, &row.FriendlyID, &row.TaskRunID, &row.Status)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

const findAttemptByIDSQL = `
SELECT id, friendly_id, task_run_id, status FROM run_attempts WHERE id = $1
`

func (q *Queries) findAttemptByID(ctx context.Context, id pgtype.UUID) (*runAttemptRow, error) {
	var row runAttemptRow
	err := q.db.QueryRow(ctx, findAttemptByIDSQL, id).Scan(&row.ID, &row.FriendlyID, &row.TaskRunID, &row.Status)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

const findRunSummaryByIDSQL = `
SELECT id, status, depth, root_task_run_id FROM runs WHERE id = $1
`

func (q *Queries) findRunSummaryByID(ctx context.Context, id pgtype.UUID) (*runSummaryRow, error) {
	var row runSummaryRow
	err := q.db.QueryRow(ctx, findRunSummaryByIDSQL, id).Scan(&row.ID, &row.Status, &row.Depth, &row.RootTaskRunID)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

const findBatchByFriendlyIDSQL = `
SELECT id, friendly_id, dependent_task_attempt_id FROM batch_task_runs WHERE friendly_id = $1
`

func (q *Queries) findBatchByFriendlyID(ctx context.Context, friendlyID string) (*batchTaskRunRow, error) {
	var row batchTaskRunRow
	err := q.db.QueryRow(ctx, findBatchByFriendlyIDSQL, friendlyID).Scan(&row.ID, &row.FriendlyID, &row.DependentTaskAttemptID)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

const findCurrentWorkerSQL = `
SELECT id, friendly_id, version, project_id, environment_id, content_hash
FROM background_workers
WHERE environment_id = $1 AND is_current
LIMIT 1
`

func (q *Queries) findCurrentWorker(ctx context.Context, environmentID pgtype.UUID) (*backgroundWorkerRow, error) {
	var row backgroundWorkerRow
	err := q.db.QueryRow(ctx, findCurrentWorkerSQL, environmentID).Scan(&row.ID, &row.FriendlyID, &row.Version, &row.ProjectID, &row.EnvironmentID, &row.ContentHash)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

const findWorkerByVersionSQL = `
SELECT id, friendly_id, version, project_id, environment_id, content_hash
FROM background_workers
WHERE project_id = $1 AND environment_id = $2 AND version = $3
`

func (q *Queries) findWorkerByVersion(ctx context.Context, projectID, environmentID pgtype.UUID, version string) (*backgroundWorkerRow, error) {
	var row backgroundWorkerRow
	err := q.db.QueryRow(ctx, findWorkerByVersionSQL, projectID, environmentID, version).Scan(&row.ID, &row.FriendlyID, &row.Version, &row.ProjectID, &row.EnvironmentID, &row.ContentHash)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

const findWorkerTaskSQL = `
SELECT worker_id, slug, queue_config FROM background_worker_tasks WHERE worker_id = $1 AND slug = $2
`

func (q *Queries) findWorkerTask(ctx context.Context, workerID pgtype.UUID, slug string) (*backgroundWorkerTaskRow, error) {
	var row backgroundWorkerTaskRow
	err := q.db.QueryRow(ctx, findWorkerTaskSQL, workerID, slug).Scan(&row.WorkerID, &row.Slug, &row.QueueConfigJSON)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

const upsertTagSQL = `
INSERT INTO tags (id, name, project_id) VALUES ($1, $2, $3)
ON CONFLICT (project_id, name) DO UPDATE SET name = EXCLUDED.name
RETURNING id
`

func (q *Queries) upsertTag(ctx context.Context, params CreateTagParams) (pgtype.UUID, error) {
	var id pgtype.UUID
	err := q.db.QueryRow(ctx, upsertTagSQL, params.ID, params.Name, params.ProjectID).Scan(&id)
	return id, err
}
