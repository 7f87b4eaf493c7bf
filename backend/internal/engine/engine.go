package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/riverqueue/river"

	"runtrigger/backend/internal/runtrigger"
	"runtrigger/backend/internal/services/workerqueue"
)

// Engine implements runtrigger.Engine against a worker queue manager
// sharing the same Postgres database as the counter envelope's
// transaction.
type Engine struct {
	queue *workerqueue.Manager
}

// New builds an Engine around an already-started worker queue manager.
func New(queue *workerqueue.Manager) *Engine {
	return &Engine{queue: queue}
}

const insertRunSQL = `
INSERT INTO runs (
	id, friendly_id, number, environment_id, project_id, organization_id,
	task_identifier, idempotency_key, status, queue_name, master_queue,
	payload, payload_type, metadata, metadata_type, trace_id, span_id,
	parent_span_id, concurrency_key, delay_until, queued_at, ttl,
	max_attempts, depth, parent_task_run_id, root_task_run_id, batch_id,
	resume_parent_on_completion, locked_to_version_id, is_test, seed_metadata
) VALUES (
	$1, $2, $3, $4, $5, $6,
	$7, $8, $9, $10, $11,
	$12, $13, $14, $15, $16, $17,
	$18, $19, $20, $21, $22,
	$23, $24, $25, $26, $27,
	$28, $29, $30, $31
)
RETURNING created_at
`

const insertRunTagSQL = `INSERT INTO run_tags (run_id, tag_id) VALUES ($1, $2)`

// Trigger persists shape as a new Run row inside tx, attaches its tags,
// and enqueues one River job for it. A successful return means the Run is
// durably enqueued: the insert and the job row commit in the same
// transaction River itself was handed.
func (e *Engine) Trigger(ctx context.Context, tx pgx.Tx, shape runtrigger.RunShape) (*runtrigger.Run, error) {
	id := uuid.New()

	run := &runtrigger.Run{
		ID:                       id,
		FriendlyID:               shape.FriendlyID,
		Number:                   shape.Number,
		EnvironmentID:            shape.EnvironmentID,
		ProjectID:                shape.ProjectID,
		OrganizationID:           shape.OrganizationID,
		TaskIdentifier:           shape.TaskIdentifier,
		IdempotencyKey:           shape.IdempotencyKey,
		Status:                   runtrigger.RunStatusPending,
		QueueName:                shape.QueueName,
		MasterQueue:              shape.MasterQueue,
		Payload:                  shape.Payload,
		PayloadType:              shape.PayloadType,
		Metadata:                 shape.Metadata,
		MetadataType:             shape.MetadataType,
		TraceID:                  shape.TraceID,
		SpanID:                   shape.SpanID,
		ParentSpanID:             shape.ParentSpanID,
		ConcurrencyKey:           shape.ConcurrencyKey,
		DelayUntil:               shape.DelayUntil,
		QueuedAt:                 shape.QueuedAt,
		TTL:                      shape.TTL,
		MaxAttempts:              shape.MaxAttempts,
		Depth:                    shape.Depth,
		ParentTaskRunID:          shape.ParentTaskRunID,
		RootTaskRunID:            shape.RootTaskRunID,
		BatchID:                  shape.BatchID,
		ResumeParentOnCompletion: shape.ResumeParentOnCompletion,
		LockedToVersionID:        shape.LockedToVersionID,
		IsTest:                   shape.IsTest,
		SeedMetadata:             shape.SeedMetadata,
	}

	err := tx.QueryRow(ctx, insertRunSQL,
		pgUUID(id), run.FriendlyID, run.Number, pgUUID(run.EnvironmentID), pgUUID(run.ProjectID), pgUUID(run.OrganizationID),
		run.TaskIdentifier, pgTextFromPtr(run.IdempotencyKey), string(run.Status), run.QueueName, run.MasterQueue,
		pgTextFromPtr(run.Payload), run.PayloadType, pgTextFromPtr(run.Metadata), run.MetadataType, run.TraceID, run.SpanID,
		pgTextFromPtr(run.ParentSpanID), pgTextFromPtr(run.ConcurrencyKey), pgTimestamptzFromPtr(run.DelayUntil), pgTimestamptzFromPtr(run.QueuedAt), pgTextFromPtr(run.TTL),
		pgInt4FromPtr(run.MaxAttempts), run.Depth, pgUUIDFromPtr(run.ParentTaskRunID), pgUUIDFromPtr(run.RootTaskRunID), pgUUIDFromPtr(run.BatchID),
		run.ResumeParentOnCompletion, pgUUIDFromPtr(run.LockedToVersionID), run.IsTest, pgTextFromPtr(run.SeedMetadata),
	).Scan(&run.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	for _, tagID := range shape.TagIDs {
		if _, err := tx.Exec(ctx, insertRunTagSQL, pgUUID(id), pgUUID(tagID)); err != nil {
			return nil, fmt.Errorf("attach tag %s: %w", tagID, err)
		}
	}

	insertOpts := &river.InsertOpts{Queue: shape.QueueName}
	if shape.MaxAttempts != nil {
		insertOpts.MaxAttempts = int(*shape.MaxAttempts)
	}
	if shape.DelayUntil != nil {
		insertOpts.ScheduledAt = *shape.DelayUntil
	}

	args := workerqueue.RunTriggeredArgs{RunID: run.FriendlyID, MasterQueue: run.MasterQueue}
	if _, err := e.queue.InsertJobTx(ctx, tx, args, insertOpts); err != nil {
		return nil, fmt.Errorf("enqueue run %s: %w", run.FriendlyID, err)
	}

	return run, nil
}

func pgUUID(id uuid.UUID) pgtype.UUID { return pgtype.UUID{Bytes: id, Valid: true} }

func pgUUIDFromPtr(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgUUID(*id)
}

func pgTextFromPtr(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func pgInt4FromPtr(v *int32) pgtype.Int4 {
	if v == nil {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: *v, Valid: true}
}

func pgTimestamptzFromPtr(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}
