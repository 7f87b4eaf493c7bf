package runtrigger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// repository adapts the generated Queries layer to the Database and
// TagStore interfaces the core pipeline depends on, converting between
// native Go types at the domain boundary and pgtype columns at the wire
// boundary.
type repository struct {
	queries *Queries
}

// NewRepository builds the default Postgres-backed Database/TagStore pair.
func NewRepository(pool *pgxpool.Pool) *repository {
	return &repository{queries: New(pool)}
}

func uuidToPg(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func pgToUUID(id pgtype.UUID) uuid.UUID {
	if !id.Valid {
		return uuid.UUID{}
	}
	return uuid.UUID(id.Bytes)
}

func pgToUUIDPtr(id pgtype.UUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	u := uuid.UUID(id.Bytes)
	return &u
}

func pgTextPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func pgInt4Ptr(v pgtype.Int4) *int32 {
	if !v.Valid {
		return nil
	}
	return &v.Int32
}

func timestamptzPtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	tt := t.Time
	return &tt
}

func runFromRow(row *runRow) *Run {
	return &Run{
		ID:                       pgToUUID(row.ID),
		FriendlyID:               row.FriendlyID,
		Number:                   row.Number,
		EnvironmentID:            pgToUUID(row.EnvironmentID),
		ProjectID:                pgToUUID(row.ProjectID),
		OrganizationID:           pgToUUID(row.OrganizationID),
		TaskIdentifier:           row.TaskIdentifier,
		IdempotencyKey:           pgTextPtr(row.IdempotencyKey),
		Status:                   RunStatus(row.Status),
		QueueName:                row.QueueName,
		MasterQueue:              row.MasterQueue,
		Payload:                  pgTextPtr(row.Payload),
		PayloadType:              row.PayloadType,
		Metadata:                 pgTextPtr(row.Metadata),
		MetadataType:             row.MetadataType,
		TraceID:                  row.TraceID,
		SpanID:                   row.SpanID,
		ParentSpanID:             pgTextPtr(row.ParentSpanID),
		ConcurrencyKey:           pgTextPtr(row.ConcurrencyKey),
		DelayUntil:               timestamptzPtr(row.DelayUntil),
		QueuedAt:                 timestamptzPtr(row.QueuedAt),
		TTL:                      pgTextPtr(row.Ttl),
		MaxAttempts:              pgInt4Ptr(row.MaxAttempts),
		Depth:                    row.Depth,
		ParentTaskRunID:          pgToUUIDPtr(row.ParentTaskRunID),
		RootTaskRunID:            pgToUUIDPtr(row.RootTaskRunID),
		BatchID:                  pgToUUIDPtr(row.BatchID),
		ResumeParentOnCompletion: row.ResumeParentOnCompletion,
		LockedToVersionID:        pgToUUIDPtr(row.LockedToVersionID),
		IsTest:                   row.IsTest,
		SeedMetadata:             pgTextPtr(row.SeedMetadata),
		CreatedAt:                row.CreatedAt,
	}
}

func (r *repository) FindRunByIdempotencyKey(ctx context.Context, environmentID uuid.UUID, taskIdentifier, idempotencyKey string) (*Run, error) {
	row, err := r.queries.findRunByIdempotencyKey(ctx, uuidToPg(environmentID), taskIdentifier, idempotencyKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return runFromRow(row), nil
}

func (r *repository) FindAttemptWithTaskRun(ctx context.Context, friendlyID string) (*AttemptRef, error) {
	attempt, err := r.queries.findAttemptByFriendlyID(ctx, friendlyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	summary, err := r.queries.findRunSummaryByID(ctx, attempt.TaskRunID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &AttemptRef{
		Attempt: RunAttempt{ID: pgToUUID(attempt.ID), Status: AttemptStatus(attempt.Status)},
		TaskRun: RunSummary{
			ID:            pgToUUID(summary.ID),
			Status:        RunStatus(summary.Status),
			Depth:         summary.Depth,
			RootTaskRunID: pgToUUIDPtr(summary.RootTaskRunID),
		},
	}, nil
}

func (r *repository) FindBatchWithDependentAttempt(ctx context.Context, friendlyID string) (*BatchTaskRun, error) {
	batch, err := r.queries.findBatchByFriendlyID(ctx, friendlyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	result := &BatchTaskRun{ID: pgToUUID(batch.ID)}
	if batch.DependentTaskAttemptID.Valid {
		attemptRow, err := r.queries.findAttemptByID(ctx, batch.DependentTaskAttemptID)
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return nil, err
			}
		} else {
			summary, err := r.queries.findRunSummaryByID(ctx, attemptRow.TaskRunID)
			if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return nil, err
			}
			if summary != nil {
				result.DependentAttempt = &AttemptRef{
					Attempt: RunAttempt{ID: pgToUUID(attemptRow.ID), Status: AttemptStatus(attemptRow.Status)},
					TaskRun: RunSummary{
						ID:            pgToUUID(summary.ID),
						Status:        RunStatus(summary.Status),
						Depth:         summary.Depth,
						RootTaskRunID: pgToUUIDPtr(summary.RootTaskRunID),
					},
				}
			}
		}
	}
	return result, nil
}

func (r *repository) FindCurrentWorker(ctx context.Context, environmentID uuid.UUID) (*BackgroundWorker, error) {
	row, err := r.queries.findCurrentWorker(ctx, uuidToPg(environmentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return workerFromRow(row), nil
}

func (r *repository) FindWorkerByVersion(ctx context.Context, projectID, environmentID uuid.UUID, version string) (*BackgroundWorker, error) {
	row, err := r.queries.findWorkerByVersion(ctx, uuidToPg(projectID), uuidToPg(environmentID), version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return workerFromRow(row), nil
}

func workerFromRow(row *backgroundWorkerRow) *BackgroundWorker {
	return &BackgroundWorker{
		ID:            pgToUUID(row.ID),
		FriendlyID:    row.FriendlyID,
		Version:       row.Version,
		ProjectID:     pgToUUID(row.ProjectID),
		EnvironmentID: pgToUUID(row.EnvironmentID),
		ContentHash:   row.ContentHash,
	}
}

func (r *repository) FindWorkerTask(ctx context.Context, workerID uuid.UUID, slug string) (*BackgroundWorkerTask, error) {
	row, err := r.queries.findWorkerTask(ctx, uuidToPg(workerID), slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &BackgroundWorkerTask{
		WorkerID:        pgToUUID(row.WorkerID),
		Slug:            row.Slug,
		QueueConfigJSON: row.QueueConfigJSON,
	}, nil
}

// CreateTag upserts a project-scoped tag string inside tx, so it commits or
// rolls back atomically with the Run it's attached to.
func (r *repository) CreateTag(ctx context.Context, tx pgx.Tx, name string, projectID uuid.UUID) (uuid.UUID, error) {
	id, err := New(tx).upsertTag(ctx, CreateTagParams{
		ID:        uuidToPg(uuid.New()),
		Name:      name,
		ProjectID: uuidToPg(projectID),
	})
	if err != nil {
		return uuid.UUID{}, err
	}
	return pgToUUID(id), nil
}
