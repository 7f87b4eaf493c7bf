package runtrigger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Database is the read surface the core needs before it ever opens the
// counter envelope's transaction. Implementations talk to Postgres through
// a generated Queries layer; the core only sees this interface.
type Database interface {
	FindRunByIdempotencyKey(ctx context.Context, environmentID uuid.UUID, taskIdentifier, idempotencyKey string) (*Run, error)
	FindAttemptWithTaskRun(ctx context.Context, friendlyID string) (*AttemptRef, error)
	FindBatchWithDependentAttempt(ctx context.Context, friendlyID string) (*BatchTaskRun, error)
	FindCurrentWorker(ctx context.Context, environmentID uuid.UUID) (*BackgroundWorker, error)
	FindWorkerTask(ctx context.Context, workerID uuid.UUID, slug string) (*BackgroundWorkerTask, error)
	FindWorkerByVersion(ctx context.Context, projectID, environmentID uuid.UUID, version string) (*BackgroundWorker, error)
}

// AutoIncrementCounter is the row-locked, per-key monotonic counter
// primitive described in spec §4.7/§5. IncrementInTransaction opens one
// transaction, seeds the counter row from deriveInitial on first use,
// bumps it by one, and runs work with the new value and the open
// transaction before committing both together.
type AutoIncrementCounter interface {
	IncrementInTransaction(
		ctx context.Context,
		key string,
		deriveInitial func(ctx context.Context, tx pgx.Tx) (int64, error),
		work func(ctx context.Context, tx pgx.Tx, num int64) (*Run, error),
	) (*Run, error)
}

// EntitlementReply is the outcome of an entitlement lookup. A nil *EntitlementReply
// from Entitlement.Get is treated as "has access" per spec §4.3.
type EntitlementReply struct {
	HasAccess bool
}

// Entitlement answers whether an organization may trigger more runs.
type Entitlement interface {
	Get(ctx context.Context, organizationID uuid.UUID) (*EntitlementReply, error)
}

// ObjectStore persists an offloaded payload or metadata blob out of line.
type ObjectStore interface {
	Upload(ctx context.Context, filename string, data []byte, contentType string, environment Environment) error
}

// TraceContext carries the identifiers a tracing envelope hands back to its
// caller: the span's own ids, plus the upstream traceparent's span id when
// this call is itself a child of an inbound request.
type TraceContext struct {
	TraceID           string
	SpanID            string
	TraceparentSpanID *string
}

// TraceEventOptions parameterizes the single server-kind span the core asks
// the tracer to open per trigger, matching the attributes spec §4.7 names.
type TraceEventOptions struct {
	BatchID          *string
	IdempotencyKey   *string
	RunIsTest        bool
	StyleIcon        string
	ShowActionBar    bool
	ParentAsLinkType string // "" or "replay"
}

// EventRepository opens the tracing envelope around a trigger call. body
// runs inside the span and returns the Run it produced (or an error, which
// the span records).
type EventRepository interface {
	TraceEvent(
		ctx context.Context,
		taskSlug string,
		opts TraceEventOptions,
		body func(ctx context.Context, trace TraceContext) (*Run, error),
	) (*Run, error)
}

// RunShape is the fully assembled Run the counter envelope hands to the
// engine: every field C1-C6 and the counter/tag/tracing steps derived,
// ready to be inserted and enqueued atomically.
type RunShape struct {
	FriendlyID               string
	Number                   int64
	EnvironmentID            uuid.UUID
	ProjectID                uuid.UUID
	OrganizationID           uuid.UUID
	TaskIdentifier           string
	IdempotencyKey           *string
	QueueName                string
	MasterQueue              string
	Payload                  *string
	PayloadType              string
	Metadata                 *string
	MetadataType             string
	TraceID                  string
	SpanID                   string
	ParentSpanID             *string
	ConcurrencyKey           *string
	DelayUntil               *time.Time
	QueuedAt                 *time.Time
	TTL                      *string
	MaxAttempts              *int32
	TagIDs                   []uuid.UUID
	Depth                    int32
	ParentTaskRunID          *uuid.UUID
	RootTaskRunID            *uuid.UUID
	BatchID                  *uuid.UUID
	ResumeParentOnCompletion bool
	LockedToVersionID        *uuid.UUID
	IsTest                   bool
	SeedMetadata             *string
}

// Engine is the downstream execution engine: it owns Run persistence and
// hands the row to its work queue. A successful return means the Run is
// durably enqueued.
type Engine interface {
	Trigger(ctx context.Context, tx pgx.Tx, shape RunShape) (*Run, error)
}

// TagStore upserts project-scoped tag strings into ids, shared by the
// counter envelope (tx-scoped) so tag creation and Run creation commit or
// roll back together.
type TagStore interface {
	CreateTag(ctx context.Context, tx pgx.Tx, name string, projectID uuid.UUID) (uuid.UUID, error)
}
