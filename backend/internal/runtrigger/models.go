package runtrigger

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// The row types below mirror the shape a sqlc-generated models.go would
// produce for the tables in db/migrations: plain structs with pgtype
// columns, no behavior. Repository converts these into the domain types
// in model.go.

type runRow struct {
	ID                       pgtype.UUID
	FriendlyID               string
	Number                   int64
	EnvironmentID            pgtype.UUID
	ProjectID                pgtype.UUID
	OrganizationID           pgtype.UUID
	TaskIdentifier           string
	IdempotencyKey           pgtype.Text
	Status                   string
	QueueName                string
	MasterQueue              string
	Payload                  pgtype.Text
	PayloadType              string
	Metadata                 pgtype.Text
	MetadataType             string
	TraceID                  string
	SpanID                   string
	ParentSpanID             pgtype.Text
	ConcurrencyKey           pgtype.Text
	DelayUntil               pgtype.Timestamptz
	QueuedAt                 pgtype.Timestamptz
	Ttl                      pgtype.Text
	MaxAttempts              pgtype.Int4
	Depth                    int32
	ParentTaskRunID          pgtype.UUID
	RootTaskRunID            pgtype.UUID
	BatchID                  pgtype.UUID
	ResumeParentOnCompletion bool
	LockedToVersionID        pgtype.UUID
	IsTest                   bool
	SeedMetadata             pgtype.Text
	CreatedAt                time.Time
}

type runAttemptRow struct {
	ID         pgtype.UUID
	FriendlyID string
	TaskRunID  pgtype.UUID
	Status     string
}

type runSummaryRow struct {
	ID            pgtype.UUID
	Status        string
	Depth         int32
	RootTaskRunID pgtype.UUID
}

type batchTaskRunRow struct {
	ID                     pgtype.UUID
	FriendlyID             string
	DependentTaskAttemptID pgtype.UUID
}

type backgroundWorkerRow struct {
	ID            pgtype.UUID
	FriendlyID    string
	Version       string
	ProjectID     pgtype.UUID
	EnvironmentID pgtype.UUID
	ContentHash   string
}

type backgroundWorkerTaskRow struct {
	WorkerID        pgtype.UUID
	Slug            string
	QueueConfigJSON []byte
}

type CreateTagParams struct {
	ID        pgtype.UUID
	Name      string
	ProjectID pgtype.UUID
}
