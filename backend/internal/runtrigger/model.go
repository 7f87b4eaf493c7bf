// Package runtrigger implements the Run Trigger Pipeline: the synchronous
// TriggerTask operation that validates, deduplicates, and durably persists a
// request to execute a named background task, then hands it to the
// downstream execution engine via a queue.
package runtrigger

import (
	"time"

	"github.com/google/uuid"
)

// MaxTagsPerRun is the hard cap on tags attached to a single Run.
const MaxTagsPerRun = 8

// MasterQueue is the single worker-pool partition every Run is enqueued
// onto today. See SPEC_FULL.md §9 for the multi-pool open question.
const MasterQueue = "main"

// EnvironmentType distinguishes isolated execution contexts.
type EnvironmentType string

const (
	EnvironmentDevelopment EnvironmentType = "DEVELOPMENT"
	EnvironmentProduction  EnvironmentType = "PRODUCTION"
	EnvironmentStaging     EnvironmentType = "STAGING"
	EnvironmentPreview     EnvironmentType = "PREVIEW"
)

// Environment is an authenticated execution context belonging to a Project
// which belongs to an Organization. Read-only to the core.
type Environment struct {
	ID                      uuid.UUID
	Type                    EnvironmentType
	ProjectID               uuid.UUID
	OrganizationID          uuid.UUID
	MaximumConcurrencyLimit int32
}

// IsDevelopment reports whether this environment is the unmetered dev tier.
func (e Environment) IsDevelopment() bool {
	return e.Type == EnvironmentDevelopment
}

// BackgroundWorker is a registered code bundle for an environment.
type BackgroundWorker struct {
	ID            uuid.UUID
	FriendlyID    string
	Version       string
	ProjectID     uuid.UUID
	EnvironmentID uuid.UUID
	ContentHash   string
}

// BackgroundWorkerTask is a task definition exported by a worker.
// QueueConfigJSON is the raw `{ name?: string }` blob, parsed lazily by the
// queue name resolver (C6) so a malformed blob only affects queue
// resolution, not every other reader of the row.
type BackgroundWorkerTask struct {
	WorkerID        uuid.UUID
	Slug            string
	QueueConfigJSON []byte
}

// RunStatus is the engine-owned lifecycle state of a Run. The core treats
// it as an opaque value except for the terminal-state predicate below.
type RunStatus string

const (
	RunStatusPending   RunStatus = "PENDING"
	RunStatusQueued    RunStatus = "QUEUED"
	RunStatusExecuting RunStatus = "EXECUTING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusCanceled  RunStatus = "CANCELED"
	RunStatusTimedOut  RunStatus = "TIMED_OUT"
)

// IsFinalRunStatus reports whether no forward transitions occur from status.
func IsFinalRunStatus(status RunStatus) bool {
	switch status {
	case RunStatusCanceled, RunStatusCompleted, RunStatusFailed, RunStatusTimedOut:
		return true
	default:
		return false
	}
}

// AttemptStatus is the engine-owned lifecycle state of a RunAttempt.
type AttemptStatus string

const (
	AttemptStatusPending   AttemptStatus = "PENDING"
	AttemptStatusExecuting AttemptStatus = "EXECUTING"
	AttemptStatusCompleted AttemptStatus = "COMPLETED"
	AttemptStatusFailed    AttemptStatus = "FAILED"
	AttemptStatusCanceled  AttemptStatus = "CANCELED"
)

// IsFinalAttemptStatus reports whether the attempt is past its last
// transition.
func IsFinalAttemptStatus(status AttemptStatus) bool {
	switch status {
	case AttemptStatusCompleted, AttemptStatusFailed, AttemptStatusCanceled:
		return true
	default:
		return false
	}
}

// Run is the durable record of one task invocation. Created exclusively by
// the Persisted Run Creator (C7); mutated thereafter only by the engine.
type Run struct {
	ID                       uuid.UUID
	FriendlyID               string
	Number                   int64
	EnvironmentID            uuid.UUID
	ProjectID                uuid.UUID
	OrganizationID           uuid.UUID
	TaskIdentifier           string
	IdempotencyKey           *string
	Status                   RunStatus
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
	Tags                     []string
	Depth                    int32
	ParentTaskRunID          *uuid.UUID
	RootTaskRunID            *uuid.UUID
	BatchID                  *uuid.UUID
	ResumeParentOnCompletion bool
	LockedToVersionID        *uuid.UUID
	IsTest                   bool
	SeedMetadata             *string
	CreatedAt                time.Time
}

// RunSummary is the sliver of a parent/dependent Run that the dependency
// resolver needs: just enough to derive depth, lineage and gate on
// terminal status, never the full row.
type RunSummary struct {
	ID            uuid.UUID
	Status        RunStatus
	Depth         int32
	RootTaskRunID *uuid.UUID
}

// RunAttempt is an engine-owned record of one execution try of a Run. The
// core only reads its status and its joined TaskRun.
type RunAttempt struct {
	ID     uuid.UUID
	Status AttemptStatus
}

// AttemptRef is the projection the dependency resolver loads for a
// dependentAttempt/parentAttempt reference: the attempt plus its joined
// taskRun row.
type AttemptRef struct {
	Attempt RunAttempt
	TaskRun RunSummary
}

// BatchTaskRun is a fan-out batch. DependentAttempt is the optional attempt
// whose terminal status gates child Run creation.
type BatchTaskRun struct {
	ID               uuid.UUID
	DependentAttempt *AttemptRef
}

// Tag is a project-scoped string label, upserted (get-or-create) per
// string value.
type Tag struct {
	ID        uuid.UUID
	Name      string
	ProjectID uuid.UUID
}

// TaskRunNumberCounter is the per-(environment, task) monotonic counter
// backing Run.Number. Never realized via a DB sequence: its initial value
// is seeded dynamically and it must be locked per key, not globally.
type TaskRunNumberCounter struct {
	EnvironmentID  uuid.UUID
	TaskIdentifier string
	LastNumber     int64
}

// IOPacket is the tagged wrapper around a serialized payload or metadata
// blob: either inline bytes (Data set, DataType names the real content
// type) or an object-store locator (DataType == "application/store").
type IOPacket struct {
	Data     *string
	DataType string
}

// PacketStoreDataType marks a packet whose Data is an object-store locator
// rather than inline bytes.
const PacketStoreDataType = "application/store"
