package runtrigger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// fakeObjectStore records every upload in memory.
type fakeObjectStore struct {
	uploads []fakeUpload
	err     error
}

type fakeUpload struct {
	filename    string
	data        []byte
	contentType string
}

func (f *fakeObjectStore) Upload(ctx context.Context, filename string, data []byte, contentType string, environment Environment) error {
	if f.err != nil {
		return f.err
	}
	f.uploads = append(f.uploads, fakeUpload{filename: filename, data: data, contentType: contentType})
	return nil
}

// fakeDatabase is an in-memory Database used by pure-unit trigger tests
// (no real Postgres), keyed the same way the real repository is.
type fakeDatabase struct {
	runsByIdempotencyKey map[string]*Run
	attemptsByFriendlyID map[string]*AttemptRef
	batchesByFriendlyID  map[string]*BatchTaskRun
	currentWorker        map[uuid.UUID]*BackgroundWorker
	workerTasks          map[uuid.UUID]map[string]*BackgroundWorkerTask
	workersByVersion     map[string]*BackgroundWorker
}

func newFakeDatabase() *fakeDatabase {
	return &fakeDatabase{
		runsByIdempotencyKey: map[string]*Run{},
		attemptsByFriendlyID: map[string]*AttemptRef{},
		batchesByFriendlyID:  map[string]*BatchTaskRun{},
		currentWorker:        map[uuid.UUID]*BackgroundWorker{},
		workerTasks:          map[uuid.UUID]map[string]*BackgroundWorkerTask{},
		workersByVersion:     map[string]*BackgroundWorker{},
	}
}

func (f *fakeDatabase) FindRunByIdempotencyKey(ctx context.Context, environmentID uuid.UUID, taskIdentifier, idempotencyKey string) (*Run, error) {
	return f.runsByIdempotencyKey[environmentID.String()+"|"+taskIdentifier+"|"+idempotencyKey], nil
}

func (f *fakeDatabase) FindAttemptWithTaskRun(ctx context.Context, friendlyID string) (*AttemptRef, error) {
	return f.attemptsByFriendlyID[friendlyID], nil
}

func (f *fakeDatabase) FindBatchWithDependentAttempt(ctx context.Context, friendlyID string) (*BatchTaskRun, error) {
	return f.batchesByFriendlyID[friendlyID], nil
}

func (f *fakeDatabase) FindCurrentWorker(ctx context.Context, environmentID uuid.UUID) (*BackgroundWorker, error) {
	return f.currentWorker[environmentID], nil
}

func (f *fakeDatabase) FindWorkerTask(ctx context.Context, workerID uuid.UUID, slug string) (*BackgroundWorkerTask, error) {
	tasks, ok := f.workerTasks[workerID]
	if !ok {
		return nil, nil
	}
	return tasks[slug], nil
}

func (f *fakeDatabase) FindWorkerByVersion(ctx context.Context, projectID, environmentID uuid.UUID, version string) (*BackgroundWorker, error) {
	return f.workersByVersion[projectID.String()+"|"+environmentID.String()+"|"+version], nil
}

// fakeEntitlement returns a fixed reply and counts how often it was asked.
type fakeEntitlement struct {
	reply  *EntitlementReply
	err    error
	called int
}

func (f *fakeEntitlement) Get(ctx context.Context, organizationID uuid.UUID) (*EntitlementReply, error) {
	f.called++
	return f.reply, f.err
}

// fakeTagStore assigns a deterministic uuid per tag name.
type fakeTagStore struct {
	ids map[string]uuid.UUID
}

func newFakeTagStore() *fakeTagStore { return &fakeTagStore{ids: map[string]uuid.UUID{}} }

func (f *fakeTagStore) CreateTag(ctx context.Context, tx pgx.Tx, name string, projectID uuid.UUID) (uuid.UUID, error) {
	if id, ok := f.ids[name]; ok {
		return id, nil
	}
	id := uuid.New()
	f.ids[name] = id
	return id, nil
}

// fakeCounter simulates the autoIncrementCounter primitive in memory,
// without opening a real transaction; it still guarantees the contiguous-
// numbering contract for single-goroutine unit tests.
type fakeCounter struct {
	last map[string]int64
}

func newFakeCounter() *fakeCounter { return &fakeCounter{last: map[string]int64{}} }

func (f *fakeCounter) IncrementInTransaction(
	ctx context.Context,
	key string,
	deriveInitial func(ctx context.Context, tx pgx.Tx) (int64, error),
	work func(ctx context.Context, tx pgx.Tx, num int64) (*Run, error),
) (*Run, error) {
	num := f.last[key] + 1
	run, err := work(ctx, nil, num)
	if err != nil {
		return nil, err
	}
	f.last[key] = num
	return run, nil
}

// fakeEngine records the shape it was handed and returns a synthesized Run.
type fakeEngine struct {
	lastShape RunShape
	called    int
}

func (f *fakeEngine) Trigger(ctx context.Context, tx pgx.Tx, shape RunShape) (*Run, error) {
	f.called++
	f.lastShape = shape
	return &Run{
		ID:                       uuid.New(),
		FriendlyID:               shape.FriendlyID,
		Number:                   shape.Number,
		EnvironmentID:            shape.EnvironmentID,
		ProjectID:                shape.ProjectID,
		OrganizationID:           shape.OrganizationID,
		TaskIdentifier:           shape.TaskIdentifier,
		IdempotencyKey:           shape.IdempotencyKey,
		Status:                   RunStatusPending,
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
	}, nil
}

// fakeEvents runs body inline with deterministic trace identifiers, no
// real span.
type fakeEvents struct{}

func (fakeEvents) TraceEvent(
	ctx context.Context,
	taskSlug string,
	opts TraceEventOptions,
	body func(ctx context.Context, trace TraceContext) (*Run, error),
) (*Run, error) {
	return body(ctx, TraceContext{TraceID: "trace-" + taskSlug, SpanID: "span-" + taskSlug})
}

func newTestService(db Database, counter AutoIncrementCounter, ent Entitlement, store ObjectStore, engine Engine, tags TagStore) *Service {
	return NewService(db, counter, ent, store, fakeEvents{}, engine, tags, 1<<20, nil)
}

// envID is a fixed environment id shared across unit tests that only need a
// stable key to look fakes up by, not a realistic UUID.
var envID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
