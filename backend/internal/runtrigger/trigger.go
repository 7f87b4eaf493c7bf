package runtrigger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"runtrigger/backend/internal/idgen"
)

// Service is the Run Trigger Pipeline: TriggerTask is its single exported
// operation, orchestrating C1 through C8 over injected collaborators. A
// process holds one Service per worker pool (spec §9 — no global state).
type Service struct {
	db          Database
	counter     AutoIncrementCounter
	entitlement Entitlement
	objectStore ObjectStore
	events      EventRepository
	engine      Engine
	tags        TagStore
	ids         *idgen.Generator
	logger      *slog.Logger

	payloadOffloadThresholdBytes int
	now                          func() time.Time
}

// NewService wires a Service from its collaborators. payloadOffloadThresholdBytes
// is TASK_PAYLOAD_OFFLOAD_THRESHOLD (spec §6).
func NewService(
	db Database,
	counter AutoIncrementCounter,
	entitlement Entitlement,
	objectStore ObjectStore,
	events EventRepository,
	engine Engine,
	tags TagStore,
	payloadOffloadThresholdBytes int,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:                           db,
		counter:                      counter,
		entitlement:                  entitlement,
		objectStore:                  objectStore,
		events:                       events,
		engine:                       engine,
		tags:                         tags,
		ids:                          idgen.Default(),
		logger:                       logger.With("component", "runtrigger"),
		payloadOffloadThresholdBytes: payloadOffloadThresholdBytes,
		now:                          time.Now,
	}
}

// TriggerTask accepts a request to execute taskID in environment, carries
// it through C1-C8, and returns the persisted (or idempotently reused) Run.
func (s *Service) TriggerTask(ctx context.Context, taskID string, body TriggerTaskRequestBody, environment Environment) (*Run, error) {
	log := s.logger.With("operation", "TriggerTask", "taskId", taskID, "environmentId", environment.ID)

	req, err := normalizeRequest(taskID, body, environment)
	if err != nil {
		return nil, err
	}

	if existing, err := s.checkIdempotency(ctx, environment.ID, taskID, req.IdempotencyKey); err != nil {
		return nil, fmt.Errorf("idempotency lookup: %w", err)
	} else if existing != nil {
		log.Debug("idempotency hit, returning existing run", "runId", existing.FriendlyID)
		return existing, nil
	}

	if err := s.checkEntitlement(ctx, environment); err != nil {
		return nil, err
	}

	deps, err := s.resolveDependencies(ctx, req)
	if err != nil {
		return nil, err
	}

	runFriendlyID := s.ids.WithPrefix("run")

	type payloadResult struct {
		packet IOPacket
		err    error
	}
	type delayResult struct {
		delayUntil *time.Time
	}

	payloadCh := make(chan payloadResult, 1)
	delayCh := make(chan delayResult, 1)

	go func() {
		packet, err := s.handlePayloadPacket(ctx, runFriendlyID, req.Payload, req.PayloadType, environment)
		payloadCh <- payloadResult{packet: packet, err: err}
	}()
	go func() {
		var delayValue string
		if req.Delay != nil {
			delayValue = *req.Delay
		}
		delayCh <- delayResult{delayUntil: ParseDelay(delayValue, s.now())}
	}()

	payload := <-payloadCh
	delay := <-delayCh
	if payload.err != nil {
		return nil, fmt.Errorf("payload packet: %w", payload.err)
	}

	metadataPacket := handleMetadataPacket(req.Metadata, req.MetadataType)

	var queueNameOpt string
	if req.Queue != nil && req.Queue.Name != nil {
		queueNameOpt = *req.Queue.Name
	}
	queueName := s.ResolveQueueName(ctx, taskID, environment.ID, queueNameOpt)

	var queuedAt *time.Time
	if delay.delayUntil == nil {
		now := s.now()
		queuedAt = &now
	}

	traceOpts := TraceEventOptions{
		IdempotencyKey: req.IdempotencyKey,
		RunIsTest:      req.IsTest,
		StyleIcon:      req.CustomIcon,
		ShowActionBar:  !req.IsTest,
	}
	if deps.BatchID != nil {
		id := deps.BatchID.String()
		traceOpts.BatchID = &id
	}

	run, err := s.events.TraceEvent(ctx, taskID, traceOpts, func(ctx context.Context, trace TraceContext) (*Run, error) {
		parentSpanID := trace.TraceparentSpanID
		if traceOpts.ParentAsLinkType == "replay" {
			parentSpanID = nil
		}

		key := counterKey(environment.ID, taskID)
		run, err := s.counter.IncrementInTransaction(ctx, key,
			func(ctx context.Context, tx pgx.Tx) (int64, error) { return 0, nil },
			func(ctx context.Context, tx pgx.Tx, num int64) (*Run, error) {
				var lockedToVersionID *uuid.UUID
				if req.LockToVersion != nil && *req.LockToVersion != "" {
					worker, err := s.db.FindWorkerByVersion(ctx, environment.ProjectID, environment.ID, *req.LockToVersion)
					if err != nil {
						return nil, err
					}
					if worker != nil {
						lockedToVersionID = &worker.ID
					}
				}

				var tagIDs []uuid.UUID
				for _, tagName := range req.Tags {
					tagID, err := s.tags.CreateTag(ctx, tx, tagName, environment.ProjectID)
					if err != nil {
						return nil, fmt.Errorf("create tag %q: %w", tagName, err)
					}
					tagIDs = append(tagIDs, tagID)
				}

				shape := RunShape{
					FriendlyID:               runFriendlyID,
					Number:                   num,
					EnvironmentID:            environment.ID,
					ProjectID:                environment.ProjectID,
					OrganizationID:           environment.OrganizationID,
					TaskIdentifier:           taskID,
					IdempotencyKey:           req.IdempotencyKey,
					QueueName:                queueName,
					MasterQueue:              MasterQueue,
					Payload:                  payload.packet.Data,
					PayloadType:              payload.packet.DataType,
					Metadata:                 metadataPacket.Data,
					MetadataType:             metadataPacket.DataType,
					TraceID:                  trace.TraceID,
					SpanID:                   trace.SpanID,
					ParentSpanID:             parentSpanID,
					ConcurrencyKey:           req.ConcurrencyKey,
					DelayUntil:               delay.delayUntil,
					QueuedAt:                 queuedAt,
					TTL:                      req.TTL,
					MaxAttempts:              req.MaxAttempts,
					TagIDs:                   tagIDs,
					Depth:                    deps.Depth,
					ParentTaskRunID:          deps.ParentTaskRunID,
					RootTaskRunID:            deps.RootTaskRunID,
					BatchID:                  deps.BatchID,
					ResumeParentOnCompletion: deps.ResumeParentOnCompletion,
					LockedToVersionID:        lockedToVersionID,
					IsTest:                   req.IsTest,
				}

				return s.engine.Trigger(ctx, tx, shape)
			},
		)
		return run, err
	})

	if err != nil {
		if req.IdempotencyKey != nil && isIdempotencyUniqueViolation(err) {
			log.Debug("lost idempotency race, re-reading existing run")
			return s.recoverFromRaceLoss(ctx, environment.ID, taskID, *req.IdempotencyKey)
		}
		return nil, fmt.Errorf("trigger task: %w", err)
	}

	return run, nil
}
