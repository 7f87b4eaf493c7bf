// Command triggerserver wires the Run Trigger Pipeline's default
// collaborators and exercises a single TriggerTask call end to end. The
// HTTP surface that would normally front this (spec §1 — explicitly out
// of scope) is left to the caller; this binary demonstrates the wiring a
// real handler would reuse.
package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"runtrigger/backend/internal/database"
	"runtrigger/backend/internal/engine"
	"runtrigger/backend/internal/entitlement"
	"runtrigger/backend/internal/objectstore"
	"runtrigger/backend/internal/runtrigger"
	"runtrigger/backend/internal/services/workerqueue"
	"runtrigger/backend/internal/tracing"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	config := database.NewDefaultConfig()
	pool, err := database.NewPool(ctx, config)
	if err != nil {
		log.Fatalf("connect to database: %v", err)
	}
	defer pool.Close()

	if err := workerqueue.EnsureRiverTables(ctx, pool, logger); err != nil {
		log.Fatalf("ensure river tables: %v", err)
	}

	// "task/send-email" is what ResolveQueueName falls back to for the
	// "send-email" taskID demonstrated below, absent any worker-declared
	// queue config.
	queue, err := workerqueue.NewManager(workerqueue.DefaultConfig(), pool, logger, "task/send-email")
	if err != nil {
		log.Fatalf("create worker queue manager: %v", err)
	}
	if err := queue.Start(ctx); err != nil {
		log.Fatalf("start worker queue manager: %v", err)
	}
	defer func() { _ = queue.Stop(ctx) }()

	repo := runtrigger.NewRepository(pool)
	counter := runtrigger.NewPostgresCounter(pool)
	entitlementRepo := entitlement.NewRepository(pool)
	store, err := objectstore.New(ctx, os.Getenv("RUNTRIGGER_S3_BUCKET"))
	if err != nil {
		log.Fatalf("configure object store: %v", err)
	}
	tracer := tracing.NewTracer("runtrigger")
	eng := engine.New(queue)

	service := runtrigger.NewService(
		repo,
		counter,
		entitlementRepo,
		store,
		tracer,
		eng,
		repo,
		1<<20, // TASK_PAYLOAD_OFFLOAD_THRESHOLD: 1MiB
		logger,
	)

	environment := runtrigger.Environment{
		ID:                      uuid.New(),
		Type:                    runtrigger.EnvironmentDevelopment,
		ProjectID:               uuid.New(),
		OrganizationID:          uuid.New(),
		MaximumConcurrencyLimit: 10,
	}

	body := runtrigger.TriggerTaskRequestBody{
		Payload: json.RawMessage(`{"to":"a@b.example"}`),
		Options: &runtrigger.TriggerTaskOptions{
			Tags: json.RawMessage(`["welcome","v2"]`),
		},
	}

	run, err := service.TriggerTask(ctx, "send-email", body, environment)
	if err != nil {
		log.Fatalf("trigger task: %v", err)
	}

	logger.Info("run triggered", "runId", run.FriendlyID, "number", run.Number, "queue", run.QueueName)
}
