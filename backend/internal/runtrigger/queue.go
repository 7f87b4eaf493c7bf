package runtrigger

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// queueConfig is the optional structured blob carried on
// BackgroundWorkerTask.QueueConfigJSON.
type queueConfig struct {
	Name *string `json:"name,omitempty"`
}

func defaultQueueName(taskID string) string {
	return "task/" + taskID
}

// ResolveQueueName picks the effective queue name per spec §4.6: explicit
// caller input wins, then the current worker's declared queue config, then
// the "task/<id>" default. The result is always passed through
// sanitizeQueueName before being returned.
func (s *Service) ResolveQueueName(ctx context.Context, taskID string, environmentID uuid.UUID, queueNameOpt string) string {
	fallback := defaultQueueName(taskID)

	if queueNameOpt != "" {
		return sanitizeQueueName(queueNameOpt, fallback)
	}

	worker, err := s.db.FindCurrentWorker(ctx, environmentID)
	if err != nil || worker == nil {
		return sanitizeQueueName(fallback, fallback)
	}

	task, err := s.db.FindWorkerTask(ctx, worker.ID, taskID)
	if err != nil || task == nil {
		return sanitizeQueueName(fallback, fallback)
	}

	if len(task.QueueConfigJSON) == 0 {
		return sanitizeQueueName(fallback, fallback)
	}

	var cfg queueConfig
	if err := json.Unmarshal(task.QueueConfigJSON, &cfg); err != nil {
		s.logger.With("operation", "ResolveQueueName").Warn("failed to parse queueConfig, falling back", "error", err, "taskId", taskID)
		return sanitizeQueueName(fallback, fallback)
	}
	if cfg.Name == nil || *cfg.Name == "" {
		return sanitizeQueueName(fallback, fallback)
	}
	return sanitizeQueueName(*cfg.Name, fallback)
}

var disallowedQueueChars = regexp.MustCompile(`[^a-z0-9/_-]`)
var repeatedUnderscore = regexp.MustCompile(`_{2,}`)

// sanitizeQueueName lowercases name, replaces any character outside
// [a-z0-9/_-] with "_", collapses repeated underscores, and falls back
// (re-sanitized) if the result is empty.
func sanitizeQueueName(name, fallback string) string {
	sanitized := sanitizeOnce(name)
	if sanitized == "" {
		return sanitizeOnce(fallback)
	}
	return sanitized
}

func sanitizeOnce(name string) string {
	lowered := strings.ToLower(name)
	replaced := disallowedQueueChars.ReplaceAllString(lowered, "_")
	return repeatedUnderscore.ReplaceAllString(replaced, "_")
}
