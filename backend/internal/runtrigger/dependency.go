package runtrigger

import (
	"context"

	"github.com/google/uuid"
)

// resolvedDependencies is C4's output: every derived field spec §4.4
// assigns from the optional parent/dependent references.
type resolvedDependencies struct {
	ParentTaskRunID          *uuid.UUID
	RootTaskRunID            *uuid.UUID
	BatchID                  *uuid.UUID
	Depth                    int32
	ResumeParentOnCompletion bool
}

// resolveDependencies implements C4: loads any of the four optional
// by-friendlyId references, terminal-gates the dependent ones, and derives
// parentTaskRunId/rootTaskRunId/batchId/depth/resumeParentOnCompletion.
func (s *Service) resolveDependencies(ctx context.Context, req *NormalizedRequest) (*resolvedDependencies, error) {
	var dependentAttempt, parentAttempt *AttemptRef
	var dependentBatch, parentBatch *BatchTaskRun

	if req.DependentAttempt != nil && *req.DependentAttempt != "" {
		ref, err := s.db.FindAttemptWithTaskRun(ctx, *req.DependentAttempt)
		if err != nil {
			return nil, err
		}
		if ref != nil {
			if IsFinalAttemptStatus(ref.Attempt.Status) {
				return nil, terminalError("dependent attempt", string(ref.Attempt.Status))
			}
			if IsFinalRunStatus(ref.TaskRun.Status) {
				return nil, terminalError("dependent run", string(ref.TaskRun.Status))
			}
		}
		dependentAttempt = ref
	}

	if req.ParentAttempt != nil && *req.ParentAttempt != "" {
		ref, err := s.db.FindAttemptWithTaskRun(ctx, *req.ParentAttempt)
		if err != nil {
			return nil, err
		}
		parentAttempt = ref
	}

	if req.DependentBatch != nil && *req.DependentBatch != "" {
		batch, err := s.db.FindBatchWithDependentAttempt(ctx, *req.DependentBatch)
		if err != nil {
			return nil, err
		}
		if batch != nil && batch.DependentAttempt != nil {
			ref := batch.DependentAttempt
			if IsFinalAttemptStatus(ref.Attempt.Status) {
				return nil, terminalError("dependent attempt", string(ref.Attempt.Status))
			}
			if IsFinalRunStatus(ref.TaskRun.Status) {
				return nil, terminalError("dependent run", string(ref.TaskRun.Status))
			}
		}
		dependentBatch = batch
	}

	if req.ParentBatch != nil && *req.ParentBatch != "" {
		batch, err := s.db.FindBatchWithDependentAttempt(ctx, *req.ParentBatch)
		if err != nil {
			return nil, err
		}
		parentBatch = batch
	}

	resolved := &resolvedDependencies{
		ResumeParentOnCompletion: dependentAttempt != nil || dependentBatch != nil,
	}

	if parentAttempt != nil {
		id := parentAttempt.TaskRun.ID
		resolved.ParentTaskRunID = &id
		root := parentAttempt.TaskRun.RootTaskRunID
		if root != nil {
			resolved.RootTaskRunID = root
		} else {
			resolved.RootTaskRunID = &id
		}
	}

	if dependentBatch != nil {
		resolved.BatchID = &dependentBatch.ID
	} else if parentBatch != nil {
		resolved.BatchID = &parentBatch.ID
	}

	switch {
	case dependentAttempt != nil:
		resolved.Depth = dependentAttempt.TaskRun.Depth + 1
	case parentAttempt != nil:
		resolved.Depth = parentAttempt.TaskRun.Depth + 1
	case dependentBatch != nil && dependentBatch.DependentAttempt != nil:
		resolved.Depth = dependentBatch.DependentAttempt.TaskRun.Depth + 1
	default:
		resolved.Depth = 0
	}

	return resolved, nil
}
