package runtrigger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newDependencyService(db Database) *Service {
	return newTestService(db, newFakeCounter(), &fakeEntitlement{reply: &EntitlementReply{HasAccess: true}}, &fakeObjectStore{}, &fakeEngine{}, newFakeTagStore())
}

func TestResolveDependencies_NoReferences(t *testing.T) {
	svc := newDependencyService(newFakeDatabase())

	deps, err := svc.resolveDependencies(t.Context(), &NormalizedRequest{})
	require.NoError(t, err)

	assert.Nil(t, deps.ParentTaskRunID)
	assert.Nil(t, deps.RootTaskRunID)
	assert.Nil(t, deps.BatchID)
	assert.Equal(t, int32(0), deps.Depth)
	assert.False(t, deps.ResumeParentOnCompletion)
}

func TestResolveDependencies_DependentAttemptTerminalRejected(t *testing.T) {
	db := newFakeDatabase()
	db.attemptsByFriendlyID["attempt_123"] = &AttemptRef{
		Attempt: RunAttempt{ID: uuid.New(), Status: AttemptStatusCompleted},
		TaskRun: RunSummary{ID: uuid.New(), Status: RunStatusCompleted, Depth: 0},
	}
	svc := newDependencyService(db)

	_, err := svc.resolveDependencies(t.Context(), &NormalizedRequest{DependentAttempt: strPtr("attempt_123")})
	require.Error(t, err)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Error(), "terminal state")
}

func TestResolveDependencies_DependentRunTerminalRejected(t *testing.T) {
	db := newFakeDatabase()
	db.attemptsByFriendlyID["attempt_123"] = &AttemptRef{
		Attempt: RunAttempt{ID: uuid.New(), Status: AttemptStatusExecuting},
		TaskRun: RunSummary{ID: uuid.New(), Status: RunStatusCanceled, Depth: 0},
	}
	svc := newDependencyService(db)

	_, err := svc.resolveDependencies(t.Context(), &NormalizedRequest{DependentAttempt: strPtr("attempt_123")})
	require.Error(t, err)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Error(), "dependent run")
}

func TestResolveDependencies_DependentAttemptAliveDerivesDepthAndResume(t *testing.T) {
	db := newFakeDatabase()
	taskRunID := uuid.New()
	db.attemptsByFriendlyID["attempt_123"] = &AttemptRef{
		Attempt: RunAttempt{ID: uuid.New(), Status: AttemptStatusExecuting},
		TaskRun: RunSummary{ID: taskRunID, Status: RunStatusExecuting, Depth: 2},
	}
	svc := newDependencyService(db)

	deps, err := svc.resolveDependencies(t.Context(), &NormalizedRequest{DependentAttempt: strPtr("attempt_123")})
	require.NoError(t, err)

	assert.Equal(t, int32(3), deps.Depth)
	assert.True(t, deps.ResumeParentOnCompletion)
	assert.Nil(t, deps.ParentTaskRunID, "a dependentAttempt is not a parentAttempt")
}

func TestResolveDependencies_ParentAttemptDerivesLineageNotResume(t *testing.T) {
	db := newFakeDatabase()
	parentID := uuid.New()
	rootID := uuid.New()
	db.attemptsByFriendlyID["attempt_parent"] = &AttemptRef{
		Attempt: RunAttempt{ID: uuid.New(), Status: AttemptStatusExecuting},
		TaskRun: RunSummary{ID: parentID, Status: RunStatusExecuting, Depth: 1, RootTaskRunID: &rootID},
	}
	svc := newDependencyService(db)

	deps, err := svc.resolveDependencies(t.Context(), &NormalizedRequest{ParentAttempt: strPtr("attempt_parent")})
	require.NoError(t, err)

	require.NotNil(t, deps.ParentTaskRunID)
	assert.Equal(t, parentID, *deps.ParentTaskRunID)
	require.NotNil(t, deps.RootTaskRunID)
	assert.Equal(t, rootID, *deps.RootTaskRunID)
	assert.Equal(t, int32(2), deps.Depth)
	assert.False(t, deps.ResumeParentOnCompletion)
}

func TestResolveDependencies_ParentAttemptWithoutExistingRootUsesItself(t *testing.T) {
	db := newFakeDatabase()
	parentID := uuid.New()
	db.attemptsByFriendlyID["attempt_parent"] = &AttemptRef{
		Attempt: RunAttempt{ID: uuid.New(), Status: AttemptStatusPending},
		TaskRun: RunSummary{ID: parentID, Status: RunStatusPending, Depth: 0, RootTaskRunID: nil},
	}
	svc := newDependencyService(db)

	deps, err := svc.resolveDependencies(t.Context(), &NormalizedRequest{ParentAttempt: strPtr("attempt_parent")})
	require.NoError(t, err)

	require.NotNil(t, deps.RootTaskRunID)
	assert.Equal(t, parentID, *deps.RootTaskRunID)
}

func TestResolveDependencies_DependentBatchTerminalRejected(t *testing.T) {
	db := newFakeDatabase()
	db.batchesByFriendlyID["batch_123"] = &BatchTaskRun{
		ID: uuid.New(),
		DependentAttempt: &AttemptRef{
			Attempt: RunAttempt{ID: uuid.New(), Status: AttemptStatusFailed},
			TaskRun: RunSummary{ID: uuid.New(), Status: RunStatusFailed, Depth: 0},
		},
	}
	svc := newDependencyService(db)

	_, err := svc.resolveDependencies(t.Context(), &NormalizedRequest{DependentBatch: strPtr("batch_123")})
	require.Error(t, err)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestResolveDependencies_DependentBatchAliveDerivesBatchIDAndDepth(t *testing.T) {
	db := newFakeDatabase()
	batchID := uuid.New()
	db.batchesByFriendlyID["batch_123"] = &BatchTaskRun{
		ID: batchID,
		DependentAttempt: &AttemptRef{
			Attempt: RunAttempt{ID: uuid.New(), Status: AttemptStatusExecuting},
			TaskRun: RunSummary{ID: uuid.New(), Status: RunStatusExecuting, Depth: 4},
		},
	}
	svc := newDependencyService(db)

	deps, err := svc.resolveDependencies(t.Context(), &NormalizedRequest{DependentBatch: strPtr("batch_123")})
	require.NoError(t, err)

	require.NotNil(t, deps.BatchID)
	assert.Equal(t, batchID, *deps.BatchID)
	assert.Equal(t, int32(5), deps.Depth)
	assert.True(t, deps.ResumeParentOnCompletion)
}

func TestResolveDependencies_ParentBatchWithoutDependentAttemptSetsBatchIDOnly(t *testing.T) {
	db := newFakeDatabase()
	batchID := uuid.New()
	db.batchesByFriendlyID["batch_parent"] = &BatchTaskRun{ID: batchID}
	svc := newDependencyService(db)

	deps, err := svc.resolveDependencies(t.Context(), &NormalizedRequest{ParentBatch: strPtr("batch_parent")})
	require.NoError(t, err)

	require.NotNil(t, deps.BatchID)
	assert.Equal(t, batchID, *deps.BatchID)
	assert.Equal(t, int32(0), deps.Depth)
	assert.False(t, deps.ResumeParentOnCompletion)
}

func TestResolveDependencies_DependentAttemptTakesPriorityOverParentForDepth(t *testing.T) {
	db := newFakeDatabase()
	db.attemptsByFriendlyID["attempt_dep"] = &AttemptRef{
		Attempt: RunAttempt{ID: uuid.New(), Status: AttemptStatusExecuting},
		TaskRun: RunSummary{ID: uuid.New(), Status: RunStatusExecuting, Depth: 9},
	}
	db.attemptsByFriendlyID["attempt_parent"] = &AttemptRef{
		Attempt: RunAttempt{ID: uuid.New(), Status: AttemptStatusExecuting},
		TaskRun: RunSummary{ID: uuid.New(), Status: RunStatusExecuting, Depth: 1},
	}
	svc := newDependencyService(db)

	deps, err := svc.resolveDependencies(t.Context(), &NormalizedRequest{
		DependentAttempt: strPtr("attempt_dep"),
		ParentAttempt:    strPtr("attempt_parent"),
	})
	require.NoError(t, err)

	assert.Equal(t, int32(10), deps.Depth, "dependentAttempt depth wins over parentAttempt")
}

func TestResolveDependencies_UnknownFriendlyIDResolvesToNoDependency(t *testing.T) {
	svc := newDependencyService(newFakeDatabase())

	deps, err := svc.resolveDependencies(t.Context(), &NormalizedRequest{DependentAttempt: strPtr("attempt_missing")})
	require.NoError(t, err)
	assert.Equal(t, int32(0), deps.Depth)
	assert.False(t, deps.ResumeParentOnCompletion)
}
