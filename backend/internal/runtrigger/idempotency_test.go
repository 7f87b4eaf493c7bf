package runtrigger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckIdempotency_NilKeySkipsLookup(t *testing.T) {
	svc := newTestService(newFakeDatabase(), newFakeCounter(), &fakeEntitlement{}, &fakeObjectStore{}, &fakeEngine{}, newFakeTagStore())

	run, err := svc.checkIdempotency(t.Context(), envID, "send-email", nil)
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestCheckIdempotency_EmptyKeySkipsLookup(t *testing.T) {
	svc := newTestService(newFakeDatabase(), newFakeCounter(), &fakeEntitlement{}, &fakeObjectStore{}, &fakeEngine{}, newFakeTagStore())
	empty := ""

	run, err := svc.checkIdempotency(t.Context(), envID, "send-email", &empty)
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestCheckIdempotency_Miss(t *testing.T) {
	svc := newTestService(newFakeDatabase(), newFakeCounter(), &fakeEntitlement{}, &fakeObjectStore{}, &fakeEngine{}, newFakeTagStore())
	key := "key-1"

	run, err := svc.checkIdempotency(t.Context(), envID, "send-email", &key)
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestCheckIdempotency_Hit(t *testing.T) {
	db := newFakeDatabase()
	existing := &Run{FriendlyID: "run_existing"}
	key := "key-1"
	db.runsByIdempotencyKey[envID.String()+"|send-email|"+key] = existing
	svc := newTestService(db, newFakeCounter(), &fakeEntitlement{}, &fakeObjectStore{}, &fakeEngine{}, newFakeTagStore())

	run, err := svc.checkIdempotency(t.Context(), envID, "send-email", &key)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "run_existing", run.FriendlyID)
}

func TestIsIdempotencyUniqueViolation_Direct(t *testing.T) {
	err := &pgconn.PgError{Code: uniqueViolationCode}
	assert.True(t, isIdempotencyUniqueViolation(err))
}

func TestIsIdempotencyUniqueViolation_WrappedChain(t *testing.T) {
	pgErr := &pgconn.PgError{Code: uniqueViolationCode}
	wrapped := fmt.Errorf("insert run: %w", fmt.Errorf("tx failed: %w", pgErr))
	assert.True(t, isIdempotencyUniqueViolation(wrapped))
}

func TestIsIdempotencyUniqueViolation_OtherCodeIsFalse(t *testing.T) {
	err := &pgconn.PgError{Code: "23503"}
	assert.False(t, isIdempotencyUniqueViolation(err))
}

func TestIsIdempotencyUniqueViolation_NonPgErrorIsFalse(t *testing.T) {
	assert.False(t, isIdempotencyUniqueViolation(errors.New("boom")))
	assert.False(t, isIdempotencyUniqueViolation(fmt.Errorf("wrapped: %w", errors.New("boom"))))
}

func TestRecoverFromRaceLoss(t *testing.T) {
	db := newFakeDatabase()
	existing := &Run{FriendlyID: "run_recovered"}
	db.runsByIdempotencyKey[envID.String()+"|send-email|key-2"] = existing
	svc := newTestService(db, newFakeCounter(), &fakeEntitlement{}, &fakeObjectStore{}, &fakeEngine{}, newFakeTagStore())

	run, err := svc.recoverFromRaceLoss(t.Context(), envID, "send-email", "key-2")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "run_recovered", run.FriendlyID)
}
