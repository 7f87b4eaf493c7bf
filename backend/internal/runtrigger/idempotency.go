package runtrigger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// checkIdempotency implements C2: if idempotencyKey is set and a prior Run
// already exists for (environmentId, taskIdentifier, idempotencyKey),
// returns it verbatim. A nil, nil return means the caller must continue
// through entitlement and onward.
func (s *Service) checkIdempotency(ctx context.Context, environmentID uuid.UUID, taskIdentifier string, idempotencyKey *string) (*Run, error) {
	if idempotencyKey == nil || *idempotencyKey == "" {
		return nil, nil
	}
	existing, err := s.db.FindRunByIdempotencyKey(ctx, environmentID, taskIdentifier, *idempotencyKey)
	if err != nil {
		return nil, err
	}
	return existing, nil
}

// uniqueViolationCode is the Postgres SQLSTATE for a unique constraint
// violation (23505).
const uniqueViolationCode = "23505"

// isIdempotencyUniqueViolation reports whether err is the unique-violation
// backstop spec §5 describes: two racing requests both passed the
// idempotency gate and the database's unique index on
// (environmentId, taskIdentifier, idempotencyKey) caught the duplicate
// insert.
func isIdempotencyUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if ok := asPgError(err, &pgErr); ok {
		return pgErr.Code == uniqueViolationCode
	}
	return false
}

func asPgError(err error, target **pgconn.PgError) bool {
	for err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok {
			*target = pgErr
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

// recoverFromRaceLoss re-reads the Run a losing concurrent inserter should
// return as if the idempotency gate had hit it in the first place.
func (s *Service) recoverFromRaceLoss(ctx context.Context, environmentID uuid.UUID, taskIdentifier string, idempotencyKey string) (*Run, error) {
	return s.db.FindRunByIdempotencyKey(ctx, environmentID, taskIdentifier, idempotencyKey)
}
