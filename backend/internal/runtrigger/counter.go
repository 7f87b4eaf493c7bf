package runtrigger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// counterKey builds the autoIncrementCounter primitive's key for a given
// (environment, task) pair, per spec §4.7.
func counterKey(environmentID uuid.UUID, taskIdentifier string) string {
	return fmt.Sprintf("v3-run:%s:%s", environmentID, taskIdentifier)
}

func parseCounterKey(key string) (uuid.UUID, string, error) {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) != 3 || parts[0] != "v3-run" {
		return uuid.UUID{}, "", fmt.Errorf("malformed counter key %q", key)
	}
	envID, err := uuid.Parse(parts[1])
	if err != nil {
		return uuid.UUID{}, "", fmt.Errorf("malformed counter key %q: %w", key, err)
	}
	return envID, parts[2], nil
}

// PostgresCounter is the default AutoIncrementCounter: a row-level lock on
// the counter's own row inside a dedicated transaction, never a database
// sequence, because the key space is per-(environment, task) and a row's
// initial value is seeded dynamically on first use.
type PostgresCounter struct {
	pool *pgxpool.Pool
}

// NewPostgresCounter builds a PostgresCounter backed by pool.
func NewPostgresCounter(pool *pgxpool.Pool) *PostgresCounter {
	return &PostgresCounter{pool: pool}
}

// IncrementInTransaction implements AutoIncrementCounter. It opens one
// transaction, locks (and if necessary seeds) the counter row with
// SELECT ... FOR UPDATE, bumps lastNumber by one, runs work with the new
// value and the open transaction, and commits the counter bump and work's
// side effects together. Any error from deriveInitial or work rolls back
// both.
func (c *PostgresCounter) IncrementInTransaction(
	ctx context.Context,
	key string,
	deriveInitial func(ctx context.Context, tx pgx.Tx) (int64, error),
	work func(ctx context.Context, tx pgx.Tx, num int64) (*Run, error),
) (*Run, error) {
	environmentID, taskIdentifier, err := parseCounterKey(key)
	if err != nil {
		return nil, err
	}

	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection for counter %q: %w", key, err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin counter transaction for %q: %w", key, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	const selectForUpdateSQL = `SELECT last_number FROM task_run_number_counters WHERE environment_id = $1 AND task_identifier = $2 FOR UPDATE`

	var lastNumber int64
	err = tx.QueryRow(ctx, selectForUpdateSQL, environmentID, taskIdentifier).Scan(&lastNumber)

	if errors.Is(err, pgx.ErrNoRows) {
		// SELECT ... FOR UPDATE takes no lock when it matches zero rows, so
		// concurrent first-callers for a brand-new key race here. Upsert with
		// ON CONFLICT DO NOTHING absorbs that race instead of raising 23505 to
		// whichever caller loses it, then the re-SELECT below locks whatever
		// row is now present, seeded by us or by the winner of the race.
		seed := int64(0)
		if deriveInitial != nil {
			seed, err = deriveInitial(ctx, tx)
			if err != nil {
				return nil, fmt.Errorf("derive initial counter value for %q: %w", key, err)
			}
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO task_run_number_counters (environment_id, task_identifier, last_number)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (environment_id, task_identifier) DO NOTHING`,
			environmentID, taskIdentifier, seed,
		); err != nil {
			return nil, fmt.Errorf("seed counter row for %q: %w", key, err)
		}
		err = tx.QueryRow(ctx, selectForUpdateSQL, environmentID, taskIdentifier).Scan(&lastNumber)
	}
	if err != nil {
		return nil, fmt.Errorf("lock counter row for %q: %w", key, err)
	}

	num := lastNumber + 1
	if _, err := tx.Exec(ctx,
		`UPDATE task_run_number_counters SET last_number = $1 WHERE environment_id = $2 AND task_identifier = $3`,
		num, environmentID, taskIdentifier,
	); err != nil {
		return nil, fmt.Errorf("bump counter row for %q: %w", key, err)
	}

	run, err := work(ctx, tx, num)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit counter transaction for %q: %w", key, err)
	}
	committed = true

	return run, nil
}
