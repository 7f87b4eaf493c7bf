// Package entitlement is the default Postgres-backed entitlement
// collaborator: a single organization_credits table, queried the way
// secretstore queries its single-table store.
package entitlement

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"runtrigger/backend/internal/runtrigger"
)

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the default runtrigger.Entitlement collaborator.
func NewRepository(pool *pgxpool.Pool) *repository {
	return &repository{pool: pool}
}

const getHasAccessSQL = `SELECT has_access FROM organization_credits WHERE organization_id = $1`

// Get returns the organization's entitlement reply, or nil if the
// organization has no row at all — treated as "has access" by the core.
func (r *repository) Get(ctx context.Context, organizationID uuid.UUID) (*runtrigger.EntitlementReply, error) {
	var hasAccess bool
	err := r.pool.QueryRow(ctx, getHasAccessSQL, pgtype.UUID{Bytes: organizationID, Valid: true}).Scan(&hasAccess)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &runtrigger.EntitlementReply{HasAccess: hasAccess}, nil
}
