package runtrigger

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the minimal surface Queries needs, satisfied by *pgxpool.Pool, a
// pooled *pgxpool.Conn, and pgx.Tx alike, so the same generated query
// methods run standalone or inside the counter envelope's transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries is the generated-shaped data access layer: one method per SQL
// statement, no business logic. Repository adapts these rows to the
// domain types the core pipeline works with.
type Queries struct {
	db DBTX
}

// New builds a Queries bound to db (a pool, a connection, or a
// transaction).
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx rebinds q to run its statements inside tx.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}
