package store

import (
	"context"
	"database/sql"
)

// Querier is the subset of *sql.DB and *sql.Tx the store functions use.
// Checkout and webhook reconciliation run the same functions inside a
// transaction that request handlers run against the pool directly.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
