package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/helixir/convention-service/internal/database"
)

// Compile-time interface verification.
var _ UnitOfWork = (*PgUnitOfWork)(nil)

// PgUnitOfWork runs use case functions inside a single PostgreSQL transaction.
// The stores handed to the callback are bound to that transaction, so entity
// writes and their outbox events commit or roll back together.
type PgUnitOfWork struct {
	db *database.DB
}

// NewPgUnitOfWork creates a new PostgreSQL unit of work.
func NewPgUnitOfWork(db *database.DB) *PgUnitOfWork {
	return &PgUnitOfWork{db: db}
}

// WithinTx executes fn within a transaction. Any error returned from fn rolls
// the whole transaction back.
func (u *PgUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error {
	return u.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		return fn(ctx, NewStores(tx))
	})
}

// NewStores builds the repository bundle over the given connection or
// transaction.
func NewStores(db DBTX) Stores {
	return Stores{
		Conventions: NewPgConventionRepository(db),
		Outbox:      NewPgOutboxRepository(db),
	}
}
