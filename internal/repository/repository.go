// Package repository provides data access interfaces and implementations
// for the Convention Service.
//
// # Overview
//
// This package defines repository interfaces and their PostgreSQL implementations
// following the repository pattern to abstract data persistence from business logic.
//
// # Repository Interfaces
//
// The package provides the following repository interfaces:
//
//   - ConventionRepository: Manages convention persistence and lifecycle state
//   - OutboxRepository: Manages the durable domain event outbox
//
// # Thread Safety
//
// All repository implementations are safe for concurrent use by multiple goroutines.
// The underlying pgxpool handles connection pooling and synchronization.
//
// # Error Handling
//
// All methods return domain-specific errors from the domain package.
// Wrap database errors with context using fmt.Errorf with %w verb.
// Common errors include:
//
//   - domain.ErrNotFound: Resource does not exist
//   - domain.ErrAlreadyExists: Unique constraint violation
//   - domain.ErrInvalidInput: Invalid parameters provided
//
// # Transactions
//
// Use the DBTX interface to support both pool and transaction contexts.
// The UnitOfWork binds a convention store and an outbox to one transaction so
// that an entity mutation and its domain event commit or roll back together.
package repository

import (
	"context"

	"github.com/helixir/convention-service/internal/database"
)

// DBTX is the database interface supporting both pool and transaction contexts.
// This allows repositories to work with both direct pool connections and transactions.
//
// # Constructor Pattern
//
// Repository implementations follow a constructor pattern that accepts DBTX:
//
//	type PgConventionRepository struct {
//	    db DBTX
//	}
//
//	func NewPgConventionRepository(db DBTX) *PgConventionRepository {
//	    return &PgConventionRepository{db: db}
//	}
//
// This design enables:
//   - Direct usage with a connection pool for standard operations
//   - Transaction support by passing a transaction (pgx.Tx) instead
//   - Easy testing with mock implementations of DBTX
type DBTX = database.DBTX

// Stores bundles the repositories bound to one transaction.
type Stores struct {
	Conventions ConventionRepository
	Outbox      OutboxRepository
}

// UnitOfWork runs a function with a set of repositories sharing one
// transaction. If the function returns an error everything rolls back,
// including any outbox event saved inside it.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}
