package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/helixir/convention-service/internal/domain"
)

// ConventionRepository manages convention persistence.
type ConventionRepository interface {
	// Create inserts a new convention.
	Create(ctx context.Context, convention *domain.Convention) error

	// Get retrieves a convention by its ID.
	Get(ctx context.Context, id uuid.UUID) (*domain.Convention, error)

	// Update persists all mutable fields of a convention. It returns
	// domain.ErrNotFound when no row was updated, which callers treat as a
	// concurrent deletion.
	Update(ctx context.Context, convention *domain.Convention) error
}
