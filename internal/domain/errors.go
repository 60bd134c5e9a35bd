package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNotFound indicates that a requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrForbidden indicates that the acting role is not allowed to perform
	// the requested operation.
	ErrForbidden = errors.New("forbidden")

	// ErrIllegalTransition indicates that a convention cannot move from its
	// current status to the requested one.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrInternalError indicates an internal server error.
	ErrInternalError = errors.New("internal error")
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NotFoundError provides details about a not found entity.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// AlreadyExistsError provides details about a duplicate entity.
type AlreadyExistsError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *AlreadyExistsError) Unwrap() error {
	return ErrAlreadyExists
}

// ForbiddenError provides details about a rejected authorization check.
type ForbiddenError struct {
	Role      Role
	Operation string
}

// Error implements the error interface.
func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("role %q is not allowed to %s", e.Role, e.Operation)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ForbiddenError) Unwrap() error {
	return ErrForbidden
}

// StatusTransitionError provides details about an illegal status transition.
type StatusTransitionError struct {
	From ConventionStatus
	To   ConventionStatus
}

// Error implements the error interface.
func (e *StatusTransitionError) Error() string {
	return fmt.Sprintf("cannot go from status %q to %q", e.From, e.To)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *StatusTransitionError) Unwrap() error {
	return ErrIllegalTransition
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{
		Entity: entity,
		ID:     id,
	}
}

// NewAlreadyExistsError creates a new AlreadyExistsError.
func NewAlreadyExistsError(entity, id string) *AlreadyExistsError {
	return &AlreadyExistsError{
		Entity: entity,
		ID:     id,
	}
}

// NewForbiddenError creates a new ForbiddenError.
func NewForbiddenError(role Role, operation string) *ForbiddenError {
	return &ForbiddenError{
		Role:      role,
		Operation: operation,
	}
}

// NewStatusTransitionError creates a new StatusTransitionError.
func NewStatusTransitionError(from, to ConventionStatus) *StatusTransitionError {
	return &StatusTransitionError{
		From: from,
		To:   to,
	}
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
