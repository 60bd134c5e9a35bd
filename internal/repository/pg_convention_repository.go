package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/helixir/convention-service/internal/domain"
)

// PostgreSQL error codes used for constraint violation detection.
const (
	pgUniqueViolation = "23505" // unique_violation
)

// Compile-time interface verification.
var _ ConventionRepository = (*PgConventionRepository)(nil)

// PgConventionRepository is a PostgreSQL implementation of ConventionRepository.
type PgConventionRepository struct {
	db DBTX
}

// NewPgConventionRepository creates a new PostgreSQL convention repository.
func NewPgConventionRepository(db DBTX) *PgConventionRepository {
	return &PgConventionRepository{db: db}
}

// Create inserts a new convention.
func (r *PgConventionRepository) Create(ctx context.Context, convention *domain.Convention) error {
	if convention == nil {
		return domain.NewValidationError("convention", "convention cannot be nil")
	}
	if convention.ID == uuid.Nil {
		return domain.NewValidationError("id", "convention ID is required")
	}
	if convention.AgencyID == uuid.Nil {
		return domain.NewValidationError("agency_id", "agency ID is required")
	}
	if convention.BeneficiaryEmail == "" {
		return domain.NewValidationError("beneficiary_email", "beneficiary email is required")
	}
	if convention.Siret == "" {
		return domain.NewValidationError("siret", "establishment SIRET is required")
	}

	query := `
		INSERT INTO conventions (
			id, agency_id,
			beneficiary_first_name, beneficiary_last_name, beneficiary_email,
			siret, business_name, establishment_email,
			immersion_activity, immersion_objective,
			date_start, date_end, status, rejection_justification,
			beneficiary_signed, establishment_signed,
			created_at, updated_at
		) VALUES (
			$1, $2,
			$3, $4, $5,
			$6, $7, $8,
			$9, $10,
			$11, $12, $13, $14,
			$15, $16,
			$17, $18
		)`

	_, err := r.db.Exec(ctx, query,
		convention.ID, convention.AgencyID,
		convention.BeneficiaryFirstName, convention.BeneficiaryLastName, convention.BeneficiaryEmail,
		convention.Siret, convention.BusinessName, convention.EstablishmentEmail,
		convention.ImmersionActivity, convention.ImmersionObjective,
		convention.DateStart, convention.DateEnd, convention.Status, convention.RejectionJustification,
		convention.BeneficiarySigned, convention.EstablishmentSigned,
		convention.CreatedAt, convention.UpdatedAt,
	)

	if err != nil {
		if isPgUniqueViolation(err) {
			return domain.NewAlreadyExistsError("convention", convention.ID.String())
		}
		return fmt.Errorf("failed to create convention: %w", err)
	}

	return nil
}

// Get retrieves a convention by its ID.
func (r *PgConventionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Convention, error) {
	query := `
		SELECT id, agency_id,
			beneficiary_first_name, beneficiary_last_name, beneficiary_email,
			siret, business_name, establishment_email,
			immersion_activity, immersion_objective,
			date_start, date_end, status, rejection_justification,
			beneficiary_signed, establishment_signed,
			created_at, updated_at
		FROM conventions
		WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	convention, err := scanConvention(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("convention", id.String())
		}
		return nil, fmt.Errorf("failed to get convention: %w", err)
	}

	return convention, nil
}

// Update persists all mutable fields of a convention, including the caller's
// UpdatedAt stamp. A zero row count means the convention was deleted
// concurrently and is reported as not found.
func (r *PgConventionRepository) Update(ctx context.Context, convention *domain.Convention) error {
	if convention == nil {
		return domain.NewValidationError("convention", "convention cannot be nil")
	}

	query := `
		UPDATE conventions SET
			beneficiary_first_name = $1,
			beneficiary_last_name = $2,
			beneficiary_email = $3,
			siret = $4,
			business_name = $5,
			establishment_email = $6,
			immersion_activity = $7,
			immersion_objective = $8,
			date_start = $9,
			date_end = $10,
			status = $11,
			rejection_justification = $12,
			beneficiary_signed = $13,
			establishment_signed = $14,
			updated_at = $15
		WHERE id = $16`

	result, err := r.db.Exec(ctx, query,
		convention.BeneficiaryFirstName,
		convention.BeneficiaryLastName,
		convention.BeneficiaryEmail,
		convention.Siret,
		convention.BusinessName,
		convention.EstablishmentEmail,
		convention.ImmersionActivity,
		convention.ImmersionObjective,
		convention.DateStart,
		convention.DateEnd,
		convention.Status,
		convention.RejectionJustification,
		convention.BeneficiarySigned,
		convention.EstablishmentSigned,
		convention.UpdatedAt,
		convention.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update convention: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("convention", convention.ID.String())
	}

	return nil
}

// isPgUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}

// scanConvention scans a single row into a Convention.
func scanConvention(row pgx.Row) (*domain.Convention, error) {
	var c domain.Convention
	err := row.Scan(
		&c.ID, &c.AgencyID,
		&c.BeneficiaryFirstName, &c.BeneficiaryLastName, &c.BeneficiaryEmail,
		&c.Siret, &c.BusinessName, &c.EstablishmentEmail,
		&c.ImmersionActivity, &c.ImmersionObjective,
		&c.DateStart, &c.DateEnd, &c.Status, &c.RejectionJustification,
		&c.BeneficiarySigned, &c.EstablishmentSigned,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
