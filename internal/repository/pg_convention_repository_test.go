package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/convention-service/internal/domain"
)

// Helper to create a valid convention for testing.
func newTestConvention() *domain.Convention {
	now := time.Now().UTC()
	return &domain.Convention{
		ID:                   uuid.New(),
		AgencyID:             uuid.New(),
		BeneficiaryFirstName: "Jean",
		BeneficiaryLastName:  "Martin",
		BeneficiaryEmail:     "jean.martin@example.com",
		Siret:                "12345678901234",
		BusinessName:         "Boulangerie du Centre",
		EstablishmentEmail:   "contact@boulangerie.example.com",
		ImmersionActivity:    "Preparation de pains et viennoiseries",
		ImmersionObjective:   "Decouvrir le metier de boulanger",
		DateStart:            now.AddDate(0, 0, 7),
		DateEnd:              now.AddDate(0, 0, 14),
		Status:               domain.StatusDraft,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

func TestNewPgConventionRepository(t *testing.T) {
	t.Run("creates repository with nil db", func(t *testing.T) {
		repo := NewPgConventionRepository(nil)
		assert.NotNil(t, repo)
		assert.Nil(t, repo.db)
	})

	t.Run("creates repository with mock db", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgConventionRepository(mock)
		assert.NotNil(t, repo)
		assert.NotNil(t, repo.db)
	})
}

func TestPgConventionRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates convention successfully", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgConventionRepository(mock)
		convention := newTestConvention()

		mock.ExpectExec("INSERT INTO conventions").
			WithArgs(
				convention.ID, convention.AgencyID,
				convention.BeneficiaryFirstName, convention.BeneficiaryLastName, convention.BeneficiaryEmail,
				convention.Siret, convention.BusinessName, convention.EstablishmentEmail,
				convention.ImmersionActivity, convention.ImmersionObjective,
				pgxmock.AnyArg(), pgxmock.AnyArg(), convention.Status, convention.RejectionJustification,
				convention.BeneficiarySigned, convention.EstablishmentSigned,
				pgxmock.AnyArg(), pgxmock.AnyArg(),
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err = repo.Create(ctx, convention)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns validation error for nil convention", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgConventionRepository(mock)
		err = repo.Create(ctx, nil)

		var validationErr *domain.ValidationError
		assert.True(t, errors.As(err, &validationErr))
		assert.Equal(t, "convention", validationErr.Field)
	})

	t.Run("returns validation error for missing ID", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgConventionRepository(mock)
		convention := newTestConvention()
		convention.ID = uuid.Nil

		err = repo.Create(ctx, convention)

		var validationErr *domain.ValidationError
		assert.True(t, errors.As(err, &validationErr))
		assert.Equal(t, "id", validationErr.Field)
	})

	t.Run("returns validation error for missing agency_id", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgConventionRepository(mock)
		convention := newTestConvention()
		convention.AgencyID = uuid.Nil

		err = repo.Create(ctx, convention)

		var validationErr *domain.ValidationError
		assert.True(t, errors.As(err, &validationErr))
		assert.Equal(t, "agency_id", validationErr.Field)
	})

	t.Run("returns validation error for missing beneficiary email", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgConventionRepository(mock)
		convention := newTestConvention()
		convention.BeneficiaryEmail = ""

		err = repo.Create(ctx, convention)

		var validationErr *domain.ValidationError
		assert.True(t, errors.As(err, &validationErr))
		assert.Equal(t, "beneficiary_email", validationErr.Field)
	})

	t.Run("returns validation error for missing siret", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgConventionRepository(mock)
		convention := newTestConvention()
		convention.Siret = ""

		err = repo.Create(ctx, convention)

		var validationErr *domain.ValidationError
		assert.True(t, errors.As(err, &validationErr))
		assert.Equal(t, "siret", validationErr.Field)
	})

	t.Run("returns already exists error on duplicate", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgConventionRepository(mock)
		convention := newTestConvention()

		mock.ExpectExec("INSERT INTO conventions").
			WithArgs(
				pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(),
			).
			WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})

		err = repo.Create(ctx, convention)
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps other database errors", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgConventionRepository(mock)
		convention := newTestConvention()

		mock.ExpectExec("INSERT INTO conventions").
			WithArgs(
				pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(),
			).
			WillReturnError(errors.New("connection refused"))

		err = repo.Create(ctx, convention)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create convention")
	})
}

func TestPgConventionRepository_Get(t *testing.T) {
	ctx := context.Background()

	conventionColumns := []string{
		"id", "agency_id",
		"beneficiary_first_name", "beneficiary_last_name", "beneficiary_email",
		"siret", "business_name", "establishment_email",
		"immersion_activity", "immersion_objective",
		"date_start", "date_end", "status", "rejection_justification",
		"beneficiary_signed", "establishment_signed",
		"created_at", "updated_at",
	}

	t.Run("returns convention when found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgConventionRepository(mock)
		want := newTestConvention()
		want.Status = domain.StatusInReview
		want.BeneficiarySigned = true
		want.EstablishmentSigned = true

		rows := pgxmock.NewRows(conventionColumns).AddRow(
			want.ID, want.AgencyID,
			want.BeneficiaryFirstName, want.BeneficiaryLastName, want.BeneficiaryEmail,
			want.Siret, want.BusinessName, want.EstablishmentEmail,
			want.ImmersionActivity, want.ImmersionObjective,
			want.DateStart, want.DateEnd, want.Status, want.RejectionJustification,
			want.BeneficiarySigned, want.EstablishmentSigned,
			want.CreatedAt, want.UpdatedAt,
		)

		mock.ExpectQuery("SELECT .* FROM conventions WHERE id = \\$1").
			WithArgs(want.ID).
			WillReturnRows(rows)

		got, err := repo.Get(ctx, want.ID)
		require.NoError(t, err)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.AgencyID, got.AgencyID)
		assert.Equal(t, domain.StatusInReview, got.Status)
		assert.True(t, got.BeneficiarySigned)
		assert.True(t, got.EstablishmentSigned)
		assert.Nil(t, got.RejectionJustification)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found error when missing", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgConventionRepository(mock)
		id := uuid.New()

		mock.ExpectQuery("SELECT .* FROM conventions WHERE id = \\$1").
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows(conventionColumns))

		got, err := repo.Get(ctx, id)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		var notFoundErr *domain.NotFoundError
		require.True(t, errors.As(err, &notFoundErr))
		assert.Equal(t, "convention", notFoundErr.Entity)
		assert.Equal(t, id.String(), notFoundErr.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("preserves rejection justification", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgConventionRepository(mock)
		want := newTestConvention()
		want.Status = domain.StatusRejected
		justification := "missing insurance certificate"
		want.RejectionJustification = &justification

		rows := pgxmock.NewRows(conventionColumns).AddRow(
			want.ID, want.AgencyID,
			want.BeneficiaryFirstName, want.BeneficiaryLastName, want.BeneficiaryEmail,
			want.Siret, want.BusinessName, want.EstablishmentEmail,
			want.ImmersionActivity, want.ImmersionObjective,
			want.DateStart, want.DateEnd, want.Status, want.RejectionJustification,
			want.BeneficiarySigned, want.EstablishmentSigned,
			want.CreatedAt, want.UpdatedAt,
		)

		mock.ExpectQuery("SELECT .* FROM conventions WHERE id = \\$1").
			WithArgs(want.ID).
			WillReturnRows(rows)

		got, err := repo.Get(ctx, want.ID)
		require.NoError(t, err)
		require.NotNil(t, got.RejectionJustification)
		assert.Equal(t, justification, *got.RejectionJustification)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgConventionRepository_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("updates convention successfully", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgConventionRepository(mock)
		convention := newTestConvention()
		convention.Status = domain.StatusReadyToSign

		mock.ExpectExec("UPDATE conventions SET").
			WithArgs(
				convention.BeneficiaryFirstName,
				convention.BeneficiaryLastName,
				convention.BeneficiaryEmail,
				convention.Siret,
				convention.BusinessName,
				convention.EstablishmentEmail,
				convention.ImmersionActivity,
				convention.ImmersionObjective,
				pgxmock.AnyArg(),
				pgxmock.AnyArg(),
				convention.Status,
				convention.RejectionJustification,
				convention.BeneficiarySigned,
				convention.EstablishmentSigned,
				convention.UpdatedAt,
				convention.ID,
			).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		before := convention.UpdatedAt
		err = repo.Update(ctx, convention)
		assert.NoError(t, err)
		assert.Equal(t, before, convention.UpdatedAt, "repository must persist the caller's stamp untouched")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns validation error for nil convention", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgConventionRepository(mock)
		err = repo.Update(ctx, nil)

		var validationErr *domain.ValidationError
		assert.True(t, errors.As(err, &validationErr))
		assert.Equal(t, "convention", validationErr.Field)
	})

	t.Run("returns not found when no rows affected", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgConventionRepository(mock)
		convention := newTestConvention()

		mock.ExpectExec("UPDATE conventions SET").
			WithArgs(
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err = repo.Update(ctx, convention)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps database errors", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgConventionRepository(mock)
		convention := newTestConvention()

		mock.ExpectExec("UPDATE conventions SET").
			WithArgs(
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			).
			WillReturnError(errors.New("connection reset"))

		err = repo.Update(ctx, convention)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to update convention")
	})
}

func TestIsPgUniqueViolation(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "unique violation",
			err:      &pgconn.PgError{Code: pgUniqueViolation},
			expected: true,
		},
		{
			name:     "other pg error",
			err:      &pgconn.PgError{Code: "23503"},
			expected: false,
		},
		{
			name:     "wrapped unique violation",
			err:      errors.Join(errors.New("insert"), &pgconn.PgError{Code: pgUniqueViolation}),
			expected: true,
		},
		{
			name:     "plain error",
			err:      errors.New("boom"),
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isPgUniqueViolation(tt.err))
		})
	}
}
