package httpserver

import (
	"time"

	"github.com/helixir/convention-service/internal/domain"
)

// Convention response types for JSON serialization.

type submitConventionResponse struct {
	ConventionID string `json:"convention_id"`
	Status       string `json:"status"`
	Message      string `json:"message"`
}

type changeStatusResponse struct {
	ConventionID string `json:"convention_id"`
	Status       string `json:"status"`
}

type conventionResponse struct {
	ConventionID           string    `json:"convention_id"`
	AgencyID               string    `json:"agency_id"`
	BeneficiaryFirstName   string    `json:"beneficiary_first_name"`
	BeneficiaryLastName    string    `json:"beneficiary_last_name"`
	BeneficiaryEmail       string    `json:"beneficiary_email"`
	Siret                  string    `json:"siret"`
	BusinessName           string    `json:"business_name"`
	EstablishmentEmail     string    `json:"establishment_email"`
	ImmersionActivity      string    `json:"immersion_activity"`
	ImmersionObjective     string    `json:"immersion_objective,omitempty"`
	DateStart              time.Time `json:"date_start"`
	DateEnd                time.Time `json:"date_end"`
	Status                 string    `json:"status"`
	RejectionJustification string    `json:"rejection_justification,omitempty"`
	BeneficiarySigned      bool      `json:"beneficiary_signed"`
	EstablishmentSigned    bool      `json:"establishment_signed"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

type magicLinkRenewalResponse struct {
	ConventionID string `json:"convention_id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
}

// Converter functions

func domainConventionToResponse(c *domain.Convention) conventionResponse {
	resp := conventionResponse{
		ConventionID:         c.ID.String(),
		AgencyID:             c.AgencyID.String(),
		BeneficiaryFirstName: c.BeneficiaryFirstName,
		BeneficiaryLastName:  c.BeneficiaryLastName,
		BeneficiaryEmail:     c.BeneficiaryEmail,
		Siret:                c.Siret,
		BusinessName:         c.BusinessName,
		EstablishmentEmail:   c.EstablishmentEmail,
		ImmersionActivity:    c.ImmersionActivity,
		ImmersionObjective:   c.ImmersionObjective,
		DateStart:            c.DateStart,
		DateEnd:              c.DateEnd,
		Status:               string(c.Status),
		BeneficiarySigned:    c.BeneficiarySigned,
		EstablishmentSigned:  c.EstablishmentSigned,
		CreatedAt:            c.CreatedAt,
		UpdatedAt:            c.UpdatedAt,
	}
	if c.RejectionJustification != nil {
		resp.RejectionJustification = *c.RejectionJustification
	}
	return resp
}
