package domain

import (
	"time"

	"github.com/google/uuid"
)

// Convention represents an immersion application between a beneficiary,
// a host establishment and an oversight agency. It is stored in the
// conventions table.
type Convention struct {
	ID                     uuid.UUID
	AgencyID               uuid.UUID
	BeneficiaryFirstName   string
	BeneficiaryLastName    string
	BeneficiaryEmail       string
	Siret                  string
	BusinessName           string
	EstablishmentEmail     string
	ImmersionActivity      string
	ImmersionObjective     string
	DateStart              time.Time
	DateEnd                time.Time
	Status                 ConventionStatus
	RejectionJustification *string
	BeneficiarySigned      bool
	EstablishmentSigned    bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// FullySigned returns true once both parties have signed.
func (c *Convention) FullySigned() bool {
	return c.BeneficiarySigned && c.EstablishmentSigned
}

// HasSigned reports whether the given role has already signed. Roles that are
// not signing parties never count as signed.
func (c *Convention) HasSigned(role Role) bool {
	switch role {
	case RoleBeneficiary:
		return c.BeneficiarySigned
	case RoleEstablishment:
		return c.EstablishmentSigned
	default:
		return false
	}
}

// ResetSignatures clears both signature flags. Used when a convention is sent
// back to draft for modification.
func (c *Convention) ResetSignatures() {
	c.BeneficiarySigned = false
	c.EstablishmentSigned = false
}
