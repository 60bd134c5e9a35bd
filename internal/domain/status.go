// Package domain provides domain models and business logic for the Convention Service.
package domain

// ConventionStatus represents the lifecycle states of a convention.
// These values must match the database enum convention_status.
type ConventionStatus string

const (
	StatusDraft                ConventionStatus = "draft"
	StatusReadyToSign          ConventionStatus = "ready_to_sign"
	StatusPartiallySigned      ConventionStatus = "partially_signed"
	StatusInReview             ConventionStatus = "in_review"
	StatusAcceptedByCounsellor ConventionStatus = "accepted_by_counsellor"
	StatusAcceptedByValidator  ConventionStatus = "accepted_by_validator"
	StatusValidated            ConventionStatus = "validated"
	StatusRejected             ConventionStatus = "rejected"
	StatusCancelled            ConventionStatus = "cancelled"
)

// IsTerminal returns true if the status represents a final state that will not change.
func (s ConventionStatus) IsTerminal() bool {
	switch s {
	case StatusValidated, StatusRejected, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsValid returns true if the status is one of the known enum values.
func (s ConventionStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusReadyToSign, StatusPartiallySigned, StatusInReview,
		StatusAcceptedByCounsellor, StatusAcceptedByValidator,
		StatusValidated, StatusRejected, StatusCancelled:
		return true
	default:
		return false
	}
}

// Role represents the acting party on a convention.
// These values must match the database enum actor_role.
type Role string

const (
	RoleBeneficiary   Role = "beneficiary"
	RoleEstablishment Role = "establishment"
	RoleCounsellor    Role = "counsellor"
	RoleValidator     Role = "validator"
	RoleAdmin         Role = "admin"
)

// IsValid returns true if the role is one of the known enum values.
func (r Role) IsValid() bool {
	switch r {
	case RoleBeneficiary, RoleEstablishment, RoleCounsellor, RoleValidator, RoleAdmin:
		return true
	default:
		return false
	}
}
