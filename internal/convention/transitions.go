// Package convention implements the lifecycle use cases of a convention:
// submission, signature collection, review decisions and magic link renewal.
// Every status change is gated by a single transition table and persists the
// entity together with its domain event in one transaction.
package convention

import (
	"github.com/helixir/convention-service/internal/domain"
	"github.com/helixir/convention-service/internal/events"
)

// Transition describes one row of the status transition table: who may request
// the target status, from which statuses, and which event topic (if any) a
// successful transition emits.
type Transition struct {
	ValidRoles           []domain.Role
	ValidInitialStatuses []domain.ConventionStatus
	Topic                events.Topic // empty when the transition has no notification side effect
}

// AllowsRole reports whether the role may request this transition.
func (t Transition) AllowsRole(role domain.Role) bool {
	for _, r := range t.ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// AllowsFrom reports whether the transition is legal from the given status.
func (t Transition) AllowsFrom(status domain.ConventionStatus) bool {
	for _, s := range t.ValidInitialStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// TransitionTable maps each reachable target status to its transition rules.
// It is the single source of truth for who can move a convention where.
type TransitionTable map[domain.ConventionStatus]Transition

// signingParties are the two roles whose signatures a convention collects.
var signingParties = []domain.Role{domain.RoleBeneficiary, domain.RoleEstablishment}

// allRoles lists every known actor role.
var allRoles = []domain.Role{
	domain.RoleBeneficiary, domain.RoleEstablishment,
	domain.RoleCounsellor, domain.RoleValidator, domain.RoleAdmin,
}

// reviewStatuses are the statuses a convention passes through between
// submission for signature and a terminal decision.
var reviewStatuses = []domain.ConventionStatus{
	domain.StatusReadyToSign, domain.StatusPartiallySigned, domain.StatusInReview,
	domain.StatusAcceptedByCounsellor, domain.StatusAcceptedByValidator,
}

// DefaultTransitionTable returns the transition rules of the convention
// lifecycle. Adding a transition means adding a row here, not new branching
// logic in the service.
func DefaultTransitionTable() TransitionTable {
	return TransitionTable{
		domain.StatusReadyToSign: {
			ValidRoles:           signingParties,
			ValidInitialStatuses: []domain.ConventionStatus{domain.StatusDraft},
			// Submitting for signature notifies nobody.
		},
		domain.StatusPartiallySigned: {
			ValidRoles:           signingParties,
			ValidInitialStatuses: []domain.ConventionStatus{domain.StatusReadyToSign},
			Topic:                events.TopicApplicationPartiallySigned,
		},
		domain.StatusInReview: {
			ValidRoles:           signingParties,
			ValidInitialStatuses: []domain.ConventionStatus{domain.StatusPartiallySigned},
			Topic:                events.TopicApplicationFullySigned,
		},
		domain.StatusAcceptedByCounsellor: {
			ValidRoles:           []domain.Role{domain.RoleCounsellor},
			ValidInitialStatuses: []domain.ConventionStatus{domain.StatusInReview},
			Topic:                events.TopicApplicationAcceptedByCounsellor,
		},
		domain.StatusAcceptedByValidator: {
			ValidRoles: []domain.Role{domain.RoleValidator},
			ValidInitialStatuses: []domain.ConventionStatus{
				domain.StatusInReview, domain.StatusAcceptedByCounsellor,
			},
			Topic: events.TopicApplicationAcceptedByValidator,
		},
		domain.StatusValidated: {
			ValidRoles: []domain.Role{domain.RoleAdmin},
			ValidInitialStatuses: []domain.ConventionStatus{
				domain.StatusAcceptedByCounsellor, domain.StatusAcceptedByValidator,
			},
			Topic: events.TopicApplicationValidated,
		},
		domain.StatusRejected: {
			ValidRoles:           []domain.Role{domain.RoleCounsellor, domain.RoleValidator, domain.RoleAdmin},
			ValidInitialStatuses: reviewStatuses,
			Topic:                events.TopicApplicationRejected,
		},
		domain.StatusDraft: {
			// Sending a convention back for rework is open to every role.
			ValidRoles: allRoles,
			ValidInitialStatuses: []domain.ConventionStatus{
				domain.StatusReadyToSign, domain.StatusPartiallySigned, domain.StatusInReview,
			},
			Topic: events.TopicApplicationRequiresModification,
		},
		domain.StatusCancelled: {
			ValidRoles: []domain.Role{domain.RoleBeneficiary, domain.RoleEstablishment, domain.RoleAdmin},
			ValidInitialStatuses: []domain.ConventionStatus{
				domain.StatusDraft, domain.StatusReadyToSign,
				domain.StatusPartiallySigned, domain.StatusInReview,
			},
			Topic: events.TopicApplicationCancelled,
		},
	}
}
