package convention

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/helixir/convention-service/internal/domain"
	"github.com/helixir/convention-service/internal/events"
	"github.com/helixir/convention-service/internal/observability"
	"github.com/helixir/convention-service/internal/repository"
)

// Refusal reasons recorded on the status change counter.
const (
	refusalForbidden         = "forbidden"
	refusalNotFound          = "not_found"
	refusalIllegalTransition = "illegal_transition"
	refusalInvalidInput      = "invalid_input"
)

// Service orchestrates the convention lifecycle. Every mutation persists the
// entity and its domain event through one unit of work, so neither can be
// observed without the other.
type Service struct {
	uow         repository.UnitOfWork
	factory     *events.Factory
	transitions TransitionTable
	logger      zerolog.Logger
	metrics     *observability.Metrics
}

// NewService creates a convention Service. A nil factory defaults to the real
// clock and random UUIDs; a nil transitions table defaults to
// DefaultTransitionTable.
func NewService(uow repository.UnitOfWork, factory *events.Factory, transitions TransitionTable, logger zerolog.Logger, metrics *observability.Metrics) *Service {
	if factory == nil {
		factory = events.NewFactory(nil, nil)
	}
	if transitions == nil {
		transitions = DefaultTransitionTable()
	}
	return &Service{
		uow:         uow,
		factory:     factory,
		transitions: transitions,
		logger:      logger.With().Str("component", "convention_service").Logger(),
		metrics:     metrics,
	}
}

// SubmitInput carries the fields of a new convention submission.
type SubmitInput struct {
	AgencyID             uuid.UUID
	BeneficiaryFirstName string
	BeneficiaryLastName  string
	BeneficiaryEmail     string
	Siret                string
	BusinessName         string
	EstablishmentEmail   string
	ImmersionActivity    string
	ImmersionObjective   string
	DateStart            time.Time
	DateEnd              time.Time
}

// Submit creates a new draft convention and records the submission event in
// the same transaction.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (uuid.UUID, error) {
	if input.AgencyID == uuid.Nil {
		return uuid.Nil, domain.NewValidationError("agency_id", "agency ID is required")
	}
	if input.BeneficiaryEmail == "" {
		return uuid.Nil, domain.NewValidationError("beneficiary_email", "beneficiary email is required")
	}
	if input.EstablishmentEmail == "" {
		return uuid.Nil, domain.NewValidationError("establishment_email", "establishment email is required")
	}
	if input.Siret == "" {
		return uuid.Nil, domain.NewValidationError("siret", "establishment SIRET is required")
	}
	if !input.DateEnd.After(input.DateStart) {
		return uuid.Nil, domain.NewValidationError("date_end", "immersion end date must be after start date")
	}

	now := s.factory.Now()
	conv := &domain.Convention{
		ID:                   s.factory.NewID(),
		AgencyID:             input.AgencyID,
		BeneficiaryFirstName: input.BeneficiaryFirstName,
		BeneficiaryLastName:  input.BeneficiaryLastName,
		BeneficiaryEmail:     input.BeneficiaryEmail,
		Siret:                input.Siret,
		BusinessName:         input.BusinessName,
		EstablishmentEmail:   input.EstablishmentEmail,
		ImmersionActivity:    input.ImmersionActivity,
		ImmersionObjective:   input.ImmersionObjective,
		DateStart:            input.DateStart,
		DateEnd:              input.DateEnd,
		Status:               domain.StatusDraft,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	event := s.factory.NewEvent(&events.ApplicationSubmittedPayload{
		ConventionID:       conv.ID,
		AgencyID:           conv.AgencyID,
		BeneficiaryEmail:   conv.BeneficiaryEmail,
		EstablishmentEmail: conv.EstablishmentEmail,
		DateStart:          conv.DateStart,
		DateEnd:            conv.DateEnd,
	})

	err := s.uow.WithinTx(ctx, func(ctx context.Context, stores repository.Stores) error {
		if err := stores.Conventions.Create(ctx, conv); err != nil {
			return err
		}
		return stores.Outbox.Save(ctx, event)
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to submit convention: %w", err)
	}

	s.metrics.RecordConventionSubmitted()
	s.metrics.RecordEventSaved(string(event.Topic))
	logger := observability.WithConventionContext(s.logger, conv.ID.String(), conv.AgencyID.String())
	logger.Info().Msg("Convention submitted")

	return conv.ID, nil
}

// ChangeStatus moves a convention to the requested status on behalf of the
// acting role. The role check runs before the entity is loaded so that
// unauthorized callers learn nothing about the convention's existence. On
// success the new status and the configured event (if any) are persisted in
// one transaction and the convention ID is returned.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, target domain.ConventionStatus, role domain.Role, justification *string) (uuid.UUID, error) {
	transition, ok := s.transitions[target]
	if !ok {
		s.metrics.RecordStatusChangeRefused(refusalInvalidInput)
		return uuid.Nil, domain.NewValidationError("status", fmt.Sprintf("no transition leads to status %q", target))
	}

	if !transition.AllowsRole(role) {
		s.metrics.RecordStatusChangeRefused(refusalForbidden)
		return uuid.Nil, domain.NewForbiddenError(role, fmt.Sprintf("change status to %q", target))
	}

	if target == domain.StatusRejected && (justification == nil || *justification == "") {
		s.metrics.RecordStatusChangeRefused(refusalInvalidInput)
		return uuid.Nil, domain.NewValidationError("justification", "rejection requires a justification")
	}

	var from domain.ConventionStatus
	err := s.uow.WithinTx(ctx, func(ctx context.Context, stores repository.Stores) error {
		conv, err := stores.Conventions.Get(ctx, id)
		if err != nil {
			return err
		}

		from = conv.Status
		if !transition.AllowsFrom(conv.Status) {
			return domain.NewStatusTransitionError(conv.Status, target)
		}

		s.applySideEffects(conv, target, justification)
		conv.Status = target
		conv.UpdatedAt = s.factory.Now()

		if err := stores.Conventions.Update(ctx, conv); err != nil {
			return err
		}

		if transition.Topic == "" {
			return nil
		}
		event := s.factory.NewEvent(s.eventPayload(transition.Topic, conv, justification))
		if err := stores.Outbox.Save(ctx, event); err != nil {
			return err
		}
		s.metrics.RecordEventSaved(string(event.Topic))
		return nil
	})
	if err != nil {
		s.recordRefusal(err)
		return uuid.Nil, err
	}

	s.metrics.RecordStatusChange(string(from), string(target))
	s.logger.Info().
		Str("convention_id", id.String()).
		Str("from", string(from)).
		Str("to", string(target)).
		Str("role", string(role)).
		Msg("Convention status changed")

	return id, nil
}

// Sign records the signature of one of the two signing parties and routes the
// convention to partially_signed or, once both parties signed, to in_review.
func (s *Service) Sign(ctx context.Context, id uuid.UUID, role domain.Role) (uuid.UUID, error) {
	if role != domain.RoleBeneficiary && role != domain.RoleEstablishment {
		s.metrics.RecordStatusChangeRefused(refusalForbidden)
		return uuid.Nil, domain.NewForbiddenError(role, "sign a convention")
	}

	var from, target domain.ConventionStatus
	err := s.uow.WithinTx(ctx, func(ctx context.Context, stores repository.Stores) error {
		conv, err := stores.Conventions.Get(ctx, id)
		if err != nil {
			return err
		}

		if conv.HasSigned(role) {
			return domain.NewValidationError("role", fmt.Sprintf("role %q has already signed", role))
		}

		switch role {
		case domain.RoleBeneficiary:
			conv.BeneficiarySigned = true
		case domain.RoleEstablishment:
			conv.EstablishmentSigned = true
		}

		from = conv.Status
		target = domain.StatusPartiallySigned
		if conv.FullySigned() {
			target = domain.StatusInReview
		}

		transition := s.transitions[target]
		if !transition.AllowsFrom(conv.Status) {
			return domain.NewStatusTransitionError(conv.Status, target)
		}
		conv.Status = target
		conv.UpdatedAt = s.factory.Now()

		if err := stores.Conventions.Update(ctx, conv); err != nil {
			return err
		}

		event := s.factory.NewEvent(s.signaturePayload(conv, role, transition.Topic))
		if err := stores.Outbox.Save(ctx, event); err != nil {
			return err
		}
		s.metrics.RecordEventSaved(string(event.Topic))
		return nil
	})
	if err != nil {
		s.recordRefusal(err)
		return uuid.Nil, err
	}

	s.metrics.RecordStatusChange(string(from), string(target))
	s.logger.Info().
		Str("convention_id", id.String()).
		Str("role", string(role)).
		Str("to", string(target)).
		Msg("Convention signed")

	return id, nil
}

// RenewMagicLink records a request for a fresh signature link for the given
// party. The event is the side channel a link-issuing worker listens on.
func (s *Service) RenewMagicLink(ctx context.Context, id uuid.UUID, role domain.Role) error {
	if role != domain.RoleBeneficiary && role != domain.RoleEstablishment {
		return domain.NewForbiddenError(role, "renew a magic link")
	}

	err := s.uow.WithinTx(ctx, func(ctx context.Context, stores repository.Stores) error {
		conv, err := stores.Conventions.Get(ctx, id)
		if err != nil {
			return err
		}

		email := conv.BeneficiaryEmail
		if role == domain.RoleEstablishment {
			email = conv.EstablishmentEmail
		}

		event := s.factory.NewEvent(&events.MagicLinkRenewalRequestedPayload{
			ConventionID: conv.ID,
			Email:        email,
			Role:         role,
		})
		if err := stores.Outbox.Save(ctx, event); err != nil {
			return err
		}
		s.metrics.RecordEventSaved(string(event.Topic))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to request magic link renewal: %w", err)
	}

	s.logger.Info().
		Str("convention_id", id.String()).
		Str("role", string(role)).
		Msg("Magic link renewal requested")

	return nil
}

// LatestRenewalRequest returns the most recent magic link renewal recorded for
// the convention, or domain.ErrNotFound when none was ever requested.
func (s *Service) LatestRenewalRequest(ctx context.Context, id uuid.UUID) (*events.MagicLinkRenewalRequestedPayload, error) {
	var payload *events.MagicLinkRenewalRequestedPayload
	err := s.uow.WithinTx(ctx, func(ctx context.Context, stores repository.Stores) error {
		event, err := stores.Outbox.LatestEventByTopic(ctx, events.TopicMagicLinkRenewalRequested, func(p events.Payload) bool {
			renewal, ok := p.(*events.MagicLinkRenewalRequestedPayload)
			return ok && renewal.ConventionID == id
		})
		if err != nil {
			return err
		}
		payload = event.Payload.(*events.MagicLinkRenewalRequestedPayload)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// Get loads a convention by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Convention, error) {
	var conv *domain.Convention
	err := s.uow.WithinTx(ctx, func(ctx context.Context, stores repository.Stores) error {
		var err error
		conv, err = stores.Conventions.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// applySideEffects applies the field changes coupled to specific transitions.
func (s *Service) applySideEffects(conv *domain.Convention, target domain.ConventionStatus, justification *string) {
	switch target {
	case domain.StatusRejected:
		conv.RejectionJustification = justification
	case domain.StatusDraft:
		// Sending the case back for rework invalidates prior signatures.
		conv.ResetSignatures()
	}
}

// eventPayload builds the payload configured for a transition topic.
func (s *Service) eventPayload(topic events.Topic, conv *domain.Convention, justification *string) events.Payload {
	reason := ""
	if justification != nil {
		reason = *justification
	}

	switch topic {
	case events.TopicApplicationAcceptedByCounsellor:
		return &events.ApplicationAcceptedByCounsellorPayload{ConventionID: conv.ID}
	case events.TopicApplicationAcceptedByValidator:
		return &events.ApplicationAcceptedByValidatorPayload{ConventionID: conv.ID}
	case events.TopicApplicationValidated:
		return &events.ApplicationValidatedPayload{ConventionID: conv.ID}
	case events.TopicApplicationRejected:
		return &events.ApplicationRejectedPayload{
			ConventionID:  conv.ID,
			Justification: reason,
			NotifyRoles:   []domain.Role{domain.RoleBeneficiary, domain.RoleEstablishment},
		}
	case events.TopicApplicationRequiresModification:
		return &events.ApplicationRequiresModificationPayload{
			ConventionID:  conv.ID,
			Justification: reason,
		}
	case events.TopicApplicationCancelled:
		return &events.ApplicationCancelledPayload{ConventionID: conv.ID}
	case events.TopicApplicationPartiallySigned:
		return &events.ApplicationPartiallySignedPayload{ConventionID: conv.ID}
	case events.TopicApplicationFullySigned:
		return &events.ApplicationFullySignedPayload{ConventionID: conv.ID, AgencyID: conv.AgencyID}
	default:
		return &events.ApplicationSubmittedPayload{ConventionID: conv.ID, AgencyID: conv.AgencyID}
	}
}

// signaturePayload builds the payload for a signature transition.
func (s *Service) signaturePayload(conv *domain.Convention, role domain.Role, topic events.Topic) events.Payload {
	if topic == events.TopicApplicationFullySigned {
		return &events.ApplicationFullySignedPayload{ConventionID: conv.ID, AgencyID: conv.AgencyID}
	}
	return &events.ApplicationPartiallySignedPayload{ConventionID: conv.ID, SignedBy: role}
}

// recordRefusal maps a use case error to a refusal reason on the metrics.
func (s *Service) recordRefusal(err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.metrics.RecordStatusChangeRefused(refusalNotFound)
	case errors.Is(err, domain.ErrIllegalTransition):
		s.metrics.RecordStatusChangeRefused(refusalIllegalTransition)
	case errors.Is(err, domain.ErrInvalidInput):
		s.metrics.RecordStatusChangeRefused(refusalInvalidInput)
	}
}
