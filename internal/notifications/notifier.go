package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/helixir/convention-service/internal/domain"
	"github.com/helixir/convention-service/internal/events"
	"github.com/helixir/convention-service/internal/observability"
)

// ConventionReader is the lookup handlers use to resolve recipient addresses
// for payloads that only carry the convention ID.
type ConventionReader interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Convention, error)
}

// Notifier owns the email handlers for every convention lifecycle topic.
type Notifier struct {
	gateway     EmailGateway
	conventions ConventionReader
	logger      zerolog.Logger
	metrics     *observability.Metrics
}

// NewNotifier creates a Notifier.
func NewNotifier(gateway EmailGateway, conventions ConventionReader, logger zerolog.Logger, metrics *observability.Metrics) *Notifier {
	return &Notifier{
		gateway:     gateway,
		conventions: conventions,
		logger:      logger.With().Str("component", "notifier").Logger(),
		metrics:     metrics,
	}
}

// RegisterAll subscribes every notification handler on the bus under a stable
// subscription name. Registration order is fixed so dispatch order stays
// deterministic.
func (n *Notifier) RegisterAll(bus *events.Bus) error {
	subscriptions := []struct {
		topic   events.Topic
		id      string
		handler events.Handler
	}{
		{events.TopicApplicationSubmitted, "send-submission-confirmation", n.HandleSubmitted},
		{events.TopicApplicationPartiallySigned, "request-remaining-signature", n.HandlePartiallySigned},
		{events.TopicApplicationFullySigned, "confirm-full-signature", n.HandleFullySigned},
		{events.TopicApplicationAcceptedByCounsellor, "notify-counsellor-acceptance", n.HandleAcceptedByCounsellor},
		{events.TopicApplicationAcceptedByValidator, "notify-validator-acceptance", n.HandleAcceptedByValidator},
		{events.TopicApplicationValidated, "announce-validation", n.HandleValidated},
		{events.TopicApplicationRejected, "announce-rejection", n.HandleRejected},
		{events.TopicApplicationRequiresModification, "request-modification", n.HandleRequiresModification},
		{events.TopicApplicationCancelled, "announce-cancellation", n.HandleCancelled},
		{events.TopicMagicLinkRenewalRequested, "send-renewed-magic-link", n.HandleMagicLinkRenewal},
	}

	for _, sub := range subscriptions {
		if err := bus.Subscribe(sub.topic, sub.id, sub.handler); err != nil {
			return fmt.Errorf("register notification %q: %w", sub.id, err)
		}
	}
	return nil
}

// HandleSubmitted confirms the submission to both parties. The payload carries
// the addresses directly, no lookup needed.
func (n *Notifier) HandleSubmitted(ctx context.Context, event *events.DomainEvent) error {
	payload, err := payloadAs[*events.ApplicationSubmittedPayload](event)
	if err != nil {
		return err
	}

	subject := "Immersion application received"
	body := fmt.Sprintf("Application %s was received and is being prepared for signature.", payload.ConventionID)

	if err := n.send(ctx, event.Topic, "beneficiary", Email{To: payload.BeneficiaryEmail, Subject: subject, Body: body}); err != nil {
		return err
	}
	return n.send(ctx, event.Topic, "establishment", Email{To: payload.EstablishmentEmail, Subject: subject, Body: body})
}

// HandlePartiallySigned asks the party that has not signed yet to do so.
func (n *Notifier) HandlePartiallySigned(ctx context.Context, event *events.DomainEvent) error {
	payload, err := payloadAs[*events.ApplicationPartiallySignedPayload](event)
	if err != nil {
		return err
	}

	conv, err := n.conventions.Get(ctx, payload.ConventionID)
	if err != nil {
		return fmt.Errorf("load convention %s: %w", payload.ConventionID, err)
	}

	to, recipient := conv.EstablishmentEmail, "establishment"
	if payload.SignedBy == domain.RoleEstablishment {
		to, recipient = conv.BeneficiaryEmail, "beneficiary"
	}

	return n.send(ctx, event.Topic, recipient, Email{
		To:      to,
		Subject: "Your signature is awaited",
		Body:    fmt.Sprintf("Application %s has been signed by the other party. Please sign to move it into review.", conv.ID),
	})
}

// HandleFullySigned tells both parties the application entered review.
func (n *Notifier) HandleFullySigned(ctx context.Context, event *events.DomainEvent) error {
	payload, err := payloadAs[*events.ApplicationFullySignedPayload](event)
	if err != nil {
		return err
	}
	return n.notifyParties(ctx, event.Topic, payload.ConventionID,
		"Application fully signed",
		"Both signatures were collected. The application is now under review by the agency.")
}

// HandleAcceptedByCounsellor notifies the beneficiary of the first acceptance.
func (n *Notifier) HandleAcceptedByCounsellor(ctx context.Context, event *events.DomainEvent) error {
	payload, err := payloadAs[*events.ApplicationAcceptedByCounsellorPayload](event)
	if err != nil {
		return err
	}

	conv, err := n.conventions.Get(ctx, payload.ConventionID)
	if err != nil {
		return fmt.Errorf("load convention %s: %w", payload.ConventionID, err)
	}

	return n.send(ctx, event.Topic, "beneficiary", Email{
		To:      conv.BeneficiaryEmail,
		Subject: "Application accepted by counsellor",
		Body:    fmt.Sprintf("Application %s was accepted by a counsellor and awaits final validation.", conv.ID),
	})
}

// HandleAcceptedByValidator notifies the beneficiary of the validator acceptance.
func (n *Notifier) HandleAcceptedByValidator(ctx context.Context, event *events.DomainEvent) error {
	payload, err := payloadAs[*events.ApplicationAcceptedByValidatorPayload](event)
	if err != nil {
		return err
	}

	conv, err := n.conventions.Get(ctx, payload.ConventionID)
	if err != nil {
		return fmt.Errorf("load convention %s: %w", payload.ConventionID, err)
	}

	return n.send(ctx, event.Topic, "beneficiary", Email{
		To:      conv.BeneficiaryEmail,
		Subject: "Application accepted by validator",
		Body:    fmt.Sprintf("Application %s was accepted by a validator and awaits final validation.", conv.ID),
	})
}

// HandleValidated announces the final validation to both parties.
func (n *Notifier) HandleValidated(ctx context.Context, event *events.DomainEvent) error {
	payload, err := payloadAs[*events.ApplicationValidatedPayload](event)
	if err != nil {
		return err
	}
	return n.notifyParties(ctx, event.Topic, payload.ConventionID,
		"Application validated",
		"The immersion application was validated. The immersion can take place as planned.")
}

// HandleRejected notifies the roles listed in the payload, with the
// justification.
func (n *Notifier) HandleRejected(ctx context.Context, event *events.DomainEvent) error {
	payload, err := payloadAs[*events.ApplicationRejectedPayload](event)
	if err != nil {
		return err
	}

	conv, err := n.conventions.Get(ctx, payload.ConventionID)
	if err != nil {
		return fmt.Errorf("load convention %s: %w", payload.ConventionID, err)
	}

	subject := "Application rejected"
	body := fmt.Sprintf("Application %s was rejected: %s", conv.ID, payload.Justification)

	for _, role := range payload.NotifyRoles {
		switch role {
		case domain.RoleBeneficiary:
			if err := n.send(ctx, event.Topic, "beneficiary", Email{To: conv.BeneficiaryEmail, Subject: subject, Body: body}); err != nil {
				return err
			}
		case domain.RoleEstablishment:
			if err := n.send(ctx, event.Topic, "establishment", Email{To: conv.EstablishmentEmail, Subject: subject, Body: body}); err != nil {
				return err
			}
		}
	}
	return nil
}

// HandleRequiresModification asks both parties to rework the application.
func (n *Notifier) HandleRequiresModification(ctx context.Context, event *events.DomainEvent) error {
	payload, err := payloadAs[*events.ApplicationRequiresModificationPayload](event)
	if err != nil {
		return err
	}

	body := "The application was sent back to draft for modification."
	if payload.Justification != "" {
		body = fmt.Sprintf("The application was sent back to draft for modification: %s", payload.Justification)
	}
	return n.notifyParties(ctx, event.Topic, payload.ConventionID, "Modification requested", body)
}

// HandleCancelled announces the cancellation to both parties.
func (n *Notifier) HandleCancelled(ctx context.Context, event *events.DomainEvent) error {
	payload, err := payloadAs[*events.ApplicationCancelledPayload](event)
	if err != nil {
		return err
	}
	return n.notifyParties(ctx, event.Topic, payload.ConventionID,
		"Application cancelled",
		"The immersion application was cancelled.")
}

// HandleMagicLinkRenewal sends a fresh signature link to the requesting party.
func (n *Notifier) HandleMagicLinkRenewal(ctx context.Context, event *events.DomainEvent) error {
	payload, err := payloadAs[*events.MagicLinkRenewalRequestedPayload](event)
	if err != nil {
		return err
	}

	return n.send(ctx, event.Topic, string(payload.Role), Email{
		To:      payload.Email,
		Subject: "Your new signature link",
		Body:    fmt.Sprintf("A new signature link for application %s was issued at your request.", payload.ConventionID),
	})
}

// notifyParties sends the same message to the beneficiary and the
// establishment.
func (n *Notifier) notifyParties(ctx context.Context, topic events.Topic, id uuid.UUID, subject, body string) error {
	conv, err := n.conventions.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load convention %s: %w", id, err)
	}

	msg := fmt.Sprintf("%s (application %s)", body, conv.ID)
	if err := n.send(ctx, topic, "beneficiary", Email{To: conv.BeneficiaryEmail, Subject: subject, Body: msg}); err != nil {
		return err
	}
	return n.send(ctx, topic, "establishment", Email{To: conv.EstablishmentEmail, Subject: subject, Body: msg})
}

// send delivers one email and records the outcome.
func (n *Notifier) send(ctx context.Context, topic events.Topic, recipient string, email Email) error {
	if err := n.gateway.Send(ctx, email); err != nil {
		n.metrics.RecordNotificationFailed(string(topic), recipient)
		n.logger.Error().Err(err).
			Str("topic", string(topic)).
			Str("recipient", recipient).
			Msg("Failed to send notification")
		return err
	}
	n.metrics.RecordNotificationSent(string(topic), recipient)
	return nil
}

// payloadAs asserts the payload variant registered for the event's topic.
func payloadAs[T events.Payload](event *events.DomainEvent) (T, error) {
	payload, ok := event.Payload.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("unexpected payload type %T for topic %q", event.Payload, event.Topic)
	}
	return payload, nil
}
