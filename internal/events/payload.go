package events

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/helixir/convention-service/internal/domain"
)

var json = jsoniter.ConfigFastest

// Payload is the tagged union of event payloads. Each variant reports its own
// topic, so an event's topic and payload shape can never disagree.
type Payload interface {
	EventTopic() Topic
}

// ApplicationSubmittedPayload is emitted when a convention is first submitted.
type ApplicationSubmittedPayload struct {
	ConventionID       uuid.UUID `json:"convention_id"`
	AgencyID           uuid.UUID `json:"agency_id"`
	BeneficiaryEmail   string    `json:"beneficiary_email"`
	EstablishmentEmail string    `json:"establishment_email"`
	DateStart          time.Time `json:"date_start"`
	DateEnd            time.Time `json:"date_end"`
}

// EventTopic implements Payload.
func (ApplicationSubmittedPayload) EventTopic() Topic { return TopicApplicationSubmitted }

// ApplicationPartiallySignedPayload is emitted when the first of the two
// signing parties signs.
type ApplicationPartiallySignedPayload struct {
	ConventionID uuid.UUID   `json:"convention_id"`
	SignedBy     domain.Role `json:"signed_by"`
}

// EventTopic implements Payload.
func (ApplicationPartiallySignedPayload) EventTopic() Topic { return TopicApplicationPartiallySigned }

// ApplicationFullySignedPayload is emitted once both parties have signed.
type ApplicationFullySignedPayload struct {
	ConventionID uuid.UUID `json:"convention_id"`
	AgencyID     uuid.UUID `json:"agency_id"`
}

// EventTopic implements Payload.
func (ApplicationFullySignedPayload) EventTopic() Topic { return TopicApplicationFullySigned }

// ApplicationAcceptedByCounsellorPayload is emitted when a counsellor accepts.
type ApplicationAcceptedByCounsellorPayload struct {
	ConventionID uuid.UUID `json:"convention_id"`
}

// EventTopic implements Payload.
func (ApplicationAcceptedByCounsellorPayload) EventTopic() Topic {
	return TopicApplicationAcceptedByCounsellor
}

// ApplicationAcceptedByValidatorPayload is emitted when a validator accepts.
type ApplicationAcceptedByValidatorPayload struct {
	ConventionID uuid.UUID `json:"convention_id"`
}

// EventTopic implements Payload.
func (ApplicationAcceptedByValidatorPayload) EventTopic() Topic {
	return TopicApplicationAcceptedByValidator
}

// ApplicationValidatedPayload is emitted when an admin validates the convention.
type ApplicationValidatedPayload struct {
	ConventionID uuid.UUID `json:"convention_id"`
}

// EventTopic implements Payload.
func (ApplicationValidatedPayload) EventTopic() Topic { return TopicApplicationValidated }

// ApplicationRejectedPayload carries the rejection reason and the roles that
// must be notified.
type ApplicationRejectedPayload struct {
	ConventionID  uuid.UUID     `json:"convention_id"`
	Justification string        `json:"justification"`
	NotifyRoles   []domain.Role `json:"notify_roles"`
}

// EventTopic implements Payload.
func (ApplicationRejectedPayload) EventTopic() Topic { return TopicApplicationRejected }

// ApplicationRequiresModificationPayload is emitted when a convention is sent
// back to draft for rework.
type ApplicationRequiresModificationPayload struct {
	ConventionID  uuid.UUID `json:"convention_id"`
	Justification string    `json:"justification"`
}

// EventTopic implements Payload.
func (ApplicationRequiresModificationPayload) EventTopic() Topic {
	return TopicApplicationRequiresModification
}

// ApplicationCancelledPayload is emitted when a convention is cancelled.
type ApplicationCancelledPayload struct {
	ConventionID uuid.UUID `json:"convention_id"`
}

// EventTopic implements Payload.
func (ApplicationCancelledPayload) EventTopic() Topic { return TopicApplicationCancelled }

// MagicLinkRenewalRequestedPayload is emitted when an actor asks for a fresh
// signature link.
type MagicLinkRenewalRequestedPayload struct {
	ConventionID uuid.UUID   `json:"convention_id"`
	Email        string      `json:"email"`
	Role         domain.Role `json:"role"`
}

// EventTopic implements Payload.
func (MagicLinkRenewalRequestedPayload) EventTopic() Topic { return TopicMagicLinkRenewalRequested }

// payloadFactories maps each topic to a constructor for its payload variant.
// Decoding an unknown topic is an error, never a silent fallback.
var payloadFactories = map[Topic]func() Payload{
	TopicApplicationSubmitted:            func() Payload { return &ApplicationSubmittedPayload{} },
	TopicApplicationPartiallySigned:      func() Payload { return &ApplicationPartiallySignedPayload{} },
	TopicApplicationFullySigned:          func() Payload { return &ApplicationFullySignedPayload{} },
	TopicApplicationAcceptedByCounsellor: func() Payload { return &ApplicationAcceptedByCounsellorPayload{} },
	TopicApplicationAcceptedByValidator:  func() Payload { return &ApplicationAcceptedByValidatorPayload{} },
	TopicApplicationValidated:            func() Payload { return &ApplicationValidatedPayload{} },
	TopicApplicationRejected:             func() Payload { return &ApplicationRejectedPayload{} },
	TopicApplicationRequiresModification: func() Payload { return &ApplicationRequiresModificationPayload{} },
	TopicApplicationCancelled:            func() Payload { return &ApplicationCancelledPayload{} },
	TopicMagicLinkRenewalRequested:       func() Payload { return &MagicLinkRenewalRequestedPayload{} },
}

// MarshalPayload serializes a payload for storage in the outbox.
func MarshalPayload(p Payload) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal payload for topic %q: %w", p.EventTopic(), err)
	}
	return data, nil
}

// UnmarshalPayload deserializes a stored payload into the variant registered
// for the given topic.
func UnmarshalPayload(topic Topic, data []byte) (Payload, error) {
	factory, ok := payloadFactories[topic]
	if !ok {
		return nil, fmt.Errorf("unknown event topic %q", topic)
	}
	p := factory()
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("unmarshal payload for topic %q: %w", topic, err)
	}
	return p, nil
}
