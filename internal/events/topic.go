// Package events implements the transactional event-dispatch engine: the
// persisted DomainEvent model, the in-process EventBus and the background
// Crawler that drains the outbox.
package events

// Topic identifies an event's kind and, transitively, its payload shape.
// These values are stored in the outbox_events table.
type Topic string

const (
	TopicApplicationSubmitted            Topic = "application.submitted"
	TopicApplicationPartiallySigned      Topic = "application.partially_signed"
	TopicApplicationFullySigned          Topic = "application.fully_signed"
	TopicApplicationAcceptedByCounsellor Topic = "application.accepted_by_counsellor"
	TopicApplicationAcceptedByValidator  Topic = "application.accepted_by_validator"
	TopicApplicationValidated            Topic = "application.validated"
	TopicApplicationRejected             Topic = "application.rejected"
	TopicApplicationRequiresModification Topic = "application.requires_modification"
	TopicApplicationCancelled            Topic = "application.cancelled"
	TopicMagicLinkRenewalRequested       Topic = "magic_link.renewal_requested"
)

// IsValid returns true if the topic is one of the known enum values.
func (t Topic) IsValid() bool {
	_, ok := payloadFactories[t]
	return ok
}
