package repository

import (
	"context"

	"github.com/helixir/convention-service/internal/events"
)

// OutboxRepository is the durable store for domain events. Save participates
// in the same transaction as the entity mutation that produced the event, so
// a rolled-back mutation leaves no orphan event behind.
type OutboxRepository interface {
	// Save persists a new domain event.
	Save(ctx context.Context, event *events.DomainEvent) error

	// Update persists the delivery bookkeeping of an existing event
	// (publications and quarantine flag).
	Update(ctx context.Context, event *events.DomainEvent) error

	// GetAllUnpublishedEvents returns every event with zero publications or
	// whose latest publication recorded a failure, excluding quarantined
	// ones, in stable creation order.
	GetAllUnpublishedEvents(ctx context.Context) ([]*events.DomainEvent, error)

	// LatestEventByTopic returns the most recent event of the given topic
	// whose payload satisfies the match predicate, or domain.ErrNotFound.
	LatestEventByTopic(ctx context.Context, topic events.Topic, match func(events.Payload) bool) (*events.DomainEvent, error)
}
