package events

import (
	"time"

	"github.com/google/uuid"
)

// EventFailure records one handler that failed during a dispatch attempt.
type EventFailure struct {
	SubscriptionID string `json:"subscription_id"`
	ErrorMessage   string `json:"error_message"`
}

// EventPublication records one dispatch attempt. An empty Failures list means
// every subscribed handler succeeded.
type EventPublication struct {
	PublishedAt time.Time      `json:"published_at"`
	Failures    []EventFailure `json:"failures"`
}

// DomainEvent is the persisted unit of work output: a fact plus its delivery
// history. Publications is append-only.
type DomainEvent struct {
	ID             uuid.UUID
	OccurredAt     time.Time
	Topic          Topic
	Payload        Payload
	Publications   []EventPublication
	WasQuarantined bool
}

// LatestPublication returns the most recent dispatch attempt, or nil when the
// event has never been published.
func (e *DomainEvent) LatestPublication() *EventPublication {
	if len(e.Publications) == 0 {
		return nil
	}
	return &e.Publications[len(e.Publications)-1]
}

// IsPublished returns true once the latest dispatch attempt completed without
// any handler failure.
func (e *DomainEvent) IsPublished() bool {
	last := e.LatestPublication()
	return last != nil && len(last.Failures) == 0
}

// FailedAttempts counts the dispatch attempts that recorded at least one
// handler failure.
func (e *DomainEvent) FailedAttempts() int {
	n := 0
	for _, p := range e.Publications {
		if len(p.Failures) > 0 {
			n++
		}
	}
	return n
}

// Factory builds DomainEvents with injected clock and ID generators so that
// tests can produce deterministic events.
type Factory struct {
	now   func() time.Time
	newID func() uuid.UUID
}

// NewFactory creates a Factory. Nil generators default to the real clock and
// random UUIDs.
func NewFactory(now func() time.Time, newID func() uuid.UUID) *Factory {
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = uuid.New
	}
	return &Factory{now: now, newID: newID}
}

// NewEvent creates a fresh unpublished DomainEvent for the given payload. The
// topic is taken from the payload, so the two can never disagree.
func (f *Factory) NewEvent(payload Payload) *DomainEvent {
	return &DomainEvent{
		ID:           f.newID(),
		OccurredAt:   f.now().UTC(),
		Topic:        payload.EventTopic(),
		Payload:      payload,
		Publications: []EventPublication{},
	}
}

// Now exposes the factory clock for publication timestamps.
func (f *Factory) Now() time.Time {
	return f.now().UTC()
}

// NewID exposes the factory ID generator for entity identifiers.
func (f *Factory) NewID() uuid.UUID {
	return f.newID()
}
