package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/helixir/convention-service/internal/observability"
)

// Handler consumes one event. Handlers subscribed to the same topic run
// sequentially in registration order; a handler must not assume it is the
// only one.
type Handler func(ctx context.Context, event *DomainEvent) error

// SaveFunc persists an event after a dispatch attempt so that delivery
// history survives process restarts. Typically bound to the outbox update.
type SaveFunc func(ctx context.Context, event *DomainEvent) error

type subscription struct {
	id      string
	handler Handler
}

// Bus is the in-process publish/subscribe register. It owns its subscription
// map; independent Bus instances are fully isolated.
type Bus struct {
	factory *Factory
	save    SaveFunc
	logger  zerolog.Logger
	metrics *observability.Metrics

	mu            sync.RWMutex
	subscriptions map[Topic][]subscription
}

// NewBus creates a Bus. The save callback records each publication; the
// metrics handle may be nil.
func NewBus(factory *Factory, save SaveFunc, logger zerolog.Logger, metrics *observability.Metrics) *Bus {
	return &Bus{
		factory:       factory,
		save:          save,
		logger:        logger.With().Str("component", "event_bus").Logger(),
		metrics:       metrics,
		subscriptions: make(map[Topic][]subscription),
	}
}

// Subscribe registers a named handler for a topic. The subscription ID must be
// unique per topic so that failures can be attributed to a specific logical
// consumer across restarts.
func (b *Bus) Subscribe(topic Topic, subscriptionID string, handler Handler) error {
	if subscriptionID == "" {
		return fmt.Errorf("subscription id is required")
	}
	if handler == nil {
		return fmt.Errorf("handler is required for subscription %q", subscriptionID)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subscriptions[topic] {
		if sub.id == subscriptionID {
			return fmt.Errorf("subscription %q already registered on topic %q", subscriptionID, topic)
		}
	}

	b.subscriptions[topic] = append(b.subscriptions[topic], subscription{
		id:      subscriptionID,
		handler: handler,
	})
	return nil
}

// Publish invokes every handler subscribed to the event's topic, sequentially
// in registration order. Each handler's error (or panic) is recorded as an
// EventFailure and dispatch continues to the next handler. The resulting
// publication is appended to the event and persisted through the save
// callback. Handler failures never fail the caller; only a persistence
// failure of the bookkeeping is returned.
func (b *Bus) Publish(ctx context.Context, event *DomainEvent) (EventPublication, error) {
	b.mu.RLock()
	subs := b.subscriptions[event.Topic]
	b.mu.RUnlock()

	failures := []EventFailure{}
	for _, sub := range subs {
		if err := b.invoke(ctx, sub, event); err != nil {
			failures = append(failures, EventFailure{
				SubscriptionID: sub.id,
				ErrorMessage:   err.Error(),
			})
			b.logger.Warn().
				Str("event_id", event.ID.String()).
				Str("topic", string(event.Topic)).
				Str("subscription_id", sub.id).
				Err(err).
				Msg("event handler failed")
		}
	}

	publication := EventPublication{
		PublishedAt: b.factory.Now(),
		Failures:    failures,
	}
	event.Publications = append(event.Publications, publication)

	b.metrics.RecordEventPublication(string(event.Topic), len(failures) == 0)

	if b.save != nil {
		if err := b.save(ctx, event); err != nil {
			return publication, fmt.Errorf("persist publication for event %s: %w", event.ID, err)
		}
	}
	return publication, nil
}

// invoke runs one handler, converting a panic into an ordinary error so that
// a misbehaving handler cannot abort dispatch to the others.
func (b *Bus) invoke(ctx context.Context, sub subscription, event *DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return sub.handler(ctx, event)
}
