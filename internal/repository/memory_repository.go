package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/helixir/convention-service/internal/domain"
	"github.com/helixir/convention-service/internal/events"
)

// Compile-time interface verification.
var (
	_ ConventionRepository = (*MemoryConventionRepository)(nil)
	_ OutboxRepository     = (*MemoryOutboxRepository)(nil)
	_ UnitOfWork           = (*MemoryUnitOfWork)(nil)
)

// MemoryConventionRepository is an in-memory ConventionRepository used in
// tests and in deterministic local wiring. Stored conventions are copied on
// the way in and out, so callers never share memory with the store.
type MemoryConventionRepository struct {
	mu          sync.RWMutex
	conventions map[uuid.UUID]domain.Convention
}

// NewMemoryConventionRepository creates an empty in-memory convention store.
func NewMemoryConventionRepository() *MemoryConventionRepository {
	return &MemoryConventionRepository{conventions: make(map[uuid.UUID]domain.Convention)}
}

// Create inserts a new convention.
func (r *MemoryConventionRepository) Create(_ context.Context, convention *domain.Convention) error {
	if convention == nil {
		return domain.NewValidationError("convention", "convention cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conventions[convention.ID]; ok {
		return domain.NewAlreadyExistsError("convention", convention.ID.String())
	}
	r.conventions[convention.ID] = *convention
	return nil
}

// Get retrieves a convention by its ID.
func (r *MemoryConventionRepository) Get(_ context.Context, id uuid.UUID) (*domain.Convention, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	convention, ok := r.conventions[id]
	if !ok {
		return nil, domain.NewNotFoundError("convention", id.String())
	}
	return &convention, nil
}

// Update persists all mutable fields of a convention.
func (r *MemoryConventionRepository) Update(_ context.Context, convention *domain.Convention) error {
	if convention == nil {
		return domain.NewValidationError("convention", "convention cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conventions[convention.ID]; !ok {
		return domain.NewNotFoundError("convention", convention.ID.String())
	}
	r.conventions[convention.ID] = *convention
	return nil
}

// MemoryOutboxRepository is an in-memory OutboxRepository. Events keep their
// insertion order, which stands in for creation order.
type MemoryOutboxRepository struct {
	mu     sync.RWMutex
	events []events.DomainEvent
}

// NewMemoryOutboxRepository creates an empty in-memory outbox.
func NewMemoryOutboxRepository() *MemoryOutboxRepository {
	return &MemoryOutboxRepository{}
}

// Save persists a new domain event.
func (r *MemoryOutboxRepository) Save(_ context.Context, event *events.DomainEvent) error {
	if event == nil {
		return domain.NewValidationError("event", "event cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.events {
		if existing.ID == event.ID {
			return domain.NewAlreadyExistsError("event", event.ID.String())
		}
	}
	r.events = append(r.events, copyEvent(event))
	return nil
}

// Update persists the delivery bookkeeping of an existing event.
func (r *MemoryOutboxRepository) Update(_ context.Context, event *events.DomainEvent) error {
	if event == nil {
		return domain.NewValidationError("event", "event cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.events {
		if r.events[i].ID == event.ID {
			r.events[i] = copyEvent(event)
			return nil
		}
	}
	return domain.NewNotFoundError("event", event.ID.String())
}

// GetAllUnpublishedEvents returns every non-quarantined event whose latest
// publication is missing or failed, in insertion order.
func (r *MemoryOutboxRepository) GetAllUnpublishedEvents(_ context.Context) ([]*events.DomainEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*events.DomainEvent
	for i := range r.events {
		if r.events[i].WasQuarantined || r.events[i].IsPublished() {
			continue
		}
		event := copyEvent(&r.events[i])
		result = append(result, &event)
	}
	return result, nil
}

// LatestEventByTopic returns the most recent event of the topic whose payload
// satisfies match, or domain.ErrNotFound.
func (r *MemoryOutboxRepository) LatestEventByTopic(_ context.Context, topic events.Topic, match func(events.Payload) bool) (*events.DomainEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Topic != topic {
			continue
		}
		if match == nil || match(r.events[i].Payload) {
			event := copyEvent(&r.events[i])
			return &event, nil
		}
	}
	return nil, domain.NewNotFoundError("event", string(topic))
}

// copyEvent clones an event with its own publications slice. The payload is
// shared; payloads are treated as immutable once created.
func copyEvent(event *events.DomainEvent) events.DomainEvent {
	clone := *event
	clone.Publications = make([]events.EventPublication, len(event.Publications))
	copy(clone.Publications, event.Publications)
	return clone
}

// MemoryUnitOfWork runs use case functions against in-memory stores with
// transactional semantics: when the function returns an error, both stores
// roll back to their state before the call.
type MemoryUnitOfWork struct {
	mu          sync.Mutex
	Conventions *MemoryConventionRepository
	Outbox      *MemoryOutboxRepository
}

// NewMemoryUnitOfWork creates a unit of work over fresh in-memory stores.
func NewMemoryUnitOfWork() *MemoryUnitOfWork {
	return &MemoryUnitOfWork{
		Conventions: NewMemoryConventionRepository(),
		Outbox:      NewMemoryOutboxRepository(),
	}
}

// WithinTx executes fn against the in-memory stores, restoring their previous
// state when fn fails. Transactions are serialized.
func (u *MemoryUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	conventionsBackup := u.snapshotConventions()
	outboxBackup := u.snapshotOutbox()

	err := fn(ctx, Stores{Conventions: u.Conventions, Outbox: u.Outbox})
	if err != nil {
		u.Conventions.conventions = conventionsBackup
		u.Outbox.events = outboxBackup
		return err
	}
	return nil
}

func (u *MemoryUnitOfWork) snapshotConventions() map[uuid.UUID]domain.Convention {
	u.Conventions.mu.RLock()
	defer u.Conventions.mu.RUnlock()

	backup := make(map[uuid.UUID]domain.Convention, len(u.Conventions.conventions))
	for id, convention := range u.Conventions.conventions {
		backup[id] = convention
	}
	return backup
}

func (u *MemoryUnitOfWork) snapshotOutbox() []events.DomainEvent {
	u.Outbox.mu.RLock()
	defer u.Outbox.mu.RUnlock()

	backup := make([]events.DomainEvent, len(u.Outbox.events))
	copy(backup, u.Outbox.events)
	return backup
}
