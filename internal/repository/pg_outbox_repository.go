package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	jsoniter "github.com/json-iterator/go"

	"github.com/helixir/convention-service/internal/domain"
	"github.com/helixir/convention-service/internal/events"
)

var json = jsoniter.ConfigFastest

// Compile-time interface verification.
var _ OutboxRepository = (*PgOutboxRepository)(nil)

// PgOutboxRepository is a PostgreSQL implementation of OutboxRepository. Events
// live in the outbox_events table with payload and publication history stored
// as JSONB.
type PgOutboxRepository struct {
	db DBTX
}

// NewPgOutboxRepository creates a new PostgreSQL outbox repository.
func NewPgOutboxRepository(db DBTX) *PgOutboxRepository {
	return &PgOutboxRepository{db: db}
}

// Save inserts a new outbox event.
func (r *PgOutboxRepository) Save(ctx context.Context, event *events.DomainEvent) error {
	if event == nil {
		return domain.NewValidationError("event", "event cannot be nil")
	}
	if event.ID == uuid.Nil {
		return domain.NewValidationError("id", "event ID is required")
	}
	if event.Payload == nil {
		return domain.NewValidationError("payload", "event payload is required")
	}

	payload, publications, err := encodeEvent(event)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO outbox_events (id, occurred_at, topic, payload, publications, was_quarantined)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = r.db.Exec(ctx, query,
		event.ID, event.OccurredAt, event.Topic, payload, publications, event.WasQuarantined,
	)
	if err != nil {
		if isPgUniqueViolation(err) {
			return domain.NewAlreadyExistsError("event", event.ID.String())
		}
		return fmt.Errorf("failed to save event: %w", err)
	}

	return nil
}

// Update rewrites the publication history and quarantine flag of an event. The
// immutable columns (topic, payload, occurred_at) stay untouched.
func (r *PgOutboxRepository) Update(ctx context.Context, event *events.DomainEvent) error {
	if event == nil {
		return domain.NewValidationError("event", "event cannot be nil")
	}

	publications, err := json.Marshal(event.Publications)
	if err != nil {
		return fmt.Errorf("failed to marshal publications for event %s: %w", event.ID, err)
	}

	query := `
		UPDATE outbox_events
		SET publications = $1, was_quarantined = $2
		WHERE id = $3`

	result, err := r.db.Exec(ctx, query, publications, event.WasQuarantined, event.ID)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("event", event.ID.String())
	}

	return nil
}

// GetAllUnpublishedEvents returns every non-quarantined event whose latest
// dispatch attempt is missing or recorded handler failures, oldest first.
func (r *PgOutboxRepository) GetAllUnpublishedEvents(ctx context.Context) ([]*events.DomainEvent, error) {
	query := `
		SELECT id, occurred_at, topic, payload, publications, was_quarantined
		FROM outbox_events
		WHERE was_quarantined = FALSE
			AND (jsonb_array_length(publications) = 0
				OR jsonb_array_length(publications -> -1 -> 'failures') > 0)
		ORDER BY occurred_at ASC, id ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get unpublished events: %w", err)
	}
	defer rows.Close()

	var result []*events.DomainEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		result = append(result, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return result, nil
}

// LatestEventByTopic returns the most recent event on the given topic whose
// payload satisfies match. A nil match accepts every payload. Returns
// ErrNotFound when no event qualifies.
func (r *PgOutboxRepository) LatestEventByTopic(ctx context.Context, topic events.Topic, match func(events.Payload) bool) (*events.DomainEvent, error) {
	query := `
		SELECT id, occurred_at, topic, payload, publications, was_quarantined
		FROM outbox_events
		WHERE topic = $1
		ORDER BY occurred_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to get events by topic: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if match == nil || match(event.Payload) {
			return event, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return nil, domain.NewNotFoundError("event", string(topic))
}

// encodeEvent serializes the JSONB columns of an event.
func encodeEvent(event *events.DomainEvent) (payload, publications []byte, err error) {
	payload, err = events.MarshalPayload(event.Payload)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal payload for event %s: %w", event.ID, err)
	}
	publications, err = json.Marshal(event.Publications)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal publications for event %s: %w", event.ID, err)
	}
	return payload, publications, nil
}

// scanEvent scans a single row into a DomainEvent, decoding the JSONB columns.
func scanEvent(row pgx.Row) (*events.DomainEvent, error) {
	var (
		event        events.DomainEvent
		payload      []byte
		publications []byte
	)
	err := row.Scan(&event.ID, &event.OccurredAt, &event.Topic, &payload, &publications, &event.WasQuarantined)
	if err != nil {
		return nil, err
	}

	event.Payload, err = events.UnmarshalPayload(event.Topic, payload)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(publications, &event.Publications); err != nil {
		return nil, fmt.Errorf("unmarshal publications for event %s: %w", event.ID, err)
	}

	return &event, nil
}
