// Package chaos provides fault injection tests for event delivery.
//
// These tests verify that the outbox crawler handles failure scenarios
// correctly, including transient email gateway outages, handlers that panic,
// and events that never deliver and must be quarantined. All tests run
// in-process against the in-memory stores (no external services required).
package chaos

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/convention-service/internal/convention"
	"github.com/helixir/convention-service/internal/domain"
	"github.com/helixir/convention-service/internal/events"
	"github.com/helixir/convention-service/internal/notifications"
	"github.com/helixir/convention-service/internal/repository"
)

// flakyGateway fails each Send until the failure budget is exhausted, then
// delivers normally.
type flakyGateway struct {
	failures int64
	sent     int64
}

func (g *flakyGateway) Send(_ context.Context, _ notifications.Email) error {
	if atomic.AddInt64(&g.failures, -1) >= 0 {
		return errors.New("smtp connection reset")
	}
	atomic.AddInt64(&g.sent, 1)
	return nil
}

type harness struct {
	svc     *convention.Service
	crawler *events.Crawler
	uow     *repository.MemoryUnitOfWork
}

func newHarness(t *testing.T, gateway notifications.EmailGateway, maxAttempts int) *harness {
	t.Helper()

	uow := repository.NewMemoryUnitOfWork()
	svc := convention.NewService(uow, nil, nil, zerolog.Nop(), nil)

	bus := events.NewBus(events.NewFactory(nil, nil), uow.Outbox.Update, zerolog.Nop(), nil)
	notifier := notifications.NewNotifier(gateway, uow.Conventions, zerolog.Nop(), nil)
	require.NoError(t, notifier.RegisterAll(bus))

	crawler := events.NewCrawler(uow.Outbox, bus, events.NewMaxAttemptsPolicy(maxAttempts), 0, zerolog.Nop(), nil)
	return &harness{svc: svc, crawler: crawler, uow: uow}
}

func (h *harness) submit(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := h.svc.Submit(context.Background(), convention.SubmitInput{
		AgencyID:             uuid.New(),
		BeneficiaryFirstName: "Jean",
		BeneficiaryLastName:  "Martin",
		BeneficiaryEmail:     "jean.martin@example.com",
		Siret:                "12345678901234",
		BusinessName:         "Boulangerie du Centre",
		EstablishmentEmail:   "contact@boulangerie.example.com",
		ImmersionActivity:    "Preparation du pain",
		DateStart:            time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC),
		DateEnd:              time.Date(2025, 4, 15, 17, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return id
}

// TestChaos_GatewayFailsThenRecovers verifies that a transient gateway outage
// leaves the event in the backlog with a recorded failure, and that a later
// crawl cycle delivers it once the gateway is back.
func TestChaos_GatewayFailsThenRecovers(t *testing.T) {
	ctx := context.Background()
	gateway := &flakyGateway{failures: 1}
	h := newHarness(t, gateway, 10)

	h.submit(t)

	// First cycle: the first submission email fails, the event stays
	// unpublished.
	require.NoError(t, h.crawler.ProcessEvents(ctx))

	unpublished, err := h.uow.Outbox.GetAllUnpublishedEvents(ctx)
	require.NoError(t, err)
	require.Len(t, unpublished, 1)
	assert.Equal(t, 1, unpublished[0].FailedAttempts())
	assert.False(t, unpublished[0].WasQuarantined)

	// Second cycle: the gateway recovered, the event drains.
	require.NoError(t, h.crawler.ProcessEvents(ctx))

	unpublished, err = h.uow.Outbox.GetAllUnpublishedEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, unpublished)
	assert.Equal(t, int64(2), atomic.LoadInt64(&gateway.sent))
}

// TestChaos_PermanentFailureQuarantines verifies that an event whose handler
// never succeeds accumulates one failed publication per cycle and is
// quarantined once the attempt limit is reached, after which the crawler
// stops retrying it.
func TestChaos_PermanentFailureQuarantines(t *testing.T) {
	ctx := context.Background()
	gateway := &flakyGateway{failures: 1 << 30}
	h := newHarness(t, gateway, 3)

	h.submit(t)

	for cycle := 1; cycle <= 3; cycle++ {
		require.NoError(t, h.crawler.ProcessEvents(ctx))
	}

	unpublished, err := h.uow.Outbox.GetAllUnpublishedEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, unpublished, "quarantined events must leave the backlog")

	// The publication history keeps every failed attempt.
	latest, err := h.uow.Outbox.LatestEventByTopic(ctx, events.TopicApplicationSubmitted, func(events.Payload) bool { return true })
	require.NoError(t, err)
	assert.True(t, latest.WasQuarantined)
	assert.Equal(t, 3, latest.FailedAttempts())
	assert.Len(t, latest.Publications, 3)
}

// TestChaos_PanickingHandlerIsIsolated verifies that a handler panic is
// contained: the publication records the panic as a failure, the other
// subscribers still run, and the crawler survives the cycle.
func TestChaos_PanickingHandlerIsIsolated(t *testing.T) {
	ctx := context.Background()
	gateway := &flakyGateway{}
	h := newHarness(t, gateway, 10)

	uow := h.uow
	bus := events.NewBus(events.NewFactory(nil, nil), uow.Outbox.Update, zerolog.Nop(), nil)

	var delivered int64
	require.NoError(t, bus.Subscribe(events.TopicApplicationSubmitted, "exploding-subscriber",
		func(context.Context, *events.DomainEvent) error {
			panic("subscriber state corrupted")
		}))
	require.NoError(t, bus.Subscribe(events.TopicApplicationSubmitted, "surviving-subscriber",
		func(context.Context, *events.DomainEvent) error {
			atomic.AddInt64(&delivered, 1)
			return nil
		}))

	crawler := events.NewCrawler(uow.Outbox, bus, events.NewMaxAttemptsPolicy(10), 0, zerolog.Nop(), nil)

	h.submit(t)
	require.NoError(t, crawler.ProcessEvents(ctx))

	// The panic counted as a failure, so the event stays in the backlog,
	// but the second subscriber was still invoked.
	unpublished, err := uow.Outbox.GetAllUnpublishedEvents(ctx)
	require.NoError(t, err)
	require.Len(t, unpublished, 1)
	assert.Equal(t, 1, unpublished[0].FailedAttempts())
	assert.Equal(t, int64(1), atomic.LoadInt64(&delivered))

	latest := unpublished[0].LatestPublication()
	require.NotNil(t, latest)
	require.Len(t, latest.Failures, 1)
	assert.Equal(t, "exploding-subscriber", latest.Failures[0].SubscriptionID)
	assert.Contains(t, latest.Failures[0].ErrorMessage, "handler panicked")
}

// TestChaos_TransitionsKeepWorkingDuringOutage verifies that a gateway outage
// never blocks lifecycle operations: state changes commit and enqueue events
// even while delivery is failing.
func TestChaos_TransitionsKeepWorkingDuringOutage(t *testing.T) {
	ctx := context.Background()
	gateway := &flakyGateway{failures: 1 << 30}
	h := newHarness(t, gateway, 100)

	id := h.submit(t)
	_, err := h.svc.ChangeStatus(ctx, id, domain.StatusReadyToSign, domain.RoleBeneficiary, nil)
	require.NoError(t, err)
	_, err = h.svc.Sign(ctx, id, domain.RoleBeneficiary)
	require.NoError(t, err)

	require.NoError(t, h.crawler.ProcessEvents(ctx))

	_, err = h.svc.Sign(ctx, id, domain.RoleEstablishment)
	require.NoError(t, err)

	conv, err := h.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInReview, conv.Status)

	unpublished, err := h.uow.Outbox.GetAllUnpublishedEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, unpublished, 3)
}
