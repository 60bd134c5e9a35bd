package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/convention-service/internal/observability"
)

// Store is the slice of the outbox the crawler needs: fetching undelivered
// work and persisting quarantine decisions.
type Store interface {
	GetAllUnpublishedEvents(ctx context.Context) ([]*DomainEvent, error)
	Update(ctx context.Context, event *DomainEvent) error
}

// Crawler drains the outbox by pushing every unpublished event through the
// bus. It supports on-demand flushing via ProcessEvents and a periodic mode
// via Start. At most one cycle runs at a time; a cycle starting while another
// is in flight is skipped rather than allowed to overlap.
type Crawler struct {
	store    Store
	bus      *Bus
	policy   QuarantinePolicy
	interval time.Duration
	logger   zerolog.Logger
	metrics  *observability.Metrics

	cycleMu  sync.Mutex
	wg       sync.WaitGroup
	mu       sync.RWMutex
	stopOnce sync.Once
	stopChan chan struct{}
	started  bool
}

// NewCrawler creates a Crawler. An interval of zero or less disables the
// periodic mode; the crawler then only runs through ProcessEvents.
func NewCrawler(store Store, bus *Bus, policy QuarantinePolicy, interval time.Duration, logger zerolog.Logger, metrics *observability.Metrics) *Crawler {
	return &Crawler{
		store:    store,
		bus:      bus,
		policy:   policy,
		interval: interval,
		logger:   logger.With().Str("component", "event_crawler").Logger(),
		metrics:  metrics,
		stopChan: make(chan struct{}),
	}
}

// ProcessEvents fetches every unpublished event and publishes each one
// through the bus exactly once, returning when all attempts complete. If a
// cycle is already in flight the call is a no-op.
func (c *Crawler) ProcessEvents(ctx context.Context) error {
	if !c.cycleMu.TryLock() {
		c.logger.Debug().Msg("crawl cycle already in flight, skipping")
		return nil
	}
	defer c.cycleMu.Unlock()

	start := time.Now()
	unpublished, err := c.store.GetAllUnpublishedEvents(ctx)
	if err != nil {
		return fmt.Errorf("fetch unpublished events: %w", err)
	}

	var errs []error
	for _, event := range unpublished {
		publication, err := c.bus.Publish(ctx, event)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(publication.Failures) > 0 && c.policy != nil && c.policy.ShouldQuarantine(event) {
			event.WasQuarantined = true
			if err := c.store.Update(ctx, event); err != nil {
				errs = append(errs, fmt.Errorf("quarantine event %s: %w", event.ID, err))
				continue
			}
			c.metrics.RecordEventQuarantined(string(event.Topic))
			c.logger.Error().
				Str("event_id", event.ID.String()).
				Str("topic", string(event.Topic)).
				Int("failed_attempts", event.FailedAttempts()).
				Msg("event quarantined, manual intervention required")
		}
	}

	c.metrics.RecordCrawlCycle(time.Since(start), len(unpublished))
	if len(unpublished) > 0 {
		c.logger.Info().
			Int("events", len(unpublished)).
			Dur("duration", time.Since(start)).
			Msg("crawl cycle complete")
	}
	return errors.Join(errs...)
}

// Start begins the periodic crawl loop. It blocks until the context is
// cancelled or Stop is called. With a non-positive interval it returns
// immediately.
func (c *Crawler) Start(ctx context.Context) {
	if c.interval <= 0 {
		c.logger.Info().Msg("periodic crawling disabled, on-demand only")
		return
	}

	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		c.logger.Warn().Msg("crawler already started")
		return
	}
	c.started = true
	c.mu.Unlock()

	c.logger.Info().Dur("interval", c.interval).Msg("crawler starting")
	defer c.logger.Info().Msg("crawler stopped")

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopChan:
			return
		case <-ticker.C:
			select {
			case <-c.stopChan:
				return
			default:
			}
			c.runCycle(ctx)
		}
	}
}

// runCycle executes one crawl so that Stop can wait for in-flight work.
func (c *Crawler) runCycle(ctx context.Context) {
	c.wg.Add(1)
	defer c.wg.Done()

	select {
	case <-ctx.Done():
		return
	default:
	}

	if err := c.ProcessEvents(ctx); err != nil {
		c.logger.Error().Err(err).Msg("crawl cycle failed")
	}
}

// Stop shuts down the crawler and waits for an in-progress cycle to complete.
// Safe to call multiple times and regardless of whether Start ran; once
// stopped, a later Start returns immediately.
func (c *Crawler) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
	c.wg.Wait()
}
