// Package notifications turns domain events into outbound emails. Handlers are
// registered on the event bus under stable subscription names so that delivery
// failures stay attributable to one notification each.
package notifications

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Email is one outbound message.
type Email struct {
	To      string
	Subject string
	Body    string
}

// EmailGateway sends emails. Implementations are opaque to the handlers; a
// failure is reported back to the event bus and retried by the crawler.
type EmailGateway interface {
	Send(ctx context.Context, email Email) error
}

// Compile-time interface verification.
var (
	_ EmailGateway = (*LogEmailGateway)(nil)
	_ EmailGateway = (*RateLimitedGateway)(nil)
)

// LogEmailGateway writes emails to the structured log instead of an SMTP
// relay. Used in local wiring and as the default until a real relay is
// configured.
type LogEmailGateway struct {
	logger zerolog.Logger
}

// NewLogEmailGateway creates a logging email gateway.
func NewLogEmailGateway(logger zerolog.Logger) *LogEmailGateway {
	return &LogEmailGateway{
		logger: logger.With().Str("component", "email_gateway").Logger(),
	}
}

// Send logs the email.
func (g *LogEmailGateway) Send(_ context.Context, email Email) error {
	if email.To == "" {
		return fmt.Errorf("email has no recipient")
	}
	g.logger.Info().
		Str("to", email.To).
		Str("subject", email.Subject).
		Msg("Email sent")
	return nil
}

// RateLimitedGateway wraps another gateway with a token bucket limiter so a
// crawler cycle over a large backlog cannot flood the relay. The underlying
// rate.Limiter is goroutine-safe.
type RateLimitedGateway struct {
	inner   EmailGateway
	limiter *rate.Limiter
}

// NewRateLimitedGateway wraps inner with a sustained rate of perSecond emails
// and the given burst size.
func NewRateLimitedGateway(inner EmailGateway, perSecond float64, burst int) *RateLimitedGateway {
	return &RateLimitedGateway{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Send blocks until the limiter admits the email or the context is canceled.
func (g *RateLimitedGateway) Send(ctx context.Context, email Email) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return g.inner.Send(ctx, email)
}
