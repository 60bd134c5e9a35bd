package events

// QuarantinePolicy decides when an event should stop being retried by the
// crawler. Quarantined events remain in the store for manual inspection.
type QuarantinePolicy interface {
	ShouldQuarantine(event *DomainEvent) bool
}

// MaxAttemptsPolicy quarantines an event once it has accumulated the
// configured number of failed dispatch attempts.
type MaxAttemptsPolicy struct {
	MaxAttempts int
}

// NewMaxAttemptsPolicy creates a MaxAttemptsPolicy. A non-positive limit
// disables quarantining.
func NewMaxAttemptsPolicy(maxAttempts int) MaxAttemptsPolicy {
	return MaxAttemptsPolicy{MaxAttempts: maxAttempts}
}

// ShouldQuarantine implements QuarantinePolicy.
func (p MaxAttemptsPolicy) ShouldQuarantine(event *DomainEvent) bool {
	if p.MaxAttempts <= 0 {
		return false
	}
	return event.FailedAttempts() >= p.MaxAttempts
}
