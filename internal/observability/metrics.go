package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the convention service.
// Metrics are organized by subsystem: conventions, outbox events, the
// crawler and notifications. Everything registers via promauto against the
// default registry. All Record methods tolerate a nil receiver so that
// components can run without metrics wired.
type Metrics struct {
	// ConventionsSubmitted counts the conventions created.
	ConventionsSubmitted prometheus.Counter

	// StatusChanges counts successful status transitions, labeled by source and target status.
	StatusChanges *prometheus.CounterVec

	// StatusChangesRefused counts refused transition requests, labeled by refusal reason.
	StatusChangesRefused *prometheus.CounterVec

	// EventsSaved counts domain events written to the outbox, labeled by topic.
	EventsSaved *prometheus.CounterVec

	// EventPublications counts dispatch attempts, labeled by topic and outcome.
	EventPublications *prometheus.CounterVec

	// EventsQuarantined counts events excluded from further retries, labeled by topic.
	EventsQuarantined *prometheus.CounterVec

	// CrawlCycles counts completed crawl cycles.
	CrawlCycles prometheus.Counter

	// CrawlCycleDuration observes crawl cycle duration in seconds.
	CrawlCycleDuration prometheus.Histogram

	// CrawlBatchSize observes the number of unpublished events per cycle.
	CrawlBatchSize prometheus.Histogram

	// NotificationsSent counts notifications delivered, labeled by topic and recipient role.
	NotificationsSent *prometheus.CounterVec

	// NotificationsFailed counts notification deliveries that failed, labeled by topic and recipient role.
	NotificationsFailed *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ConventionsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conventions_submitted_total",
			Help:      "Total number of conventions submitted",
		}),
		StatusChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_changes_total",
			Help:      "Total number of successful status transitions",
		}, []string{"from", "to"}),
		StatusChangesRefused: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_changes_refused_total",
			Help:      "Total number of refused status transition requests",
		}, []string{"reason"}),
		EventsSaved: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_saved_total",
			Help:      "Total number of domain events written to the outbox",
		}, []string{"topic"}),
		EventPublications: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publications_total",
			Help:      "Total number of event dispatch attempts",
		}, []string{"topic", "outcome"}),
		EventsQuarantined: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_quarantined_total",
			Help:      "Total number of events quarantined after repeated failures",
		}, []string{"topic"}),
		CrawlCycles: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crawl_cycles_total",
			Help:      "Total number of completed crawl cycles",
		}),
		CrawlCycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "crawl_cycle_duration_seconds",
			Help:      "Duration of crawl cycles in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}),
		CrawlBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "crawl_batch_size",
			Help:      "Number of unpublished events fetched per crawl cycle",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}),
		NotificationsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Total number of notifications delivered",
		}, []string{"topic", "recipient"}),
		NotificationsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_failed_total",
			Help:      "Total number of notification deliveries that failed",
		}, []string{"topic", "recipient"}),
	}
}

// RecordConventionSubmitted records that a convention was created.
func (m *Metrics) RecordConventionSubmitted() {
	if m == nil {
		return
	}
	m.ConventionsSubmitted.Inc()
}

// RecordStatusChange records a successful status transition.
func (m *Metrics) RecordStatusChange(from, to string) {
	if m == nil {
		return
	}
	m.StatusChanges.WithLabelValues(from, to).Inc()
}

// RecordStatusChangeRefused records a refused transition request.
func (m *Metrics) RecordStatusChangeRefused(reason string) {
	if m == nil {
		return
	}
	m.StatusChangesRefused.WithLabelValues(reason).Inc()
}

// RecordEventSaved records a domain event written to the outbox.
func (m *Metrics) RecordEventSaved(topic string) {
	if m == nil {
		return
	}
	m.EventsSaved.WithLabelValues(topic).Inc()
}

// RecordEventPublication records a dispatch attempt and its outcome.
func (m *Metrics) RecordEventPublication(topic string, success bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.EventPublications.WithLabelValues(topic, outcome).Inc()
}

// RecordEventQuarantined records an event excluded from further retries.
func (m *Metrics) RecordEventQuarantined(topic string) {
	if m == nil {
		return
	}
	m.EventsQuarantined.WithLabelValues(topic).Inc()
}

// RecordCrawlCycle records a completed crawl cycle.
func (m *Metrics) RecordCrawlCycle(duration time.Duration, batchSize int) {
	if m == nil {
		return
	}
	m.CrawlCycles.Inc()
	m.CrawlCycleDuration.Observe(duration.Seconds())
	m.CrawlBatchSize.Observe(float64(batchSize))
}

// RecordNotificationSent records a delivered notification.
func (m *Metrics) RecordNotificationSent(topic, recipient string) {
	if m == nil {
		return
	}
	m.NotificationsSent.WithLabelValues(topic, recipient).Inc()
}

// RecordNotificationFailed records a failed notification delivery.
func (m *Metrics) RecordNotificationFailed(topic, recipient string) {
	if m == nil {
		return
	}
	m.NotificationsFailed.WithLabelValues(topic, recipient).Inc()
}
