package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Webhook outcome labels.
const (
	OutcomeHandled = "handled"
	OutcomeFailed  = "failed"
	OutcomeIgnored = "ignored"
)

// WebhookMetrics records inbound payment provider events by type and outcome.
type WebhookMetrics struct {
	received  *prometheus.CounterVec
	processed *prometheus.CounterVec
	duplicate *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_received_total",
		Help: "Verified webhook events received, by provider and event type.",
	}, []string{"provider", "event_type"})
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_processed_total",
		Help: "Webhook events by dispatch outcome (handled, failed, ignored).",
	}, []string{"provider", "event_type", "outcome"})
	duplicate := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_duplicate_total",
		Help: "Webhook deliveries skipped because the event id was already seen.",
	}, []string{"provider"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_handler_duration_seconds",
		Help:    "Duration of webhook handlers in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "event_type"})
	reg.MustRegister(received, processed, duplicate, duration)
	return &WebhookMetrics{
		received:  received,
		processed: processed,
		duplicate: duplicate,
		duration:  duration,
	}
}

// IncReceived counts a verified event.
func (m *WebhookMetrics) IncReceived(provider, eventType string) {
	if m == nil || m.received == nil {
		return
	}
	m.received.WithLabelValues(normalizeLabel(provider), normalizeLabel(eventType)).Inc()
}

// IncOutcome counts the dispatch outcome for an event.
func (m *WebhookMetrics) IncOutcome(provider, eventType, outcome string) {
	if m == nil || m.processed == nil {
		return
	}
	m.processed.WithLabelValues(normalizeLabel(provider), normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// IncDuplicate counts a delivery short-circuited by the idempotency guard.
func (m *WebhookMetrics) IncDuplicate(provider string) {
	if m == nil || m.duplicate == nil {
		return
	}
	m.duplicate.WithLabelValues(normalizeLabel(provider)).Inc()
}

// ObserveDuration records how long the handler for eventType ran.
func (m *WebhookMetrics) ObserveDuration(provider, eventType string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(provider), normalizeLabel(eventType)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
