package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestWebhookMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWebhookMetrics(reg)

	m.IncReceived("stripe", "invoice.payment_failed")
	m.IncReceived("stripe", "invoice.payment_failed")
	m.IncOutcome("stripe", "invoice.payment_failed", OutcomeFailed)
	m.IncOutcome("stripe", "", OutcomeIgnored)
	m.IncDuplicate("stripe")
	m.ObserveDuration("stripe", "invoice.payment_failed", 25*time.Millisecond)

	if got := testutil.ToFloat64(m.received.WithLabelValues("stripe", "invoice.payment_failed")); got != 2 {
		t.Fatalf("expected 2 received, got %v", got)
	}
	if got := testutil.ToFloat64(m.processed.WithLabelValues("stripe", "invoice.payment_failed", OutcomeFailed)); got != 1 {
		t.Fatalf("expected 1 failed, got %v", got)
	}
	if got := testutil.ToFloat64(m.processed.WithLabelValues("stripe", "unknown", OutcomeIgnored)); got != 1 {
		t.Fatalf("expected empty event type to be labelled unknown, got %v", got)
	}
	if got := testutil.ToFloat64(m.duplicate.WithLabelValues("stripe")); got != 1 {
		t.Fatalf("expected 1 duplicate, got %v", got)
	}
	if count := testutil.CollectAndCount(m.duration); count != 1 {
		t.Fatalf("expected one histogram series, got %d", count)
	}
}

func TestWebhookMetricsNilSafe(t *testing.T) {
	var m *WebhookMetrics
	m.IncReceived("stripe", "x")
	m.IncOutcome("stripe", "x", OutcomeHandled)
	m.IncDuplicate("stripe")
	m.ObserveDuration("stripe", "x", time.Second)

	noop := NewWebhookMetrics(nil)
	noop.IncReceived("stripe", "x")
}
