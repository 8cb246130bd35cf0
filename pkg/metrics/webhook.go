package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebhookMetrics tracks payment webhook processing outcomes.
type WebhookMetrics struct {
	processed  *prometheus.CounterVec
	duplicates prometheus.Counter
	failures   *prometheus.CounterVec
}

// NewWebhookMetrics registers webhook counters on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_processed",
		Help: "Payment webhook events processed, by event type.",
	}, []string{"event_type"})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webhook_events_duplicate",
		Help: "Payment webhook events skipped as replays.",
	})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_failed",
		Help: "Payment webhook events that failed processing, by event type.",
	}, []string{"event_type"})
	reg.MustRegister(processed, duplicates, failures)
	return &WebhookMetrics{
		processed:  processed,
		duplicates: duplicates,
		failures:   failures,
	}
}

// IncProcessed records a successfully handled event.
func (w *WebhookMetrics) IncProcessed(eventType string) {
	if w == nil || w.processed == nil {
		return
	}
	w.processed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncDuplicate records a replayed event that was skipped.
func (w *WebhookMetrics) IncDuplicate() {
	if w == nil || w.duplicates == nil {
		return
	}
	w.duplicates.Inc()
}

// IncFailed records an event whose handler returned an error.
func (w *WebhookMetrics) IncFailed(eventType string) {
	if w == nil || w.failures == nil {
		return
	}
	w.failures.WithLabelValues(normalizeLabel(eventType)).Inc()
}
