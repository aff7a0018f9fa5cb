package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics tracks what the outbox publisher does with each row.
type OutboxMetrics struct {
	events *prometheus.CounterVec
	batch  prometheus.Histogram
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_total",
		Help: "Outbox rows handled by the publisher, by event type and outcome.",
	}, []string{"event_type", "outcome"})
	batch := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "outbox_batch_duration_seconds",
		Help:    "Time spent publishing one outbox batch.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(events, batch)
	return &OutboxMetrics{events: events, batch: batch}
}

// ObserveEvent counts one row outcome: published, retry or dead_lettered.
func (m *OutboxMetrics) ObserveEvent(eventType, outcome string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

func (m *OutboxMetrics) ObserveBatch(elapsed time.Duration) {
	if m == nil || m.batch == nil {
		return
	}
	m.batch.Observe(elapsed.Seconds())
}
