package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReturnMetrics records the return lifecycle counters and latencies.
type ReturnMetrics struct {
	transitions   *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	notifications *prometheus.CounterVec
}

// NewReturnMetrics registers the return lifecycle metrics on the provided registerer.
func NewReturnMetrics(reg prometheus.Registerer) *ReturnMetrics {
	if reg == nil {
		return &ReturnMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "return_request_transitions_total",
		Help: "Return request transitions by request type, action and result.",
	}, []string{"type", "action", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "return_request_transition_duration_seconds",
		Help:    "Time spent applying a return request transition.",
		Buckets: prometheus.DefBuckets,
	}, []string{"type", "action"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "return_notification_failures_total",
		Help: "Notifications that could not be delivered after a transition.",
	}, []string{"action"})
	reg.MustRegister(transitions, duration, notifications)
	return &ReturnMetrics{
		transitions:   transitions,
		duration:      duration,
		notifications: notifications,
	}
}

// ObserveTransition counts one transition attempt and its latency.
func (m *ReturnMetrics) ObserveTransition(requestType, action, result string, elapsed time.Duration) {
	if m == nil || m.transitions == nil {
		return
	}
	requestType = normalizeLabel(requestType)
	action = normalizeLabel(action)
	m.transitions.WithLabelValues(requestType, action, normalizeLabel(result)).Inc()
	m.duration.WithLabelValues(requestType, action).Observe(elapsed.Seconds())
}

// IncNotificationFailure counts a dispatch failure for the given action.
func (m *ReturnMetrics) IncNotificationFailure(action string) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.WithLabelValues(normalizeLabel(action)).Inc()
}
