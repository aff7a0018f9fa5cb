package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestReturnMetricsExportsTransitionSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReturnMetrics(reg)
	m.ObserveTransition("RETURN", "approve", "success", 40*time.Millisecond)
	m.ObserveTransition("RETURN", "approve", "invalid_transition", time.Millisecond)
	m.IncNotificationFailure("approve")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "return_request_transitions_total", "result", "success"); err != nil {
		t.Fatalf("fetch transitions: %v", err)
	} else if got != 1 {
		t.Fatalf("expected one successful transition, got %f", got)
	}
	if got, err := fetchHistogramSum(mfs, "return_request_transition_duration_seconds", "action", "approve"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "return_notification_failures_total", "action", "approve"); err != nil {
		t.Fatalf("fetch notification failures: %v", err)
	} else if got != 1 {
		t.Fatalf("expected one notification failure, got %f", got)
	}
}

func TestReturnMetricsNilSafe(t *testing.T) {
	var m *ReturnMetrics
	m.ObserveTransition("RETURN", "approve", "success", time.Second)
	m.IncNotificationFailure("reject")

	unregistered := NewReturnMetrics(nil)
	unregistered.ObserveTransition("", "", "", 0)
}
