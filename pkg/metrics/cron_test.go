package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronMetricsTracksOutcomesAndLastSuccess(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronMetrics(reg)
	finished := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)

	m.ObserveRun("stale-return-nudge", 2*time.Second, nil, finished)
	m.ObserveRun("stale-return-nudge", time.Second, errors.New("db down"), finished.Add(time.Hour))
	m.ObserveCycle("ran")
	m.ObserveCycle("skipped")
	m.ObserveCycle("skipped")

	mfs, err := reg.Gather()
	require.NoError(t, err)

	count, err := fetchHistogramCount(mfs, "cron_job_duration_seconds", "job", "stale-return-nudge")
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	failures, err := fetchCounterValue(mfs, "cron_job_runs_total", "outcome", "failure")
	require.NoError(t, err)
	assert.Equal(t, 1.0, failures)

	last, err := fetchGaugeValue(mfs, "cron_job_last_success_timestamp_seconds", "job", "stale-return-nudge")
	require.NoError(t, err)
	assert.Equal(t, float64(finished.Unix()), last, "a failure must not move the success timestamp")

	skipped, err := fetchCounterValue(mfs, "cron_cycles_total", "result", "skipped")
	require.NoError(t, err)
	assert.Equal(t, 2.0, skipped)
}

func TestCronMetricsNilSafe(t *testing.T) {
	var m *CronMetrics
	m.ObserveRun("job", time.Second, nil, time.Now())
	m.ObserveCycle("ran")
	NewCronMetrics(nil).ObserveRun("", 0, nil, time.Now())
}
