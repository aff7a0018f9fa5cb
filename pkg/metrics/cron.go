package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CronMetrics covers the scheduler: one series per job run plus lock
// contention between cron-worker replicas.
type CronMetrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	cycles      *prometheus.CounterVec
}

func NewCronMetrics(reg prometheus.Registerer) *CronMetrics {
	if reg == nil {
		return &CronMetrics{}
	}
	m := &CronMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cron_job_runs_total",
			Help: "Cron job executions by job and outcome (success, failure).",
		}, []string{"job", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cron_job_duration_seconds",
			Help:    "Wall time of one cron job execution.",
			Buckets: []float64{0.05, 0.25, 1, 5, 15, 60, 300},
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cron_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run. Alert when it stops moving.",
		}, []string{"job"}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cron_cycles_total",
			Help: "Scheduler cycles by result (ran, skipped, lock_lost).",
		}, []string{"result"}),
	}
	reg.MustRegister(m.runs, m.duration, m.lastSuccess, m.cycles)
	return m
}

// ObserveRun records one job execution finishing at now.
func (m *CronMetrics) ObserveRun(job string, elapsed time.Duration, err error, now time.Time) {
	if m == nil || m.runs == nil {
		return
	}
	job = normalizeLabel(job)
	m.duration.WithLabelValues(job).Observe(elapsed.Seconds())
	if err != nil {
		m.runs.WithLabelValues(job, "failure").Inc()
		return
	}
	m.runs.WithLabelValues(job, "success").Inc()
	m.lastSuccess.WithLabelValues(job).Set(float64(now.Unix()))
}

// ObserveCycle counts a scheduler tick by result.
func (m *CronMetrics) ObserveCycle(result string) {
	if m == nil || m.cycles == nil {
		return
	}
	m.cycles.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
