package cron

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/returns-engine/pkg/logger"
	"github.com/angelmondragon/returns-engine/pkg/metrics"
)

type fakeLock struct {
	mu       sync.Mutex
	held     bool
	ttl      time.Duration
	stolen   bool
	renewals int
	released int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Renew(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renewals++
	return !f.stolen, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.held = false
	f.released++
	return nil
}

func (f *fakeLock) TTL() time.Duration { return f.ttl }

type testJob struct {
	name  string
	err   error
	runs  int
	block bool
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(ctx context.Context) error {
	t.runs++
	if t.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return t.err
}

func newTestService(t *testing.T, lock Lock, jobs ...Job) (*Service, *prometheus.Registry) {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test", Output: &bytes.Buffer{}}),
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronMetrics(reg),
	})
	require.NoError(t, err)
	return service, reg
}

func cycleCount(t *testing.T, reg *prometheus.Registry, result string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "cron_cycles_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "result" && label.GetValue() == result {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	success := &testJob{name: "success"}
	failure := &testJob{name: "fail", err: errors.New("boom")}
	lock := &fakeLock{ttl: time.Minute}
	service, reg := newTestService(t, lock, success, failure)

	require.NoError(t, service.runCycle(context.Background()))

	assert.Equal(t, 1, success.runs)
	assert.Equal(t, 1, failure.runs)
	assert.Equal(t, 1, lock.released)
	assert.Equal(t, float64(1), cycleCount(t, reg, "ran"))
}

func TestServiceSkipsCycleWhenLockHeldElsewhere(t *testing.T) {
	job := &testJob{name: "noop"}
	lock := &fakeLock{held: true, ttl: time.Minute}
	service, reg := newTestService(t, lock, job)

	require.NoError(t, service.runCycle(context.Background()))

	assert.Zero(t, job.runs)
	assert.Zero(t, lock.released)
	assert.Equal(t, float64(1), cycleCount(t, reg, "skipped"))
}

func TestServiceAbandonsCycleWhenLockIsLost(t *testing.T) {
	stuck := &testJob{name: "stuck", block: true}
	after := &testJob{name: "after"}
	lock := &fakeLock{ttl: 30 * time.Millisecond, stolen: true}
	service, reg := newTestService(t, lock, stuck, after)

	err := service.runCycle(context.Background())

	require.ErrorIs(t, err, errLockLost)
	assert.Equal(t, 1, stuck.runs)
	assert.Zero(t, after.runs, "jobs after the takeover must not run")
	assert.GreaterOrEqual(t, lock.renewals, 1)
	assert.Equal(t, float64(1), cycleCount(t, reg, "lock_lost"))
}

func TestServiceBoundsEachJob(t *testing.T) {
	stuck := &testJob{name: "stuck", block: true}
	next := &testJob{name: "next"}
	service, _ := newTestService(t, &fakeLock{ttl: time.Minute}, stuck, next)
	service.jobTimeout = 10 * time.Millisecond

	require.NoError(t, service.runCycle(context.Background()))
	assert.Equal(t, 1, next.runs)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)
}
