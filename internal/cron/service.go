package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/returns-engine/pkg/logger"
	"github.com/angelmondragon/returns-engine/pkg/metrics"
)

const (
	defaultInterval   = 15 * time.Minute
	defaultJobTimeout = 5 * time.Minute
)

var errLockLost = errors.New("cron lock lost mid-cycle")

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronMetrics
	Interval time.Duration
	// JobTimeout bounds a single job so one stuck query cannot hold the lock
	// for the whole cycle.
	JobTimeout time.Duration
}

// Service ticks every Interval. Each tick the replica holding the lock runs
// every registered job once, in order, renewing the lock while it works.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	lock       Lock
	metrics    *metrics.CronMetrics
	interval   time.Duration
	jobTimeout time.Duration
	now        func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("registry required")
	}
	s := &Service{
		logg:       params.Logger,
		registry:   params.Registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		interval:   params.Interval,
		jobTimeout: params.JobTimeout,
		now:        time.Now,
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	if s.jobTimeout <= 0 {
		s.jobTimeout = defaultJobTimeout
	}
	return s, nil
}

// Run executes a cycle immediately and then on every tick until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if err := s.runCycle(ctx); err != nil {
			s.logg.Error(ctx, "cron cycle failed", err)
		}
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service stopping")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.metrics.ObserveCycle("skipped")
		s.logg.Debug(ctx, "cron lock held by another replica, skipping cycle")
		return nil
	}

	cycleCtx, cancel := context.WithCancelCause(ctx)
	renewDone := make(chan struct{})
	go func() {
		defer close(renewDone)
		s.holdLock(cycleCtx, cancel)
	}()
	defer func() {
		cancel(nil)
		<-renewDone
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "failed to release cron lock", err)
		}
	}()

	start := s.now()
	failed := 0
	for _, job := range s.registry.Jobs() {
		if cycleCtx.Err() != nil {
			break
		}
		if err := s.runJob(cycleCtx, job); err != nil {
			failed++
		}
	}

	if cause := context.Cause(cycleCtx); errors.Is(cause, errLockLost) {
		s.metrics.ObserveCycle("lock_lost")
		return cause
	}
	s.metrics.ObserveCycle("ran")
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"jobs":        len(s.registry.Jobs()),
		"failed":      failed,
		"duration_ms": s.now().Sub(start).Milliseconds(),
	}), "cron cycle complete")
	return nil
}

// holdLock renews the lock at a third of its TTL until ctx ends. Losing the
// lock cancels the cycle with errLockLost.
func (s *Service) holdLock(ctx context.Context, cancel context.CancelCauseFunc) {
	every := s.lock.TTL() / 3
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			held, err := s.lock.Renew(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cron lock renewal failed")
				continue
			}
			if !held {
				s.logg.Warn(ctx, "cron lock taken over, abandoning cycle")
				cancel(errLockLost)
				return
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	jobCtx, cancel := context.WithTimeout(s.logg.WithField(ctx, "job", job.Name()), s.jobTimeout)
	defer cancel()

	start := s.now()
	err := job.Run(jobCtx)
	elapsed := s.now().Sub(start)
	s.metrics.ObserveRun(job.Name(), elapsed, err, s.now())

	logCtx := s.logg.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		s.logg.Error(logCtx, "cron job failed", err)
		return err
	}
	s.logg.Info(logCtx, "cron job completed")
	return nil
}
