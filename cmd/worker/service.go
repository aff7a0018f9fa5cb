package main

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/returns-engine/pkg/logger"
	"github.com/angelmondragon/returns-engine/pkg/readiness"
)

const (
	defaultHeartbeat = time.Minute
	probeTimeout     = 5 * time.Second
)

type runner interface {
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Logger               *logger.Logger
	DB                   readiness.Pinger
	Redis                readiness.Pinger
	PubSub               readiness.Pinger
	NotificationConsumer runner
	Heartbeat            time.Duration
}

// Service keeps the notification consumer running and re-probes its
// dependencies on every heartbeat so an outage shows up in the logs before
// messages start piling up.
type Service struct {
	logg      *logger.Logger
	checks    []readiness.Check
	consumer  runner
	heartbeat time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Redis == nil:
		return nil, errors.New("redis client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.NotificationConsumer == nil:
		return nil, errors.New("notification consumer is required")
	}
	heartbeat := params.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &Service{
		logg: params.Logger,
		checks: []readiness.Check{
			{Name: "database", Target: params.DB},
			{Name: "redis", Target: params.Redis},
			{Name: "pubsub", Target: params.PubSub},
		},
		consumer:  params.NotificationConsumer,
		heartbeat: heartbeat,
	}, nil
}

// Run refuses to start the consumer until every dependency answers, then
// blocks until ctx ends or the consumer stops.
func (s *Service) Run(ctx context.Context) error {
	if report := readiness.Probe(ctx, probeTimeout, s.checks...); !report.Ready() {
		s.logg.Error(s.logg.WithField(ctx, "failed", report.Failed()), "worker dependencies not ready", report.Err)
		return report.Err
	}
	s.logg.Info(ctx, "all worker dependencies are ready")

	errCh := make(chan error, 1)
	go func() { errCh <- s.consumer.Run(ctx) }()

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()
	healthy := true
	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "worker context canceled")
			return ctx.Err()
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logg.Error(ctx, "consumer stopped unexpectedly", err)
			}
			return err
		case <-ticker.C:
			healthy = s.heartbeatProbe(ctx, healthy)
		}
	}
}

// heartbeatProbe logs only transitions so a long outage is one warning, not
// one per tick.
func (s *Service) heartbeatProbe(ctx context.Context, wasHealthy bool) bool {
	report := readiness.Probe(ctx, probeTimeout, s.checks...)
	switch {
	case !report.Ready() && wasHealthy:
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"failed": report.Failed(),
			"error":  report.Err.Error(),
		}), "worker dependency degraded")
	case report.Ready() && !wasHealthy:
		s.logg.Info(ctx, "worker dependencies recovered")
	default:
		s.logg.Debug(ctx, "worker heartbeat")
	}
	return report.Ready()
}
