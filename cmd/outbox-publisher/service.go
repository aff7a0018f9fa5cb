package main

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/returns-engine/pkg/config"
	"github.com/angelmondragon/returns-engine/pkg/db/models"
	"github.com/angelmondragon/returns-engine/pkg/logger"
	"github.com/angelmondragon/returns-engine/pkg/metrics"
	"github.com/angelmondragon/returns-engine/pkg/outbox/registry"
	"github.com/angelmondragon/returns-engine/pkg/readiness"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type publisherFactory func(topic string) publisher

type ServiceParams struct {
	Outbox           config.OutboxConfig
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
	DLQRepository    dlqRepository
	Metrics          *metrics.OutboxMetrics
}

// Service drains the outbox table onto Pub/Sub, one locked batch at a time.
type Service struct {
	logg             *logger.Logger
	db               dbClient
	repo             outboxRepository
	checks           []readiness.Check
	registry         registryResolver
	dlq              dlqRepository
	metrics          *metrics.OutboxMetrics
	publisherFactory publisherFactory
	batchSize        int
	maxAttempts      int
	pollInterval     time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	case params.DLQRepository == nil:
		return nil, errors.New("dlq repository is required")
	}

	factory := params.PublisherFactory
	if factory == nil {
		factory = cachedGCPPublishers(params.PubSub)
	}

	return &Service{
		logg: params.Logger,
		db:   params.DB,
		repo: params.Repository,
		checks: []readiness.Check{
			{Name: "database", Target: params.DB},
			{Name: "pubsub", Target: params.PubSub},
		},
		registry:         params.Registry,
		dlq:              params.DLQRepository,
		metrics:          params.Metrics,
		publisherFactory: factory,
		batchSize:        positiveOr(params.Outbox.BatchSize, defaultBatchSize),
		maxAttempts:      positiveOr(params.Outbox.MaxAttempts, defaultMaxAttempts),
		pollInterval:     time.Duration(positiveOr(params.Outbox.PollIntervalMS, defaultPollMs)) * time.Millisecond,
	}, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// cachedGCPPublishers hands out one ordered publisher per topic for the life
// of the process.
func cachedGCPPublishers(client pubSubClient) publisherFactory {
	var mu sync.Mutex
	cache := map[string]publisher{}
	return func(topic string) publisher {
		mu.Lock()
		defer mu.Unlock()
		if pub, ok := cache[topic]; ok {
			return pub
		}
		pub := newGCPPubPublisher(client.Publisher(topic))
		if pub != nil {
			cache[topic] = pub
		}
		return pub
	}
}

// Run polls until ctx ends. A full batch is followed immediately by the next
// one; an idle poll waits pollInterval; a failing or stalled batch doubles the
// wait up to maxBackoff.
func (s *Service) Run(ctx context.Context) error {
	if report := readiness.Probe(ctx, 5*time.Second, s.checks...); !report.Ready() {
		s.logg.Error(s.logg.WithField(ctx, "failed", report.Failed()), "outbox publisher dependencies not ready", report.Err)
		return report.Err
	}

	backoff := s.pollInterval
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}

		summary, err := s.processBatch(ctx)
		var wait time.Duration
		switch {
		case err != nil || summary.stalled():
			if err != nil {
				s.logg.Error(ctx, "outbox publisher batch error", err)
			}
			backoff = nextBackoff(backoff, s.pollInterval, maxBackoff)
			wait = backoff
		case summary.total() > 0:
			backoff = s.pollInterval
			continue
		default:
			backoff = s.pollInterval
			wait = s.pollInterval
		}
		if err := s.sleep(ctx, withJitter(wait)); err != nil {
			return err
		}
	}
}

// batchSummary tallies row outcomes for one batch.
type batchSummary map[outcome]int

func (b batchSummary) total() int {
	n := 0
	for _, count := range b {
		n += count
	}
	return n
}

// stalled reports a batch where nothing went out and something must be
// retried; the loop backs off instead of hammering a failing topic.
func (b batchSummary) stalled() bool {
	return b[outcomePublished] == 0 && b[outcomeRetry] > 0
}

func (s *Service) processBatch(ctx context.Context) (batchSummary, error) {
	started := time.Now()
	summary := batchSummary{}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		// A retried row holds back later rows of the same aggregate so a
		// return request's events reach consumers in commit order.
		held := map[uuid.UUID]struct{}{}
		for _, event := range events {
			if _, blocked := held[event.AggregateID]; blocked {
				summary[outcomeDeferred]++
				continue
			}
			result, err := s.handleEvent(ctx, tx, event)
			if err != nil {
				return err
			}
			if result == outcomeRetry {
				held[event.AggregateID] = struct{}{}
			}
			summary[result]++
			s.metrics.ObserveEvent(string(event.EventType), string(result))
		}
		return nil
	})
	if err != nil {
		return summary, err
	}
	if summary.total() > 0 {
		s.metrics.ObserveBatch(time.Since(started))
		s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
			"published":     summary[outcomePublished],
			"retry":         summary[outcomeRetry],
			"dead_lettered": summary[outcomeDeadLettered],
			"deferred":      summary[outcomeDeferred],
		}), "outbox batch processed")
	}
	return summary, nil
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	jitter := time.Duration(jitterSource.Int63n(int64(jitterWindow)))
	return d + jitter
}
