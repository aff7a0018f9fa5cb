package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/returns-engine/pkg/logger"
)

const (
	outboxRetentionDays = 30
	dlqRetentionDays    = 90
	outboxMinAttempts   = 5
)

// OutboxRetentionJobParams wires the sweep that keeps outbox_events and
// outbox_dlq from growing without bound. DeadLetters is optional.
type OutboxRetentionJobParams struct {
	Logger       *logger.Logger
	DB           txRunner
	Repository   publishedPruner
	DeadLetters  deadLetterPurger
	Retention    int
	DLQRetention int
	MinAttempts  int
}

type publishedPruner interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

type deadLetterPurger interface {
	PurgeBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.DB == nil:
		return nil, fmt.Errorf("db runner required")
	case params.Repository == nil:
		return nil, fmt.Errorf("outbox repository required")
	}
	return &outboxRetentionJob{
		logg:         params.Logger,
		db:           params.DB,
		events:       params.Repository,
		deadLetters:  params.DeadLetters,
		retention:    positiveOr(params.Retention, outboxRetentionDays),
		dlqRetention: positiveOr(params.DLQRetention, dlqRetentionDays),
		minAttempts:  positiveOr(params.MinAttempts, outboxMinAttempts),
		now:          time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg         *logger.Logger
	db           txRunner
	events       publishedPruner
	deadLetters  deadLetterPurger
	retention    int
	dlqRetention int
	minAttempts  int
	now          func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

// Run prunes both tables in one transaction so a failure leaves neither half-swept.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	eventCutoff := now.AddDate(0, 0, -j.retention)
	dlqCutoff := now.AddDate(0, 0, -j.dlqRetention)

	var events, deadLetters int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		if events, err = j.events.DeletePublishedBefore(ctx, tx, eventCutoff, j.minAttempts); err != nil {
			return fmt.Errorf("prune events: %w", err)
		}
		if j.deadLetters == nil {
			return nil
		}
		if deadLetters, err = j.deadLetters.PurgeBefore(ctx, tx, dlqCutoff); err != nil {
			return fmt.Errorf("purge dead letters: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"event_cutoff":         eventCutoff,
		"dlq_cutoff":           dlqCutoff,
		"min_attempts":         j.minAttempts,
		"events_deleted":       events,
		"dead_letters_deleted": deadLetters,
	}), "outbox retention cleanup complete")
	return nil
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}
