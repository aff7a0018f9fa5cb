package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/returns-engine/pkg/db/models"
	"github.com/angelmondragon/returns-engine/pkg/enums"
	"github.com/angelmondragon/returns-engine/pkg/logger"
	"github.com/angelmondragon/returns-engine/pkg/outbox"
	"github.com/angelmondragon/returns-engine/pkg/outbox/payloads"
	"gorm.io/gorm"
)

const (
	staleReturnDefaultAfter = 48 * time.Hour
	staleReturnDefaultBatch = 100
)

// StaleReturnNudgeJobParams wires the job that flags PENDING return requests
// nobody has reviewed in time.
type StaleReturnNudgeJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository staleReturnRepo
	Outbox     nudgeEmitter
	StaleAfter time.Duration
	Batch      int
}

type staleReturnRepo interface {
	FindStalePending(ctx context.Context, before time.Time, limit int) ([]models.ReturnRequest, error)
}

type nudgeEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

func NewStaleReturnNudgeJob(params StaleReturnNudgeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("return request repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	after := params.StaleAfter
	if after <= 0 {
		after = staleReturnDefaultAfter
	}
	batch := params.Batch
	if batch <= 0 {
		batch = staleReturnDefaultBatch
	}
	return &staleReturnNudgeJob{
		logg:   params.Logger,
		db:     params.DB,
		repo:   params.Repository,
		outbox: params.Outbox,
		after:  after,
		batch:  batch,
		now:    time.Now,
	}, nil
}

type staleReturnNudgeJob struct {
	logg   *logger.Logger
	db     txRunner
	repo   staleReturnRepo
	outbox nudgeEmitter
	after  time.Duration
	batch  int
	now    func() time.Time
}

func (j *staleReturnNudgeJob) Name() string { return "stale-return-nudge" }

// Run emits at most one nudge event per stale request. The outbox dedupes on
// the aggregate so reruns over the same backlog are no-ops.
func (j *staleReturnNudgeJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-j.after)

	stale, err := j.repo.FindStalePending(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("load stale return requests: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		for _, rr := range stale {
			event := outbox.DomainEvent{
				EventType:     enums.EventReturnRequestPendingNudge,
				AggregateType: enums.AggregateReturnRequest,
				AggregateID:   rr.ID,
				Actor:         &outbox.ActorRef{Role: "system"},
				Data: payloads.ReturnRequestPendingNudgeEvent{
					ReturnRequestID: rr.ID,
					OrderID:         rr.OrderID,
					UserID:          rr.UserID,
					Type:            rr.Type,
					SubmittedAt:     rr.CreatedAt,
					PendingHours:    int(now.Sub(rr.CreatedAt).Hours()),
				},
				OccurredAt: now,
			}
			if err := j.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
				return fmt.Errorf("nudge %s: %w", rr.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("stale return nudge: %w", err)
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":   cutoff,
		"requests": len(stale),
	}), "stale return requests nudged")
	return nil
}
