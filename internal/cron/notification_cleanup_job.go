package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/returns-engine/internal/notifications"
	"github.com/angelmondragon/returns-engine/pkg/logger"
)

const (
	notificationRetentionDays       = 30
	notificationUnreadRetentionDays = 180
)

type NotificationCleanupJobParams struct {
	Logger          *logger.Logger
	DB              txRunner
	Repository      notificationPruner
	Retention       int
	UnreadRetention int
}

type notificationPruner interface {
	Prune(ctx context.Context, tx *gorm.DB, cutoffs notifications.PruneCutoffs) (int64, error)
}

func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.DB == nil:
		return nil, fmt.Errorf("db runner required")
	case params.Repository == nil:
		return nil, fmt.Errorf("notifications repository required")
	}
	job := &notificationCleanupJob{
		logg:            params.Logger,
		db:              params.DB,
		repo:            params.Repository,
		retention:       positiveOr(params.Retention, notificationRetentionDays),
		unreadRetention: positiveOr(params.UnreadRetention, notificationUnreadRetentionDays),
		now:             time.Now,
	}
	if job.unreadRetention < job.retention {
		return nil, fmt.Errorf("unread retention (%dd) shorter than read retention (%dd)", job.unreadRetention, job.retention)
	}
	return job, nil
}

type notificationCleanupJob struct {
	logg            *logger.Logger
	db              txRunner
	repo            notificationPruner
	retention       int
	unreadRetention int
	now             func() time.Time
}

func (j *notificationCleanupJob) Name() string { return "notification-cleanup" }

func (j *notificationCleanupJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoffs := notifications.PruneCutoffs{
		ReadBefore:   now.AddDate(0, 0, -j.retention),
		UnreadBefore: now.AddDate(0, 0, -j.unreadRetention),
	}
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		deleted, err = j.repo.Prune(ctx, tx, cutoffs)
		return err
	})
	if err != nil {
		return fmt.Errorf("notification cleanup: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"read_cutoff":   cutoffs.ReadBefore,
		"unread_cutoff": cutoffs.UnreadBefore,
		"rows_deleted":  deleted,
	}), "notifications pruned")
	return nil
}
