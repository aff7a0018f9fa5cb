package cron

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/returns-engine/internal/notifications"
	"github.com/angelmondragon/returns-engine/pkg/logger"
)

func TestNotificationCleanupJobCutoffs(t *testing.T) {
	now := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	repo := &fakeNotificationPruner{}
	job := newNotificationCleanupJob(t, NotificationCleanupJobParams{Repository: repo})
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, 1, repo.called)
	assert.Equal(t, now.AddDate(0, 0, -notificationRetentionDays), repo.cutoffs.ReadBefore)
	assert.Equal(t, now.AddDate(0, 0, -notificationUnreadRetentionDays), repo.cutoffs.UnreadBefore)
}

func TestNotificationCleanupJobPropagatesErrors(t *testing.T) {
	job := newNotificationCleanupJob(t, NotificationCleanupJobParams{Repository: &fakeNotificationPruner{err: errors.New("boom")}})
	assert.Error(t, job.Run(context.Background()))
}

func TestNewNotificationCleanupJobRejectsInvertedRetention(t *testing.T) {
	_, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:          logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}}),
		DB:              outboxRetentionTxRunner{},
		Repository:      &fakeNotificationPruner{},
		Retention:       60,
		UnreadRetention: 30,
	})
	assert.Error(t, err)
}

func newNotificationCleanupJob(t *testing.T, params NotificationCleanupJobParams) *notificationCleanupJob {
	t.Helper()
	params.Logger = logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	params.DB = outboxRetentionTxRunner{}
	jobIface, err := NewNotificationCleanupJob(params)
	require.NoError(t, err)
	return jobIface.(*notificationCleanupJob)
}

type fakeNotificationPruner struct {
	cutoffs notifications.PruneCutoffs
	called  int
	err     error
}

func (f *fakeNotificationPruner) Prune(_ context.Context, _ *gorm.DB, cutoffs notifications.PruneCutoffs) (int64, error) {
	f.called++
	f.cutoffs = cutoffs
	return 2, f.err
}
