package outbox_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/returns-engine/pkg/db/dbtest"
	"github.com/angelmondragon/returns-engine/pkg/db/models"
	"github.com/angelmondragon/returns-engine/pkg/enums"
	"github.com/angelmondragon/returns-engine/pkg/outbox"
	"github.com/angelmondragon/returns-engine/pkg/outbox/payloads"
)

func emitSubmitted(t *testing.T, svc *outbox.Service, conn *gorm.DB, aggregateID uuid.UUID) {
	t.Helper()
	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, outbox.DomainEvent{
			EventType:     enums.EventReturnRequestSubmitted,
			AggregateType: enums.AggregateReturnRequest,
			AggregateID:   aggregateID,
			Actor:         &outbox.ActorRef{UserID: uuid.New(), Role: string(enums.UserRoleUser)},
			Data:          payloads.ReturnRequestSubmittedEvent{ReturnRequestID: aggregateID},
		})
	})
	require.NoError(t, err)
}

func TestEmitWritesEnvelope(t *testing.T) {
	conn := dbtest.Open(t)
	svc := outbox.NewService(outbox.NewRepository(conn), nil)
	aggregateID := uuid.New()

	emitSubmitted(t, svc, conn, aggregateID)

	var row models.OutboxEvent
	require.NoError(t, conn.First(&row).Error)
	assert.Equal(t, aggregateID, row.AggregateID)
	assert.Nil(t, row.PublishedAt)

	envelope, err := outbox.DecodeEnvelope(row.Payload)
	require.NoError(t, err)
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, "USER", envelope.Actor.Role)
}

func TestEmitRequiresTransaction(t *testing.T) {
	svc := outbox.NewService(outbox.NewRepository(nil), nil)
	err := svc.Emit(context.Background(), nil, outbox.DomainEvent{})
	assert.ErrorIs(t, err, outbox.ErrTxRequired)
}

func TestEmitRejectsIncompleteEvents(t *testing.T) {
	conn := dbtest.Open(t)
	svc := outbox.NewService(outbox.NewRepository(conn), nil)
	valid := outbox.DomainEvent{
		EventType:     enums.EventReturnRequestSubmitted,
		AggregateType: enums.AggregateReturnRequest,
		AggregateID:   uuid.New(),
		Data:          payloads.ReturnRequestSubmittedEvent{},
	}

	broken := map[string]func(e *outbox.DomainEvent){
		"event type":   func(e *outbox.DomainEvent) { e.EventType = "return_request_deleted" },
		"aggregate":    func(e *outbox.DomainEvent) { e.AggregateType = "" },
		"aggregate id": func(e *outbox.DomainEvent) { e.AggregateID = uuid.Nil },
		"data":         func(e *outbox.DomainEvent) { e.Data = nil },
	}
	for name, mutate := range broken {
		t.Run(name, func(t *testing.T) {
			event := valid
			mutate(&event)
			err := conn.Transaction(func(tx *gorm.DB) error {
				return svc.Emit(context.Background(), tx, event)
			})
			assert.ErrorIs(t, err, outbox.ErrInvalidEvent)
		})
	}

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmitIfNotExistsSkipsDuplicates(t *testing.T) {
	conn := dbtest.Open(t)
	svc := outbox.NewService(outbox.NewRepository(conn), nil)
	aggregateID := uuid.New()

	for i := 0; i < 2; i++ {
		err := conn.Transaction(func(tx *gorm.DB) error {
			return svc.EmitIfNotExists(context.Background(), tx, outbox.DomainEvent{
				EventType:     enums.EventReturnRequestPendingNudge,
				AggregateType: enums.AggregateReturnRequest,
				AggregateID:   aggregateID,
				Data:          payloads.ReturnRequestPendingNudgeEvent{ReturnRequestID: aggregateID},
			})
		})
		require.NoError(t, err)
	}

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	conn := dbtest.Open(t)
	repo := outbox.NewRepository(conn)
	svc := outbox.NewService(repo, nil)

	first, second := uuid.New(), uuid.New()
	emitSubmitted(t, svc, conn, first)
	emitSubmitted(t, svc, conn, second)

	var batch []models.OutboxEvent
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		batch, err = repo.FetchUnpublishedForPublish(tx, 10, 3)
		if err != nil {
			return err
		}
		if err := repo.MarkPublishedTx(tx, batch[0].ID); err != nil {
			return err
		}
		return repo.MarkTerminalTx(tx, batch[1].ID, errors.New("bad payload"), 3)
	}))
	require.Len(t, batch, 2)

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		remaining, err := repo.FetchUnpublishedForPublish(tx, 10, 3)
		assert.Empty(t, remaining)
		return err
	}))

	var parked models.OutboxEvent
	require.NoError(t, conn.First(&parked, "id = ?", batch[1].ID).Error)
	assert.Equal(t, 3, parked.AttemptCount)
	require.NotNil(t, parked.LastError)
	assert.Equal(t, "bad payload", *parked.LastError)
}

func TestRepositoryMarkFailedIncrementsAttempts(t *testing.T) {
	conn := dbtest.Open(t)
	repo := outbox.NewRepository(conn)
	svc := outbox.NewService(repo, nil)
	emitSubmitted(t, svc, conn, uuid.New())

	var row models.OutboxEvent
	require.NoError(t, conn.First(&row).Error)
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		return repo.MarkFailedTx(tx, row.ID, errors.New("timeout"))
	}))
	require.NoError(t, conn.First(&row, "id = ?", row.ID).Error)
	assert.Equal(t, 1, row.AttemptCount)
}

func TestDeletePublishedBefore(t *testing.T) {
	conn := dbtest.Open(t)
	repo := outbox.NewRepository(conn)

	old := time.Now().UTC().Add(-60 * 24 * time.Hour)
	recent := time.Now().UTC()
	rows := []models.OutboxEvent{
		{EventType: enums.EventReturnRequestSubmitted, AggregateType: enums.AggregateReturnRequest, AggregateID: uuid.New(), Payload: []byte(`{}`), CreatedAt: old, PublishedAt: &old},
		{EventType: enums.EventReturnRequestSubmitted, AggregateType: enums.AggregateReturnRequest, AggregateID: uuid.New(), Payload: []byte(`{}`), CreatedAt: recent, PublishedAt: &recent},
		{EventType: enums.EventReturnRequestSubmitted, AggregateType: enums.AggregateReturnRequest, AggregateID: uuid.New(), Payload: []byte(`{}`), CreatedAt: old, AttemptCount: 10},
		{EventType: enums.EventReturnRequestSubmitted, AggregateType: enums.AggregateReturnRequest, AggregateID: uuid.New(), Payload: []byte(`{}`), CreatedAt: old, AttemptCount: 1},
	}
	require.NoError(t, conn.Create(&rows).Error)

	var deleted int64
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		deleted, err = repo.DeletePublishedBefore(context.Background(), tx, time.Now().UTC().Add(-30*24*time.Hour), 5)
		return err
	}))
	assert.EqualValues(t, 2, deleted)

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}
