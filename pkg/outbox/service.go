package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/returns-engine/pkg/db"
	"github.com/angelmondragon/returns-engine/pkg/db/models"
	"github.com/angelmondragon/returns-engine/pkg/enums"
	"github.com/angelmondragon/returns-engine/pkg/logger"
)

const (
	currentEnvelopeVersion = 1
	// partial unique index guarding one nudge per return request
	nudgeUniqueIndex = "ux_outbox_events_nudge_aggregate"
)

var (
	ErrTxRequired   = errors.New("outbox: transaction required")
	ErrInvalidEvent = errors.New("outbox: invalid event")
)

// DomainEvent is the producer-side description of an outbox row.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

func (e DomainEvent) validate() error {
	switch {
	case !e.EventType.IsValid():
		return fmt.Errorf("%w: unknown event type %q", ErrInvalidEvent, e.EventType)
	case !e.AggregateType.IsValid():
		return fmt.Errorf("%w: unknown aggregate type %q", ErrInvalidEvent, e.AggregateType)
	case e.AggregateID == uuid.Nil:
		return fmt.Errorf("%w: aggregate id required for %s", ErrInvalidEvent, e.EventType)
	case e.Data == nil:
		return fmt.Errorf("%w: %s has no data", ErrInvalidEvent, e.EventType)
	}
	return nil
}

// row seals the event into its stored form. The event ID is minted here so
// consumers can dedupe redeliveries of the same row.
func (e DomainEvent) row(now time.Time) (models.OutboxEvent, PayloadEnvelope, error) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return models.OutboxEvent{}, PayloadEnvelope{}, fmt.Errorf("encode %s data: %w", e.EventType, err)
	}
	envelope := PayloadEnvelope{
		Version:    e.Version,
		EventID:    uuid.NewString(),
		OccurredAt: e.OccurredAt.UTC(),
		Actor:      e.Actor,
		Data:       data,
	}
	if envelope.Version <= 0 {
		envelope.Version = currentEnvelopeVersion
	}
	if e.OccurredAt.IsZero() {
		envelope.OccurredAt = now.UTC()
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		return models.OutboxEvent{}, PayloadEnvelope{}, fmt.Errorf("encode envelope: %w", err)
	}
	return models.OutboxEvent{
		EventType:     e.EventType,
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		Payload:       json.RawMessage(raw),
	}, envelope, nil
}

// Service writes domain events into the outbox inside the caller's
// transaction; nothing is published unless that transaction commits.
type Service struct {
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg, now: time.Now}
}

func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return ErrTxRequired
	}
	if err := event.validate(); err != nil {
		return err
	}
	row, envelope, err := event.row(s.now())
	if err != nil {
		return err
	}
	if err := s.repo.Insert(tx, row); err != nil {
		return err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"event_id":       envelope.EventID,
			"event_type":     event.EventType,
			"aggregate_type": event.AggregateType,
			"aggregate_id":   event.AggregateID.String(),
		}), "outbox event queued")
	}
	return nil
}

// EmitIfNotExists writes the event unless one of the same type is already
// recorded for the aggregate. A concurrent writer that wins the race trips the
// nudge unique index, which is treated as already emitted.
func (s *Service) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return ErrTxRequired
	}
	exists, err := s.repo.ExistsTx(tx, event.EventType, event.AggregateType, event.AggregateID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	err = s.Emit(ctx, tx, event)
	if dbpkg.IsUniqueViolation(err, nudgeUniqueIndex) {
		return nil
	}
	return err
}
