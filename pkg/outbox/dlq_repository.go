package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/returns-engine/pkg/db/models"
	"github.com/angelmondragon/returns-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/returns-engine/pkg/errors"
)

const (
	maxDLQErrorLen   = 1024
	defaultDLQListed = 50
)

// DLQFilter narrows List. Zero values match everything.
type DLQFilter struct {
	Reason    enums.OutboxDLQErrorReason
	EventType enums.OutboxEventType
	Limit     int
}

// DLQRepository stores outbox rows that left the publish loop without being
// delivered, and puts them back on operator request.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.ErrorMessage != nil {
		msg := clipRunes(*entry.ErrorMessage, maxDLQErrorLen)
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

// FindByEventID returns nil when the event was never dead-lettered.
func (r *DLQRepository) FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	var row models.OutboxDLQ
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns the newest entries first.
func (r *DLQRepository) List(ctx context.Context, filter DLQFilter) ([]models.OutboxDLQ, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultDLQListed
	}
	query := r.db.WithContext(ctx).Model(&models.OutboxDLQ{})
	if filter.Reason != "" {
		query = query.Where("error_reason = ?", filter.Reason)
	}
	if filter.EventType != "" {
		query = query.Where("event_type = ?", filter.EventType)
	}
	var rows []models.OutboxDLQ
	err := query.Order("failed_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// Replay puts a dead-lettered event back in front of the publisher with a
// fresh attempt budget and removes it from the DLQ. The original outbox row is
// revived when retention has not pruned it yet, otherwise it is recreated from
// the DLQ copy under the same id so consumers still dedupe on event_id.
// Entries whose reason is not replayable are refused unless force is set.
func (r *DLQRepository) Replay(ctx context.Context, eventID uuid.UUID, force bool) (*models.OutboxDLQ, error) {
	var replayed models.OutboxDLQ
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", eventID).Take(&replayed).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "event is not in the dlq").
					WithDetails(map[string]any{"event_id": eventID})
			}
			return err
		}
		if !replayed.ErrorReason.Replayable() && !force {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("%s entries need a fix before replay", replayed.ErrorReason)).
				WithDetails(map[string]any{"event_id": eventID, "reason": replayed.ErrorReason})
		}

		res := tx.Model(&models.OutboxEvent{}).
			Where("id = ?", eventID).
			Updates(map[string]any{
				"published_at":  nil,
				"attempt_count": 0,
				"last_error":    nil,
			})
		if res.Error != nil {
			return fmt.Errorf("revive outbox row: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			revived := models.OutboxEvent{
				ID:            replayed.EventID,
				EventType:     replayed.EventType,
				AggregateType: replayed.AggregateType,
				AggregateID:   replayed.AggregateID,
				Payload:       replayed.Payload,
			}
			if err := tx.Create(&revived).Error; err != nil {
				return fmt.Errorf("recreate outbox row: %w", err)
			}
		}
		return tx.Delete(&models.OutboxDLQ{}, "id = ?", replayed.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &replayed, nil
}

// PurgeBefore drops entries that failed before cutoff.
func (r *DLQRepository) PurgeBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	if tx == nil {
		return 0, errors.New("transaction required")
	}
	res := tx.WithContext(ctx).Where("failed_at < ?", cutoff).Delete(&models.OutboxDLQ{})
	return res.RowsAffected, res.Error
}

func clipRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
