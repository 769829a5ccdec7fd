package outbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// ErrNotDeadLettered is returned when requeueing an event with no DLQ entry.
var ErrNotDeadLettered = errors.New("event is not in the dead letter queue")

// DLQRepository stores order and product events the publisher gave up on.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

// InsertTx records a dead event. The error text is clipped like last_error.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.ErrorMessage != nil {
		entry.ErrorMessage = clip(*entry.ErrorMessage)
	}
	return tx.Create(&entry).Error
}

// FindByEventID returns nil, nil when the event never reached the DLQ.
func (r *DLQRepository) FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	var entry models.OutboxDLQ
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListForAggregate returns the dead events of one order or product, newest first.
func (r *DLQRepository) ListForAggregate(ctx context.Context, aggregateType enums.OutboxAggregateType, aggregateID uuid.UUID) ([]models.OutboxDLQ, error) {
	var rows []models.OutboxDLQ
	err := r.db.WithContext(ctx).
		Where("aggregate_type = ? AND aggregate_id = ?", aggregateType, aggregateID).
		Order("failed_at DESC").
		Find(&rows).Error
	return rows, err
}

// ListRetryable returns up to limit entries whose reason allows a requeue.
func (r *DLQRepository) ListRetryable(ctx context.Context, limit int) ([]models.OutboxDLQ, error) {
	if limit <= 0 {
		limit = 50
	}
	reasons := []enums.OutboxDLQErrorReason{
		enums.OutboxDLQReasonMaxAttempts,
		enums.OutboxDLQReasonTopicUnavailable,
	}
	var rows []models.OutboxDLQ
	err := r.db.WithContext(ctx).
		Where("error_reason IN ?", reasons).
		Order("failed_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// RequeueTx hands a dead event back to the publisher. The outbox row is reset
// to zero attempts, or rebuilt from the DLQ snapshot when retention already
// pruned it, and the DLQ entry is removed.
func (r *DLQRepository) RequeueTx(tx *gorm.DB, eventID uuid.UUID) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	var entry models.OutboxDLQ
	if err := tx.Where("event_id = ?", eventID).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotDeadLettered
		}
		return err
	}

	reset := tx.Model(&models.OutboxEvent{}).
		Where("id = ?", eventID).
		Updates(map[string]any{
			"attempt_count": 0,
			"last_error":    nil,
			"published_at":  nil,
		})
	if reset.Error != nil {
		return fmt.Errorf("reset outbox row: %w", reset.Error)
	}
	if reset.RowsAffected == 0 {
		rebuilt := models.OutboxEvent{
			ID:            entry.EventID,
			EventType:     entry.EventType,
			AggregateType: entry.AggregateType,
			AggregateID:   entry.AggregateID,
			Payload:       entry.Payload,
		}
		if err := tx.Create(&rebuilt).Error; err != nil {
			return fmt.Errorf("rebuild outbox row: %w", err)
		}
	}
	return tx.Delete(&entry).Error
}

func clip(message string) *string {
	if len(message) > maxLastErrorLen {
		message = message[:maxLastErrorLen]
	}
	return &message
}
