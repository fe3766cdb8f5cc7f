package repository

import (
	"context"
	"time"

	"github.com/ClipsonBusiness/tracking-system-sub000/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WebhookEventRepository defines the append-or-update store for raw
// processor deliveries.
type WebhookEventRepository interface {
	Upsert(ctx context.Context, event *model.WebhookEvent) error
	MarkProcessed(ctx context.Context, eventID string, at time.Time) error
	GetByEventID(ctx context.Context, eventID string) (*model.WebhookEvent, error)
	CountUnprocessedBefore(ctx context.Context, receivedBefore time.Time) (int64, error)
}

type webhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository returns a GORM-backed WebhookEventRepository.
func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

// Upsert inserts the delivery or refreshes the stored copy when the
// processor redelivers the same event id.
func (r *webhookEventRepository) Upsert(ctx context.Context, event *model.WebhookEvent) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "event_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"event_type", "payload", "signature_valid", "tenant_id",
			}),
		}).
		Create(event).Error
}

func (r *webhookEventRepository) MarkProcessed(ctx context.Context, eventID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.WebhookEvent{}).
		Where("event_id = ?", eventID).
		Update("processed_at", at).Error
}

// CountUnprocessedBefore reports how many valid deliveries older than
// the cutoff were never dispatched successfully.
func (r *webhookEventRepository) CountUnprocessedBefore(ctx context.Context, receivedBefore time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.WebhookEvent{}).
		Where("processed_at IS NULL AND signature_valid AND received_at < ?", receivedBefore).
		Count(&count).Error
	return count, err
}

func (r *webhookEventRepository) GetByEventID(ctx context.Context, eventID string) (*model.WebhookEvent, error) {
	var event model.WebhookEvent
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}
