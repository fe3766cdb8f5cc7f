package repository

import (
	"context"

	"github.com/ClipsonBusiness/tracking-system-sub000/internal/app/model"
	"gorm.io/gorm"
)

// ClickRepository defines the data access contract for click facts.
// Clicks are written once and never mutated.
type ClickRepository interface {
	Create(ctx context.Context, click *model.Click) error
	GetByID(ctx context.Context, id int64) (*model.Click, error)
	CountByLink(ctx context.Context, linkID int64) (int64, error)
}

type clickRepository struct {
	db *gorm.DB
}

// NewClickRepository returns a GORM-backed ClickRepository.
func NewClickRepository(db *gorm.DB) ClickRepository {
	return &clickRepository{db: db}
}

func (r *clickRepository) Create(ctx context.Context, click *model.Click) error {
	return r.db.WithContext(ctx).Create(click).Error
}

func (r *clickRepository) GetByID(ctx context.Context, id int64) (*model.Click, error) {
	var click model.Click
	if err := r.db.WithContext(ctx).First(&click, id).Error; err != nil {
		return nil, err
	}
	return &click, nil
}

func (r *clickRepository) CountByLink(ctx context.Context, linkID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Click{}).
		Where("link_id = ?", linkID).
		Count(&count).Error
	return count, err
}
