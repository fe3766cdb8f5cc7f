package repository

import (
	"context"
	"errors"

	"github.com/ClipsonBusiness/tracking-system-sub000/internal/app/model"
	"gorm.io/gorm"
)

var (
	// ErrConversionNotFound signals that no conversion matched the lookup.
	ErrConversionNotFound = errors.New("conversion not found")
)

// ConversionRepository defines the data access contract for conversions.
// The invoice id unique constraint is the idempotency anchor: Insert
// reports a duplicate instead of failing so callers can absorb
// redeliveries.
type ConversionRepository interface {
	Insert(ctx context.Context, conversion *model.Conversion) (created bool, err error)
	UpdateStatusByInvoiceID(ctx context.Context, invoiceID, status string) (int64, error)
	GetByInvoiceID(ctx context.Context, invoiceID string) (*model.Conversion, error)
	GetByID(ctx context.Context, id int64) (*model.Conversion, error)
	AttachLink(ctx context.Context, conversionID, linkID int64, affiliateCode *string, mode string) error
}

type conversionRepository struct {
	db *gorm.DB
}

// NewConversionRepository returns a GORM-backed ConversionRepository.
func NewConversionRepository(db *gorm.DB) ConversionRepository {
	return &conversionRepository{db: db}
}

// Insert writes the conversion and reports (false, nil) when a row with
// the same invoice id already exists. Attribution fields on an existing
// row are never touched: a late redelivery must not clobber a manual
// fix.
func (r *conversionRepository) Insert(ctx context.Context, conversion *model.Conversion) (bool, error) {
	err := r.db.WithContext(ctx).Create(conversion).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// UpdateStatusByInvoiceID transitions status only, returning the number
// of rows touched. Zero rows is not an error; refund-before-create is a
// legal no-op.
func (r *conversionRepository) UpdateStatusByInvoiceID(ctx context.Context, invoiceID, status string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Conversion{}).
		Where("invoice_id = ?", invoiceID).
		Update("status", status)
	return result.RowsAffected, result.Error
}

func (r *conversionRepository) GetByInvoiceID(ctx context.Context, invoiceID string) (*model.Conversion, error) {
	var conversion model.Conversion
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		First(&conversion).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversionNotFound
		}
		return nil, err
	}
	return &conversion, nil
}

func (r *conversionRepository) GetByID(ctx context.Context, id int64) (*model.Conversion, error) {
	var conversion model.Conversion
	if err := r.db.WithContext(ctx).First(&conversion, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversionNotFound
		}
		return nil, err
	}
	return &conversion, nil
}

// AttachLink is the orphan-match apply step: a single targeted update
// keyed by conversion id. Concurrent applies are last-write-wins.
func (r *conversionRepository) AttachLink(ctx context.Context, conversionID, linkID int64, affiliateCode *string, mode string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Conversion{}).
		Where("id = ?", conversionID).
		Updates(map[string]interface{}{
			"link_id":          linkID,
			"affiliate_code":   affiliateCode,
			"attribution_mode": mode,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConversionNotFound
	}
	return nil
}
