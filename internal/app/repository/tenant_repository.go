package repository

import (
	"context"
	"errors"

	"github.com/ClipsonBusiness/tracking-system-sub000/internal/app/model"
	"gorm.io/gorm"
)

var (
	// ErrTenantNotFound signals that no tenant matched the lookup.
	ErrTenantNotFound = errors.New("tenant not found")
)

// TenantRepository defines the data access contract for tenants.
type TenantRepository interface {
	Create(ctx context.Context, tenant *model.Tenant) error
	GetByID(ctx context.Context, id int64) (*model.Tenant, error)
	GetByCustomDomain(ctx context.Context, host string) (*model.Tenant, error)
	GetByAccountID(ctx context.Context, accountID string) (*model.Tenant, error)
	ListWithSecrets(ctx context.Context) ([]model.Tenant, error)
	List(ctx context.Context, limit, offset int) ([]model.Tenant, error)
	First(ctx context.Context) (*model.Tenant, error)
	Update(ctx context.Context, tenant *model.Tenant) error
}

type tenantRepository struct {
	db *gorm.DB
}

// NewTenantRepository returns a GORM-backed TenantRepository.
func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &tenantRepository{db: db}
}

func (r *tenantRepository) Create(ctx context.Context, tenant *model.Tenant) error {
	return r.db.WithContext(ctx).Create(tenant).Error
}

func (r *tenantRepository) GetByID(ctx context.Context, id int64) (*model.Tenant, error) {
	var tenant model.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return &tenant, nil
}

// GetByCustomDomain matches case-insensitively: the host arrives in
// whatever casing the client's DNS or CDN produced.
func (r *tenantRepository) GetByCustomDomain(ctx context.Context, host string) (*model.Tenant, error) {
	var tenant model.Tenant
	if err := r.db.WithContext(ctx).
		Where("custom_domain IS NOT NULL AND LOWER(custom_domain) = LOWER(?)", host).
		First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return &tenant, nil
}

func (r *tenantRepository) GetByAccountID(ctx context.Context, accountID string) (*model.Tenant, error) {
	var tenant model.Tenant
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return &tenant, nil
}

// ListWithSecrets returns every tenant eligible for signature probing,
// oldest first so probe order stays stable across deliveries.
func (r *tenantRepository) ListWithSecrets(ctx context.Context) ([]model.Tenant, error) {
	var tenants []model.Tenant
	if err := r.db.WithContext(ctx).
		Where("webhook_secret IS NOT NULL AND webhook_secret <> ''").
		Order("id ASC").
		Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}

func (r *tenantRepository) List(ctx context.Context, limit, offset int) ([]model.Tenant, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var tenants []model.Tenant
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}

// First returns the oldest tenant. Only the degraded attribution
// fallback uses it.
func (r *tenantRepository) First(ctx context.Context) (*model.Tenant, error) {
	var tenant model.Tenant
	if err := r.db.WithContext(ctx).Order("id ASC").First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return &tenant, nil
}

func (r *tenantRepository) Update(ctx context.Context, tenant *model.Tenant) error {
	result := r.db.WithContext(ctx).
		Model(&model.Tenant{}).
		Where("id = ?", tenant.ID).
		Updates(map[string]interface{}{
			"name":           tenant.Name,
			"custom_domain":  tenant.CustomDomain,
			"webhook_secret": tenant.WebhookSecret,
			"account_id":     tenant.AccountID,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTenantNotFound
	}

	return r.db.WithContext(ctx).Where("id = ?", tenant.ID).First(tenant).Error
}
