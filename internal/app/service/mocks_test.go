package service

import (
	"context"
	"time"

	"github.com/ClipsonBusiness/tracking-system-sub000/internal/app/model"
	"github.com/ClipsonBusiness/tracking-system-sub000/internal/app/repository"
	"github.com/ClipsonBusiness/tracking-system-sub000/internal/infra/geo"
	"gorm.io/gorm"
)

type mockTenantRepository struct {
	createFn          func(ctx context.Context, tenant *model.Tenant) error
	getByIDFn         func(ctx context.Context, id int64) (*model.Tenant, error)
	getByDomainFn     func(ctx context.Context, host string) (*model.Tenant, error)
	getByAccountFn    func(ctx context.Context, accountID string) (*model.Tenant, error)
	listWithSecretsFn func(ctx context.Context) ([]model.Tenant, error)
	listFn            func(ctx context.Context, limit, offset int) ([]model.Tenant, error)
	firstFn           func(ctx context.Context) (*model.Tenant, error)
	updateFn          func(ctx context.Context, tenant *model.Tenant) error
}

func (m *mockTenantRepository) Create(ctx context.Context, tenant *model.Tenant) error {
	if m.createFn != nil {
		return m.createFn(ctx, tenant)
	}
	return nil
}

func (m *mockTenantRepository) GetByID(ctx context.Context, id int64) (*model.Tenant, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrTenantNotFound
}

func (m *mockTenantRepository) GetByCustomDomain(ctx context.Context, host string) (*model.Tenant, error) {
	if m.getByDomainFn != nil {
		return m.getByDomainFn(ctx, host)
	}
	return nil, repository.ErrTenantNotFound
}

func (m *mockTenantRepository) GetByAccountID(ctx context.Context, accountID string) (*model.Tenant, error) {
	if m.getByAccountFn != nil {
		return m.getByAccountFn(ctx, accountID)
	}
	return nil, repository.ErrTenantNotFound
}

func (m *mockTenantRepository) ListWithSecrets(ctx context.Context) ([]model.Tenant, error) {
	if m.listWithSecretsFn != nil {
		return m.listWithSecretsFn(ctx)
	}
	return nil, nil
}

func (m *mockTenantRepository) List(ctx context.Context, limit, offset int) ([]model.Tenant, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return nil, nil
}

func (m *mockTenantRepository) First(ctx context.Context) (*model.Tenant, error) {
	if m.firstFn != nil {
		return m.firstFn(ctx)
	}
	return nil, repository.ErrTenantNotFound
}

func (m *mockTenantRepository) Update(ctx context.Context, tenant *model.Tenant) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, tenant)
	}
	return nil
}

type mockLinkRepository struct {
	createFn          func(ctx context.Context, link *model.Link) error
	getByIDFn         func(ctx context.Context, id int64) (*model.Link, error)
	getBySlugFn       func(ctx context.Context, slug string) (*model.Link, error)
	getBySlugTenantFn func(ctx context.Context, slug string, tenantID int64) (*model.Link, error)
	listFn            func(ctx context.Context, limit, offset int) ([]model.Link, error)
	updateFn          func(ctx context.Context, link *model.Link) error
	allSlugsFn        func(ctx context.Context) ([]string, error)
}

func (m *mockLinkRepository) Create(ctx context.Context, link *model.Link) error {
	if m.createFn != nil {
		return m.createFn(ctx, link)
	}
	return nil
}

func (m *mockLinkRepository) GetByID(ctx context.Context, id int64) (*model.Link, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrLinkNotFound
}

func (m *mockLinkRepository) GetBySlug(ctx context.Context, slug string) (*model.Link, error) {
	if m.getBySlugFn != nil {
		return m.getBySlugFn(ctx, slug)
	}
	return nil, repository.ErrLinkNotFound
}

func (m *mockLinkRepository) GetBySlugForTenant(ctx context.Context, slug string, tenantID int64) (*model.Link, error) {
	if m.getBySlugTenantFn != nil {
		return m.getBySlugTenantFn(ctx, slug, tenantID)
	}
	return nil, repository.ErrLinkNotFound
}

func (m *mockLinkRepository) List(ctx context.Context, limit, offset int) ([]model.Link, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return nil, nil
}

func (m *mockLinkRepository) Update(ctx context.Context, link *model.Link) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, link)
	}
	return nil
}

func (m *mockLinkRepository) AllSlugs(ctx context.Context) ([]string, error) {
	if m.allSlugsFn != nil {
		return m.allSlugsFn(ctx)
	}
	return nil, nil
}

type mockClickRepository struct {
	createFn      func(ctx context.Context, click *model.Click) error
	getByIDFn     func(ctx context.Context, id int64) (*model.Click, error)
	countByLinkFn func(ctx context.Context, linkID int64) (int64, error)
}

func (m *mockClickRepository) Create(ctx context.Context, click *model.Click) error {
	if m.createFn != nil {
		return m.createFn(ctx, click)
	}
	return nil
}

func (m *mockClickRepository) GetByID(ctx context.Context, id int64) (*model.Click, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockClickRepository) CountByLink(ctx context.Context, linkID int64) (int64, error) {
	if m.countByLinkFn != nil {
		return m.countByLinkFn(ctx, linkID)
	}
	return 0, nil
}

type mockConversionRepository struct {
	insertFn       func(ctx context.Context, conversion *model.Conversion) (bool, error)
	updateStatusFn func(ctx context.Context, invoiceID, status string) (int64, error)
	getByInvoiceFn func(ctx context.Context, invoiceID string) (*model.Conversion, error)
	getByIDFn      func(ctx context.Context, id int64) (*model.Conversion, error)
	attachLinkFn   func(ctx context.Context, conversionID, linkID int64, affiliateCode *string, mode string) error
}

func (m *mockConversionRepository) Insert(ctx context.Context, conversion *model.Conversion) (bool, error) {
	if m.insertFn != nil {
		return m.insertFn(ctx, conversion)
	}
	return true, nil
}

func (m *mockConversionRepository) UpdateStatusByInvoiceID(ctx context.Context, invoiceID, status string) (int64, error) {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, invoiceID, status)
	}
	return 0, nil
}

func (m *mockConversionRepository) GetByInvoiceID(ctx context.Context, invoiceID string) (*model.Conversion, error) {
	if m.getByInvoiceFn != nil {
		return m.getByInvoiceFn(ctx, invoiceID)
	}
	return nil, repository.ErrConversionNotFound
}

func (m *mockConversionRepository) GetByID(ctx context.Context, id int64) (*model.Conversion, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrConversionNotFound
}

func (m *mockConversionRepository) AttachLink(ctx context.Context, conversionID, linkID int64, affiliateCode *string, mode string) error {
	if m.attachLinkFn != nil {
		return m.attachLinkFn(ctx, conversionID, linkID, affiliateCode, mode)
	}
	return nil
}

type mockWebhookEventRepository struct {
	upsertFn                 func(ctx context.Context, event *model.WebhookEvent) error
	markProcessedFn          func(ctx context.Context, eventID string, at time.Time) error
	getByEventIDFn           func(ctx context.Context, eventID string) (*model.WebhookEvent, error)
	countUnprocessedBeforeFn func(ctx context.Context, receivedBefore time.Time) (int64, error)
}

func (m *mockWebhookEventRepository) Upsert(ctx context.Context, event *model.WebhookEvent) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, event)
	}
	return nil
}

func (m *mockWebhookEventRepository) MarkProcessed(ctx context.Context, eventID string, at time.Time) error {
	if m.markProcessedFn != nil {
		return m.markProcessedFn(ctx, eventID, at)
	}
	return nil
}

func (m *mockWebhookEventRepository) GetByEventID(ctx context.Context, eventID string) (*model.WebhookEvent, error) {
	if m.getByEventIDFn != nil {
		return m.getByEventIDFn(ctx, eventID)
	}
	return nil, nil
}

func (m *mockWebhookEventRepository) CountUnprocessedBefore(ctx context.Context, receivedBefore time.Time) (int64, error) {
	if m.countUnprocessedBeforeFn != nil {
		return m.countUnprocessedBeforeFn(ctx, receivedBefore)
	}
	return 0, nil
}

type mockOrphanRepository struct {
	listOrphansFn    func(ctx context.Context, tenantID int64, since time.Time) ([]model.Conversion, error)
	candidateClickFn func(ctx context.Context, tenantID int64, paidAt time.Time, lookback time.Duration) (*model.Click, error)
}

func (m *mockOrphanRepository) ListOrphans(ctx context.Context, tenantID int64, since time.Time) ([]model.Conversion, error) {
	if m.listOrphansFn != nil {
		return m.listOrphansFn(ctx, tenantID, since)
	}
	return nil, nil
}

func (m *mockOrphanRepository) CandidateClick(ctx context.Context, tenantID int64, paidAt time.Time, lookback time.Duration) (*model.Click, error) {
	if m.candidateClickFn != nil {
		return m.candidateClickFn(ctx, tenantID, paidAt, lookback)
	}
	return nil, repository.ErrNoCandidateClick
}

type mockLocator struct {
	locateFn func(ctx context.Context, ip string) (geo.Location, error)
	calls    int
}

func (m *mockLocator) Locate(ctx context.Context, ip string) (geo.Location, error) {
	m.calls++
	if m.locateFn != nil {
		return m.locateFn(ctx, ip)
	}
	return geo.Location{}, nil
}

func strptr(s string) *string { return &s }
