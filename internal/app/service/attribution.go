package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ClipsonBusiness/tracking-system-sub000/internal/app/model"
	"github.com/ClipsonBusiness/tracking-system-sub000/internal/app/repository"
	"github.com/ClipsonBusiness/tracking-system-sub000/internal/infra/ids"
	infraprom "github.com/ClipsonBusiness/tracking-system-sub000/internal/infra/prometheus"
	"github.com/ClipsonBusiness/tracking-system-sub000/internal/payment"
	"go.uber.org/zap"
)

// Metadata keys the extraction cascade reads. A cooperating checkout
// forwards the slug cookie under MetaLinkSlug; MetaAffiliateCode is the
// affiliate identity set at click time.
const (
	MetaAffiliateCode = "affiliate_code"
	MetaLinkSlug      = "link_slug"
)

// ErrNoTenant means no tenant could be determined for an event, even
// through the degraded fallback.
var ErrNoTenant = errors.New("no tenant determinable for event")

// AttributionService reduces verified payment events to idempotent
// conversion rows.
type AttributionService interface {
	// Process dispatches one verified event. Errors on known types must
	// surface to the caller so the sender redelivers.
	Process(ctx context.Context, event *payment.Event, resolved ResolvedTenant) error
}

type attributionService struct {
	tenants     repository.TenantRepository
	links       repository.LinkRepository
	conversions repository.ConversionRepository
	publisher   *ConversionPublisher
	ids         *ids.Generator
	logger      *zap.Logger
}

// NewAttributionService builds the attribution resolver.
func NewAttributionService(
	tenants repository.TenantRepository,
	links repository.LinkRepository,
	conversions repository.ConversionRepository,
	publisher *ConversionPublisher,
	gen *ids.Generator,
	logger *zap.Logger,
) AttributionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &attributionService{
		tenants:     tenants,
		links:       links,
		conversions: conversions,
		publisher:   publisher,
		ids:         gen,
		logger:      logger,
	}
}

func (s *attributionService) Process(ctx context.Context, event *payment.Event, resolved ResolvedTenant) error {
	switch event.Kind() {
	case payment.KindInvoicePaid:
		return s.handleInvoicePaid(ctx, event, resolved)
	case payment.KindCheckoutCompleted:
		return s.handleCheckout(ctx, event, resolved)
	case payment.KindChargeRefunded:
		return s.handleRefund(ctx, event)
	case payment.KindSubscriptionChanged:
		// Subscription lifecycle changes carry attribution metadata but
		// settle nothing; the following invoice event creates the row.
		s.logger.Debug("subscription change observed",
			zap.String("subscription_id", event.Subscription.SubscriptionID),
			zap.String("status", event.Subscription.Status))
		return nil
	default:
		return nil
	}
}

// metadataSource pairs a provenance label with a lazily evaluated
// metadata map, keeping the precedence rule visible as data.
type metadataSource struct {
	name string
	meta map[string]string
}

// extract walks the cascade and returns the first value present for
// key, with the source that supplied it.
func extract(sources []metadataSource, key string) (string, string) {
	for _, src := range sources {
		if v, ok := src.meta[key]; ok && v != "" {
			return v, src.name
		}
	}
	return "", ""
}

func (s *attributionService) handleInvoicePaid(ctx context.Context, event *payment.Event, resolved ResolvedTenant) error {
	inv := event.Invoice

	// Metadata propagation is asymmetric: a code set at checkout may
	// only survive on the subscription or customer object by the time
	// a recurring invoice fires.
	cascade := []metadataSource{
		{"invoice", inv.Metadata},
		{"subscription", inv.SubscriptionMetadata},
		{"customer", inv.CustomerMetadata},
	}

	tenant, degraded, err := s.selectTenant(ctx, resolved, event.Account)
	if err != nil {
		return err
	}

	conversion := &model.Conversion{
		ID:             s.ids.Next(),
		TenantID:       tenant.ID,
		CustomerID:     optional(inv.CustomerID),
		SubscriptionID: optional(inv.SubscriptionID),
		InvoiceID:      inv.InvoiceID,
		AmountCents:    inv.AmountCents,
		Currency:       inv.Currency,
		Status:         model.ConversionPaid,
		PaidAt:         inv.PaidAt,
	}
	s.attribute(ctx, conversion, cascade, degraded)

	return s.write(ctx, conversion)
}

func (s *attributionService) handleCheckout(ctx context.Context, event *payment.Event, resolved ResolvedTenant) error {
	co := event.Checkout

	// Subscription checkouts settle via their invoice events; only a
	// one-time purchase is final here. The session id serves as the
	// unique event identifier.
	if co.Mode != "payment" || co.AmountTotal <= 0 {
		return nil
	}

	tenant, degraded, err := s.selectTenant(ctx, resolved, event.Account)
	if err != nil {
		return err
	}

	conversion := &model.Conversion{
		ID:          s.ids.Next(),
		TenantID:    tenant.ID,
		CustomerID:  optional(co.CustomerID),
		InvoiceID:   co.SessionID,
		AmountCents: co.AmountTotal,
		Currency:    co.Currency,
		Status:      model.ConversionPaid,
		PaidAt:      time.Now().UTC(),
	}
	s.attribute(ctx, conversion, []metadataSource{{"checkout", co.Metadata}}, degraded)

	return s.write(ctx, conversion)
}

// attribute fills link and affiliate fields from the metadata cascade
// and stamps the attribution mode, downgraded when the tenant itself
// was guessed.
func (s *attributionService) attribute(ctx context.Context, conversion *model.Conversion, cascade []metadataSource, degraded bool) {
	mode := model.AttributionNone

	if slug, source := extract(cascade, MetaLinkSlug); slug != "" {
		link, err := s.links.GetBySlugForTenant(ctx, slug, conversion.TenantID)
		if err == nil {
			conversion.LinkID = &link.ID
			mode = model.AttributionDirect
			s.logger.Debug("link attributed from metadata",
				zap.String("slug", slug),
				zap.String("source", source))
		} else if !errors.Is(err, repository.ErrLinkNotFound) {
			s.logger.Warn("link lookup failed during attribution",
				zap.String("slug", slug), zap.Error(err))
		}
	}

	if code, source := extract(cascade, MetaAffiliateCode); code != "" {
		conversion.AffiliateCode = &code
		if mode == model.AttributionNone {
			mode = model.AttributionCookie
		}
		s.logger.Debug("affiliate code attributed",
			zap.String("source", source))
	}

	if degraded {
		// Must never look like confident attribution downstream.
		mode = model.AttributionDegraded
	}
	conversion.AttributionMode = mode
}

// selectTenant prefers the identity established during signature
// verification, then an account-id match. The last resort is the first
// tenant in the system, reported as degraded.
func (s *attributionService) selectTenant(ctx context.Context, resolved ResolvedTenant, account string) (*model.Tenant, bool, error) {
	if resolved.Tenant != nil {
		return resolved.Tenant, false, nil
	}

	if account != "" {
		tenant, err := s.tenants.GetByAccountID(ctx, account)
		if err == nil {
			return tenant, false, nil
		}
		if !errors.Is(err, repository.ErrTenantNotFound) {
			return nil, false, err
		}
	}

	tenant, err := s.tenants.First(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrTenantNotFound) {
			return nil, false, ErrNoTenant
		}
		return nil, false, err
	}
	s.logger.Warn("degraded attribution: tenant guessed as first in system",
		zap.Int64("tenant_id", tenant.ID),
		zap.String("account", account))
	return tenant, true, nil
}

// write inserts the conversion; a duplicate invoice id means the event
// was already absorbed, and only status may be refreshed. Attribution
// fields on the existing row are never overwritten.
func (s *attributionService) write(ctx context.Context, conversion *model.Conversion) error {
	created, err := s.conversions.Insert(ctx, conversion)
	if err != nil {
		return fmt.Errorf("insert conversion: %w", err)
	}
	if !created {
		if _, err := s.conversions.UpdateStatusByInvoiceID(ctx, conversion.InvoiceID, conversion.Status); err != nil {
			return fmt.Errorf("refresh conversion status: %w", err)
		}
		return nil
	}

	infraprom.ConversionsTotal.WithLabelValues(conversion.AttributionMode).Inc()

	if s.publisher != nil {
		if err := s.publisher.Publish(conversion); err != nil {
			// Stats feed is best-effort; the conversion row is the
			// source of truth.
			s.logger.Error("failed to publish conversion event", zap.Error(err))
		}
	}
	return nil
}

func (s *attributionService) handleRefund(ctx context.Context, event *payment.Event) error {
	refund := event.Refund
	if refund.InvoiceID == "" {
		s.logger.Warn("refund without invoice reference ignored",
			zap.String("charge_id", refund.ChargeID))
		return nil
	}

	rows, err := s.conversions.UpdateStatusByInvoiceID(ctx, refund.InvoiceID, model.ConversionRefunded)
	if err != nil {
		return fmt.Errorf("mark refunded: %w", err)
	}
	if rows == 0 {
		// Refund delivered before (or without) the paid event; nothing
		// to transition.
		s.logger.Info("refund for unknown conversion ignored",
			zap.String("invoice_id", refund.InvoiceID))
	}
	return nil
}
