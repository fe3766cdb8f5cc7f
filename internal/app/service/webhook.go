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

var (
	// ErrUnverified means no tenant secret and no default secret
	// verified the delivery. The gateway never trusts an unverified
	// payload.
	ErrUnverified = errors.New("webhook signature unverified")
	// ErrBadPayload means the verified body could not be decoded.
	ErrBadPayload = errors.New("malformed event payload")
)

// ResolvedTenant is the tenant identity established during signature
// verification, threaded explicitly into attribution (never ambient
// state). Tenant is nil when only the platform default secret verified.
type ResolvedTenant struct {
	Tenant     *model.Tenant
	ViaDefault bool
}

// WebhookService authenticates inbound processor deliveries and stores
// the raw event before any business dispatch.
type WebhookService interface {
	// VerifyAndStore verifies the signature (hinted tenant first, then
	// every tenant with a secret, then the default secret), parses the
	// event and upserts the raw delivery keyed by processor event id.
	VerifyAndStore(ctx context.Context, body []byte, sigHeader, accountHint string) (*payment.Event, ResolvedTenant, error)
	MarkProcessed(ctx context.Context, eventID string) error
}

type webhookService struct {
	tenants       repository.TenantRepository
	events        repository.WebhookEventRepository
	ids           *ids.Generator
	defaultSecret string
	tolerance     time.Duration
	logger        *zap.Logger
}

// NewWebhookService builds the ingestion gateway.
func NewWebhookService(
	tenants repository.TenantRepository,
	events repository.WebhookEventRepository,
	gen *ids.Generator,
	defaultSecret string,
	tolerance time.Duration,
	logger *zap.Logger,
) WebhookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &webhookService{
		tenants:       tenants,
		events:        events,
		ids:           gen,
		defaultSecret: defaultSecret,
		tolerance:     tolerance,
		logger:        logger,
	}
}

func (s *webhookService) VerifyAndStore(ctx context.Context, body []byte, sigHeader, accountHint string) (*payment.Event, ResolvedTenant, error) {
	resolved, outcome, err := s.verify(ctx, body, sigHeader, accountHint)
	if err != nil {
		infraprom.WebhookDeliveries.WithLabelValues(infraprom.VerifyRejected).Inc()
		return nil, ResolvedTenant{}, err
	}
	infraprom.WebhookDeliveries.WithLabelValues(outcome).Inc()

	event, err := payment.Parse(body)
	if err != nil {
		return nil, ResolvedTenant{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	// Raw event is stored before dispatch so redelivery stays safe even
	// when downstream processing fails and the sender retries.
	record := &model.WebhookEvent{
		ID:             s.ids.Next(),
		EventID:        event.ID,
		EventType:      event.Type,
		Payload:        string(body),
		SignatureValid: true,
	}
	if resolved.Tenant != nil {
		record.TenantID = &resolved.Tenant.ID
	}
	if err := s.events.Upsert(ctx, record); err != nil {
		return nil, ResolvedTenant{}, err
	}

	return event, resolved, nil
}

// verify walks the state machine: hinted tenant -> probe all tenant
// secrets -> platform default -> reject.
func (s *webhookService) verify(ctx context.Context, body []byte, sigHeader, accountHint string) (ResolvedTenant, string, error) {
	if accountHint != "" {
		tenant, err := s.tenants.GetByAccountID(ctx, accountHint)
		if err == nil && tenant.WebhookSecret != nil {
			if payment.Verify(body, sigHeader, *tenant.WebhookSecret, s.tolerance) == nil {
				return ResolvedTenant{Tenant: tenant}, infraprom.VerifyHinted, nil
			}
		} else if err != nil && !errors.Is(err, repository.ErrTenantNotFound) {
			return ResolvedTenant{}, "", err
		}
	}

	// The sender shares one endpoint across tenants; the only way to
	// find the signer is to try each stored secret in turn.
	candidates, err := s.tenants.ListWithSecrets(ctx)
	if err != nil {
		return ResolvedTenant{}, "", err
	}
	for i := range candidates {
		tenant := &candidates[i]
		if payment.Verify(body, sigHeader, *tenant.WebhookSecret, s.tolerance) == nil {
			infraprom.SecretProbes.Observe(float64(i + 1))
			return ResolvedTenant{Tenant: tenant}, infraprom.VerifyProbed, nil
		}
	}

	if s.defaultSecret != "" {
		if payment.Verify(body, sigHeader, s.defaultSecret, s.tolerance) == nil {
			return ResolvedTenant{ViaDefault: true}, infraprom.VerifyDefault, nil
		}
	}

	s.logger.Warn("webhook rejected: no secret verified",
		zap.Int("tenants_probed", len(candidates)),
		zap.Bool("had_hint", accountHint != ""))
	return ResolvedTenant{}, "", ErrUnverified
}

func (s *webhookService) MarkProcessed(ctx context.Context, eventID string) error {
	return s.events.MarkProcessed(ctx, eventID, time.Now().UTC())
}
