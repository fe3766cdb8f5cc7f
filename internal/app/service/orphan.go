package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ClipsonBusiness/tracking-system-sub000/internal/app/model"
	"github.com/ClipsonBusiness/tracking-system-sub000/internal/app/repository"
	"go.uber.org/zap"
)

// OrphanLookback bounds how far before a payment a click may sit and
// still be proposed as its origin.
const OrphanLookback = 60 * 24 * time.Hour

var (
	// ErrAlreadyAttributed means the conversion already has a link.
	ErrAlreadyAttributed = errors.New("conversion already attributed")
	// ErrClickMismatch means the chosen click cannot explain the
	// conversion (wrong tenant, after payment, or outside the window).
	ErrClickMismatch = errors.New("click does not match conversion window")
)

// OrphanService finds candidate clicks for conversions that arrived
// without a link identity. It is read-only until Apply is invoked.
type OrphanService interface {
	ListOrphans(ctx context.Context, tenantID int64, window time.Duration) ([]model.Conversion, error)
	// Propose returns the best candidate click: the most recent click
	// for the tenant at or before the paid timestamp, within the
	// lookback. At most one candidate, never a write.
	Propose(ctx context.Context, conversionID int64) (*model.Click, error)
	// Apply re-attributes the conversion to the chosen click's link.
	Apply(ctx context.Context, conversionID, clickID int64) error
}

type orphanService struct {
	orphans     repository.OrphanRepository
	conversions repository.ConversionRepository
	clicks      repository.ClickRepository
	logger      *zap.Logger
}

// NewOrphanService builds the orphan-match heuristic.
func NewOrphanService(
	orphans repository.OrphanRepository,
	conversions repository.ConversionRepository,
	clicks repository.ClickRepository,
	logger *zap.Logger,
) OrphanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &orphanService{
		orphans:     orphans,
		conversions: conversions,
		clicks:      clicks,
		logger:      logger,
	}
}

func (s *orphanService) ListOrphans(ctx context.Context, tenantID int64, window time.Duration) ([]model.Conversion, error) {
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}
	return s.orphans.ListOrphans(ctx, tenantID, time.Now().UTC().Add(-window))
}

func (s *orphanService) Propose(ctx context.Context, conversionID int64) (*model.Click, error) {
	conversion, err := s.conversions.GetByID(ctx, conversionID)
	if err != nil {
		return nil, err
	}
	if conversion.LinkID != nil {
		return nil, ErrAlreadyAttributed
	}

	click, err := s.orphans.CandidateClick(ctx, conversion.TenantID, conversion.PaidAt, OrphanLookback)
	if err != nil {
		return nil, err
	}

	// Nearest-predecessor is a heuristic, not ground truth; the repo
	// query bounds it, this guard keeps the invariant obvious.
	if !validCandidate(click, conversion) {
		return nil, repository.ErrNoCandidateClick
	}
	return click, nil
}

func (s *orphanService) Apply(ctx context.Context, conversionID, clickID int64) error {
	conversion, err := s.conversions.GetByID(ctx, conversionID)
	if err != nil {
		return err
	}

	click, err := s.clicks.GetByID(ctx, clickID)
	if err != nil {
		return fmt.Errorf("load click: %w", err)
	}
	if !validCandidate(click, conversion) {
		return ErrClickMismatch
	}

	if err := s.conversions.AttachLink(ctx, conversion.ID, click.LinkID, click.AffiliateCode, model.AttributionManual); err != nil {
		return err
	}

	s.logger.Info("orphan conversion re-attributed",
		zap.Int64("conversion_id", conversion.ID),
		zap.Int64("click_id", click.ID),
		zap.Int64("link_id", click.LinkID))
	return nil
}

// validCandidate checks tenant, ordering and window: the click must
// belong to the conversion's tenant, precede the payment, and be no
// older than the lookback.
func validCandidate(click *model.Click, conversion *model.Conversion) bool {
	if click.TenantID != conversion.TenantID {
		return false
	}
	if click.ClickedAt.After(conversion.PaidAt) {
		return false
	}
	return !click.ClickedAt.Before(conversion.PaidAt.Add(-OrphanLookback))
}
