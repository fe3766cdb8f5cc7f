package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ClipsonBusiness/tracking-system-sub000/internal/app/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoCandidateClick signals that no click precedes the payment inside
// the lookback window.
var ErrNoCandidateClick = errors.New("no candidate click in window")

// OrphanRepository serves the orphan-match read path. It runs raw SQL
// on the pgx pool: the nearest-predecessor scan is ordered and
// time-bounded in ways that are awkward to express through the ORM.
type OrphanRepository interface {
	ListOrphans(ctx context.Context, tenantID int64, since time.Time) ([]model.Conversion, error)
	CandidateClick(ctx context.Context, tenantID int64, paidAt time.Time, lookback time.Duration) (*model.Click, error)
}

type orphanRepository struct {
	pool *pgxpool.Pool
}

// NewOrphanRepository returns a pgx-backed OrphanRepository.
func NewOrphanRepository(pool *pgxpool.Pool) OrphanRepository {
	return &orphanRepository{pool: pool}
}

// ListOrphans returns paid conversions without a link for one tenant,
// newest first, bounded by the operator-chosen recency cutoff.
func (r *orphanRepository) ListOrphans(ctx context.Context, tenantID int64, since time.Time) ([]model.Conversion, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, affiliate_code, customer_id, subscription_id,
		       invoice_id, amount_cents, currency, status, attribution_mode, paid_at
		FROM conversions
		WHERE tenant_id = $1
		  AND link_id IS NULL
		  AND status = 'paid'
		  AND paid_at >= $2
		ORDER BY paid_at DESC`,
		tenantID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orphans []model.Conversion
	for rows.Next() {
		var c model.Conversion
		if err := rows.Scan(
			&c.ID, &c.TenantID, &c.AffiliateCode, &c.CustomerID, &c.SubscriptionID,
			&c.InvoiceID, &c.AmountCents, &c.Currency, &c.Status, &c.AttributionMode, &c.PaidAt,
		); err != nil {
			return nil, err
		}
		orphans = append(orphans, c)
	}
	return orphans, rows.Err()
}

// CandidateClick finds the most recent click for the tenant at or
// before paidAt, no older than the lookback bound. Ties on clicked_at
// break to the highest click id so the proposal is deterministic.
func (r *orphanRepository) CandidateClick(ctx context.Context, tenantID int64, paidAt time.Time, lookback time.Duration) (*model.Click, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, link_id, tenant_id, ip_hash, country, city, referrer,
		       utm_source, utm_medium, utm_campaign, affiliate_code, clicked_at
		FROM clicks
		WHERE tenant_id = $1
		  AND clicked_at <= $2
		  AND clicked_at >= $3
		ORDER BY clicked_at DESC, id DESC
		LIMIT 1`,
		tenantID, paidAt, paidAt.Add(-lookback))

	var c model.Click
	err := row.Scan(
		&c.ID, &c.LinkID, &c.TenantID, &c.IPHash, &c.Country, &c.City, &c.Referrer,
		&c.UTMSource, &c.UTMMedium, &c.UTMCampaign, &c.AffiliateCode, &c.ClickedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoCandidateClick
		}
		return nil, err
	}
	return &c, nil
}
