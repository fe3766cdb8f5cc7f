package model

import "time"

// Click is an immutable record of one resolved, redirected tracked
// request. The visitor IP is stored only as a one-way hash.
type Click struct {
	ID            int64     `db:"id" gorm:"primaryKey"`
	LinkID        int64     `db:"link_id" gorm:"not null;index"`
	TenantID      int64     `db:"tenant_id" gorm:"not null;index:idx_clicks_tenant_time,priority:1"`
	IPHash        string    `db:"ip_hash" gorm:"size:64;index"`
	Country       *string   `db:"country" gorm:"size:2"`
	City          *string   `db:"city" gorm:"size:100"`
	Referrer      *string   `db:"referrer" gorm:"size:1024"`
	UTMSource     *string   `db:"utm_source" gorm:"size:255"`
	UTMMedium     *string   `db:"utm_medium" gorm:"size:255"`
	UTMCampaign   *string   `db:"utm_campaign" gorm:"size:255"`
	AffiliateCode *string   `db:"affiliate_code" gorm:"size:128;index"`
	Browser       *string   `db:"browser" gorm:"size:50"`
	OS            *string   `db:"os" gorm:"size:50"`
	Device        *string   `db:"device" gorm:"size:10"`
	ClickedAt     time.Time `db:"clicked_at" gorm:"not null;index:idx_clicks_tenant_time,priority:2"`
}
