package model

import "time"

// Tenant is a client of the tracking platform. It owns links, campaigns,
// clicks and conversions, and may bring its own tracking domain and
// payment-processor credentials.
type Tenant struct {
	ID int64 `db:"id" gorm:"primaryKey"`

	Name string `db:"name" gorm:"size:128;not null"`

	// CustomDomain is matched case-insensitively against the request
	// host; DNS/CDN setups deliver it in inconsistent casing.
	CustomDomain *string `db:"custom_domain" gorm:"size:255;uniqueIndex"`

	// WebhookSecret signs this tenant's processor webhooks. Tenants
	// without a secret are skipped during signature probing.
	WebhookSecret *string `db:"webhook_secret" gorm:"size:255"`

	// AccountID is the payment-processor account identifier, used to
	// resolve deliveries that carry an account context but no tenant.
	AccountID *string `db:"account_id" gorm:"size:64;index"`

	CreatedAt time.Time `db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `db:"updated_at" gorm:"autoUpdateTime"`
}
