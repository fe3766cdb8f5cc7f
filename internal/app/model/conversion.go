package model

import "time"

// Conversion statuses.
const (
	ConversionPaid     = "paid"
	ConversionRefunded = "refunded"
)

// Attribution modes, most to least confident. Degraded means the tenant
// itself was guessed and the record needs operator review.
const (
	AttributionDirect   = "direct"
	AttributionCookie   = "cookie"
	AttributionManual   = "manual"
	AttributionDegraded = "degraded"
	AttributionNone     = "none"
)

// Conversion is a payment event reduced to the fields attribution needs.
// InvoiceID is the sole idempotency key: redelivery of the same processor
// event must not create a second row.
type Conversion struct {
	ID              int64     `db:"id" gorm:"primaryKey"`
	TenantID        int64     `db:"tenant_id" gorm:"not null;index"`
	LinkID          *int64    `db:"link_id" gorm:"index"`
	AffiliateCode   *string   `db:"affiliate_code" gorm:"size:128;index"`
	CustomerID      *string   `db:"customer_id" gorm:"size:64;index"`
	SubscriptionID  *string   `db:"subscription_id" gorm:"size:64"`
	InvoiceID       string    `db:"invoice_id" gorm:"size:64;not null;uniqueIndex"`
	AmountCents     int64     `db:"amount_cents" gorm:"not null"`
	Currency        string    `db:"currency" gorm:"size:3;not null"`
	Status          string    `db:"status" gorm:"size:16;not null;default:paid"`
	AttributionMode string    `db:"attribution_mode" gorm:"size:16;not null;default:none"`
	PaidAt          time.Time `db:"paid_at" gorm:"not null;index"`
	CreatedAt       time.Time `db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time `db:"updated_at" gorm:"autoUpdateTime"`
}

// ConversionEvent is the message published to JetStream after a
// conversion row is written, feeding the async stats consumer.
type ConversionEvent struct {
	ID              string    `json:"id"`
	TenantID        int64     `json:"tenant_id"`
	LinkID          *int64    `json:"link_id,omitempty"`
	InvoiceID       string    `json:"invoice_id"`
	AmountCents     int64     `json:"amount_cents"`
	Currency        string    `json:"currency"`
	Status          string    `json:"status"`
	AttributionMode string    `json:"attribution_mode"`
	PaidAt          time.Time `json:"paid_at"`
}

const (
	ConversionStreamName     = "CONVERSIONS"
	ConversionStreamSubject  = "conversions.events"
	ConversionConsumerName   = "conversion-stats"
	ConversionStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)
