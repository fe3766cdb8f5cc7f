package model

import "time"

// WebhookEvent stores every received processor delivery keyed by the
// processor's event id, for audit and idempotent re-processing. It is
// upserted before any business dispatch runs.
type WebhookEvent struct {
	ID             int64      `db:"id" gorm:"primaryKey"`
	EventID        string     `db:"event_id" gorm:"size:64;not null;uniqueIndex"`
	EventType      string     `db:"event_type" gorm:"size:100;not null;index"`
	Payload        string     `db:"payload" gorm:"type:text;not null"`
	SignatureValid bool       `db:"signature_valid" gorm:"not null;default:false"`
	TenantID       *int64     `db:"tenant_id" gorm:"index"`
	ReceivedAt     time.Time  `db:"received_at" gorm:"autoCreateTime"`
	ProcessedAt    *time.Time `db:"processed_at"`
}
