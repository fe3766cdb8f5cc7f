package model

import "time"

// Campaign groups links under one offer. Its destination acts as the
// fallback for links that do not carry their own.
type Campaign struct {
	ID                int64     `db:"id" gorm:"primaryKey"`
	TenantID          int64     `db:"tenant_id" gorm:"not null;index"`
	Name              string    `db:"name" gorm:"size:128;not null"`
	Destination       *string   `db:"destination" gorm:"type:text"`
	CustomDomain      *string   `db:"custom_domain" gorm:"size:255"`
	CommissionPercent float64   `db:"commission_percent" gorm:"not null;default:0"`
	CreatedAt         time.Time `db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time `db:"updated_at" gorm:"autoUpdateTime"`
}
