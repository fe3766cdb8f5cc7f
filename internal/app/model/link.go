package model

import "time"

// Link is the unit of attribution: a globally-unique slug owned by one
// tenant, optionally scoped to a campaign and a clipper.
type Link struct {
	ID          int64     `db:"id" gorm:"primaryKey"`
	TenantID    int64     `db:"tenant_id" gorm:"not null;index"`
	CampaignID  *int64    `db:"campaign_id" gorm:"index"`
	Clipper     *string   `db:"clipper" gorm:"size:128"`
	Slug        string    `db:"slug" gorm:"size:64;not null;uniqueIndex"`
	Destination *string   `db:"destination" gorm:"type:text"`
	Disabled    bool      `db:"disabled" gorm:"not null;default:false"`
	CreatedAt   time.Time `db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `db:"updated_at" gorm:"autoUpdateTime"`

	Campaign *Campaign `gorm:"foreignKey:CampaignID"`
}

// DestinationURL applies the link -> campaign destination precedence.
// The empty string means neither level carries a destination.
func (l *Link) DestinationURL() string {
	if l.Destination != nil && *l.Destination != "" {
		return *l.Destination
	}
	if l.Campaign != nil && l.Campaign.Destination != nil {
		return *l.Campaign.Destination
	}
	return ""
}
