package models

import "time"

// OfferMapping resolves a commerce-platform offer id to an instructor and the
// number of sessions one purchase of that offer grants. Unmapped offers are
// rejected at the webhook and reported to operators.
type OfferMapping struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	OfferID             int64     `gorm:"not null;uniqueIndex:ux_offer_mappings_offer" json:"offer_id"`
	InstructorID        uint      `gorm:"not null;index" json:"instructor_id"`
	SessionsPerPurchase int       `gorm:"not null;default:0" json:"sessions_per_purchase"`
	Active              bool      `gorm:"not null;default:true;index" json:"active"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
