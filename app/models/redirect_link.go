package models

import "time"

// RedirectLink is a public short link (invite links, booking pages). Click
// counts are buffered in Redis and flushed in batches, so ClickCount lags a
// little behind reality.
type RedirectLink struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	ShortCode  string     `gorm:"type:varchar(32);not null;uniqueIndex:ux_redirect_links_code" json:"short_code"`
	TargetURL  string     `gorm:"type:varchar(2048);not null" json:"target_url"`
	Disabled   bool       `gorm:"not null;default:false" json:"disabled"`
	ExpiresAt  *time.Time `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
	ClickCount int64      `gorm:"not null;default:0" json:"click_count"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsExpired reports whether the link has passed its expiry, if any.
func (r *RedirectLink) IsExpired() bool {
	return r.ExpiresAt != nil && time.Now().After(*r.ExpiresAt)
}
