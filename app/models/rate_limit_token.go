package models

import "time"

// Rate limit token types. Each type is an independent budget for the same
// subject key.
const (
	RateLimitTypeWebhook  = "webhook"
	RateLimitTypeRedirect = "redirect"
)

// RateLimitToken is one fixed-window counter shared by every service
// instance. Rows are eligible for deletion once ResetAt has passed.
type RateLimitToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TokenKey  string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_rate_limit_tokens_key_type,priority:1" json:"token_key"`
	TokenType string    `gorm:"type:varchar(32);not null;uniqueIndex:ux_rate_limit_tokens_key_type,priority:2" json:"token_type"`
	Count     int       `gorm:"not null;default:0" json:"count"`
	ResetAt   time.Time `gorm:"not null;index" json:"reset_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
