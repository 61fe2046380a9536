package models

import "time"

// PendingJoinTTL bounds how long an identity-linking invitation stays valid.
const PendingJoinTTL = 48 * time.Hour

// PendingJoin represents an identity-linking handshake for a mentee who
// purchased before having a Discord identity on file. The oauth_state is
// single-use; a set JoinedAt marks it consumed.
type PendingJoin struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	Email               string     `gorm:"type:varchar(191);not null;index" json:"email"`
	InstructorID        uint       `gorm:"not null" json:"instructor_id"`
	OfferID             int64      `gorm:"not null" json:"offer_id"`
	DiscordUserID       string     `gorm:"type:varchar(32);not null;default:''" json:"discord_user_id"`
	OAuthState          string     `gorm:"column:oauth_state;type:varchar(64);not null;index:ux_pending_joins_state,unique" json:"-"`
	OAuthStateExpiresAt time.Time  `gorm:"column:oauth_state_expires_at;not null" json:"oauth_state_expires_at"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"created_at"`
	JoinedAt            *time.Time `gorm:"type:timestamp;default:null" json:"joined_at,omitempty"`
}

// IsExpired reports whether the linking window has closed.
func (p *PendingJoin) IsExpired() bool {
	return time.Now().After(p.OAuthStateExpiresAt)
}

// IsConsumed reports whether the handshake already completed.
func (p *PendingJoin) IsConsumed() bool {
	return p.JoinedAt != nil
}
