package models

import "time"

// Mentee is a paying student. Rows are created eagerly from the purchase
// email; DiscordID stays empty until the mentee completes identity linking.
type Mentee struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_mentees_email" json:"email"`
	DiscordID string    `gorm:"type:varchar(32);not null;default:'';index" json:"discord_id"`
	Name      string    `gorm:"type:varchar(191);not null;default:''" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsLinked reports whether the mentee has a Discord identity attached.
func (m *Mentee) IsLinked() bool {
	return m.DiscordID != ""
}
