package models

import "time"

// Instructor is read-mostly reference data for the mentors selling sessions.
type Instructor struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	DiscordID string    `gorm:"type:varchar(32);not null;index" json:"discord_id"`
	Name      string    `gorm:"type:varchar(191);not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
