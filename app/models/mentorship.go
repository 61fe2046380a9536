package models

import "time"

const (
	MentorshipStatusActive = "active"
	MentorshipStatusEnded  = "ended"
)

const (
	EndReasonCancellation = "cancellation"
	EndReasonRefund       = "refund"
	EndReasonExpired      = "expired"
	EndReasonManual       = "manual"
)

// Mentorship is the (mentee, instructor) pairing and its consumable session
// balance. One pair has at most one row; renewals increment counters on the
// existing row instead of creating a duplicate.
type Mentorship struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	MenteeID          uint       `gorm:"not null;uniqueIndex:ux_mentorships_pair,priority:1" json:"mentee_id"`
	InstructorID      uint       `gorm:"not null;uniqueIndex:ux_mentorships_pair,priority:2;index" json:"instructor_id"`
	SessionsRemaining int        `gorm:"not null;default:0" json:"sessions_remaining"`
	TotalSessions     int        `gorm:"not null;default:0" json:"total_sessions"`
	Status            string     `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`
	LastSessionDate   *time.Time `gorm:"type:timestamp;default:null" json:"last_session_date,omitempty"`
	EndedAt           *time.Time `gorm:"type:timestamp;default:null" json:"ended_at,omitempty"`
	EndReason         string     `gorm:"type:varchar(32);not null;default:''" json:"end_reason"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsActive reports whether the mentorship currently entitles platform access.
func (m *Mentorship) IsActive() bool {
	return m.Status == MentorshipStatusActive
}
