package repository

import (
	"errors"
	"time"

	"github.com/MentorCircle/mentorcircle/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type mentorshipRepository struct {
	db *gorm.DB
}

// NewMentorshipRepository creates a mentorship ledger repository backed by GORM.
func NewMentorshipRepository(db *gorm.DB) MentorshipRepository {
	return &mentorshipRepository{db: db}
}

func (r *mentorshipRepository) GetByID(id uint) (*models.Mentorship, error) {
	var m models.Mentorship
	if err := r.db.First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *mentorshipRepository) GetByPair(menteeID, instructorID uint) (*models.Mentorship, error) {
	var m models.Mentorship
	err := r.db.Where("mentee_id = ? AND instructor_id = ?", menteeID, instructorID).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *mentorshipRepository) ListByMentee(menteeID uint) ([]models.Mentorship, error) {
	var out []models.Mentorship
	err := r.db.Where("mentee_id = ?", menteeID).Find(&out).Error
	return out, err
}

func (r *mentorshipRepository) ListActiveByMentee(menteeID uint) ([]models.Mentorship, error) {
	var out []models.Mentorship
	err := r.db.Where("mentee_id = ? AND status = ?", menteeID, models.MentorshipStatusActive).Find(&out).Error
	return out, err
}

// IncrementSessions applies the delta inside one transaction holding the row
// lock, so concurrent callers serialize on the row instead of racing on a
// read-modify-write. The floor at 0 is applied before the write.
func (r *mentorshipRepository) IncrementSessions(id uint, delta int) (int, error) {
	var newRemaining int
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var m models.Mentorship
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, id).Error; err != nil {
			return err
		}

		newRemaining = m.SessionsRemaining + delta
		if newRemaining < 0 {
			newRemaining = 0
		}

		updates := map[string]interface{}{"sessions_remaining": newRemaining}
		if delta < 0 {
			now := time.Now()
			updates["last_session_date"] = &now
		}
		return tx.Model(&models.Mentorship{}).Where("id = ?", id).Updates(updates).Error
	})
	if err != nil {
		return 0, err
	}
	return newRemaining, nil
}

// UpsertSessions creates or renews the pair's mentorship as one atomic unit.
// Two concurrent renewal webhooks for the same pair either serialize on the
// row lock or collide on the pair's unique index, in which case the loser
// re-reads under the lock and applies its delta on top.
func (r *mentorshipRepository) UpsertSessions(menteeID, instructorID uint, delta int) (uint, bool, error) {
	var mentorshipID uint
	var reactivated bool

	apply := func(tx *gorm.DB, m *models.Mentorship) error {
		remaining := m.SessionsRemaining + delta
		if remaining < 0 {
			remaining = 0
		}
		reactivated = m.Status == models.MentorshipStatusEnded
		mentorshipID = m.ID
		return tx.Model(&models.Mentorship{}).Where("id = ?", m.ID).Updates(map[string]interface{}{
			"sessions_remaining": remaining,
			"total_sessions":     m.TotalSessions + delta,
			"status":             models.MentorshipStatusActive,
			"ended_at":           nil,
			"end_reason":         "",
		}).Error
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var m models.Mentorship
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("mentee_id = ? AND instructor_id = ?", menteeID, instructorID).
			First(&m).Error
		if err == nil {
			return apply(tx, &m)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		fresh := models.Mentorship{
			MenteeID:          menteeID,
			InstructorID:      instructorID,
			SessionsRemaining: delta,
			TotalSessions:     delta,
			Status:            models.MentorshipStatusActive,
		}
		createErr := tx.Create(&fresh).Error
		if createErr == nil {
			mentorshipID = fresh.ID
			reactivated = false
			return nil
		}
		if !errors.Is(createErr, gorm.ErrDuplicatedKey) && !isDuplicateEntryError(createErr) {
			return createErr
		}

		// Lost the create race; the row now exists, renew it under the lock.
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("mentee_id = ? AND instructor_id = ?", menteeID, instructorID).
			First(&m).Error; err != nil {
			return err
		}
		return apply(tx, &m)
	})
	if err != nil {
		return 0, false, err
	}
	return mentorshipID, reactivated, nil
}

func (r *mentorshipRepository) End(id uint, reason string) error {
	now := time.Now()
	return r.db.Model(&models.Mentorship{}).
		Where("id = ? AND status = ?", id, models.MentorshipStatusActive).
		Updates(map[string]interface{}{
			"status":     models.MentorshipStatusEnded,
			"ended_at":   &now,
			"end_reason": reason,
		}).Error
}
