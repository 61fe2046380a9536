package repository

import (
	"time"

	"github.com/MentorCircle/mentorcircle/app/models"
	"gorm.io/gorm"
)

type pendingJoinRepository struct {
	db *gorm.DB
}

// NewPendingJoinRepository creates a pending join repository backed by GORM.
func NewPendingJoinRepository(db *gorm.DB) PendingJoinRepository {
	return &pendingJoinRepository{db: db}
}

func (r *pendingJoinRepository) Create(join *models.PendingJoin) error {
	join.Email = normalizeEmail(join.Email)
	return r.db.Create(join).Error
}

func (r *pendingJoinRepository) GetByState(state string) (*models.PendingJoin, error) {
	var join models.PendingJoin
	if err := r.db.Where("oauth_state = ?", state).First(&join).Error; err != nil {
		return nil, err
	}
	return &join, nil
}

func (r *pendingJoinRepository) GetOpenByEmail(email string) (*models.PendingJoin, error) {
	var join models.PendingJoin
	err := r.db.Where("email = ? AND joined_at IS NULL AND oauth_state_expires_at > ?",
		normalizeEmail(email), time.Now()).
		Order("created_at DESC").
		First(&join).Error
	if err != nil {
		return nil, err
	}
	return &join, nil
}

func (r *pendingJoinRepository) MarkJoined(id uint, discordUserID string) error {
	now := time.Now()
	return r.db.Model(&models.PendingJoin{}).Where("id = ?", id).Updates(map[string]interface{}{
		"joined_at":       &now,
		"discord_user_id": discordUserID,
	}).Error
}

// DeleteExpired removes unconsumed handshakes past their TTL.
func (r *pendingJoinRepository) DeleteExpired() (int64, error) {
	tx := r.db.Where("joined_at IS NULL AND oauth_state_expires_at < ?", time.Now()).
		Delete(&models.PendingJoin{})
	return tx.RowsAffected, tx.Error
}
