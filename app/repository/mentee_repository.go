package repository

import (
	"errors"
	"strings"

	"github.com/MentorCircle/mentorcircle/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type menteeRepository struct {
	db *gorm.DB
}

// NewMenteeRepository creates a mentee repository backed by GORM.
func NewMenteeRepository(db *gorm.DB) MenteeRepository {
	return &menteeRepository{db: db}
}

func (r *menteeRepository) Create(mentee *models.Mentee) error {
	mentee.Email = normalizeEmail(mentee.Email)
	return r.db.Create(mentee).Error
}

func (r *menteeRepository) GetByID(id uint) (*models.Mentee, error) {
	var mentee models.Mentee
	if err := r.db.First(&mentee, id).Error; err != nil {
		return nil, err
	}
	return &mentee, nil
}

func (r *menteeRepository) GetByEmail(email string) (*models.Mentee, error) {
	var mentee models.Mentee
	if err := r.db.Where("email = ?", normalizeEmail(email)).First(&mentee).Error; err != nil {
		return nil, err
	}
	return &mentee, nil
}

func (r *menteeRepository) GetByDiscordID(discordID string) (*models.Mentee, error) {
	var mentee models.Mentee
	if err := r.db.Where("discord_id = ?", discordID).First(&mentee).Error; err != nil {
		return nil, err
	}
	return &mentee, nil
}

// GetOrCreateByEmail provisions the mentee row eagerly at purchase time.
// Concurrent first purchases for the same email collide on the unique email
// index; the loser falls back to reading the winner's row.
func (r *menteeRepository) GetOrCreateByEmail(email, name string) (*models.Mentee, error) {
	mentee := models.Mentee{
		Email: normalizeEmail(email),
		Name:  strings.TrimSpace(name),
	}
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoNothing: true,
	}).Create(&mentee)
	if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrDuplicatedKey) && !isDuplicateEntryError(tx.Error) {
		return nil, tx.Error
	}
	return r.GetByEmail(mentee.Email)
}

func (r *menteeRepository) AttachDiscordIdentity(id uint, discordID, name string) error {
	updates := map[string]interface{}{"discord_id": discordID}
	if n := strings.TrimSpace(name); n != "" {
		updates["name"] = n
	}
	return r.db.Model(&models.Mentee{}).Where("id = ?", id).Updates(updates).Error
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
