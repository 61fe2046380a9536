package repository

import (
	"github.com/MentorCircle/mentorcircle/app/models"
	"gorm.io/gorm"
)

type instructorRepository struct {
	db *gorm.DB
}

// NewInstructorRepository creates an instructor repository backed by GORM.
func NewInstructorRepository(db *gorm.DB) InstructorRepository {
	return &instructorRepository{db: db}
}

func (r *instructorRepository) GetByID(id uint) (*models.Instructor, error) {
	var instructor models.Instructor
	if err := r.db.First(&instructor, id).Error; err != nil {
		return nil, err
	}
	return &instructor, nil
}

func (r *instructorRepository) GetByDiscordID(discordID string) (*models.Instructor, error) {
	var instructor models.Instructor
	if err := r.db.Where("discord_id = ?", discordID).First(&instructor).Error; err != nil {
		return nil, err
	}
	return &instructor, nil
}

func (r *instructorRepository) List() ([]models.Instructor, error) {
	var instructors []models.Instructor
	err := r.db.Order("name ASC").Find(&instructors).Error
	return instructors, err
}
