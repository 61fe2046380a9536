package repository

import (
	"github.com/MentorCircle/mentorcircle/app/models"
	"github.com/MentorCircle/mentorcircle/internal/pkg/shortener"
	"gorm.io/gorm"
)

// shortCodeLength is the length of generated public short codes.
const shortCodeLength = 8

type redirectRepository struct {
	db *gorm.DB
}

// NewRedirectRepository creates a redirect link repository backed by GORM.
func NewRedirectRepository(db *gorm.DB) RedirectRepository {
	return &redirectRepository{db: db}
}

// Create stores the link, minting a random short code when none is given.
func (r *redirectRepository) Create(link *models.RedirectLink) error {
	if link.ShortCode == "" {
		code, err := shortener.GenerateSecureSlug(shortCodeLength)
		if err != nil {
			return err
		}
		link.ShortCode = code
	}
	return r.db.Create(link).Error
}

func (r *redirectRepository) GetByShortCode(code string) (*models.RedirectLink, error) {
	var link models.RedirectLink
	if err := r.db.Where("short_code = ?", code).First(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

// AddClicks applies a batched click delta from the analytics counter flush.
func (r *redirectRepository) AddClicks(id uint, n int64) error {
	return r.db.Model(&models.RedirectLink{}).
		Where("id = ?", id).
		Update("click_count", gorm.Expr("click_count + ?", n)).Error
}
