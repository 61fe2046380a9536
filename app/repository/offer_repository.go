package repository

import (
	"github.com/MentorCircle/mentorcircle/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type offerRepository struct {
	db *gorm.DB
}

// NewOfferRepository creates an offer mapping repository backed by GORM.
func NewOfferRepository(db *gorm.DB) OfferRepository {
	return &offerRepository{db: db}
}

func (r *offerRepository) GetActiveByOfferID(offerID int64) (*models.OfferMapping, error) {
	var mapping models.OfferMapping
	err := r.db.Where("offer_id = ? AND active = ?", offerID, true).First(&mapping).Error
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

func (r *offerRepository) Upsert(mapping *models.OfferMapping) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "offer_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"instructor_id",
			"sessions_per_purchase",
			"active",
			"updated_at",
		}),
	}).Create(mapping).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("offer_id = ?", mapping.OfferID).First(mapping).Error
}
