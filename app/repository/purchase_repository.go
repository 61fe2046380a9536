package repository

import (
	"errors"
	"strings"

	"github.com/MentorCircle/mentorcircle/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type purchaseRepository struct {
	db *gorm.DB
}

// NewPurchaseRepository creates a purchase repository backed by GORM.
func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

// ClaimByTransaction inserts first and lets the unique index decide. There is
// deliberately no check-then-insert: concurrent deliveries of the same
// transaction id race on the index, and exactly one insert wins.
func (r *purchaseRepository) ClaimByTransaction(purchase *models.Purchase) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "transaction_id"}},
		DoNothing: true,
	}).Create(purchase)
	if tx.Error != nil {
		// Some MySQL setups surface the conflict instead of swallowing it;
		// a duplicate-key error is still the "already processed" signal.
		if errors.Is(tx.Error, gorm.ErrDuplicatedKey) || isDuplicateEntryError(tx.Error) {
			return false, nil
		}
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *purchaseRepository) GetByTransactionID(transactionID string) (*models.Purchase, error) {
	var purchase models.Purchase
	if err := r.db.Where("transaction_id = ?", transactionID).First(&purchase).Error; err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *purchaseRepository) ListByEmail(email string, offset, limit int) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := r.db.Where("email = ?", email).
		Order("purchased_at DESC").
		Offset(offset).Limit(limit).
		Find(&purchases).Error
	return purchases, err
}

func (r *purchaseRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Purchase{}).Count(&count).Error
	return count, err
}

func isDuplicateEntryError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate entry") || strings.Contains(msg, "unique constraint")
}
