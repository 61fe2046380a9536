package models

import "time"

// SyntheticTransactionPrefix marks purchases whose webhook carried no
// transaction id. Such rows cannot participate in deduplication; the marker
// keeps the unique index satisfiable while making the gap visible in data.
const SyntheticTransactionPrefix = "txn:"

// Purchase records one accepted payment webhook. Rows are written once and
// never mutated; the unique transaction id index is the idempotency gate for
// at-least-once webhook delivery.
type Purchase struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Email         string    `gorm:"type:varchar(191);not null;index" json:"email"`
	InstructorID  uint      `gorm:"not null;index" json:"instructor_id"`
	OfferID       int64     `gorm:"not null;index" json:"offer_id"`
	TransactionID string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_purchases_transaction_id" json:"transaction_id"`
	Amount        float64   `gorm:"type:decimal(10,2)" json:"amount"`
	Currency      string    `gorm:"type:varchar(8);not null;default:''" json:"currency"`
	SubjectName   string    `gorm:"type:varchar(191);not null;default:''" json:"subject_name"`
	PurchasedAt   time.Time `gorm:"autoCreateTime" json:"purchased_at"`
}
