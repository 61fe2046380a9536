package repository

import (
	"github.com/MentorCircle/mentorcircle/app/models"
)

// PurchaseRepository defines the interface for purchase persistence and the
// webhook idempotency claim.
type PurchaseRepository interface {
	// ClaimByTransaction inserts the purchase row, using the unique index on
	// transaction_id as the claim. Returns claimed=false when an identical
	// transaction id was already recorded.
	ClaimByTransaction(purchase *models.Purchase) (claimed bool, err error)
	GetByTransactionID(transactionID string) (*models.Purchase, error)
	ListByEmail(email string, offset, limit int) ([]models.Purchase, error)
	Count() (int64, error)
}

// MenteeRepository defines the interface for mentee-related database operations.
type MenteeRepository interface {
	Create(mentee *models.Mentee) error
	GetByID(id uint) (*models.Mentee, error)
	GetByEmail(email string) (*models.Mentee, error)
	GetByDiscordID(discordID string) (*models.Mentee, error)
	GetOrCreateByEmail(email, name string) (*models.Mentee, error)
	AttachDiscordIdentity(id uint, discordID, name string) error
}

// InstructorRepository defines the interface for instructor reference data.
type InstructorRepository interface {
	GetByID(id uint) (*models.Instructor, error)
	GetByDiscordID(discordID string) (*models.Instructor, error)
	List() ([]models.Instructor, error)
}

// MentorshipRepository defines the interface for the session ledger. The
// Increment/Upsert operations are the only writers of sessions_remaining and
// must stay atomic at the storage layer.
type MentorshipRepository interface {
	GetByID(id uint) (*models.Mentorship, error)
	GetByPair(menteeID, instructorID uint) (*models.Mentorship, error)
	ListByMentee(menteeID uint) ([]models.Mentorship, error)
	ListActiveByMentee(menteeID uint) ([]models.Mentorship, error)
	// IncrementSessions adds delta (may be negative) to sessions_remaining,
	// clamped at 0, under a row lock. Fails if the mentorship does not exist.
	IncrementSessions(id uint, delta int) (newRemaining int, err error)
	// UpsertSessions creates the pair's mentorship with delta sessions, or
	// adds delta to remaining and total counters and forces status back to
	// active. reactivated reports an ended->active transition.
	UpsertSessions(menteeID, instructorID uint, delta int) (mentorshipID uint, reactivated bool, err error)
	// End transitions the mentorship to ended with a reason. Ending an
	// already-ended mentorship is a no-op.
	End(id uint, reason string) error
}

// PendingJoinRepository defines the interface for identity-linking handshakes.
type PendingJoinRepository interface {
	Create(join *models.PendingJoin) error
	GetByState(state string) (*models.PendingJoin, error)
	GetOpenByEmail(email string) (*models.PendingJoin, error)
	MarkJoined(id uint, discordUserID string) error
	DeleteExpired() (int64, error)
}

// RedirectRepository defines the interface for public short links.
type RedirectRepository interface {
	Create(link *models.RedirectLink) error
	GetByShortCode(code string) (*models.RedirectLink, error)
	AddClicks(id uint, n int64) error
}

// OfferRepository defines the interface for offer-to-instructor mappings.
type OfferRepository interface {
	GetActiveByOfferID(offerID int64) (*models.OfferMapping, error)
	Upsert(mapping *models.OfferMapping) error
}

// Repositories bundles every repository behind one handle.
type Repositories struct {
	Purchase    PurchaseRepository
	Mentee      MenteeRepository
	Instructor  InstructorRepository
	Mentorship  MentorshipRepository
	PendingJoin PendingJoinRepository
	Redirect    RedirectRepository
	Offer       OfferRepository
}
