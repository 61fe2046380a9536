package repository

import (
	"sync"

	"gorm.io/gorm"
)

// NewRepositories wires all GORM repository implementations.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Purchase:    NewPurchaseRepository(db),
		Mentee:      NewMenteeRepository(db),
		Instructor:  NewInstructorRepository(db),
		Mentorship:  NewMentorshipRepository(db),
		PendingJoin: NewPendingJoinRepository(db),
		Redirect:    NewRedirectRepository(db),
		Offer:       NewOfferRepository(db),
	}
}

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{db: db}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetPurchaseRepository returns the purchase repository instance
func (f *Factory) GetPurchaseRepository() PurchaseRepository {
	return f.GetRepositories().Purchase
}

// GetMenteeRepository returns the mentee repository instance
func (f *Factory) GetMenteeRepository() MenteeRepository {
	return f.GetRepositories().Mentee
}

// GetInstructorRepository returns the instructor repository instance
func (f *Factory) GetInstructorRepository() InstructorRepository {
	return f.GetRepositories().Instructor
}

// GetMentorshipRepository returns the mentorship repository instance
func (f *Factory) GetMentorshipRepository() MentorshipRepository {
	return f.GetRepositories().Mentorship
}

// GetPendingJoinRepository returns the pending join repository instance
func (f *Factory) GetPendingJoinRepository() PendingJoinRepository {
	return f.GetRepositories().PendingJoin
}

// GetRedirectRepository returns the redirect repository instance
func (f *Factory) GetRedirectRepository() RedirectRepository {
	return f.GetRepositories().Redirect
}

// GetOfferRepository returns the offer repository instance
func (f *Factory) GetOfferRepository() OfferRepository {
	return f.GetRepositories().Offer
}

// Global factory instance
var globalFactory *Factory
var factoryOnce sync.Once

// InitializeFactory initializes the global repository factory
func InitializeFactory(db *gorm.DB) {
	factoryOnce.Do(func() {
		globalFactory = NewFactory(db)
	})
}

// GetGlobalFactory returns the global repository factory instance
func GetGlobalFactory() *Factory {
	if globalFactory == nil {
		panic("Repository factory not initialized. Call InitializeFactory first.")
	}
	return globalFactory
}

// GetGlobalRepositories returns the global repositories instance
func GetGlobalRepositories() *Repositories {
	return GetGlobalFactory().GetRepositories()
}
