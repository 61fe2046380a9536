// Package ratelimit implements a fixed-window rate limiter whose counters
// live in the database, so every service instance draws from the same
// budget. Storage errors fail open: an outage in the limiter must not block
// legitimate traffic.
package ratelimit

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/MentorCircle/mentorcircle/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Result reports one limiter decision.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter checks and increments shared fixed-window counters.
type Limiter struct {
	db *gorm.DB
}

// New creates a limiter over the shared rate-limit token table.
func New(db *gorm.DB) *Limiter {
	return &Limiter{db: db}
}

// Check consumes one request from the (key, type) window. The read, the
// window-reset decision and the increment happen under the row lock, so
// concurrent instances cannot both consume the last slot.
func (l *Limiter) Check(tokenKey, tokenType string, maxRequests int, window time.Duration) Result {
	res, err := l.check(tokenKey, tokenType, maxRequests, window)
	if err != nil {
		log.Printf("ratelimit: store error for %s/%s, failing open: %v", tokenType, tokenKey, err)
		return Result{Allowed: true, Remaining: maxRequests}
	}
	return res
}

func (l *Limiter) check(tokenKey, tokenType string, maxRequests int, window time.Duration) (Result, error) {
	var out Result
	err := l.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		var token models.RateLimitToken
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("token_key = ? AND token_type = ?", tokenKey, tokenType).
			First(&token).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			token = models.RateLimitToken{
				TokenKey:  tokenKey,
				TokenType: tokenType,
				Count:     1,
				ResetAt:   now.Add(window),
			}
			createErr := tx.Create(&token).Error
			if createErr == nil {
				out = Result{Allowed: true, Remaining: maxRequests - 1}
				return nil
			}
			if !errors.Is(createErr, gorm.ErrDuplicatedKey) && !isDuplicateEntry(createErr) {
				return createErr
			}
			// Lost the create race; fall through to the locked read.
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("token_key = ? AND token_type = ?", tokenKey, tokenType).
				First(&token).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		if now.After(token.ResetAt) {
			// Window expired, start a fresh one.
			if err := tx.Model(&models.RateLimitToken{}).Where("id = ?", token.ID).
				Updates(map[string]interface{}{"count": 1, "reset_at": now.Add(window)}).Error; err != nil {
				return err
			}
			out = Result{Allowed: true, Remaining: maxRequests - 1}
			return nil
		}

		if token.Count < maxRequests {
			if err := tx.Model(&models.RateLimitToken{}).Where("id = ?", token.ID).
				Update("count", gorm.Expr("count + 1")).Error; err != nil {
				return err
			}
			out = Result{Allowed: true, Remaining: maxRequests - token.Count - 1}
			return nil
		}

		retryAfter := token.ResetAt.Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		out = Result{Allowed: false, Remaining: 0, RetryAfter: retryAfter}
		return nil
	})
	return out, err
}

// Sweep deletes counters whose window has passed. Returns rows removed.
func (l *Limiter) Sweep() (int64, error) {
	tx := l.db.Where("reset_at < ?", time.Now()).Delete(&models.RateLimitToken{})
	return tx.RowsAffected, tx.Error
}

// StartSweeper runs Sweep on a fixed interval until stop is closed.
func (l *Limiter) StartSweeper(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := l.Sweep(); err != nil {
					log.Printf("ratelimit: sweep failed: %v", err)
				} else if n > 0 {
					log.Printf("ratelimit: swept %d expired counters", n)
				}
			case <-stop:
				return
			}
		}
	}()
}

func isDuplicateEntry(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate entry") || strings.Contains(msg, "unique constraint")
}
