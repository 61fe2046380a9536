package controllers

import (
	"errors"
	"log"

	"github.com/MentorCircle/mentorcircle/app/repository"
	"github.com/MentorCircle/mentorcircle/internal/pkg/metrics/counter"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var redirectRepo repository.RedirectRepository

// InitializeRedirectController injects the redirect link repository.
func InitializeRedirectController(repo repository.RedirectRepository) {
	redirectRepo = repo
}

// HandleRedirect resolves a public short code. Click analytics are counted
// fire-and-forget; the redirect never waits on them.
func HandleRedirect(c *fiber.Ctx) error {
	code := c.Params("shortCode")
	if code == "" {
		return c.SendStatus(fiber.StatusNotFound)
	}

	link, err := redirectRepo.GetByShortCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.SendStatus(fiber.StatusNotFound)
		}
		log.Printf("redirect: lookup for %q failed: %v", code, err)
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	if link.Disabled || link.IsExpired() {
		return c.SendStatus(fiber.StatusGone)
	}

	linkID := link.ID
	go func() {
		if err := counter.AddRedirectClick(linkID); err != nil {
			log.Printf("redirect: click count for link %d failed: %v", linkID, err)
		}
	}()

	return c.Redirect(link.TargetURL, fiber.StatusMovedPermanently)
}
