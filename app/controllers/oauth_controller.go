package controllers

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/MentorCircle/mentorcircle/internal/pkg/mentorship"
	"github.com/gofiber/fiber/v2"
)

var oauthService *mentorship.Service

// InitializeOAuthController injects the pipeline service.
func InitializeOAuthController(svc *mentorship.Service) {
	oauthService = svc
}

// HandleOAuthCallback completes identity linking. The state must match an
// unexpired PendingJoin; the code is exchanged for a token, the Discord id
// is attached to the mentee and the platform role granted.
func HandleOAuthCallback(c *fiber.Ctx) error {
	if oauthErr := strings.TrimSpace(c.Query("error")); oauthErr != "" {
		msg := c.Query("error_description", oauthErr)
		return c.Status(fiber.StatusBadRequest).SendString("Discord authorization failed: " + msg)
	}

	state := strings.TrimSpace(c.Query("state"))
	code := strings.TrimSpace(c.Query("code"))
	if state == "" || code == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Missing code or state.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	result, err := oauthService.CompleteJoin(ctx, state, code)
	if err != nil {
		switch {
		case errors.Is(err, mentorship.ErrInvalidJoinState):
			return c.Status(fiber.StatusBadRequest).SendString("This link is not valid. Please use the invitation from your purchase email.")
		case errors.Is(err, mentorship.ErrJoinExpired):
			return c.Status(fiber.StatusGone).SendString("This invitation has expired. Contact support to receive a new one.")
		default:
			log.Printf("oauth: identity linking failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).SendString("Something went wrong linking your account. Please try again.")
		}
	}

	if result.AlreadyLinked {
		return c.SendString("Your Discord account was already linked. You're all set!")
	}
	return c.SendString("Your Discord account is linked and your mentorship role is on its way. Welcome aboard!")
}
