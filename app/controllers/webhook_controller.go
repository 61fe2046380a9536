package controllers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/MentorCircle/mentorcircle/internal/pkg/commerce"
	"github.com/MentorCircle/mentorcircle/internal/pkg/env"
	"github.com/MentorCircle/mentorcircle/internal/pkg/mentorship"
	"github.com/gofiber/fiber/v2"
)

var webhookService *mentorship.Service

// InitializeWebhookController injects the pipeline service.
func InitializeWebhookController(svc *mentorship.Service) {
	webhookService = svc
	if env.GetEnv("COMMERCE_WEBHOOK_SECRET", "") == "" {
		log.Printf("webhook: COMMERCE_WEBHOOK_SECRET is not set, inbound webhooks are accepted without signature verification")
	}
}

// HandleCommerceWebhook accepts a purchase event from the commerce platform.
// Replays of the same transaction id answer success with a duplicate marker
// instead of re-applying effects.
func HandleCommerceWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.Body()...)
	provider := c.Params("provider")

	signature := firstHeaderValue(c, "X-Webhook-Signature", "X-Signature")
	secret := env.GetEnv("COMMERCE_WEBHOOK_SECRET", "")
	if secret != "" && !commerce.VerifyWebhookSignature(rawBody, signature, secret) {
		log.Printf("webhook: invalid signature from provider %s", provider)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	event, err := commerce.ParsePurchaseEvent(rawBody)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": err.Error()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	outcome, err := webhookService.ProcessPurchase(ctx, event)
	if err != nil {
		if errors.Is(err, mentorship.ErrOfferNotMapped) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "offer not mapped"})
		}
		log.Printf("webhook: purchase processing failed for provider %s: %v", provider, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "processing failed"})
	}

	if outcome.Duplicate {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "already processed", "duplicate": true})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":          true,
		"message":          "purchase recorded",
		"mentorship_id":    outcome.MentorshipID,
		"sessions_granted": outcome.SessionsGranted,
		"new_subject":      outcome.NewSubject,
	})
}

// HandleCommerceCancellation accepts a subscription-ended signal and drives
// the active -> ended transition.
func HandleCommerceCancellation(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.Body()...)
	provider := c.Params("provider")

	signature := firstHeaderValue(c, "X-Webhook-Signature", "X-Signature")
	secret := env.GetEnv("COMMERCE_WEBHOOK_SECRET", "")
	if secret != "" && !commerce.VerifyWebhookSignature(rawBody, signature, secret) {
		log.Printf("webhook: invalid cancellation signature from provider %s", provider)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	event, err := commerce.ParseCancellationEvent(rawBody)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": err.Error()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	ended, err := webhookService.ProcessCancellation(ctx, event)
	if err != nil {
		if errors.Is(err, mentorship.ErrMenteeNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "unknown mentee"})
		}
		log.Printf("webhook: cancellation processing failed for provider %s: %v", provider, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "processing failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "ended": ended})
}
