package middleware

import (
	"math"
	"strconv"
	"time"

	"github.com/MentorCircle/mentorcircle/internal/pkg/ratelimit"
	"github.com/gofiber/fiber/v2"
)

// RateLimitByIP protects an endpoint class with the shared distributed
// limiter, keyed by client IP. This budget is independent of the Discord
// gateway's own provider budget.
func RateLimitByIP(limiter *ratelimit.Limiter, tokenType string, maxRequests int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res := limiter.Check(c.IP(), tokenType, maxRequests, window)
		if res.Allowed {
			return c.Next()
		}

		retryAfter := int(math.Ceil(res.RetryAfter.Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Set("Retry-After", strconv.Itoa(retryAfter))
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":       "rate_limited",
			"retry_after": retryAfter,
		})
	}
}
