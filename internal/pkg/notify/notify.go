// Package notify runs every non-critical side effect (DMs, emails, operator
// alerts) as an isolated fire-and-forget task. Individual failures are
// caught and logged; nothing here may propagate an error back onto the
// purchase pipeline's critical path.
package notify

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/MentorCircle/mentorcircle/internal/pkg/discord"
	"github.com/MentorCircle/mentorcircle/internal/pkg/env"
	"github.com/MentorCircle/mentorcircle/internal/pkg/mail"
)

// sendTimeout bounds each background send so a hung provider call cannot
// leak goroutines forever.
const sendTimeout = 30 * time.Second

// Notifier fans out best-effort notifications.
type Notifier struct {
	gateway     *discord.Client
	adminUserID string
	adminEmail  string
}

// NewFromEnv creates a notifier using the shared Discord gateway.
func NewFromEnv(gateway *discord.Client) *Notifier {
	return &Notifier{
		gateway:     gateway,
		adminUserID: strings.TrimSpace(env.GetEnv("DISCORD_ADMIN_USER_ID", "")),
		adminEmail:  strings.TrimSpace(env.GetEnv("ADMIN_ALERT_EMAIL", "")),
	}
}

// Go runs fn on its own goroutine with panic isolation and a bounded
// context. Errors are logged, never returned. Exposed so other packages can
// push best-effort work (role sync, analytics) off the request path.
func (n *Notifier) Go(name string, fn func(ctx context.Context) error) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("notify: %s panicked: %v", name, r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Printf("notify: %s failed: %v", name, err)
		}
	}()
}

// DM sends a direct message to a Discord user, best-effort.
func (n *Notifier) DM(userID, content string) {
	if userID == "" {
		return
	}
	n.Go("dm "+userID, func(ctx context.Context) error {
		return n.gateway.SendDM(ctx, userID, content)
	})
}

// Email sends a plain email, best-effort.
func (n *Notifier) Email(to, subject, body string) {
	if to == "" {
		return
	}
	n.Go("email "+to, func(ctx context.Context) error {
		return mail.SendMail(to, subject, body)
	})
}

// AdminAlert reports an operational condition to the operator channel:
// a DM to the configured admin user, with email fallback.
func (n *Notifier) AdminAlert(message string) {
	log.Printf("alert: %s", message)
	if n.adminUserID != "" {
		n.Go("admin dm", func(ctx context.Context) error {
			return n.gateway.SendDM(ctx, n.adminUserID, message)
		})
	}
	if n.adminEmail != "" {
		n.Go("admin email", func(ctx context.Context) error {
			return mail.SendMail(n.adminEmail, "MentorCircle alert", message)
		})
	}
}
