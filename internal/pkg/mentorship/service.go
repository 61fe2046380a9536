// Package mentorship drives the purchase-to-entitlement pipeline: webhook
// classification, the idempotency claim, the session ledger, role lifecycle
// and the notifications hanging off each transition.
package mentorship

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/MentorCircle/mentorcircle/app/models"
	"github.com/MentorCircle/mentorcircle/app/repository"
	"github.com/MentorCircle/mentorcircle/internal/pkg/commerce"
	"github.com/MentorCircle/mentorcircle/internal/pkg/discord"
	"github.com/MentorCircle/mentorcircle/internal/pkg/env"
	"github.com/MentorCircle/mentorcircle/internal/pkg/notify"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service orchestrates ledger, role lifecycle and notifications.
type Service struct {
	repos     *repository.Repositories
	gateway   *discord.Client
	oauth     *discord.OAuthClient
	lifecycle *RoleLifecycle
	notifier  *notify.Notifier

	defaultSessions int
}

// NewService wires the pipeline from injected collaborators.
func NewService(repos *repository.Repositories, gateway *discord.Client, oauth *discord.OAuthClient, notifier *notify.Notifier) *Service {
	defaultSessions, err := strconv.Atoi(env.GetEnv("DEFAULT_SESSIONS_PER_PURCHASE", "4"))
	if err != nil || defaultSessions <= 0 {
		defaultSessions = 4
	}
	roleName := env.GetEnv("DISCORD_MENTEE_ROLE_NAME", "Mentee")

	return &Service{
		repos:           repos,
		gateway:         gateway,
		oauth:           oauth,
		lifecycle:       NewRoleLifecycle(gateway, roleName),
		notifier:        notifier,
		defaultSessions: defaultSessions,
	}
}

// PurchaseOutcome reports what one accepted purchase webhook did.
type PurchaseOutcome struct {
	Duplicate       bool
	NewSubject      bool
	MentorshipID    uint
	SessionsGranted int
}

// ProcessPurchase runs one payment event through the pipeline. Everything
// after the ledger mutation is best-effort: once the entitlement is
// recorded, the webhook succeeds no matter what Discord or SMTP do.
func (s *Service) ProcessPurchase(ctx context.Context, event *commerce.PurchaseEvent) (*PurchaseOutcome, error) {
	mapping, err := s.repos.Offer.GetActiveByOfferID(event.OfferID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.notifier.AdminAlert(fmt.Sprintf("purchase webhook for unmapped offer %d (email %s)", event.OfferID, event.Email))
			return nil, ErrOfferNotMapped
		}
		return nil, err
	}

	sessions := mapping.SessionsPerPurchase
	if sessions <= 0 {
		sessions = s.defaultSessions
	}

	transactionID := strings.TrimSpace(event.TransactionID)
	if transactionID == "" {
		// No transaction id means no dedup is possible; every such delivery
		// is treated as new. Known gap, the source system's delivery
		// guarantees are unclear here.
		transactionID = models.SyntheticTransactionPrefix + uuid.NewString()
		log.Printf("webhook: purchase for %s has no transaction id, dedup disabled for this delivery", event.Email)
	}

	claimed, err := s.repos.Purchase.ClaimByTransaction(&models.Purchase{
		Email:         event.Email,
		InstructorID:  mapping.InstructorID,
		OfferID:       event.OfferID,
		TransactionID: transactionID,
		Amount:        event.Amount,
		Currency:      event.Currency,
		SubjectName:   event.SubjectName,
	})
	if err != nil {
		// Fail open: missing a legitimate purchase is worse than the rare
		// duplicate re-apply a storage hiccup can let through.
		log.Printf("webhook: idempotency claim errored, proceeding anyway: %v", err)
		claimed = true
	}
	if !claimed {
		log.Printf("webhook: duplicate delivery for transaction %s", transactionID)
		return &PurchaseOutcome{Duplicate: true}, nil
	}

	mentee, err := s.repos.Mentee.GetOrCreateByEmail(event.Email, event.SubjectName)
	if err != nil {
		return nil, fmt.Errorf("mentee provisioning failed: %w", err)
	}

	mentorshipID, reactivated, err := s.repos.Mentorship.UpsertSessions(mentee.ID, mapping.InstructorID, sessions)
	if err != nil {
		return nil, fmt.Errorf("session ledger update failed: %w", err)
	}

	outcome := &PurchaseOutcome{
		MentorshipID:    mentorshipID,
		SessionsGranted: sessions,
		NewSubject:      !mentee.IsLinked(),
	}

	if mentee.IsLinked() {
		s.afterReturningPurchase(mentee, sessions, reactivated)
	} else {
		s.afterNewSubjectPurchase(mentee, mapping, event)
	}
	return outcome, nil
}

// afterReturningPurchase handles the side effects for a subject whose Discord
// identity is already linked: role sync plus a thank-you DM, both off the
// request path.
func (s *Service) afterReturningPurchase(mentee *models.Mentee, sessions int, reactivated bool) {
	discordID := mentee.DiscordID
	s.notifier.Go("role sync "+discordID, func(ctx context.Context) error {
		if err := s.lifecycle.Grant(ctx, discordID); err != nil {
			s.notifier.AdminAlert(fmt.Sprintf("role grant failed for mentee %d (%s): %v", mentee.ID, discordID, err))
			return err
		}
		return nil
	})
	if reactivated {
		s.notifier.DM(discordID, fmt.Sprintf("Welcome back! Your mentorship is active again with %d new sessions.", sessions))
	} else {
		s.notifier.DM(discordID, fmt.Sprintf("Thanks for your purchase! %d sessions were added to your balance.", sessions))
	}
}

// afterNewSubjectPurchase queues the identity-linking handshake and sends the
// invitation. The ledger rows already exist; linking only attaches the
// identity later.
func (s *Service) afterNewSubjectPurchase(mentee *models.Mentee, mapping *models.OfferMapping, event *commerce.PurchaseEvent) {
	join, err := s.repos.PendingJoin.GetOpenByEmail(mentee.Email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("webhook: pending join lookup failed for %s: %v", mentee.Email, err)
			return
		}
		join = &models.PendingJoin{
			Email:               mentee.Email,
			InstructorID:        mapping.InstructorID,
			OfferID:             mapping.OfferID,
			OAuthState:          uuid.NewString(),
			OAuthStateExpiresAt: nowPlusJoinTTL(),
		}
		if err := s.repos.PendingJoin.Create(join); err != nil {
			log.Printf("webhook: pending join create failed for %s: %v", mentee.Email, err)
			s.notifier.AdminAlert(fmt.Sprintf("could not queue identity linking for %s: %v", mentee.Email, err))
			return
		}
	}

	inviteURL, err := s.oauth.AuthorizeURLWithState(join.OAuthState)
	if err != nil {
		s.notifier.AdminAlert(fmt.Sprintf("identity-linking link could not be built for %s: %v", mentee.Email, err))
		return
	}

	s.notifier.Email(mentee.Email, "Your mentorship is ready",
		fmt.Sprintf("Thanks for your purchase! Connect your Discord account to get started:<br><a href=%q>%s</a><br>The link is valid for 48 hours.", inviteURL, inviteURL))
	s.notifier.AdminAlert(fmt.Sprintf("new mentee %s purchased offer %d, invitation sent", mentee.Email, event.OfferID))
}

// ProcessCancellation ends the subject's mentorships and drives the role
// removal. Returns how many mentorships were ended.
func (s *Service) ProcessCancellation(ctx context.Context, event *commerce.CancellationEvent) (int, error) {
	mentee, err := s.repos.Mentee.GetByEmail(event.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrMenteeNotFound
		}
		return 0, err
	}

	reason := normalizeEndReason(event.Reason)

	var targets []models.Mentorship
	if event.OfferID > 0 {
		if mapping, err := s.repos.Offer.GetActiveByOfferID(event.OfferID); err == nil {
			if m, err := s.repos.Mentorship.GetByPair(mentee.ID, mapping.InstructorID); err == nil && m.IsActive() {
				targets = []models.Mentorship{*m}
			}
		}
	}
	if targets == nil {
		targets, err = s.repos.Mentorship.ListActiveByMentee(mentee.ID)
		if err != nil {
			return 0, err
		}
	}

	ended := 0
	for i := range targets {
		if err := s.repos.Mentorship.End(targets[i].ID, reason); err != nil {
			log.Printf("cancellation: ending mentorship %d failed: %v", targets[i].ID, err)
			continue
		}
		ended++
	}
	if ended == 0 {
		return 0, nil
	}

	remaining, err := s.repos.Mentorship.ListActiveByMentee(mentee.ID)
	if err != nil {
		log.Printf("cancellation: active mentorship recount failed for mentee %d: %v", mentee.ID, err)
	}

	// Only pull the role once every mentorship is gone; a mentee with a
	// second active instructor keeps access.
	if len(remaining) == 0 && mentee.IsLinked() {
		discordID := mentee.DiscordID
		s.notifier.Go("role revoke "+discordID, func(ctx context.Context) error {
			if err := s.lifecycle.Revoke(ctx, discordID); err != nil {
				s.notifier.AdminAlert(fmt.Sprintf("role revoke failed for mentee %d (%s): %v", mentee.ID, discordID, err))
				return err
			}
			return nil
		})
		s.notifier.DM(discordID, "Your mentorship has ended. Thanks for being part of the community - you're welcome back any time.")
	}
	s.notifier.AdminAlert(fmt.Sprintf("mentorship ended for %s (%d mentorship(s), reason %s)", mentee.Email, ended, reason))
	return ended, nil
}

// JoinResult reports the outcome of an identity-linking callback.
type JoinResult struct {
	MenteeID      uint
	DiscordUserID string
	AlreadyLinked bool
}

// CompleteJoin finishes the identity-linking handshake: validates the
// single-use state, exchanges the code, attaches the Discord identity to the
// eagerly-provisioned mentee, joins the guild and grants the role.
func (s *Service) CompleteJoin(ctx context.Context, state, code string) (*JoinResult, error) {
	join, err := s.repos.PendingJoin.GetByState(state)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidJoinState
		}
		return nil, err
	}
	if join.IsConsumed() {
		// Replayed callback; the identity is already attached.
		return &JoinResult{DiscordUserID: join.DiscordUserID, AlreadyLinked: true}, nil
	}
	if join.IsExpired() {
		return nil, ErrJoinExpired
	}

	token, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}
	user, err := s.oauth.GetCurrentUser(ctx, token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("identity fetch failed: %w", err)
	}

	// The mentorship/mentee rows were provisioned at purchase time; a
	// PendingJoin never implies they are missing.
	mentee, err := s.repos.Mentee.GetByEmail(join.Email)
	if err != nil {
		return nil, fmt.Errorf("mentee lookup failed: %w", err)
	}

	displayName := user.GlobalName
	if displayName == "" {
		displayName = user.Username
	}
	if err := s.repos.Mentee.AttachDiscordIdentity(mentee.ID, user.ID, displayName); err != nil {
		return nil, fmt.Errorf("identity attach failed: %w", err)
	}
	if err := s.repos.PendingJoin.MarkJoined(join.ID, user.ID); err != nil {
		log.Printf("oauth: marking join %d consumed failed: %v", join.ID, err)
	}

	// Guild join and role grant are role-sync side effects: alert on
	// failure, the link itself stays established.
	if err := s.gateway.AddGuildMember(ctx, user.ID, token.AccessToken); err != nil {
		log.Printf("oauth: guild join for %s failed: %v", user.ID, err)
	}
	if err := s.lifecycle.Grant(ctx, user.ID); err != nil {
		s.notifier.AdminAlert(fmt.Sprintf("role grant after linking failed for %s: %v", user.ID, err))
	}

	s.notifier.DM(user.ID, "Welcome to MentorCircle! Your sessions are ready - your instructor will reach out shortly.")
	if instructor, err := s.repos.Instructor.GetByID(join.InstructorID); err == nil {
		s.notifier.DM(instructor.DiscordID, fmt.Sprintf("%s (%s) just linked their account and is ready for sessions.", displayName, join.Email))
	}

	return &JoinResult{MenteeID: mentee.ID, DiscordUserID: user.ID}, nil
}

func nowPlusJoinTTL() time.Time {
	return time.Now().Add(models.PendingJoinTTL)
}

func normalizeEndReason(reason string) string {
	switch strings.ToLower(strings.TrimSpace(reason)) {
	case "refund", "refunded", "chargeback":
		return models.EndReasonRefund
	case "expired", "subscription_expired":
		return models.EndReasonExpired
	case "manual":
		return models.EndReasonManual
	default:
		return models.EndReasonCancellation
	}
}
