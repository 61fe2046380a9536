package mentorship

import (
	"context"
	"fmt"
	"log"

	"github.com/MentorCircle/mentorcircle/internal/pkg/discord"
)

// RoleLifecycle keeps the platform role in step with mentorship status.
// The ledger is the source of truth; role sync is eventually consistent and
// every divergence is alerted, never silently dropped.
type RoleLifecycle struct {
	gateway  *discord.Client
	roleName string
}

// NewRoleLifecycle creates the controller for the configured mentee role.
func NewRoleLifecycle(gateway *discord.Client, roleName string) *RoleLifecycle {
	return &RoleLifecycle{gateway: gateway, roleName: roleName}
}

// Grant assigns the mentee role. Returns the error for callers that alert on
// divergence; callers on the webhook path must not fail the request on it.
func (r *RoleLifecycle) Grant(ctx context.Context, discordUserID string) error {
	if discordUserID == "" {
		return fmt.Errorf("role grant: no discord id on file")
	}
	roleID, err := r.gateway.ResolveRoleID(ctx, r.roleName)
	if err != nil {
		return fmt.Errorf("role grant: %w", err)
	}
	if err := r.gateway.AddMemberRole(ctx, discordUserID, roleID); err != nil {
		return fmt.Errorf("role grant: %w", err)
	}
	log.Printf("roles: granted %q to %s", r.roleName, discordUserID)
	return nil
}

// Revoke removes the mentee role after access ends.
func (r *RoleLifecycle) Revoke(ctx context.Context, discordUserID string) error {
	if discordUserID == "" {
		return fmt.Errorf("role revoke: no discord id on file")
	}
	roleID, err := r.gateway.ResolveRoleID(ctx, r.roleName)
	if err != nil {
		return fmt.Errorf("role revoke: %w", err)
	}
	if err := r.gateway.RemoveMemberRole(ctx, discordUserID, roleID); err != nil {
		return fmt.Errorf("role revoke: %w", err)
	}
	log.Printf("roles: revoked %q from %s", r.roleName, discordUserID)
	return nil
}
