package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMenteeIsLinked(t *testing.T) {
	assert.False(t, (&Mentee{}).IsLinked())
	assert.True(t, (&Mentee{DiscordID: "discord-1"}).IsLinked())
}

func TestMentorshipIsActive(t *testing.T) {
	assert.True(t, (&Mentorship{Status: MentorshipStatusActive}).IsActive())
	assert.False(t, (&Mentorship{Status: MentorshipStatusEnded}).IsActive())
	assert.False(t, (&Mentorship{}).IsActive())
}

func TestPendingJoinIsExpired(t *testing.T) {
	assert.False(t, (&PendingJoin{OAuthStateExpiresAt: time.Now().Add(time.Hour)}).IsExpired())
	assert.True(t, (&PendingJoin{OAuthStateExpiresAt: time.Now().Add(-time.Minute)}).IsExpired())
}

func TestPendingJoinIsConsumed(t *testing.T) {
	now := time.Now()
	assert.False(t, (&PendingJoin{}).IsConsumed())
	assert.True(t, (&PendingJoin{JoinedAt: &now}).IsConsumed())
}

func TestRedirectLinkIsExpired(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	assert.False(t, (&RedirectLink{}).IsExpired(), "a link without an expiry never expires")
	assert.False(t, (&RedirectLink{ExpiresAt: &future}).IsExpired())
	assert.True(t, (&RedirectLink{ExpiresAt: &past}).IsExpired())
}
