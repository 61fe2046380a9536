// Package discord wraps every outbound call to the Discord REST API behind a
// rate-limit-aware gateway. The client tracks per-endpoint budgets from the
// response headers, delays calls that would be rejected anyway, and backs off
// on 429 up to a fixed retry ceiling.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MentorCircle/mentorcircle/internal/pkg/cache"
	"github.com/MentorCircle/mentorcircle/internal/pkg/env"
)

const defaultAPIBaseURL = "https://discord.com/api/v10"

// maxAttempts bounds the retries per call, 429 waits included.
const maxAttempts = 3

// roleCacheTTL bounds how long resolved role ids are trusted. Cold cache
// costs one extra roles listing.
const roleCacheTTL = 10 * time.Minute

// APIError carries the HTTP status and body of a failed Discord call.
// Callers decide whether the failure is fatal or best-effort.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discord api error: status=%d body=%s", e.Status, e.Body)
}

// Client is the gateway to the Discord REST API.
type Client struct {
	BotToken   string
	GuildID    string
	APIBaseURL string

	HTTPClient *http.Client
	buckets    *bucketMap
}

// NewClientFromEnv builds the gateway from environment configuration.
func NewClientFromEnv() *Client {
	return &Client{
		BotToken:   strings.TrimSpace(env.GetEnv("DISCORD_BOT_TOKEN", "")),
		GuildID:    strings.TrimSpace(env.GetEnv("DISCORD_GUILD_ID", "")),
		APIBaseURL: strings.TrimSpace(env.GetEnv("DISCORD_API_BASE_URL", defaultAPIBaseURL)),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		buckets: newBucketMap(),
	}
}

// do issues one authenticated API call with proactive delay and reactive
// backoff. The response body is returned for 2xx; everything else becomes an
// *APIError after the retry budget is spent.
func (c *Client) do(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	key := bucketKey(method, path)

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		// Proactive wait: issuing a call against an exhausted bucket only
		// burns the retry budget.
		if wait := c.buckets.waitBefore(key); wait > 0 {
			log.Printf("discord: bucket %s exhausted, waiting %s", key, wait.Round(time.Millisecond))
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, err
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.APIBaseURL+path, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bot "+c.BotToken)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return nil, err
		}

		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		c.buckets.updateFromHeaders(key, resp.Header)

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return respBody, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := parseRetryAfter(resp.Header, respBody)
			c.buckets.exhaust(key, retryAfter)
			lastErr = &APIError{Status: resp.StatusCode, Body: string(respBody)}
			log.Printf("discord: 429 on %s (attempt %d/%d), backing off %s", key, attempt, maxAttempts, retryAfter)
			if attempt < maxAttempts {
				if err := sleepCtx(ctx, retryAfter); err != nil {
					return nil, err
				}
			}
			continue
		}

		return nil, &APIError{Status: resp.StatusCode, Body: string(respBody)}
	}
	return nil, lastErr
}

// parseRetryAfter reads the provider's retry delay from the Retry-After
// header, falling back to the JSON body's retry_after field.
func parseRetryAfter(h http.Header, body []byte) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	var parsed struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.RetryAfter > 0 {
		return time.Duration(parsed.RetryAfter * float64(time.Second))
	}
	return time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SweepBuckets drops stale bucket entries; called from the background sweeper.
func (c *Client) SweepBuckets() int {
	return c.buckets.sweep()
}

// User is the subset of a Discord user the service needs.
type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	GlobalName    string `json:"global_name"`
	Discriminator string `json:"discriminator"`
	Email         string `json:"email"`
}

// Role is one guild role.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GuildMember is the subset of a member object the service needs.
type GuildMember struct {
	User  User     `json:"user"`
	Roles []string `json:"roles"`
	Nick  string   `json:"nick"`
}

// GetGuildMember fetches a member of the configured guild.
func (c *Client) GetGuildMember(ctx context.Context, userID string) (*GuildMember, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/guilds/%s/members/%s", c.GuildID, userID), nil)
	if err != nil {
		return nil, err
	}
	var member GuildMember
	if err := json.Unmarshal(body, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

// AddGuildMember joins a user to the guild using their OAuth access token.
// Discord returns 204 when the user is already a member.
func (c *Client) AddGuildMember(ctx context.Context, userID, accessToken string) error {
	_, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/guilds/%s/members/%s", c.GuildID, userID), map[string]string{
		"access_token": accessToken,
	})
	return err
}

// AddMemberRole grants a role to a guild member.
func (c *Client) AddMemberRole(ctx context.Context, userID, roleID string) error {
	_, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/guilds/%s/members/%s/roles/%s", c.GuildID, userID, roleID), nil)
	return err
}

// RemoveMemberRole revokes a role from a guild member.
func (c *Client) RemoveMemberRole(ctx context.Context, userID, roleID string) error {
	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/guilds/%s/members/%s/roles/%s", c.GuildID, userID, roleID), nil)
	return err
}

// ResolveRoleID maps a role name to its id, consulting the Redis role cache
// before listing guild roles.
func (c *Client) ResolveRoleID(ctx context.Context, roleName string) (string, error) {
	cacheKey := "discord:role:" + c.GuildID + ":" + strings.ToLower(roleName)
	if id, err := cache.Get(cacheKey); err == nil && id != "" {
		return id, nil
	}

	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/guilds/%s/roles", c.GuildID), nil)
	if err != nil {
		return "", err
	}
	var roles []Role
	if err := json.Unmarshal(body, &roles); err != nil {
		return "", err
	}
	for _, role := range roles {
		if strings.EqualFold(role.Name, roleName) {
			if err := cache.Set(cacheKey, role.ID, roleCacheTTL); err != nil {
				log.Printf("discord: role cache write failed: %v", err)
			}
			return role.ID, nil
		}
	}
	return "", fmt.Errorf("role %q not found in guild %s", roleName, c.GuildID)
}

// SendDM opens (or reuses) the DM channel with the user and posts a message.
func (c *Client) SendDM(ctx context.Context, userID, content string) error {
	body, err := c.do(ctx, http.MethodPost, "/users/@me/channels", map[string]string{
		"recipient_id": userID,
	})
	if err != nil {
		return err
	}
	var channel struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &channel); err != nil {
		return err
	}
	if channel.ID == "" {
		return fmt.Errorf("discord: DM channel response missing id")
	}

	_, err = c.do(ctx, http.MethodPost, fmt.Sprintf("/channels/%s/messages", channel.ID), map[string]string{
		"content": content,
	})
	return err
}
