package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MentorCircle/mentorcircle/internal/pkg/env"
)

const (
	defaultAuthorizeURL = "https://discord.com/oauth2/authorize"
	defaultTokenURL     = "https://discord.com/api/oauth2/token"
)

// OAuthClient performs the identity-linking code exchange. It is separate
// from the bot Client because the token endpoint uses app credentials, not
// the bot token, and is not subject to the bot's bucket budget.
type OAuthClient struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	AuthorizeURL string
	TokenURL     string
	APIBaseURL   string

	HTTPClient *http.Client
}

// TokenResponse is Discord's OAuth token grant payload.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}

// NewOAuthClientFromEnv builds the OAuth client from environment configuration.
func NewOAuthClientFromEnv() *OAuthClient {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	redirectURI := strings.TrimSpace(env.GetEnv("DISCORD_REDIRECT_URI", ""))
	if redirectURI == "" && base != "" {
		redirectURI = base + "/oauth/callback"
	}

	return &OAuthClient{
		ClientID:     strings.TrimSpace(env.GetEnv("DISCORD_CLIENT_ID", "")),
		ClientSecret: strings.TrimSpace(env.GetEnv("DISCORD_CLIENT_SECRET", "")),
		RedirectURI:  redirectURI,
		AuthorizeURL: strings.TrimSpace(env.GetEnv("DISCORD_AUTHORIZE_URL", defaultAuthorizeURL)),
		TokenURL:     strings.TrimSpace(env.GetEnv("DISCORD_TOKEN_URL", defaultTokenURL)),
		APIBaseURL:   strings.TrimSpace(env.GetEnv("DISCORD_API_BASE_URL", defaultAPIBaseURL)),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// AuthorizeURLWithState builds the invitation link a new mentee follows to
// link their Discord identity.
func (c *OAuthClient) AuthorizeURLWithState(state string) (string, error) {
	if strings.TrimSpace(c.ClientID) == "" {
		return "", errors.New("DISCORD_CLIENT_ID is not configured")
	}
	if strings.TrimSpace(c.RedirectURI) == "" {
		return "", errors.New("DISCORD_REDIRECT_URI is not configured")
	}
	u, err := url.Parse(c.AuthorizeURL)
	if err != nil {
		return "", fmt.Errorf("invalid DISCORD_AUTHORIZE_URL: %w", err)
	}
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", c.ClientID)
	q.Set("redirect_uri", c.RedirectURI)
	q.Set("scope", "identify guilds.join")
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ExchangeCode swaps an authorization code for an access token.
func (c *OAuthClient) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	if strings.TrimSpace(c.ClientID) == "" || strings.TrimSpace(c.ClientSecret) == "" {
		return nil, errors.New("DISCORD_CLIENT_ID/DISCORD_CLIENT_SECRET are not configured")
	}
	if strings.TrimSpace(code) == "" {
		return nil, errors.New("oauth code is required")
	}

	form := url.Values{}
	form.Set("code", strings.TrimSpace(code))
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)
	form.Set("redirect_uri", c.RedirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	var out TokenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		return nil, errors.New("discord token exchange returned empty access_token")
	}
	return &out, nil
}

// GetCurrentUser fetches the user the access token belongs to.
func (c *OAuthClient) GetCurrentUser(ctx context.Context, accessToken string) (*User, error) {
	token := strings.TrimSpace(accessToken)
	if token == "" {
		return nil, errors.New("access token is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.APIBaseURL, "/")+"/users/@me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, err
	}
	if strings.TrimSpace(user.ID) == "" {
		return nil, errors.New("discord user response missing id")
	}
	return &user, nil
}
