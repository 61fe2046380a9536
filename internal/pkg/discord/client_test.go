package discord

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(srv *httptest.Server) *Client {
	return &Client{
		BotToken:   "test-token",
		GuildID:    "guild-1",
		APIBaseURL: srv.URL,
		HTTPClient: srv.Client(),
		buckets:    newBucketMap(),
	}
}

func TestClientDo_SuccessAfter429(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"retry_after":0.01}`))
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := newTestClient(srv)
	body, err := client.do(context.Background(), http.MethodGet, "/guilds/guild-1/roles", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Fatalf("unexpected body %q", body)
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Fatalf("expected 2 requests, got %d", got)
	}
}

func TestClientDo_GivesUpAfterRetryBudget(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"retry_after":0.01}`))
	}))
	defer srv.Close()

	client := newTestClient(srv)
	start := time.Now()
	_, err := client.do(context.Background(), http.MethodGet, "/guilds/guild-1/roles", nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", apiErr.Status)
	}
	if got := atomic.LoadInt32(&hits); got != maxAttempts {
		t.Fatalf("expected exactly %d attempts, got %d", maxAttempts, got)
	}
	// Two backoffs of at least retry_after each sit between the attempts.
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("expected the client to honor retry_after between attempts, finished in %s", elapsed)
	}
}

func TestClientDo_NonRetryableErrorReturnsImmediately(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"Missing Permissions"}`))
	}))
	defer srv.Close()

	client := newTestClient(srv)
	_, err := client.do(context.Background(), http.MethodPut, "/guilds/guild-1/members/1/roles/2", nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", apiErr.Status)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("expected a single attempt for a non-429 failure, got %d", got)
	}
}

func TestClientDo_SendsBotAuthorization(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newTestClient(srv)
	if _, err := client.do(context.Background(), http.MethodGet, "/guilds/guild-1/roles", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if auth != "Bot test-token" {
		t.Fatalf("unexpected Authorization header %q", auth)
	}
}

func TestClientDo_ContextCancelDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"retry_after":30}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := newTestClient(srv)
	_, err := client.do(ctx, http.MethodGet, "/guilds/guild-1/roles", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline error, got %v", err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "2")
	if got := parseRetryAfter(h, nil); got != 2*time.Second {
		t.Fatalf("expected 2s from header, got %s", got)
	}

	if got := parseRetryAfter(http.Header{}, []byte(`{"retry_after":1.5}`)); got != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s from body, got %s", got)
	}

	if got := parseRetryAfter(http.Header{}, []byte(`{}`)); got != time.Second {
		t.Fatalf("expected 1s default, got %s", got)
	}
}

func TestSendDM(t *testing.T) {
	var channelOpened, messagePosted bool
	var content string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/@me/channels":
			channelOpened = true
			w.Write([]byte(`{"id":"chan-9"}`))
		case "/channels/chan-9/messages":
			messagePosted = true
			var payload map[string]string
			json.NewDecoder(r.Body).Decode(&payload)
			content = payload["content"]
			w.Write([]byte(`{}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := newTestClient(srv)
	if err := client.SendDM(context.Background(), "user-1", "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !channelOpened || !messagePosted {
		t.Fatalf("expected DM channel open and message post, got open=%v post=%v", channelOpened, messagePosted)
	}
	if content != "hello" {
		t.Fatalf("unexpected message content %q", content)
	}
}

func TestGetGuildMember(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/guilds/guild-1/members/user-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"user":{"id":"user-1","username":"alice"},"roles":["r1","r2"]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv)
	member, err := client.GetGuildMember(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if member.User.ID != "user-1" || len(member.Roles) != 2 {
		t.Fatalf("unexpected member %+v", member)
	}
}
