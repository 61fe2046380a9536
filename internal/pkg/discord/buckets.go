package discord

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// bucketState tracks the provider-reported budget for one endpoint bucket.
type bucketState struct {
	Remaining int
	Limit     int
	ResetAt   time.Time
}

// bucketMap is the in-process cache of per-endpoint budgets. It is advisory
// and safe to lose on restart; the reactive 429 path still protects the hard
// budget.
type bucketMap struct {
	mu      sync.Mutex
	buckets map[string]bucketState
}

func newBucketMap() *bucketMap {
	return &bucketMap{buckets: make(map[string]bucketState)}
}

// bucketKey generalizes a path into its rate-limit bucket by replacing
// numeric segments (snowflakes) with a placeholder, so /guilds/123/members/456
// and /guilds/123/members/789 share one bucket.
func bucketKey(method, path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if _, err := strconv.ParseUint(seg, 10, 64); err == nil {
			// Keep the first id after guilds/channels; Discord scopes major
			// buckets by that id, minor ids collapse.
			if i >= 2 {
				segments[i] = ":id"
			}
		}
	}
	return method + " /" + strings.Join(segments, "/")
}

// waitBefore returns how long a call on the bucket should be delayed before
// being issued, zero when the budget still has room.
func (b *bucketMap) waitBefore(key string) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.buckets[key]
	if !ok {
		return 0
	}
	if state.Remaining > 0 {
		return 0
	}
	wait := time.Until(state.ResetAt)
	if wait <= 0 {
		delete(b.buckets, key)
		return 0
	}
	// Small buffer so we never land exactly on the reset edge.
	return wait + 250*time.Millisecond
}

// updateFromHeaders records the budget Discord reported for the bucket.
func (b *bucketMap) updateFromHeaders(key string, h http.Header) {
	remaining, err := strconv.Atoi(h.Get("X-RateLimit-Remaining"))
	if err != nil {
		return
	}
	limit, _ := strconv.Atoi(h.Get("X-RateLimit-Limit"))

	resetAt := time.Now()
	if after, err := strconv.ParseFloat(h.Get("X-RateLimit-Reset-After"), 64); err == nil {
		resetAt = resetAt.Add(time.Duration(after * float64(time.Second)))
	} else if reset, err := strconv.ParseFloat(h.Get("X-RateLimit-Reset"), 64); err == nil {
		resetAt = time.Unix(0, int64(reset*float64(time.Second)))
	}

	b.mu.Lock()
	b.buckets[key] = bucketState{Remaining: remaining, Limit: limit, ResetAt: resetAt}
	b.mu.Unlock()
}

// exhaust marks the bucket empty until retryAfter has elapsed (429 path).
func (b *bucketMap) exhaust(key string, retryAfter time.Duration) {
	b.mu.Lock()
	b.buckets[key] = bucketState{Remaining: 0, ResetAt: time.Now().Add(retryAfter)}
	b.mu.Unlock()
}

// sweep drops buckets whose reset time has long passed to bound memory.
func (b *bucketMap) sweep() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	cutoff := time.Now().Add(-time.Minute)
	for key, state := range b.buckets {
		if state.ResetAt.Before(cutoff) {
			delete(b.buckets, key)
			removed++
		}
	}
	return removed
}
