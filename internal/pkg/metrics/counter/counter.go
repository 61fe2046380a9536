// Package counter buffers redirect click analytics in Redis and flushes
// them to MySQL in batches, so the public redirect path never writes to the
// database synchronously.
package counter

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MentorCircle/mentorcircle/app/repository"
	"github.com/MentorCircle/mentorcircle/internal/pkg/cache"
)

const redirectClicksKey = "redirect:counters:clicks"

// redirectClicksDrainKey holds the batch currently being flushed. A batch
// left behind by a failed flush stays under this key and is retried on the
// next run.
const redirectClicksDrainKey = redirectClicksKey + ":draining"

// clickStore is the subset of redis commands the flusher needs.
type clickStore interface {
	Do(ctx context.Context, args ...interface{}) *redis.Cmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// AddRedirectClick increments the pending click counter for a link in Redis.
func AddRedirectClick(linkID uint) error {
	ctx := context.Background()
	field := strconv.FormatUint(uint64(linkID), 10)
	return cache.GetClient().HIncrBy(ctx, redirectClicksKey, field, 1).Err()
}

// FlushClicks drains the pending click hash atomically and applies the
// batched deltas to redirect_links. RENAME to the drain key keeps in-flight
// increments from being lost during the drain.
func FlushClicks(redirects repository.RedirectRepository) error {
	return flushClicks(context.Background(), cache.GetClient(), redirects)
}

func flushClicks(ctx context.Context, rdb clickStore, redirects repository.RedirectRepository) error {
	// Finish a batch a previous run renamed but failed to apply.
	if err := drainClicks(ctx, rdb, redirects); err != nil {
		return err
	}

	if err := rdb.Do(ctx, "RENAME", redirectClicksKey, redirectClicksDrainKey).Err(); err != nil {
		// Nothing to flush when the key does not exist.
		if strings.Contains(strings.ToLower(err.Error()), "no such key") || err.Error() == "redis: nil" {
			return nil
		}
		return err
	}
	return drainClicks(ctx, rdb, redirects)
}

// drainClicks applies the deltas under the drain key. The key is deleted
// only after the batch has been read and applied, so a transient error
// leaves it in place for the next flush.
func drainClicks(ctx context.Context, rdb clickStore, redirects repository.RedirectRepository) error {
	data, err := rdb.HGetAll(ctx, redirectClicksDrainKey).Result()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	for field, raw := range data {
		linkID, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			continue
		}
		delta, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || delta == 0 {
			continue
		}
		if err := redirects.AddClicks(uint(linkID), delta); err != nil {
			log.Printf("counter: click flush for link %d failed: %v", linkID, err)
		}
	}
	return rdb.Del(ctx, redirectClicksDrainKey).Err()
}

// StartFlusher flushes clicks on a fixed interval until stop is closed.
func StartFlusher(redirects repository.RedirectRepository, interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := FlushClicks(redirects); err != nil {
					log.Printf("counter: click flush failed: %v", err)
				}
			case <-stop:
				return
			}
		}
	}()
}
