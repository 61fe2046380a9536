package counter

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/MentorCircle/mentorcircle/app/models"
)

// fakeClickStore backs the flusher with an in-memory hash map.
type fakeClickStore struct {
	hashes     map[string]map[string]string
	hgetallErr error
	delCalls   []string
}

func newFakeClickStore() *fakeClickStore {
	return &fakeClickStore{hashes: map[string]map[string]string{}}
}

func (f *fakeClickStore) Do(ctx context.Context, args ...interface{}) *redis.Cmd {
	src, dst := args[1].(string), args[2].(string)
	h, ok := f.hashes[src]
	if !ok {
		return redis.NewCmdResult(nil, errors.New("ERR no such key"))
	}
	f.hashes[dst] = h
	delete(f.hashes, src)
	return redis.NewCmdResult("OK", nil)
}

func (f *fakeClickStore) HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd {
	if f.hgetallErr != nil {
		return redis.NewMapStringStringResult(nil, f.hgetallErr)
	}
	return redis.NewMapStringStringResult(f.hashes[key], nil)
}

func (f *fakeClickStore) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		f.delCalls = append(f.delCalls, k)
		if _, ok := f.hashes[k]; ok {
			delete(f.hashes, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

type recordingRedirectRepo struct {
	clicks map[uint]int64
}

func (r *recordingRedirectRepo) Create(link *models.RedirectLink) error { return nil }
func (r *recordingRedirectRepo) GetByShortCode(code string) (*models.RedirectLink, error) {
	return nil, errors.New("not found")
}
func (r *recordingRedirectRepo) AddClicks(id uint, n int64) error {
	if r.clicks == nil {
		r.clicks = map[uint]int64{}
	}
	r.clicks[id] += n
	return nil
}

func TestFlushClicks_AppliesPendingBatch(t *testing.T) {
	store := newFakeClickStore()
	store.hashes[redirectClicksKey] = map[string]string{"1": "5", "2": "3", "bogus": "1", "3": "nan"}
	repo := &recordingRedirectRepo{}

	if err := flushClicks(context.Background(), store, repo); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.clicks[1] != 5 || repo.clicks[2] != 3 {
		t.Fatalf("unexpected applied deltas %+v", repo.clicks)
	}
	if len(repo.clicks) != 2 {
		t.Fatalf("expected unparseable fields to be skipped, got %+v", repo.clicks)
	}
	if _, ok := store.hashes[redirectClicksDrainKey]; ok {
		t.Fatal("drain key should be deleted after a successful flush")
	}
	if _, ok := store.hashes[redirectClicksKey]; ok {
		t.Fatal("pending key should be renamed away")
	}
}

func TestFlushClicks_KeepsBatchOnReadError(t *testing.T) {
	store := newFakeClickStore()
	store.hashes[redirectClicksKey] = map[string]string{"1": "5"}
	store.hgetallErr = errors.New("connection reset")
	repo := &recordingRedirectRepo{}

	if err := flushClicks(context.Background(), store, repo); err == nil {
		t.Fatal("expected the read error to surface")
	}
	if len(repo.clicks) != 0 {
		t.Fatalf("no deltas should apply on a read error, got %+v", repo.clicks)
	}
	if len(store.delCalls) != 0 {
		t.Fatalf("batch must not be deleted on a read error, got deletes %v", store.delCalls)
	}
	if _, ok := store.hashes[redirectClicksKey]; !ok {
		t.Fatal("pending batch should survive the failed flush")
	}
}

func TestFlushClicks_RetriesLeftoverDrainBatch(t *testing.T) {
	store := newFakeClickStore()
	store.hashes[redirectClicksDrainKey] = map[string]string{"7": "2"}
	repo := &recordingRedirectRepo{}

	if err := flushClicks(context.Background(), store, repo); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.clicks[7] != 2 {
		t.Fatalf("leftover batch should be applied, got %+v", repo.clicks)
	}
	if _, ok := store.hashes[redirectClicksDrainKey]; ok {
		t.Fatal("leftover drain key should be deleted after apply")
	}
}

func TestFlushClicks_NothingPending(t *testing.T) {
	store := newFakeClickStore()
	repo := &recordingRedirectRepo{}

	if err := flushClicks(context.Background(), store, repo); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.clicks) != 0 || len(store.delCalls) != 0 {
		t.Fatalf("nothing should happen with no pending clicks, got %+v %v", repo.clicks, store.delCalls)
	}
}
