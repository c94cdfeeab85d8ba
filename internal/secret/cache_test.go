// internal/secret/cache_test.go
//
// Cache freshness, partial-failure, invalidation, and stats tests against
// a scripted fake store with an injected clock.

package secret

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeStore answers from a fixed map and counts fetches per key.  Keys in
// down are treated as unreachable; keys absent from values are not found.
type fakeStore struct {
	mu      sync.Mutex
	values  map[string]string
	down    map[string]bool
	fetches map[string]int
}

func newFakeStore(values map[string]string) *fakeStore {
	return &fakeStore{
		values:  values,
		down:    make(map[string]bool),
		fetches: make(map[string]int),
	}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches[key]++
	if f.down[key] {
		return "", fmt.Errorf("get %s: %w", key, ErrStoreUnavailable)
	}
	v, ok := f.values[key]
	if !ok {
		return "", &NotFoundError{Key: key}
	}
	return v, nil
}

func (f *fakeStore) GetBatch(ctx context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	var errs []error
	for _, k := range keys {
		v, err := f.Get(ctx, k)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[k] = v
	}
	return out, errors.Join(errs...)
}

func (f *fakeStore) fetchCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[key]
}

// testCache returns a cache over store whose clock the test controls.
func testCache(store Store, ttl time.Duration) (*Cache, func(time.Duration)) {
	c := NewCache(store, ttl)
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	c.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(d)
	}
	return c, advance
}

func TestGetCachesUntilExpiry(t *testing.T) {
	store := newFakeStore(map[string]string{"API_KEY": "k-1"})
	c, advance := testCache(store, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if v, err := c.Get(ctx, "API_KEY"); err != nil || v != "k-1" {
			t.Fatalf("Get = %q, %v", v, err)
		}
	}
	if n := store.fetchCount("API_KEY"); n != 1 {
		t.Fatalf("fetches before expiry = %d, want 1", n)
	}

	// Just before expiry: still served from cache.
	advance(59 * time.Second)
	if _, err := c.Get(ctx, "API_KEY"); err != nil {
		t.Fatal(err)
	}
	if n := store.fetchCount("API_KEY"); n != 1 {
		t.Fatalf("fetches at 59s = %d, want 1", n)
	}

	// At expiry: exactly one new fetch.
	advance(time.Second)
	if _, err := c.Get(ctx, "API_KEY"); err != nil {
		t.Fatal(err)
	}
	if n := store.fetchCount("API_KEY"); n != 2 {
		t.Fatalf("fetches at expiry = %d, want 2", n)
	}
}

func TestGetNotFoundIsNotCached(t *testing.T) {
	store := newFakeStore(map[string]string{})
	c, _ := testCache(store, time.Minute)

	_, err := c.Get(context.Background(), "MISSING")
	if !IsNotFound(err) {
		t.Fatalf("err = %v, want not-found", err)
	}
	if s := c.Stats(); s.Total != 0 {
		t.Fatalf("stats after not-found = %+v", s)
	}
}

func TestGetManyPartialFailure(t *testing.T) {
	store := newFakeStore(map[string]string{"API_KEY": "k-1", "OPENAI_API_KEY": "sk-1"})
	store.down["OPENAI_API_KEY"] = true
	c, _ := testCache(store, time.Minute)

	got, err := c.GetMany(context.Background(), []string{"API_KEY", "OPENAI_API_KEY"})
	if err == nil {
		t.Fatal("expected a non-nil error for the failed key")
	}
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if got["API_KEY"] != "k-1" {
		t.Fatalf("partial result missing API_KEY: %v", got)
	}
	if _, ok := got["OPENAI_API_KEY"]; ok {
		t.Fatal("failed key must not appear in the result")
	}
}

func TestGetManyServesCachedWithoutRoundTrip(t *testing.T) {
	store := newFakeStore(map[string]string{"A": "1", "B": "2"})
	c, _ := testCache(store, time.Minute)
	ctx := context.Background()

	if _, err := c.Get(ctx, "A"); err != nil {
		t.Fatal(err)
	}
	got, err := c.GetMany(ctx, []string{"A", "B", "B"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got = %v", got)
	}
	if n := store.fetchCount("A"); n != 1 {
		t.Fatalf("A fetched %d times, want 1", n)
	}
	if n := store.fetchCount("B"); n != 1 {
		t.Fatalf("B fetched %d times, want 1 (duplicates collapsed)", n)
	}
}

func TestInvalidateAllThenStats(t *testing.T) {
	store := newFakeStore(map[string]string{"A": "1", "B": "2"})
	c, _ := testCache(store, time.Minute)
	ctx := context.Background()

	if _, err := c.GetMany(ctx, []string{"A", "B"}); err != nil {
		t.Fatal(err)
	}
	if s := c.Stats(); s.Active != 2 {
		t.Fatalf("stats = %+v", s)
	}

	c.Invalidate()
	if s := c.Stats(); s.Total != 0 || s.Active != 0 {
		t.Fatalf("stats after invalidate = %+v", s)
	}
}

func TestInvalidateSingleKey(t *testing.T) {
	store := newFakeStore(map[string]string{"A": "1", "B": "2"})
	c, _ := testCache(store, time.Minute)
	ctx := context.Background()

	if _, err := c.GetMany(ctx, []string{"A", "B"}); err != nil {
		t.Fatal(err)
	}
	c.Invalidate("A")

	if s := c.Stats(); s.Total != 1 {
		t.Fatalf("stats = %+v", s)
	}
	if _, err := c.Get(ctx, "A"); err != nil {
		t.Fatal(err)
	}
	if n := store.fetchCount("A"); n != 2 {
		t.Fatalf("A fetched %d times after invalidation, want 2", n)
	}
}

func TestExpiredEntriesCountedUntilRead(t *testing.T) {
	store := newFakeStore(map[string]string{"A": "1"})
	c, advance := testCache(store, time.Minute)

	if _, err := c.Get(context.Background(), "A"); err != nil {
		t.Fatal(err)
	}
	advance(2 * time.Minute)

	// Lazy eviction: the entry still exists, but is no longer active.
	s := c.Stats()
	if s.Total != 1 || s.Active != 0 || s.Expired != 1 {
		t.Fatalf("stats = %+v", s)
	}
}

// cancelAwareStore fails any fetch whose context is already done, the way
// an HTTP client would.
type cancelAwareStore struct {
	inner *fakeStore
}

func (s *cancelAwareStore) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.inner.Get(ctx, key)
}

func (s *cancelAwareStore) GetBatch(ctx context.Context, keys []string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.inner.GetBatch(ctx, keys)
}

func TestFetchCompletesDespiteCallerCancellation(t *testing.T) {
	store := &cancelAwareStore{inner: newFakeStore(map[string]string{"API_KEY": "k-1"})}
	c, _ := testCache(store, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A caller abandoning the resolve must not abort the fetch: the value
	// still comes back and lands in the cache.
	if v, err := c.Get(ctx, "API_KEY"); err != nil || v != "k-1" {
		t.Fatalf("Get = %q, %v", v, err)
	}
	if s := c.Stats(); s.Active != 1 {
		t.Fatalf("stats = %+v", s)
	}

	got, err := c.GetMany(ctx, []string{"API_KEY"})
	if err != nil || got["API_KEY"] != "k-1" {
		t.Fatalf("GetMany = %v, %v", got, err)
	}
	if n := store.inner.fetchCount("API_KEY"); n != 1 {
		t.Fatalf("fetches = %d, want 1 (second call served from cache)", n)
	}
}

func TestStaleFetchNeverClobbersNewer(t *testing.T) {
	store := newFakeStore(map[string]string{"A": "new"})
	c, advance := testCache(store, time.Minute)

	// A fetch that completed later wins; a replay with an older timestamp
	// must be discarded.
	c.insert("A", "newer", c.now())
	advance(-time.Second)
	c.insert("A", "stale", c.now())

	advance(2 * time.Second)
	if v, ok := c.fresh("A"); !ok || v != "newer" {
		t.Fatalf("fresh = %q, %v", v, ok)
	}
}
