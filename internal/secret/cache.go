// internal/secret/cache.go
//
// TTL cache in front of the remote secret store.
//
// Context
// -------
// Remote lookups are slow and metered, so values are held for a fixed TTL
// (five minutes unless overridden at construction).  Expired entries are
// treated as absent on read and refetched lazily; there is no background
// sweeper.  An entry is only ever replaced by a strictly newer fetch, so
// a slow, stale fetch can never clobber a fresher value.
//
// Concurrency
// -----------
// No lock is held across a store round-trip.  Two concurrent Get calls on
// the same expired key may both fetch; both converge on the same value or
// the same error, so the duplicate round-trip is an accepted inefficiency,
// not a correctness bug.
package secret

import (
	"context"
	"sync"
	"time"

	"github.com/chatforge/confcore/internal/metrics"
)

// DefaultTTL is the freshness window applied when NewCache is given a
// non-positive ttl.
const DefaultTTL = 5 * time.Minute

type entry struct {
	val       string
	fetchedAt time.Time
	expiresAt time.Time
}

// Stats counts cache entries by current validity.
type Stats struct {
	Total   int `json:"total"`
	Active  int `json:"active"`
	Expired int `json:"expired"`
}

// Cache is safe for concurrent use.  Construct with NewCache.
type Cache struct {
	store Store
	ttl   time.Duration
	now   func() time.Time

	mu      sync.RWMutex
	entries map[string]entry
}

// NewCache wraps store with a TTL cache.  The ttl is fixed for the life of
// the cache.
func NewCache(store Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		store:   store,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

// Get returns the cached value while fresh, otherwise fetches from the
// store and caches the result.
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	if val, ok := c.fresh(key); ok {
		metrics.CacheHitsTotal.Inc()
		return val, nil
	}
	metrics.CacheMissesTotal.Inc()

	// An in-flight fetch always runs to completion and lands in the
	// cache, even when the caller abandons the resolve; deadlines belong
	// to the store's own client, not the caller.
	val, err := c.store.Get(context.WithoutCancel(ctx), key)
	if err != nil {
		metrics.RemoteFetchErrorsTotal.Inc()
		return "", err
	}
	c.insert(key, val, c.now())
	return val, nil
}

// GetMany serves fresh keys locally and batches one store fetch for the
// rest.  A partial remote failure returns the subset that resolved plus a
// non-nil error describing the failures; failed keys are never silently
// dropped.
func (c *Cache) GetMany(ctx context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	var missing []string
	seen := make(map[string]bool, len(keys))

	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		if val, ok := c.fresh(k); ok {
			metrics.CacheHitsTotal.Inc()
			out[k] = val
			continue
		}
		metrics.CacheMissesTotal.Inc()
		missing = append(missing, k)
	}

	if len(missing) == 0 {
		return out, nil
	}

	// Detached for the same reason as Get: the batch completes and is
	// cached regardless of caller cancellation.
	fetched, err := c.store.GetBatch(context.WithoutCancel(ctx), missing)
	if err != nil {
		metrics.RemoteFetchErrorsTotal.Inc()
	}
	at := c.now()
	for k, val := range fetched {
		c.insert(k, val, at)
		out[k] = val
	}
	return out, err
}

// Invalidate removes the named entries, or every entry when called with
// no arguments.
func (c *Cache) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(keys) == 0 {
		c.entries = make(map[string]entry)
	} else {
		for _, k := range keys {
			delete(c.entries, k)
		}
	}
	metrics.CacheEntries.Set(float64(len(c.entries)))
}

// Stats reports entry counts by current validity.  Expired entries linger
// until read or invalidated (lazy eviction), so Total may exceed Active.
func (c *Cache) Stats() Stats {
	now := c.now()
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{Total: len(c.entries)}
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			s.Active++
		} else {
			s.Expired++
		}
	}
	return s
}

// fresh returns the value when a live entry exists.
func (c *Cache) fresh(key string) (string, bool) {
	now := c.now()
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.entries[key]; ok && now.Before(e.expiresAt) {
		return e.val, true
	}
	return "", false
}

// insert stores a fetched value unless a strictly newer fetch already
// landed.
func (c *Cache) insert(key, val string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.entries[key]; ok && !at.After(prev.fetchedAt) {
		return
	}
	c.entries[key] = entry{val: val, fetchedAt: at, expiresAt: at.Add(c.ttl)}
	metrics.CacheEntries.Set(float64(len(c.entries)))
}
