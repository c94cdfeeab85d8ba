// singleton.go
//
// Process-wide default resolver.
//
// Resolution normally happens once per process, at cold start, and the
// result is read for the rest of the process's life.  The default
// instance lives in atomic pointers for lock-free reads; Reset rebuilds
// everything, which is the test hook equivalent to re-running the
// constructor.  Re-resolution happens only through an explicit Load or
// cache invalidation, never automatically.
package confcore

import (
	"context"
	"sync/atomic"
)

var (
	defaultResolver atomic.Pointer[Resolver]
	current         atomic.Pointer[Annotated]
)

// Load resolves with the given options and installs the result as the
// process-wide configuration.  A failure here during process start should
// be treated as fatal by the caller; a later re-Load failure leaves the
// previous configuration in place and is simply returned.
func Load(ctx context.Context, opts Options) (*AppConfig, error) {
	r := New(opts)
	ann, err := r.ResolveAnnotated(ctx)
	if err != nil {
		return nil, err
	}
	defaultResolver.Store(r)
	current.Store(ann)
	return ann.Config, nil
}

// Get returns the last loaded configuration, or nil before the first
// successful Load.
func Get() *AppConfig {
	if ann := current.Load(); ann != nil {
		return ann.Config
	}
	return nil
}

// Annotations returns the last load's provenance bookkeeping, or nil.
func Annotations() *Annotated { return current.Load() }

// InvalidateCache clears entries from the default resolver's secret
// cache.  No-op before the first Load.
func InvalidateCache(keys ...string) {
	if r := defaultResolver.Load(); r != nil {
		r.InvalidateCache(keys...)
	}
}

// CacheStats reports the default resolver's secret-cache stats.
func CacheStats() Stats {
	if r := defaultResolver.Load(); r != nil {
		return r.CacheStats()
	}
	return Stats{}
}

// Reset drops the default resolver and configuration.  Tests call it to
// start from a clean process state.
func Reset() {
	defaultResolver.Store(nil)
	current.Store(nil)
}
