// internal/loader/managed.go
//
// Managed-runtime loader.
//
// Context
// -------
// In the managed runtime the process starts from its environment values,
// then resolves the sensitive-key registry through the secret cache.
// Each key falls through independently: cache hit → remote fetch →
// static fallback → whatever the process environment already holds.
//
// Failure policy is explicit, not inferred from call order: best-effort
// logs each degradation and succeeds; authoritative makes any key the
// remote store could not supply a fatal error naming the keys.
//
// A static fallback never overrides a real process value; it only fills
// keys that are absent everywhere else.
package loader

import (
	"context"
	"os"
	"slices"

	"go.uber.org/zap"

	"github.com/chatforge/confcore/internal/classify"
	"github.com/chatforge/confcore/internal/envmap"
	"github.com/chatforge/confcore/internal/schema"
	"github.com/chatforge/confcore/internal/secret"
)

// Managed resolves configuration in the managed runtime.
type Managed struct {
	lookup   classify.LookupFunc
	cache    *secret.Cache
	registry []SecretKey
	policy   RemotePolicy
}

// NewManaged returns the managed-runtime loader over the given cache.
func NewManaged(lookup classify.LookupFunc, cache *secret.Cache, policy RemotePolicy) *Managed {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &Managed{
		lookup:   lookup,
		cache:    cache,
		registry: Registry(),
		policy:   policy,
	}
}

func (l *Managed) Name() string       { return "managed-runtime" }
func (l *Managed) NeedsNetwork() bool { return true }

func (l *Managed) Load(ctx context.Context) (*envmap.Map, error) {
	m := envmap.FromLookup(l.lookup, schema.Keys())

	keys := make([]string, len(l.registry))
	for i, sk := range l.registry {
		keys[i] = sk.Key
	}

	fetched, fetchErr := l.cache.GetMany(ctx, keys)

	var unresolved []string
	for _, sk := range l.registry {
		if val, ok := fetched[sk.Key]; ok {
			m.Set(sk.Key, val, envmap.SourceRemoteStore)
			continue
		}
		unresolved = append(unresolved, sk.Key)
	}

	if len(unresolved) > 0 && l.policy == RemoteAuthoritative {
		return nil, &SourceLoadError{Loader: l.Name(), Keys: unresolved, Err: fetchErr}
	}

	for _, sk := range l.registry {
		if !slices.Contains(unresolved, sk.Key) {
			continue
		}
		if _, ok := m.Get(sk.Key); ok {
			zap.S().Warnw("remote fetch failed, keeping process value",
				"key", sk.Key, "loader", l.Name())
			continue
		}
		if sk.HasFallback {
			zap.S().Warnw("remote fetch failed, using static fallback",
				"key", sk.Key, "loader", l.Name())
			m.Set(sk.Key, sk.Fallback, envmap.SourceFallback)
			continue
		}
		zap.S().Warnw("remote fetch failed, key absent",
			"key", sk.Key, "loader", l.Name())
	}

	if fetchErr != nil {
		zap.S().Warnw("remote store degraded",
			"loader", l.Name(), "policy", l.policy.String(),
			"unresolved", len(unresolved), "err", fetchErr)
	}
	return m, nil
}
