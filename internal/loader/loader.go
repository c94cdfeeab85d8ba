// internal/loader/loader.go
//
// Source loader contract and the sensitive-key registry.
//
// Context
// -------
// One loader exists per deployment context.  Each produces a raw
// envmap.Map with per-key provenance; the facade picks the loader from
// the classified context, validates the result, and maps it.  Historical
// implementations accreted several overlapping config-loading paths; the
// Loader interface is the single contract they collapsed into.
package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/chatforge/confcore/internal/envmap"
)

// Loader produces the raw configuration environment for one deployment
// context.
type Loader interface {
	// Name identifies the loader in logs and errors.
	Name() string

	// NeedsNetwork reports whether Load may perform remote I/O.  The
	// synchronous resolve path never selects such a loader; it refuses
	// the deployment context before construction.
	NeedsNetwork() bool

	// Load builds the raw environment.  Fatal problems (malformed file,
	// authoritative store outage, contradictory explicit value) return a
	// *SourceLoadError.
	Load(ctx context.Context) (*envmap.Map, error)
}

//
// Errors
//

// SourceLoadError reports a fatal loading failure.  Keys, when set, names
// the configuration keys that could not be resolved.
type SourceLoadError struct {
	Loader string
	Keys   []string
	Err    error
}

func (e *SourceLoadError) Error() string {
	if len(e.Keys) > 0 {
		return fmt.Sprintf("%s loader: unresolved keys [%s]: %v",
			e.Loader, strings.Join(e.Keys, ", "), e.Err)
	}
	return fmt.Sprintf("%s loader: %v", e.Loader, e.Err)
}

func (e *SourceLoadError) Unwrap() error { return e.Err }

//
// Remote policy
//

// RemotePolicy decides whether the managed-runtime loader treats the
// remote store as authoritative.  Best-effort degrades to fallbacks and
// process values with a logged warning; authoritative turns any
// unresolved registry key into a fatal error.
type RemotePolicy int

const (
	RemoteBestEffort RemotePolicy = iota
	RemoteAuthoritative
)

func (p RemotePolicy) String() string {
	if p == RemoteAuthoritative {
		return "authoritative"
	}
	return "best-effort"
}

//
// Sensitive-key registry
//

// SecretKey pairs a remote-store key with its optional static fallback.
type SecretKey struct {
	Key         string
	Fallback    string // used only when HasFallback
	HasFallback bool
}

// Registry lists the keys the managed-runtime loader resolves through the
// secret cache.  Fallbacks are deliberately non-production values; a key
// without one simply stays absent when the store cannot supply it.
func Registry() []SecretKey {
	return []SecretKey{
		{Key: "API_KEY"},
		{Key: "OPENAI_API_KEY", Fallback: "sk-local-dev-fallback-openai", HasFallback: true},
		{Key: "RELATIONAL_DATABASE_URL"},
		{Key: "REDIS_URL", Fallback: "redis://localhost:6379", HasFallback: true},
		{Key: "COOKIE_ENCRYPTION_KEY"},
	}
}
