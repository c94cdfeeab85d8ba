// resolver.go
//
// Resolution facade.
//
// Context
// -------
// Resolve orchestrates the full pipeline: classify the deployment
// context, select and run its source loader, validate the raw map, and
// project it into an AppConfig.  Conceptually the call walks
// Idle → Classifying → Loading → Validating → Mapping → Done | Failed;
// each stage is timed, logged, and metered, and a failure short-circuits
// with an error naming the stage.
//
// The facade is the only component that constructs an AppConfig, and the
// only place an inner error is judged fatal or merely recorded.
//
// Notes
// -----
//   - ResolveSync exists for contexts whose loader never touches the
//     network; requesting it where the managed-runtime loader applies is
//     a UsageError, not a silent block.
//   - Cancellation of the caller does not reach an in-flight remote
//     fetch; the fetch completes and lands in the cache regardless.
package confcore

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chatforge/confcore/internal/classify"
	"github.com/chatforge/confcore/internal/envmap"
	"github.com/chatforge/confcore/internal/loader"
	"github.com/chatforge/confcore/internal/metrics"
	"github.com/chatforge/confcore/internal/schema"
	"github.com/chatforge/confcore/internal/secret"
)

// Context identifies the deployment context of a resolution.
type Context = classify.Context

// Stats counts secret-cache entries by current validity.
type Stats = secret.Stats

// Deployment contexts, re-exported for callers of ForceContext.
const (
	ContextBuildTime      = classify.BuildTime
	ContextLocal          = classify.Local
	ContextManagedRuntime = classify.ManagedRuntime
)

// EnvRemoteAuthoritative, when set truthy, makes the remote store
// authoritative without a code change.
const EnvRemoteAuthoritative = "CONFIG_REMOTE_AUTHORITATIVE"

// EnvCacheTTL overrides the secret-cache TTL (Go duration syntax).
const EnvCacheTTL = "CONFIG_CACHE_TTL"

// Options is the explicit, enumerated configuration of a resolution.
type Options struct {
	// ForceContext skips classification and uses the given context.
	ForceContext Context

	// SkipValidation maps the raw values without the facade's schema
	// checks.  The local loader still validates its merged file layers
	// internally; this flag only skips the pipeline's validate stage.
	// Meant for diagnostic tooling only.
	SkipValidation bool

	// Quiet disables the per-stage observability logging.
	Quiet bool

	// RemoteAuthoritative makes any unresolved registry key fatal in the
	// managed runtime.  The CONFIG_REMOTE_AUTHORITATIVE variable is the
	// deployment-side switch for the same policy.
	RemoteAuthoritative bool

	// Dir overrides the local config directory (default ./conf, or
	// CONFIG_DIR).
	Dir string

	// CacheTTL overrides the secret-cache TTL (default five minutes, or
	// CONFIG_CACHE_TTL).
	CacheTTL time.Duration
}

// Resolver owns the resolution pipeline and the secret cache.  Construct
// once at process start and inject it; see singleton.go for the default
// process-wide instance.
type Resolver struct {
	opts   Options
	lookup classify.LookupFunc

	cacheMu sync.Mutex
	store   secret.Store
	cache   *secret.Cache
}

// New returns a Resolver over the real process environment.
func New(opts Options) *Resolver {
	return &Resolver{opts: opts, lookup: os.LookupEnv}
}

// WithLookup replaces the environment probe.  Call before the first
// Resolve; tests use it to run hermetically.
func (r *Resolver) WithLookup(fn classify.LookupFunc) *Resolver {
	r.lookup = fn
	return r
}

// WithStore replaces the remote secret store (default: Vault built from
// the environment on first managed-runtime resolve).
func (r *Resolver) WithStore(s secret.Store) *Resolver {
	r.store = s
	return r
}

//
// Consumer-facing API
//

// Resolve runs the pipeline and returns the application configuration.
func (r *Resolver) Resolve(ctx context.Context) (*AppConfig, error) {
	ann, err := r.ResolveAnnotated(ctx)
	if err != nil {
		return nil, err
	}
	return ann.Config, nil
}

// ResolveAnnotated is Resolve plus per-key provenance and load statistics.
func (r *Resolver) ResolveAnnotated(ctx context.Context) (*Annotated, error) {
	return r.run(ctx, false)
}

// ResolveSync is the synchronous variant for contexts whose loader does no
// network I/O.  Selecting it where the managed-runtime loader applies is a
// *UsageError.
func (r *Resolver) ResolveSync() (*AppConfig, error) {
	ann, err := r.run(context.Background(), true)
	if err != nil {
		return nil, err
	}
	return ann.Config, nil
}

// InvalidateCache removes the named secret-cache entries, or all of them.
// The next resolve refetches.
func (r *Resolver) InvalidateCache(keys ...string) {
	r.cacheMu.Lock()
	c := r.cache
	r.cacheMu.Unlock()
	if c != nil {
		c.Invalidate(keys...)
	}
}

// CacheStats reports secret-cache entry counts by validity.
func (r *Resolver) CacheStats() Stats {
	r.cacheMu.Lock()
	c := r.cache
	r.cacheMu.Unlock()
	if c == nil {
		return Stats{}
	}
	return c.Stats()
}

//
// Pipeline
//

func (r *Resolver) run(ctx context.Context, syncOnly bool) (*Annotated, error) {
	start := time.Now()

	dctx := r.opts.ForceContext
	r.observe("classify", func() error {
		if dctx == "" {
			dctx = classify.Classify(r.lookup)
		}
		return nil
	})

	fail := func(stage string, err error) (*Annotated, error) {
		metrics.ResolutionsTotal.WithLabelValues(string(dctx), "failure").Inc()
		if !r.opts.Quiet {
			zap.S().Errorw("config resolution failed",
				"stage", stage, "context", dctx, "err", err)
		}
		return nil, fmt.Errorf("%s stage: %w", stage, err)
	}

	// Refuse the sync path before any loader (or Vault client) is built;
	// the usage error must win over store-construction failures.
	if syncOnly && dctx == classify.ManagedRuntime {
		return fail("load", usageErrorf(
			"synchronous resolve requested, but the %s context needs network access", dctx))
	}

	ld, err := r.loaderFor(dctx)
	if err != nil {
		return fail("load", err)
	}

	var raw *envmap.Map
	if err := r.observe("load", func() error {
		var lerr error
		raw, lerr = ld.Load(ctx)
		return lerr
	}); err != nil {
		return fail("load", err)
	}

	values := make(map[string]string)
	if err := r.observe("validate", func() error {
		if r.opts.SkipValidation {
			for _, key := range schema.Keys() {
				if v, ok := raw.Get(key); ok {
					values[key] = v
				}
			}
			return nil
		}
		vc, viols := schema.Validate(raw)
		if viols != nil {
			return viols
		}
		values = vc.Values()
		return nil
	}); err != nil {
		return fail("validate", err)
	}

	var cfg *AppConfig
	if err := r.observe("map", func() error {
		var merr error
		cfg, merr = mapConfig(values)
		return merr
	}); err != nil {
		return fail("map", err)
	}

	counts := raw.CountBySource()
	for _, src := range []envmap.Source{
		envmap.SourceEnvironment, envmap.SourceLocalFile,
		envmap.SourceRemoteStore, envmap.SourceFallback,
	} {
		metrics.KeysByProvenance.WithLabelValues(string(src)).Set(float64(counts[src]))
	}
	metrics.ResolutionsTotal.WithLabelValues(string(dctx), "success").Inc()

	dur := time.Since(start)
	if !r.opts.Quiet {
		zap.S().Infow("config resolved",
			"context", dctx,
			"stage_name", cfg.Stage,
			"keys", raw.Len(),
			"by_source", counts,
			"dur", dur,
		)
	}
	return annotate(cfg, dctx, raw, start, dur), nil
}

// observe times one pipeline stage and records it.
func (r *Resolver) observe(stage string, fn func() error) error {
	t0 := time.Now()
	err := fn()
	d := time.Since(t0)
	metrics.StageSeconds.WithLabelValues(stage).Observe(d.Seconds())
	if !r.opts.Quiet {
		zap.S().Debugw("resolve stage", "stage", stage, "dur", d, "ok", err == nil)
	}
	return err
}

// loaderFor selects the source loader for a deployment context.
func (r *Resolver) loaderFor(dctx classify.Context) (loader.Loader, error) {
	switch dctx {
	case classify.BuildTime:
		return loader.NewBuildTime(r.lookup), nil
	case classify.ManagedRuntime:
		cache, err := r.secretCache()
		if err != nil {
			return nil, err
		}
		return loader.NewManaged(r.lookup, cache, r.remotePolicy()), nil
	default:
		return loader.NewLocal(r.opts.Dir, r.lookup), nil
	}
}

// secretCache lazily builds the cache (and, when no store was injected,
// the Vault client) on the first managed-runtime resolve.
func (r *Resolver) secretCache() (*secret.Cache, error) {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	if r.cache != nil {
		return r.cache, nil
	}

	store := r.store
	if store == nil {
		vs, err := secret.NewVaultStore("")
		if err != nil {
			return nil, err
		}
		store = vs
	}
	r.cache = secret.NewCache(store, r.cacheTTL())
	return r.cache, nil
}

func (r *Resolver) cacheTTL() time.Duration {
	if r.opts.CacheTTL > 0 {
		return r.opts.CacheTTL
	}
	if raw, ok := r.lookup(EnvCacheTTL); ok {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			return d
		}
		zap.S().Warnw("invalid cache ttl override, using default", "value", raw)
	}
	return secret.DefaultTTL
}

func (r *Resolver) remotePolicy() loader.RemotePolicy {
	if r.opts.RemoteAuthoritative {
		return loader.RemoteAuthoritative
	}
	if v, ok := r.lookup(EnvRemoteAuthoritative); ok {
		switch v {
		case "", "0", "false":
		default:
			return loader.RemoteAuthoritative
		}
	}
	return loader.RemoteBestEffort
}
