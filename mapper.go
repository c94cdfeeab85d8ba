// mapper.go
//
// Validated map → AppConfig projection.
//
// The flat, validated key/value map is lowered into a koanf tree and
// unmarshalled through the struct tags on AppConfig.  Sensible defaults
// for the optional observability knobs are applied here, once, so no
// consumer hand-rolls them.
package confcore

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/confmap"
	koanf "github.com/knadh/koanf/v2"

	"github.com/chatforge/confcore/internal/envmap"
)

// optionalDefaults fill optional keys the sources left unset.
var optionalDefaults = map[string]string{
	"log_level":               "info",
	"rate_limit_max_requests": "100",
	"rate_limit_window_ms":    "60000",
	"cors_allowed_origins":    "",
}

// mapConfig projects validated values into the typed aggregate.
func mapConfig(values map[string]string) (*AppConfig, error) {
	flat := make(map[string]any, len(values)+len(optionalDefaults))
	for k, v := range optionalDefaults {
		flat[k] = v
	}
	for k, v := range values {
		flat[strings.ToLower(k)] = v
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(flat, "."), nil); err != nil {
		return nil, fmt.Errorf("load config map: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

//
// Annotated variant
//

// Source identifies where a resolved key's value came from.
type Source = envmap.Source

// Provenance sources, re-exported for readers of Annotated.
const (
	SourceEnvironment = envmap.SourceEnvironment
	SourceLocalFile   = envmap.SourceLocalFile
	SourceRemoteStore = envmap.SourceRemoteStore
	SourceFallback    = envmap.SourceFallback
)

// Annotated carries the mapped config plus per-key provenance and load
// statistics.  Observability only; nothing downstream may branch on it.
type Annotated struct {
	Config     *AppConfig        `json:"config"`
	Context    Context           `json:"context"`
	Provenance map[string]Source `json:"provenance"`
	Counts     map[Source]int    `json:"counts"`
	ResolvedAt time.Time         `json:"resolved_at"`
	Duration   time.Duration     `json:"duration_ns"`
}

// annotate attaches provenance bookkeeping to a mapped config.
func annotate(cfg *AppConfig, dctx Context, raw *envmap.Map, at time.Time, dur time.Duration) *Annotated {
	return &Annotated{
		Config:     cfg,
		Context:    dctx,
		Provenance: raw.Sources(),
		Counts:     raw.CountBySource(),
		ResolvedAt: at,
		Duration:   dur,
	}
}
