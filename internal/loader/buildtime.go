// internal/loader/buildtime.go
//
// Build-time loader.
//
// Build tooling (doc generation, asset bundling, CI smoke steps) needs a
// configuration that validates, but must never touch the network or read
// developer-local files.  Only the fields the tooling actually consumes
// take real values; every other required field receives a recognizably
// fake placeholder so schema validation still passes without secrets.
package loader

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/chatforge/confcore/internal/classify"
	"github.com/chatforge/confcore/internal/envmap"
	"github.com/chatforge/confcore/internal/schema"
)

const (
	defaultPort  = "3040"
	defaultStage = "development"
)

// BuildTime loads placeholder configuration for one-shot build tooling.
type BuildTime struct {
	lookup classify.LookupFunc
}

// NewBuildTime returns the build-time loader.  A nil lookup defaults to
// os.LookupEnv.
func NewBuildTime(lookup classify.LookupFunc) *BuildTime {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &BuildTime{lookup: lookup}
}

func (l *BuildTime) Name() string       { return "build-time" }
func (l *BuildTime) NeedsNetwork() bool { return false }

// Load populates SERVER_PORT and APP_ENV from the process (with static
// defaults), then fills every remaining required field with a placeholder.
// The only failure mode is an explicit, self-contradictory value.
func (l *BuildTime) Load(_ context.Context) (*envmap.Map, error) {
	m := envmap.New()

	port, explicit := l.lookup("SERVER_PORT")
	if !explicit || port == "" {
		port = defaultPort
		m.Set("SERVER_PORT", port, envmap.SourceFallback)
	} else {
		n, err := strconv.Atoi(port)
		if err != nil || n < 1 || n > 65535 {
			return nil, &SourceLoadError{
				Loader: l.Name(),
				Keys:   []string{"SERVER_PORT"},
				Err:    fmt.Errorf("explicit SERVER_PORT %q is not a valid port", port),
			}
		}
		m.Set("SERVER_PORT", port, envmap.SourceEnvironment)
	}

	if stage, ok := l.lookup("APP_ENV"); ok && stage != "" {
		m.Set("APP_ENV", stage, envmap.SourceEnvironment)
	} else {
		m.Set("APP_ENV", defaultStage, envmap.SourceFallback)
	}

	for _, f := range schema.Fields() {
		if !f.Required {
			continue
		}
		if _, ok := m.Get(f.Key); ok {
			continue
		}
		m.Set(f.Key, f.Placeholder(), envmap.SourceFallback)
	}
	return m, nil
}
