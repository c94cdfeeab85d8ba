// internal/loader/local.go
//
// Local-development loader.
//
// Context
// -------
// Builds the raw environment from four layers, lowest to highest:
//
//  1. Process environment values (schema keys only).
//  2. `<dir>/defaults.yaml`       – optional structured defaults.
//  3. `<dir>/.env`                – base dotenv file.
//  4. `<dir>/.env.local`          – developer-only overrides.
//  5. `<dir>/.env.test`           – applied only when APP_ENV=test.
//
// A missing optional file is skipped; a malformed one is fatal.  After
// merging, the map must validate against the schema, so a broken local
// setup fails at startup rather than at first use.
//
// The directory defaults to ./conf and can be overridden with CONFIG_DIR.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"

	"github.com/chatforge/confcore/internal/classify"
	"github.com/chatforge/confcore/internal/envmap"
	"github.com/chatforge/confcore/internal/schema"
)

// DefaultDir is the config directory used when neither the CONFIG_DIR
// variable nor an explicit dir is given.
const DefaultDir = "conf"

// Local loads configuration for local development.
type Local struct {
	dir    string
	lookup classify.LookupFunc
}

// NewLocal returns the local loader.  An empty dir falls back to
// CONFIG_DIR, then DefaultDir; a nil lookup defaults to os.LookupEnv.
func NewLocal(dir string, lookup classify.LookupFunc) *Local {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if dir == "" {
		if d, ok := lookup("CONFIG_DIR"); ok && d != "" {
			dir = d
		} else {
			dir = DefaultDir
		}
	}
	return &Local{dir: dir, lookup: lookup}
}

func (l *Local) Name() string       { return "local" }
func (l *Local) NeedsNetwork() bool { return false }

func (l *Local) Load(_ context.Context) (*envmap.Map, error) {
	m := envmap.FromLookup(l.lookup, schema.Keys())

	if err := l.mergeYAML(m, filepath.Join(l.dir, "defaults.yaml")); err != nil {
		return nil, &SourceLoadError{Loader: l.Name(), Err: err}
	}

	files := []string{".env", ".env.local"}
	if stage, _ := l.lookup("APP_ENV"); stage == "test" {
		files = append(files, ".env.test")
	}
	for _, name := range files {
		if err := l.mergeDotenv(m, filepath.Join(l.dir, name)); err != nil {
			return nil, &SourceLoadError{Loader: l.Name(), Err: err}
		}
	}

	if _, viols := schema.Validate(m); viols != nil {
		return nil, &SourceLoadError{Loader: l.Name(), Err: viols}
	}
	return m, nil
}

// mergeYAML overlays the optional structured defaults file.  YAML keys are
// the lowercased schema key names (server_port, app_env, …).
func (l *Local) mergeYAML(m *envmap.Map, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	for _, key := range schema.Keys() {
		p := strings.ToLower(key)
		if k.Exists(p) {
			m.Set(key, k.String(p), envmap.SourceLocalFile)
		}
	}
	return nil
}

// mergeDotenv overlays one optional key=value file.
func (l *Local) mergeDotenv(m *envmap.Map, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	vals, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	m.SetAll(vals, envmap.SourceLocalFile)
	return nil
}
