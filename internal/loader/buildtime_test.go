// internal/loader/buildtime_test.go

package loader

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/chatforge/confcore/internal/envmap"
	"github.com/chatforge/confcore/internal/schema"
)

func lookupFor(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) { v, ok := env[k]; return v, ok }
}

func TestBuildTimeEmptyEnvironment(t *testing.T) {
	l := NewBuildTime(lookupFor(nil))
	m, err := l.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if port, _ := m.Get("SERVER_PORT"); port != "3040" {
		t.Fatalf("SERVER_PORT = %q", port)
	}
	if stage, _ := m.Get("APP_ENV"); stage != "development" {
		t.Fatalf("APP_ENV = %q", stage)
	}

	// Every other required field holds a placeholder with the fixed
	// prefix, and the whole map validates without real secrets.
	for _, f := range schema.Fields() {
		if !f.Required || f.Key == "SERVER_PORT" || f.Key == "APP_ENV" {
			continue
		}
		v, ok := m.Get(f.Key)
		if !ok {
			t.Fatalf("%s missing", f.Key)
		}
		if !strings.HasPrefix(v, schema.PlaceholderPrefix) {
			t.Fatalf("%s = %q, want placeholder", f.Key, v)
		}
		if src, _ := m.Provenance(f.Key); src != envmap.SourceFallback {
			t.Fatalf("%s provenance = %q", f.Key, src)
		}
	}
	if _, viols := schema.Validate(m); viols != nil {
		t.Fatalf("build-time map failed validation: %v", viols)
	}
}

func TestBuildTimeExplicitValuesWin(t *testing.T) {
	l := NewBuildTime(lookupFor(map[string]string{
		"SERVER_PORT": "8080",
		"APP_ENV":     "staging",
	}))
	m, err := l.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if port, _ := m.Get("SERVER_PORT"); port != "8080" {
		t.Fatalf("SERVER_PORT = %q", port)
	}
	if src, _ := m.Provenance("SERVER_PORT"); src != envmap.SourceEnvironment {
		t.Fatalf("provenance = %q", src)
	}
}

func TestBuildTimeRejectsContradictoryPort(t *testing.T) {
	l := NewBuildTime(lookupFor(map[string]string{"SERVER_PORT": "70000"}))
	_, err := l.Load(context.Background())

	var sle *SourceLoadError
	if !errors.As(err, &sle) {
		t.Fatalf("err = %v, want *SourceLoadError", err)
	}
	if len(sle.Keys) != 1 || sle.Keys[0] != "SERVER_PORT" {
		t.Fatalf("keys = %v", sle.Keys)
	}
}
