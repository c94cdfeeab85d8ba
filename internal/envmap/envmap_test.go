// internal/envmap/envmap_test.go
//
// Unit-tests for the ordered provenance map.
//
// Run: go test ./internal/envmap -v

package envmap

import (
	"reflect"
	"testing"
)

func TestLastWriteWins(t *testing.T) {
	m := New()
	m.Set("SERVER_PORT", "3040", SourceEnvironment)
	m.Set("API_KEY", "from-env", SourceEnvironment)
	m.Set("SERVER_PORT", "4000", SourceLocalFile)

	if got, _ := m.Get("SERVER_PORT"); got != "4000" {
		t.Fatalf("SERVER_PORT = %q, want 4000", got)
	}
	if src, _ := m.Provenance("SERVER_PORT"); src != SourceLocalFile {
		t.Fatalf("provenance = %q, want %q", src, SourceLocalFile)
	}
	if m.Len() != 2 {
		t.Fatalf("len = %d, want 2", m.Len())
	}
	// Re-setting must not disturb insertion order.
	if got := m.Keys(); !reflect.DeepEqual(got, []string{"SERVER_PORT", "API_KEY"}) {
		t.Fatalf("keys = %v", got)
	}
}

func TestEveryKeyHasExactlyOneProvenance(t *testing.T) {
	m := New()
	m.Set("A", "1", SourceEnvironment)
	m.SetAll(map[string]string{"B": "2", "C": "3"}, SourceLocalFile)
	m.Set("B", "4", SourceRemoteStore)

	for _, k := range m.Keys() {
		if _, ok := m.Provenance(k); !ok {
			t.Fatalf("key %s has no provenance entry", k)
		}
	}
	want := map[Source]int{SourceEnvironment: 1, SourceLocalFile: 1, SourceRemoteStore: 1}
	if got := m.CountBySource(); !reflect.DeepEqual(got, want) {
		t.Fatalf("counts = %v, want %v", got, want)
	}
}

func TestMergePreservesOverlayProvenance(t *testing.T) {
	base := New()
	base.Set("API_KEY", "env-key", SourceEnvironment)
	base.Set("REDIS_URL", "redis://env", SourceEnvironment)

	overlay := New()
	overlay.Set("API_KEY", "remote-key", SourceRemoteStore)

	base.Merge(overlay)

	if got, _ := base.Get("API_KEY"); got != "remote-key" {
		t.Fatalf("API_KEY = %q", got)
	}
	if src, _ := base.Provenance("API_KEY"); src != SourceRemoteStore {
		t.Fatalf("API_KEY provenance = %q", src)
	}
	if src, _ := base.Provenance("REDIS_URL"); src != SourceEnvironment {
		t.Fatalf("REDIS_URL provenance = %q", src)
	}
}

func TestFromLookupSkipsMissing(t *testing.T) {
	env := map[string]string{"APP_ENV": "development"}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	m := FromLookup(lookup, []string{"APP_ENV", "SERVER_PORT"})
	if m.Len() != 1 {
		t.Fatalf("len = %d, want 1", m.Len())
	}
	if _, ok := m.Get("SERVER_PORT"); ok {
		t.Fatal("SERVER_PORT should be absent")
	}
}
