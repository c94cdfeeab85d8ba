// internal/envmap/envmap.go
//
// Raw configuration environment with per-key provenance.
//
// Context
// -------
// Every source loader produces a Map: an insertion-ordered set of
// (key, value) pairs where each key also carries a provenance tag naming
// the source that last wrote it.  Loaders build the Map incrementally,
// base process values first, then override layers merged on top with
// last-write-wins semantics.  The schema validator and the mapper both
// consume the Map read-only.
//
// Notes
// -----
//   - Keys stay unique; re-setting a key updates value and provenance in
//     place without disturbing insertion order.
//   - Oxford commas, two spaces after periods.
package envmap

// Source tags the origin of a configuration value.
type Source string

const (
	SourceEnvironment Source = "environment"
	SourceLocalFile   Source = "local-file"
	SourceRemoteStore Source = "remote-store"
	SourceFallback    Source = "fallback-default"
)

//
// Map
//

// Map is an ordered key/value collection with provenance.  The zero value
// is not usable; construct with New or FromLookup.
type Map struct {
	order []string
	vals  map[string]string
	prov  map[string]Source
}

// New returns an empty Map.
func New() *Map {
	return &Map{
		vals: make(map[string]string),
		prov: make(map[string]Source),
	}
}

// FromLookup seeds a Map with process values for the given keys, in the
// given order.  Keys absent from the lookup are skipped, so the result
// contains only keys that actually exist.
func FromLookup(lookup func(string) (string, bool), keys []string) *Map {
	m := New()
	for _, k := range keys {
		if v, ok := lookup(k); ok {
			m.Set(k, v, SourceEnvironment)
		}
	}
	return m
}

// Set writes a key with its provenance.  Last write wins.
func (m *Map) Set(key, value string, src Source) {
	if _, ok := m.vals[key]; !ok {
		m.order = append(m.order, key)
	}
	m.vals[key] = value
	m.prov[key] = src
}

// SetAll merges a plain map on top of m, tagging every key with src.
// Iteration order of vals is irrelevant because the layer wins as a whole.
func (m *Map) SetAll(vals map[string]string, src Source) {
	for k, v := range vals {
		m.Set(k, v, src)
	}
}

// Merge overlays other on top of m, key by key, preserving other's
// provenance tags.
func (m *Map) Merge(other *Map) {
	for _, k := range other.order {
		m.Set(k, other.vals[k], other.prov[k])
	}
}

// Get returns the value for key.
func (m *Map) Get(key string) (string, bool) {
	v, ok := m.vals[key]
	return v, ok
}

// Provenance returns the source that last wrote key.
func (m *Map) Provenance(key string) (Source, bool) {
	s, ok := m.prov[key]
	return s, ok
}

// Len reports the number of keys.
func (m *Map) Len() int { return len(m.order) }

// Keys returns the keys in insertion order.  The slice is a copy.
func (m *Map) Keys() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Values returns a copy of the key/value pairs.
func (m *Map) Values() map[string]string {
	out := make(map[string]string, len(m.vals))
	for k, v := range m.vals {
		out[k] = v
	}
	return out
}

// Sources returns a copy of the provenance table.
func (m *Map) Sources() map[string]Source {
	out := make(map[string]Source, len(m.prov))
	for k, s := range m.prov {
		out[k] = s
	}
	return out
}

// CountBySource tallies keys per provenance tag, for observability.
func (m *Map) CountBySource() map[Source]int {
	out := make(map[Source]int)
	for _, s := range m.prov {
		out[s]++
	}
	return out
}
