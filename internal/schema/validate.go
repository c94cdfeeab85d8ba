// internal/schema/validate.go
//
// Validation of a raw map against the field registry.
//
// All required fields must pass; there is no partial success.  The result
// is either a *Validated carrying only schema-known, fully-checked values,
// or a Violations error listing every failed field at once so the operator
// fixes one round, not one field per restart.
package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chatforge/confcore/internal/envmap"
)

// elided replaces sensitive values in violation reports.
const elided = "[redacted]"

//
// Violations
//

// Violation records one failed field check.
type Violation struct {
	Field      string
	Constraint string
	Value      string // elided when the field is sensitive
}

// Violations is the error returned when any field fails.
type Violations []Violation

func (vs Violations) Error() string {
	var b strings.Builder
	b.WriteString("config validation failed: ")
	for i, v := range vs {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s: %s (got %q)", v.Field, v.Constraint, v.Value)
	}
	return b.String()
}

//
// Validated
//

// Validated holds the checked values.  Immutable; constructed only by
// Validate.
type Validated struct {
	fields []Field
	values map[string]string
}

// Get returns the validated value for key.
func (c *Validated) Get(key string) (string, bool) {
	s, ok := c.values[key]
	return s, ok
}

// Values returns a copy of the validated key/value pairs.
func (c *Validated) Values() map[string]string {
	out := make(map[string]string, len(c.values))
	for k, s := range c.values {
		out[k] = s
	}
	return out
}

// Fields returns the registry the values were checked against.
func (c *Validated) Fields() []Field { return c.fields }

//
// Validate
//

// Validate checks raw against the registry and returns either a fully
// validated view or the complete list of violations.  Keys outside the
// registry are ignored.
func Validate(raw *envmap.Map) (*Validated, Violations) {
	fields := Fields()
	vals := make(map[string]string, len(fields))
	var viols Violations

	for _, f := range fields {
		s, ok := raw.Get(f.Key)
		if !ok || s == "" {
			if f.Required {
				viols = append(viols, Violation{Field: f.Key, Constraint: "required", Value: ""})
			}
			continue
		}

		if bad := checkField(f, s); bad != "" {
			viols = append(viols, Violation{Field: f.Key, Constraint: bad, Value: report(f, s)})
			continue
		}
		vals[f.Key] = s
	}

	if len(viols) > 0 {
		return nil, viols
	}
	return &Validated{fields: fields, values: vals}, nil
}

// checkField converts the value to its kind and applies the rule.  Returns
// the violated constraint, or "" when the value passes.
func checkField(f Field, s string) string {
	switch f.Kind {
	case Int:
		n, err := strconv.Atoi(s)
		if err != nil {
			return "integer"
		}
		if f.Rule != "" {
			if err := v.Var(n, f.Rule); err != nil {
				return f.Rule
			}
		}
	case Bool:
		if _, err := strconv.ParseBool(s); err != nil {
			return "boolean"
		}
	default:
		if f.Rule != "" {
			if err := v.Var(s, f.Rule); err != nil {
				return f.Rule
			}
		}
	}
	return ""
}

func report(f Field, s string) string {
	if f.Sensitive {
		return elided
	}
	return s
}
