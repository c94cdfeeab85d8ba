// internal/schema/schema.go
//
// Typed schema for the flat configuration map.
//
// Context
// -------
// The application's configuration surface is declared here once, as a
// list of Field specs: key name, required/optional, sensitivity, value
// kind, and a go-playground/validator rule expression.  Loaders use the
// registry to know which keys exist, which need build-time placeholders,
// and which are sensitive; Validate checks a raw envmap.Map against it.
//
// Notes
// -----
//   - The deployment-stage rule accepts the closed set of stage names or
//     an ephemeral preview stage (pr-<number>).  Registered as the custom
//     "stage" validation below.
//   - Sensitive values never appear in violations; they are elided.
package schema

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/chatforge/confcore/internal/classify"
)

// PlaceholderPrefix marks recognizably-fake build-time values.  Nothing
// real ever starts with it.
const PlaceholderPrefix = "build-placeholder"

// Kind is the value type a field must parse as.
type Kind int

const (
	String Kind = iota
	Int
	Bool
)

// Field specifies one configuration key.
type Field struct {
	Key       string
	Required  bool
	Sensitive bool
	Kind      Kind
	Rule      string // validator.Var expression, applied when the value is present
}

// Placeholder returns the build-time stand-in value for the field.  Fields
// whose rule demands URL shape get a scheme'd form so validation still
// passes without a real secret.
func (f Field) Placeholder() string {
	slug := strings.ToLower(strings.ReplaceAll(f.Key, "_", "-"))
	if strings.Contains(f.Rule, "url") {
		return PlaceholderPrefix + "://" + slug
	}
	return PlaceholderPrefix + "-" + slug
}

//
// Registry
//

// Fields returns the application's configuration surface.  The slice is
// freshly allocated; callers may not rely on mutating it.
func Fields() []Field {
	return []Field{
		{Key: "APP_ENV", Required: true, Kind: String, Rule: "stage"},
		{Key: "SERVER_PORT", Required: true, Kind: Int, Rule: "min=1,max=65535"},
		{Key: "API_KEY", Required: true, Sensitive: true, Kind: String, Rule: "min=20"},
		{Key: "OPENAI_API_KEY", Required: true, Sensitive: true, Kind: String, Rule: "min=10"},
		{Key: "RELATIONAL_DATABASE_URL", Required: true, Sensitive: true, Kind: String, Rule: "url"},
		{Key: "REDIS_URL", Required: true, Sensitive: true, Kind: String, Rule: "url"},
		{Key: "COOKIE_ENCRYPTION_KEY", Required: true, Sensitive: true, Kind: String, Rule: "min=32"},
		{Key: "CORS_ALLOWED_ORIGINS", Kind: String},
		{Key: "LOG_LEVEL", Kind: String, Rule: "oneof=debug info warn error"},
		{Key: "RATE_LIMIT_MAX_REQUESTS", Kind: Int, Rule: "min=1"},
		{Key: "RATE_LIMIT_WINDOW_MS", Kind: Int, Rule: "min=1"},
	}
}

// Keys returns the registry key names in declaration order.
func Keys() []string {
	fs := Fields()
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Key
	}
	return out
}

// SensitiveKeys returns the keys whose values must never be logged.
func SensitiveKeys() []string {
	var out []string
	for _, f := range Fields() {
		if f.Sensitive {
			out = append(out, f.Key)
		}
	}
	return out
}

//
// Validator instance (package-level singleton)
//

var v = newValidator()

func newValidator() *validator.Validate {
	vd := validator.New()
	// "stage": closed stage set, or an ephemeral preview deployment.
	_ = vd.RegisterValidation("stage", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		switch s {
		case "development", "test", "staging", "production":
			return true
		}
		return classify.IsPreviewStage(s)
	})
	return vd
}
