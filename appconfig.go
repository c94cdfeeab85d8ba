// appconfig.go
//
// Application-facing configuration aggregate.
//
// Context
// -------
// AppConfig is the typed projection the rest of the system consumes.  It
// is constructed only by the resolution facade (see mapper.go); nothing
// else renames or reshapes the external key names, so a change to those
// names touches exactly one file.
//
// Sensitive fields use Redacted, which prints and marshals as a fixed
// token.  Call Reveal() at the single point a real value is needed (DSN
// hand-off, HTTP client header), never in logs.
package confcore

import (
	"encoding/json"

	"github.com/chatforge/confcore/internal/classify"
)

//
// Redacted
//

// Redacted is a string that refuses to display itself.
type Redacted string

const redactedToken = "[redacted]"

func (r Redacted) String() string {
	if r == "" {
		return ""
	}
	return redactedToken
}

// Reveal returns the underlying value.
func (r Redacted) Reveal() string { return string(r) }

// MarshalJSON hides the value in any serialized form (configz endpoint,
// debug dumps).
func (r Redacted) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

//
// AppConfig
//

// AppConfig is the immutable application configuration.  Field names are
// the application's own; koanf tags carry the external key names.
type AppConfig struct {
	Stage       string   `koanf:"app_env" json:"stage"`
	Port        int      `koanf:"server_port" json:"port"`
	APIKey      Redacted `koanf:"api_key" json:"api_key"`
	OpenAIKey   Redacted `koanf:"openai_api_key" json:"openai_key"`
	DatabaseURL Redacted `koanf:"relational_database_url" json:"database_url"`
	RedisURL    Redacted `koanf:"redis_url" json:"redis_url"`
	CookieKey   Redacted `koanf:"cookie_encryption_key" json:"cookie_key"`

	CORSOrigins string `koanf:"cors_allowed_origins" json:"cors_origins"`
	LogLevel    string `koanf:"log_level" json:"log_level"`

	RateLimitMax      int `koanf:"rate_limit_max_requests" json:"rate_limit_max"`
	RateLimitWindowMS int `koanf:"rate_limit_window_ms" json:"rate_limit_window_ms"`
}

// IsProduction reports whether the config targets the production stage.
func (c *AppConfig) IsProduction() bool { return c.Stage == "production" }

// IsPreview reports whether the config targets an ephemeral preview
// deployment (pr-<number>).
func (c *AppConfig) IsPreview() bool { return classify.IsPreviewStage(c.Stage) }
