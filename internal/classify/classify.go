// internal/classify/classify.go
//
// Deployment-context classifier.
//
// Context
// -------
// The resolver picks a source loader based on which kind of process it is
// running in: one-shot build tooling, local development, or a managed
// runtime with network access to the secret store.  Classification is a
// pure function of process signals, probed through an injected lookup so
// tests never mutate the real environment.  There is no failure mode;
// ambiguous signals fall back to Local.
//
// Decision order (first match wins)
// ---------------------------------
//  1. CI marker set, and no explicit remote-required override → BuildTime.
//  2. Secret-store address or prefix present, or a preview-deployment
//     stage (pr-<number>) → ManagedRuntime.
//  3. Otherwise → Local.
package classify

import (
	"os"
	"regexp"
	"strings"
)

// Context enumerates the deployment contexts.  Determined once per process
// and treated as immutable afterwards.
type Context string

const (
	BuildTime      Context = "build-time"
	Local          Context = "local"
	ManagedRuntime Context = "managed-runtime"
)

// Signal environment variables.
const (
	EnvCI             = "CI"
	EnvRemoteRequired = "CONFIG_REMOTE_REQUIRED"
	EnvVaultAddr      = "VAULT_ADDR"
	EnvSecretPrefix   = "CONFIG_SECRET_PREFIX"
	EnvStage          = "APP_ENV"
)

var previewStage = regexp.MustCompile(`^pr-[0-9]+$`)

// LookupFunc is the os.LookupEnv signature.
type LookupFunc func(string) (string, bool)

// Classify inspects process signals and returns the deployment context.
// A nil lookup defaults to os.LookupEnv.
func Classify(lookup LookupFunc) Context {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	if truthy(lookup, EnvCI) && !truthy(lookup, EnvRemoteRequired) {
		return BuildTime
	}

	// An empty value (VAULT_ADDR= left over in an env file) is not a
	// store signal; only a non-blank value selects the managed runtime.
	if v, ok := lookup(EnvVaultAddr); ok && strings.TrimSpace(v) != "" {
		return ManagedRuntime
	}
	if v, ok := lookup(EnvSecretPrefix); ok && strings.TrimSpace(v) != "" {
		return ManagedRuntime
	}
	if stage, ok := lookup(EnvStage); ok && previewStage.MatchString(stage) {
		return ManagedRuntime
	}

	return Local
}

// IsPreviewStage reports whether stage names an ephemeral preview
// deployment (pr-<number>).
func IsPreviewStage(stage string) bool { return previewStage.MatchString(stage) }

// truthy treats any value except "", "0", and "false" as set.  CI systems
// disagree on the exact value ("true", "1", "yes"), so we accept the union.
func truthy(lookup LookupFunc, key string) bool {
	v, ok := lookup(key)
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false":
		return false
	}
	return true
}
