// internal/classify/classify_test.go
//
// Table tests for the deployment-context classifier.

package classify

import "testing"

func lookupFor(env map[string]string) LookupFunc {
	return func(k string) (string, bool) { v, ok := env[k]; return v, ok }
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want Context
	}{
		{"no signals", map[string]string{}, Local},
		{"ci marker", map[string]string{"CI": "true"}, BuildTime},
		{"ci numeric", map[string]string{"CI": "1"}, BuildTime},
		{"ci false string", map[string]string{"CI": "false"}, Local},
		{"ci but remote required", map[string]string{"CI": "true", "CONFIG_REMOTE_REQUIRED": "1"}, ManagedRuntime},
		{"vault address", map[string]string{"VAULT_ADDR": "https://vault.internal:8200"}, ManagedRuntime},
		{"secret prefix", map[string]string{"CONFIG_SECRET_PREFIX": "chatforge/prod"}, ManagedRuntime},
		{"preview stage", map[string]string{"APP_ENV": "pr-1432"}, ManagedRuntime},
		{"ordinary stage", map[string]string{"APP_ENV": "development"}, Local},
		{"stage that almost matches", map[string]string{"APP_ENV": "pr-"}, Local},
		{"ci wins over vault", map[string]string{"CI": "true", "VAULT_ADDR": "https://vault:8200"}, BuildTime},
		{"empty vault address", map[string]string{"VAULT_ADDR": ""}, Local},
		{"blank secret prefix", map[string]string{"CONFIG_SECRET_PREFIX": "  "}, Local},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(lookupFor(tc.env)); got != tc.want {
				t.Fatalf("Classify() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestClassifyRemoteRequiredAlone(t *testing.T) {
	// CONFIG_REMOTE_REQUIRED without CI has no effect on its own; the
	// store address or prefix is what selects the managed runtime.
	got := Classify(lookupFor(map[string]string{"CONFIG_REMOTE_REQUIRED": "1"}))
	if got != Local {
		t.Fatalf("Classify() = %q, want %q", got, Local)
	}
}

func TestIsPreviewStage(t *testing.T) {
	if !IsPreviewStage("pr-7") {
		t.Fatal("pr-7 should be a preview stage")
	}
	if IsPreviewStage("production") || IsPreviewStage("pr-x") {
		t.Fatal("non-preview stage matched")
	}
}
