// internal/secret/vault.go
//
// HashiCorp Vault implementation of the Store contract.
//
// Context
// -------
// Secrets live in a KV-v2 mount, one secret per configuration key, with
// the value stored under the "value" data field:
//
//	<mount>/data/<prefix>/<key-slug>  →  { "value": "…" }
//
// Address and token come from the standard VAULT_ADDR and VAULT_TOKEN
// environment (the SDK also falls back to ~/.vault-token).  The path
// prefix comes from CONFIG_SECRET_PREFIX, written as "mount/sub/path".
//
// Notes
// -----
//   - Timeouts are the SDK client's responsibility; a client-level timeout
//     surfaces here as an ordinary unavailable error.
//   - The store itself is cache-free.  Freshness lives in cache.go.
package secret

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"

	vault "github.com/hashicorp/vault/api"
	"golang.org/x/sync/errgroup"
)

// batchConcurrency bounds the fan-out of GetBatch.
const batchConcurrency = 4

// VaultStore is safe for concurrent use.  Zero value is invalid; construct
// with NewVaultStore.
type VaultStore struct {
	api    *vault.Client
	mount  string
	prefix string
}

// NewVaultStore builds a client from the environment.  The prefix argument
// overrides CONFIG_SECRET_PREFIX when non-empty.
func NewVaultStore(prefix string) (*VaultStore, error) {
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}

	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		apiCli.SetToken(tok)
	}

	if prefix == "" {
		prefix = os.Getenv("CONFIG_SECRET_PREFIX")
	}
	if prefix == "" {
		return nil, errors.New("vault: CONFIG_SECRET_PREFIX is not set")
	}

	mount, rel := splitMount(prefix)
	return &VaultStore{api: apiCli, mount: mount, prefix: rel}, nil
}

// Get fetches one configuration key.
func (s *VaultStore) Get(ctx context.Context, key string) (string, error) {
	sec, err := s.api.KVv2(s.mount).Get(ctx, path.Join(s.prefix, slug(key)))
	if err != nil {
		if errors.Is(err, vault.ErrSecretNotFound) {
			return "", &NotFoundError{Key: key}
		}
		return "", fmt.Errorf("vault get %s: %w: %w", key, ErrStoreUnavailable, err)
	}

	raw, ok := sec.Data["value"]
	if !ok {
		return "", &NotFoundError{Key: key}
	}
	sval, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("vault: value for %s is not a string", key)
	}
	return sval, nil
}

// GetBatch fans out to Get with bounded concurrency.  All lookups run to
// completion; failures are joined into one error alongside the partial
// result map.
func (s *VaultStore) GetBatch(ctx context.Context, keys []string) (map[string]string, error) {
	var (
		mu   sync.Mutex
		out  = make(map[string]string, len(keys))
		errs = make([]error, 0)
	)

	g := &errgroup.Group{}
	g.SetLimit(batchConcurrency)
	for _, key := range keys {
		key := key
		g.Go(func() error {
			val, err := s.Get(ctx, key)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			out[key] = val
			return nil
		})
	}
	_ = g.Wait()

	return out, errors.Join(errs...)
}

// splitMount separates "mount/sub/path" into the KV mount and the relative
// path under it.
func splitMount(p string) (mount, rel string) {
	parts := strings.SplitN(strings.Trim(p, "/"), "/", 2)
	mount = parts[0]
	if len(parts) == 2 {
		rel = parts[1]
	}
	return
}

// slug maps a configuration key to its secret path segment.
func slug(key string) string {
	return strings.ToLower(strings.ReplaceAll(key, "_", "-"))
}
