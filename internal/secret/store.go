// internal/secret/store.go
//
// Minimal remote secret-store contract.
//
// Context
// -------
// The resolver does not depend on any particular store's protocol, only
// on this interface: get one key, get many keys, and distinguish "the key
// does not exist" from "the store is unreachable".  The production
// implementation lives in vault.go; tests inject fakes.
package secret

import (
	"context"
	"errors"
	"fmt"
)

// ErrStoreUnavailable wraps transport-level failures so callers can treat
// every flavor of outage uniformly.
var ErrStoreUnavailable = errors.New("secret store unavailable")

// NotFoundError reports that the store answered, and the key is absent.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("secret %q not found", e.Key)
}

// IsNotFound reports whether err is a key-absent answer rather than an
// outage.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// Store is the remote secret/parameter store collaborator.
type Store interface {
	// Get returns the value for one key, a *NotFoundError when the store
	// reports it absent, or an error wrapping ErrStoreUnavailable.
	Get(ctx context.Context, key string) (string, error)

	// GetBatch fetches many keys.  Keys that resolved are present in the
	// returned map; the error, when non-nil, describes every key that did
	// not.  Partial results are returned alongside the error, never
	// silently dropped.
	GetBatch(ctx context.Context, keys []string) (map[string]string, error)
}
