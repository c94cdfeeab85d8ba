// errors.go
//
// Error taxonomy re-exports and the caller-programming error.
//
// Every fallible operation in the engine returns an explicit error; the
// facade alone decides what is fatal.  Consumers match with errors.As on
// these types:
//
//	schema.Violations   – one or more fields failed validation (fatal).
//	*SourceLoadError    – malformed required file, or the remote store
//	                      failed while authoritative (fatal).
//	*UsageError         – the synchronous path was requested in a context
//	                      that needs network access (fatal, caller bug).
//
// Non-authoritative remote failures are warnings in the log, never errors.
package confcore

import (
	"fmt"

	"github.com/chatforge/confcore/internal/loader"
	"github.com/chatforge/confcore/internal/schema"
)

// Violations is the schema validation failure list.
type Violations = schema.Violations

// SourceLoadError is a fatal source-loading failure.
type SourceLoadError = loader.SourceLoadError

// UsageError reports an API misuse by the caller.
type UsageError struct {
	msg string
}

func (e *UsageError) Error() string { return "usage: " + e.msg }

func usageErrorf(format string, args ...any) *UsageError {
	return &UsageError{msg: fmt.Sprintf(format, args...)}
}
