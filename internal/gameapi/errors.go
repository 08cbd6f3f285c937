// internal/gameapi/errors.go
//
// Error taxonomy for the game-server API boundary.
//
//   - ErrNoBaseURL    – configuration error, raised before any network call.
//   - StatusError     – transport error, non-2xx response.
//   - SchemaError     – payload failed schema validation after decoding.
//
// Normalization problems (bad dates, malformed sub-documents) are NOT
// errors; the normalizer recovers locally with logged defaults.
package gameapi

import (
	"errors"
	"fmt"
)

// ErrNoBaseURL is returned by NewClient when the organization has no
// game-server base URL configured.
var ErrNoBaseURL = errors.New("gameapi: base URL is empty")

// StatusError reports a non-2xx HTTP response.  The enclosing sync phase
// treats it as fatal: the whole run when fetching citizens, one citizen's
// vehicle phase when fetching vehicles.
type StatusError struct {
	Code   int
	Status string // e.g. "502 Bad Gateway"
	Path   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gameapi: GET %s: %s", e.Path, e.Status)
}

// SchemaError reports a decoded payload that failed validation, with enough
// context to find the offending record upstream.
type SchemaError struct {
	Path  string // request path
	Index int    // element index within the response array
	Err   error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("gameapi: %s: record %d failed validation: %v", e.Path, e.Index, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }
