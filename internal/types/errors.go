package types

import (
	"errors"
	"fmt"
)

// ErrAuthentication means the vendor rejected the credentials, or the session
// could not be recovered after one transparent re-login. The poller maps it to
// the Degraded(AuthFailure) state and keeps retrying on the normal interval.
var ErrAuthentication = errors.New("melcloud: authentication rejected")

// ErrConnectivity means the vendor could not be reached at the network level.
var ErrConnectivity = errors.New("melcloud: vendor unreachable")

// ValidationError is raised locally, before any network call, when a write
// would be out of range or incompatible with the unit's current mode. It is
// never sent to the vendor; server-side validation of out-of-range values has
// been observed to be inconsistent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// APIError means the vendor returned an unexpected status or an unparseable
// body on a call expected to succeed.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("melcloud api: status %d: %s", e.Status, e.Body)
}
