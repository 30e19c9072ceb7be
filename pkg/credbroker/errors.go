package credbroker

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when the broker has no signing key or
// service-account identity. Delegated capability is unavailable but the
// rest of the request pipeline continues unaffected.
var ErrNotConfigured = errors.New("credential broker not configured")

// ErrTokenNotFound is returned when no fresh cached token exists for a session
var ErrTokenNotFound = errors.New("no cached delegated token")

// TokenEndpointError carries the token endpoint's raw diagnostic body so
// operators can distinguish misconfiguration from a provider outage.
type TokenEndpointError struct {
	StatusCode int
	Body       string
}

func (e *TokenEndpointError) Error() string {
	return fmt.Sprintf("token endpoint returned status %d: %s", e.StatusCode, e.Body)
}
