package federation

import (
	"errors"
	"fmt"
)

// ErrProviderNotFound is returned for an unknown or disabled provider id
var ErrProviderNotFound = errors.New("unknown identity provider")

// ErrMissingCode is returned when a callback arrives without an authorization code
var ErrMissingCode = errors.New("missing authorization code")

// UpstreamError carries an identity provider's raw diagnostic body so
// operators can distinguish client misconfiguration from a provider outage.
// A replayed authorization code surfaces here too: the provider invalidates
// codes after first use and its rejection is passed through, never retried.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("provider %s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}
