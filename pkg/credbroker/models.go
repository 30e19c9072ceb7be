package credbroker

import (
	"time"

	"github.com/google/uuid"
)

// CachedToken represents one minted delegated access token.
// Rows are append-only: a newer mint supersedes older rows rather than
// updating them, and readers always select the freshest non-expired row.
type CachedToken struct {
	ID          uuid.UUID `json:"id"`
	SessionID   string    `json:"session_id"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Scope       string    `json:"scope"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsExpired reports whether the recorded expiry has passed
func (t *CachedToken) IsExpired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}
