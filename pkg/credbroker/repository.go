package credbroker

import (
	"context"
	"time"
)

// Repository defines the interface for the delegated token cache.
// Append-only by design: tokens are superseded by newer rows, never updated.
type Repository interface {
	// Insert appends a newly minted token
	Insert(ctx context.Context, token CachedToken) error

	// GetFreshest returns the cached token with the latest expiry that is
	// still in the future, or ErrTokenNotFound.
	GetFreshest(ctx context.Context, sessionID string, now time.Time) (*CachedToken, error)

	// DeleteExpiredBefore prunes rows whose expiry passed before the cutoff.
	// Superseded rows never affect correctness (readers filter by expiry);
	// this only reclaims storage.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) error
}
