package sessions

import (
	"context"
	"errors"
	"time"
)

// ErrSessionNotFound is returned when a session does not exist or has expired
var ErrSessionNotFound = errors.New("session not found")

// Repository defines the interface for session data access.
// Implementations must never return a session whose expiry has passed.
type Repository interface {
	// Create persists a new session
	Create(ctx context.Context, session Session) error

	// GetByID retrieves an unexpired session by its opaque token.
	// Returns ErrSessionNotFound for unknown or expired tokens.
	GetByID(ctx context.Context, id string) (*Session, error)

	// Delete removes a session by ID. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// DeleteExpired removes sessions whose expiry has passed (maintenance)
	DeleteExpired(ctx context.Context, now time.Time) error
}
