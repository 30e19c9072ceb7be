package credbroker

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository implements Repository using in-memory storage
type InMemoryRepository struct {
	mu     sync.RWMutex
	tokens []CachedToken
}

// NewInMemoryRepository creates a new in-memory token cache repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

// Insert appends a newly minted token
func (r *InMemoryRepository) Insert(ctx context.Context, token CachedToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tokens = append(r.tokens, token)
	return nil
}

// GetFreshest returns the cached token with the latest expiry still in the future
func (r *InMemoryRepository) GetFreshest(ctx context.Context, sessionID string, now time.Time) (*CachedToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var freshest *CachedToken
	for i := range r.tokens {
		token := &r.tokens[i]
		if token.SessionID != sessionID || token.IsExpired(now) {
			continue
		}
		if freshest == nil || token.ExpiresAt.After(freshest.ExpiresAt) {
			freshest = token
		}
	}

	if freshest == nil {
		return nil, ErrTokenNotFound
	}

	copied := *freshest
	return &copied, nil
}

// DeleteExpiredBefore prunes rows whose expiry passed before the cutoff
func (r *InMemoryRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.tokens[:0]
	for _, token := range r.tokens {
		if token.ExpiresAt.After(cutoff) {
			kept = append(kept, token)
		}
	}
	r.tokens = kept
	return nil
}
