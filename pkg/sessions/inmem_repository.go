package sessions

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository implements Repository using in-memory storage.
// Intended for tests and single-process development setups; production
// deployments use PostgresRepository as the source of truth.
type InMemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewInMemoryRepository creates a new in-memory session repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		sessions: make(map[string]Session),
	}
}

// Create persists a new session
func (r *InMemoryRepository) Create(ctx context.Context, session Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.ID] = session
	return nil
}

// GetByID retrieves an unexpired session by its opaque token
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok || session.IsExpired(time.Now()) {
		return nil, ErrSessionNotFound
	}

	copied := session
	return &copied, nil
}

// Delete removes a session by ID (idempotent)
func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}

// DeleteExpired removes sessions whose expiry has passed
func (r *InMemoryRepository) DeleteExpired(ctx context.Context, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, session := range r.sessions {
		if session.IsExpired(now) {
			delete(r.sessions, id)
		}
	}
	return nil
}
