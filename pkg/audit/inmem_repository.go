package audit

import (
	"context"
	"sync"
)

// InMemoryRepository implements Repository using in-memory storage
type InMemoryRepository struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewInMemoryRepository creates a new in-memory audit repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

// Insert appends a new audit entry
func (r *InMemoryRepository) Insert(ctx context.Context, entry Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, entry)
	return nil
}

// List retrieves entries ordered newest first, with pagination
func (r *InMemoryRepository) List(ctx context.Context, limit, offset int) ([]Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Newest first
	reversed := make([]Entry, len(r.entries))
	for i, entry := range r.entries {
		reversed[len(r.entries)-1-i] = entry
	}

	if offset >= len(reversed) {
		return []Entry{}, nil
	}

	end := offset + limit
	if end > len(reversed) {
		end = len(reversed)
	}

	return reversed[offset:end], nil
}

// Count returns the total number of entries
func (r *InMemoryRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.entries)), nil
}
