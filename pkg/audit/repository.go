package audit

import (
	"context"
)

// Repository defines the interface for audit entry access.
// Deliberately append-only: no update or delete methods exist.
type Repository interface {
	// Insert appends a new audit entry
	Insert(ctx context.Context, entry Entry) error

	// List retrieves entries ordered newest first, with pagination
	List(ctx context.Context, limit, offset int) ([]Entry, error)

	// Count returns the total number of entries
	Count(ctx context.Context) (int64, error)
}
