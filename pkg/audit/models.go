// Package audit provides an append-only record of elevated actions.
// Entries are immutable once written: the repository interface exposes
// no update or delete operation, and rows are retained indefinitely.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Entry represents a single elevated action
type Entry struct {
	ID           uuid.UUID      `json:"id"`
	SuperadminID uuid.UUID      `json:"superadmin_id"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type,omitempty"`
	ResourceID   string         `json:"resource_id,omitempty"`
	IP           string         `json:"ip"`
	UserAgent    string         `json:"user_agent"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// WithMetadata adds a metadata key to the entry
func (e Entry) WithMetadata(key string, value any) Entry {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
	return e
}
