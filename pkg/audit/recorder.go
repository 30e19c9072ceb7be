package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultWriteTimeout bounds each detached audit write
const DefaultWriteTimeout = 10 * time.Second

// Recorder writes audit entries decoupled from the request that caused them.
// Writes run on a detached goroutine with a background context, so a client
// disconnecting before the write completes cannot abort it, and a write
// failure never alters or delays the response the caller already sent.
type Recorder struct {
	repo    Repository
	timeout time.Duration
	wg      sync.WaitGroup
}

// RecorderOption is a function that configures a Recorder
type RecorderOption func(*Recorder)

// WithWriteTimeout sets the per-write timeout
func WithWriteTimeout(timeout time.Duration) RecorderOption {
	return func(rec *Recorder) {
		rec.timeout = timeout
	}
}

// NewRecorder creates a new audit recorder
func NewRecorder(repo Repository, opts ...RecorderOption) *Recorder {
	rec := &Recorder{
		repo:    repo,
		timeout: DefaultWriteTimeout,
	}

	for _, opt := range opts {
		opt(rec)
	}

	return rec
}

// Record schedules an audit write and returns immediately.
// Failed writes are logged locally with the full entry so they can be
// reprocessed; delivery is at-least-once in intent, not guaranteed.
func (rec *Recorder) Record(entry Entry) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	rec.wg.Add(1)
	go func() {
		defer rec.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), rec.timeout)
		defer cancel()

		if err := rec.repo.Insert(ctx, entry); err != nil {
			slog.Error("Failed to write audit entry",
				"err", err,
				"superadmin_id", entry.SuperadminID,
				"action", entry.Action,
				"resource_type", entry.ResourceType,
				"resource_id", entry.ResourceID,
				"ip", entry.IP,
				"created_at", entry.CreatedAt)
		}
	}()
}

// Wait blocks until all in-flight writes have finished (graceful shutdown)
func (rec *Recorder) Wait() {
	rec.wg.Wait()
}

// List retrieves entries for the audit-log API, newest first
func (rec *Recorder) List(ctx context.Context, limit, offset int) ([]Entry, int64, error) {
	entries, err := rec.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := rec.repo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
