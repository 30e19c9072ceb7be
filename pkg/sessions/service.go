package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"
)

// DefaultSessionTTL is the fixed absolute lifetime of a session from creation
const DefaultSessionTTL = 7 * 24 * time.Hour

// Service provides session lifecycle management over a durable repository
type Service struct {
	repo Repository
	ttl  time.Duration
}

// Option is a function that configures a Service
type Option func(*Service)

// WithTTL overrides the session lifetime (tests and short-lived environments)
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// NewService creates a new session service
func NewService(repo Repository, opts ...Option) *Service {
	service := &Service{
		repo: repo,
		ttl:  DefaultSessionTTL,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service
}

// CreateSession generates a high-entropy opaque token, persists the session
// with an absolute TTL from the current clock, and returns it for cookie issuance.
func (s *Service) CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if req.Provider != ProviderGoogle && req.Provider != ProviderGitHub {
		return nil, fmt.Errorf("invalid provider: %s", req.Provider)
	}

	id, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	now := time.Now().UTC()
	session := Session{
		ID:             id,
		UserID:         req.UserID,
		Email:          req.Email,
		Name:           req.Name,
		Picture:        req.Picture,
		Provider:       req.Provider,
		ProviderTokens: req.ProviderTokens,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.ttl),
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	slog.Info("Session created", "user_id", session.UserID, "provider", session.Provider, "expires_at", session.ExpiresAt)
	return &session, nil
}

// GetSession retrieves an unexpired session by its opaque token.
// Returns ErrSessionNotFound for unknown or expired tokens. Storage failures
// are returned wrapped; callers must treat any error as "no session".
func (s *Service) GetSession(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}

	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// The repository filters expiry, but an in-process cache layered on top
	// must honor the same rule, so check again here.
	if session.IsExpired(time.Now()) {
		return nil, ErrSessionNotFound
	}

	return session, nil
}

// DeleteSession removes a session. Deleting a missing session succeeds.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.repo.Delete(ctx, id)
}

// CleanupExpired removes sessions whose expiry has passed (maintenance task)
func (s *Service) CleanupExpired(ctx context.Context) error {
	return s.repo.DeleteExpired(ctx, time.Now().UTC())
}

// generateSessionID returns a cryptographically random 64-character token
func generateSessionID() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
