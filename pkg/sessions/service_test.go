package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSession(t *testing.T) {
	ctx := context.Background()
	service := NewService(NewInMemoryRepository())

	session, err := service.CreateSession(ctx, CreateSessionRequest{
		UserID:   "ext-123",
		Email:    "admin@example.com",
		Name:     "Admin",
		Provider: ProviderGoogle,
	})
	require.NoError(t, err)

	// Opaque token: 32 random bytes hex encoded
	assert.Len(t, session.ID, 64)
	assert.Equal(t, "admin@example.com", session.Email)
	assert.WithinDuration(t, time.Now().Add(DefaultSessionTTL), session.ExpiresAt, time.Minute)

	got, err := service.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, ProviderGoogle, got.Provider)
}

func TestCreateSessionUniqueTokens(t *testing.T) {
	ctx := context.Background()
	service := NewService(NewInMemoryRepository())

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		session, err := service.CreateSession(ctx, CreateSessionRequest{
			UserID:   "ext-123",
			Email:    "admin@example.com",
			Provider: ProviderGitHub,
		})
		require.NoError(t, err)
		assert.False(t, seen[session.ID], "token generated twice")
		seen[session.ID] = true
	}
}

func TestGetSessionExpired(t *testing.T) {
	ctx := context.Background()
	service := NewService(NewInMemoryRepository(), WithTTL(-time.Minute))

	session, err := service.CreateSession(ctx, CreateSessionRequest{
		UserID:   "ext-123",
		Email:    "admin@example.com",
		Provider: ProviderGoogle,
	})
	require.NoError(t, err)

	// An expired session behaves exactly like a missing one
	_, err = service.GetSession(ctx, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestGetSessionUnknownToken(t *testing.T) {
	service := NewService(NewInMemoryRepository())

	_, err := service.GetSession(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDeleteSessionIdempotent(t *testing.T) {
	ctx := context.Background()
	service := NewService(NewInMemoryRepository())

	session, err := service.CreateSession(ctx, CreateSessionRequest{
		UserID:   "ext-123",
		Email:    "admin@example.com",
		Provider: ProviderGoogle,
	})
	require.NoError(t, err)

	require.NoError(t, service.DeleteSession(ctx, session.ID))
	_, err = service.GetSession(ctx, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Deleting again succeeds
	assert.NoError(t, service.DeleteSession(ctx, session.ID))
	assert.NoError(t, service.DeleteSession(ctx, "never-existed"))
}

func TestCleanupExpired(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()

	expired := NewService(repo, WithTTL(-time.Minute))
	fresh := NewService(repo)

	old, err := expired.CreateSession(ctx, CreateSessionRequest{UserID: "a", Email: "a@example.com", Provider: ProviderGoogle})
	require.NoError(t, err)
	live, err := fresh.CreateSession(ctx, CreateSessionRequest{UserID: "b", Email: "b@example.com", Provider: ProviderGoogle})
	require.NoError(t, err)

	require.NoError(t, fresh.CleanupExpired(ctx))

	repo.mu.RLock()
	_, oldKept := repo.sessions[old.ID]
	_, liveKept := repo.sessions[live.ID]
	repo.mu.RUnlock()
	assert.False(t, oldKept, "expired session row should be pruned")
	assert.True(t, liveKept)
}
