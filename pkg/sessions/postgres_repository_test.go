package sessions

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	postgresContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	schema, err := os.ReadFile("../../migrations/admin_db.sql")
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(schema))
	require.NoError(t, err)

	return pool
}

func TestPostgresSessionRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	pool := setupTestPool(t)
	repo := NewPostgresRepository(pool)

	t.Run("CreateAndGet", func(t *testing.T) {
		session := Session{
			ID:       "token-create-get",
			UserID:   "ext-1",
			Email:    "admin@example.com",
			Name:     "Admin",
			Provider: ProviderGoogle,
			ProviderTokens: ProviderTokens{
				AccessToken: "provider-access",
				TokenType:   "bearer",
			},
			CreatedAt: time.Now().UTC(),
			ExpiresAt: time.Now().UTC().Add(time.Hour),
		}
		require.NoError(t, repo.Create(ctx, session))

		got, err := repo.GetByID(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, session.Email, got.Email)
		assert.Equal(t, session.Provider, got.Provider)
		assert.Equal(t, "provider-access", got.ProviderTokens.AccessToken)
	})

	t.Run("GetExpiredReturnsNotFound", func(t *testing.T) {
		session := Session{
			ID:        "token-expired",
			UserID:    "ext-2",
			Email:     "admin@example.com",
			Provider:  ProviderGitHub,
			CreatedAt: time.Now().UTC().Add(-2 * time.Hour),
			ExpiresAt: time.Now().UTC().Add(-time.Hour),
		}
		require.NoError(t, repo.Create(ctx, session))

		_, err := repo.GetByID(ctx, session.ID)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("DeleteIdempotent", func(t *testing.T) {
		session := Session{
			ID:        "token-delete",
			UserID:    "ext-3",
			Email:     "admin@example.com",
			Provider:  ProviderGoogle,
			CreatedAt: time.Now().UTC(),
			ExpiresAt: time.Now().UTC().Add(time.Hour),
		}
		require.NoError(t, repo.Create(ctx, session))

		require.NoError(t, repo.Delete(ctx, session.ID))
		_, err := repo.GetByID(ctx, session.ID)
		assert.ErrorIs(t, err, ErrSessionNotFound)

		assert.NoError(t, repo.Delete(ctx, session.ID))
	})

	t.Run("DeleteExpired", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, Session{
			ID:        "token-stale",
			UserID:    "ext-4",
			Email:     "a@example.com",
			Provider:  ProviderGoogle,
			CreatedAt: time.Now().UTC().Add(-48 * time.Hour),
			ExpiresAt: time.Now().UTC().Add(-24 * time.Hour),
		}))
		require.NoError(t, repo.Create(ctx, Session{
			ID:        "token-live",
			UserID:    "ext-5",
			Email:     "b@example.com",
			Provider:  ProviderGoogle,
			CreatedAt: time.Now().UTC(),
			ExpiresAt: time.Now().UTC().Add(time.Hour),
		}))

		require.NoError(t, repo.DeleteExpired(ctx, time.Now().UTC()))

		var count int
		err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM sessions WHERE id = 'token-stale'").Scan(&count)
		require.NoError(t, err)
		assert.Zero(t, count)

		_, err = repo.GetByID(ctx, "token-live")
		assert.NoError(t, err)
	})
}
