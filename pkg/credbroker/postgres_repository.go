package credbroker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL token cache repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

// Insert appends a newly minted token
func (r *PostgresRepository) Insert(ctx context.Context, token CachedToken) error {
	query := `
		INSERT INTO delegated_token_cache (
			id, session_id, access_token, expires_at, scope, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`

	_, err := r.pool.Exec(ctx, query,
		token.ID,
		token.SessionID,
		token.AccessToken,
		token.ExpiresAt,
		token.Scope,
		token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert cached token: %w", err)
	}

	return nil
}

// GetFreshest returns the cached token with the latest expiry still in the future.
// Selection is by freshness, not row identity, so a concurrent writer
// superseding the cache is safe without locking.
func (r *PostgresRepository) GetFreshest(ctx context.Context, sessionID string, now time.Time) (*CachedToken, error) {
	query := `
		SELECT id, session_id, access_token, expires_at, scope, created_at
		FROM delegated_token_cache
		WHERE session_id = $1
		  AND expires_at > $2
		ORDER BY expires_at DESC
		LIMIT 1
	`

	token := &CachedToken{}
	err := r.pool.QueryRow(ctx, query, sessionID, now).Scan(
		&token.ID,
		&token.SessionID,
		&token.AccessToken,
		&token.ExpiresAt,
		&token.Scope,
		&token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get cached token: %w", err)
	}

	return token, nil
}

// DeleteExpiredBefore prunes rows whose expiry passed before the cutoff
func (r *PostgresRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) error {
	query := `
		DELETE FROM delegated_token_cache
		WHERE expires_at < $1
	`

	_, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune token cache: %w", err)
	}

	return nil
}
