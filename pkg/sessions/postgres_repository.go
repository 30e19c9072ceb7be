package sessions

import (
	"context"
	"encoding/json"
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

// NewPostgresRepository creates a new PostgreSQL session repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

// Create persists a new session
func (r *PostgresRepository) Create(ctx context.Context, session Session) error {
	query := `
		INSERT INTO sessions (
			id, user_id, email, name, picture, provider, provider_tokens,
			created_at, expires_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	tokens, err := json.Marshal(session.ProviderTokens)
	if err != nil {
		return fmt.Errorf("failed to marshal provider tokens: %w", err)
	}

	_, err = r.pool.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.Email,
		session.Name,
		session.Picture,
		session.Provider,
		tokens,
		session.CreatedAt,
		session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetByID retrieves an unexpired session by its opaque token.
// Expired rows are filtered in SQL so a stale row is indistinguishable from a missing one.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Session, error) {
	query := `
		SELECT
			id, user_id, email, name, picture, provider, provider_tokens,
			created_at, expires_at
		FROM sessions
		WHERE id = $1
		  AND expires_at > NOW()
	`

	session := &Session{}
	var tokens []byte

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.UserID,
		&session.Email,
		&session.Name,
		&session.Picture,
		&session.Provider,
		&tokens,
		&session.CreatedAt,
		&session.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if len(tokens) > 0 {
		if err := json.Unmarshal(tokens, &session.ProviderTokens); err != nil {
			return nil, fmt.Errorf("failed to unmarshal provider tokens: %w", err)
		}
	}

	return session, nil
}

// Delete removes a session by ID (idempotent)
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `
		DELETE FROM sessions
		WHERE id = $1
	`

	_, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// DeleteExpired removes sessions whose expiry has passed
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) error {
	query := `
		DELETE FROM sessions
		WHERE expires_at < $1
	`

	_, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	return nil
}
