package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL audit repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

// Insert appends a new audit entry
func (r *PostgresRepository) Insert(ctx context.Context, entry Entry) error {
	query := `
		INSERT INTO audit_log (
			id, superadmin_id, action, resource_type, resource_id,
			ip, user_agent, metadata, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	var metadata []byte
	if entry.Metadata != nil {
		var err error
		metadata, err = json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal audit metadata: %w", err)
		}
	}

	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.SuperadminID,
		entry.Action,
		entry.ResourceType,
		entry.ResourceID,
		entry.IP,
		entry.UserAgent,
		metadata,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	return nil
}

// List retrieves entries ordered newest first, with pagination
func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]Entry, error) {
	query := `
		SELECT
			id, superadmin_id, action, resource_type, resource_id,
			ip, user_agent, metadata, created_at
		FROM audit_log
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var metadata []byte

		err := rows.Scan(
			&entry.ID,
			&entry.SuperadminID,
			&entry.Action,
			&entry.ResourceType,
			&entry.ResourceID,
			&entry.IP,
			&entry.UserAgent,
			&metadata,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit metadata: %w", err)
			}
		}

		entries = append(entries, entry)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", rows.Err())
	}

	return entries, nil
}

// Count returns the total number of entries
func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM audit_log
	`

	var count int64
	err := r.pool.QueryRow(ctx, query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	return count, nil
}
