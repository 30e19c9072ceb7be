package superadmin

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL superadmin repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

// CreateAccount persists a new account
func (r *PostgresRepository) CreateAccount(ctx context.Context, account Account) (*Account, error) {
	query := `
		INSERT INTO superadmin_accounts (
			id, email, name, role, service_account_email, granted_scopes, is_active
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		) RETURNING
			id, email, name, role, service_account_email, granted_scopes, is_active, created_at
	`

	created := &Account{}
	err := r.pool.QueryRow(ctx, query,
		account.ID,
		account.Email,
		account.Name,
		account.Role,
		account.ServiceAccountEmail,
		account.GrantedScopes,
		account.IsActive,
	).Scan(
		&created.ID,
		&created.Email,
		&created.Name,
		&created.Role,
		&created.ServiceAccountEmail,
		&created.GrantedScopes,
		&created.IsActive,
		&created.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create superadmin account: %w", err)
	}

	return created, nil
}

// GetAccountByEmail retrieves an account by exact email match
func (r *PostgresRepository) GetAccountByEmail(ctx context.Context, email string) (*Account, error) {
	query := `
		SELECT
			id, email, name, role, service_account_email, granted_scopes, is_active, created_at
		FROM superadmin_accounts
		WHERE email = $1
	`

	return r.scanAccount(r.pool.QueryRow(ctx, query, email))
}

// GetAccountByID retrieves an account by ID
func (r *PostgresRepository) GetAccountByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	query := `
		SELECT
			id, email, name, role, service_account_email, granted_scopes, is_active, created_at
		FROM superadmin_accounts
		WHERE id = $1
	`

	return r.scanAccount(r.pool.QueryRow(ctx, query, id))
}

func (r *PostgresRepository) scanAccount(row pgx.Row) (*Account, error) {
	account := &Account{}
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.Name,
		&account.Role,
		&account.ServiceAccountEmail,
		&account.GrantedScopes,
		&account.IsActive,
		&account.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get superadmin account: %w", err)
	}

	return account, nil
}

// ListAccounts retrieves all accounts
func (r *PostgresRepository) ListAccounts(ctx context.Context) ([]Account, error) {
	query := `
		SELECT
			id, email, name, role, service_account_email, granted_scopes, is_active, created_at
		FROM superadmin_accounts
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list superadmin accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var account Account
		err := rows.Scan(
			&account.ID,
			&account.Email,
			&account.Name,
			&account.Role,
			&account.ServiceAccountEmail,
			&account.GrantedScopes,
			&account.IsActive,
			&account.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan superadmin account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating superadmin accounts: %w", rows.Err())
	}

	return accounts, nil
}

// DeactivateAccount marks an account inactive
func (r *PostgresRepository) DeactivateAccount(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE superadmin_accounts
		SET is_active = FALSE
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate superadmin account: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// GrantTenantAccess creates or re-enables an access row for the exact pair
func (r *PostgresRepository) GrantTenantAccess(ctx context.Context, access TenantAccess) error {
	query := `
		INSERT INTO tenant_access (superadmin_id, tenant_id, access_level, enabled)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (superadmin_id, tenant_id)
		DO UPDATE SET access_level = $3, enabled = $4
	`

	_, err := r.pool.Exec(ctx, query,
		access.SuperadminID,
		access.TenantID,
		access.AccessLevel,
		access.Enabled,
	)
	if err != nil {
		return fmt.Errorf("failed to grant tenant access: %w", err)
	}

	return nil
}

// RevokeTenantAccess removes the access row for the exact pair (idempotent)
func (r *PostgresRepository) RevokeTenantAccess(ctx context.Context, superadminID uuid.UUID, tenantID string) error {
	query := `
		DELETE FROM tenant_access
		WHERE superadmin_id = $1
		  AND tenant_id = $2
	`

	_, err := r.pool.Exec(ctx, query, superadminID, tenantID)
	if err != nil {
		return fmt.Errorf("failed to revoke tenant access: %w", err)
	}

	return nil
}

// HasTenantAccess reports whether an enabled row exists for the exact pair
func (r *PostgresRepository) HasTenantAccess(ctx context.Context, superadminID uuid.UUID, tenantID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM tenant_access
			WHERE superadmin_id = $1
			  AND tenant_id = $2
			  AND enabled = TRUE
		)
	`

	var exists bool
	err := r.pool.QueryRow(ctx, query, superadminID, tenantID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check tenant access: %w", err)
	}

	return exists, nil
}

// ListTenantAccess retrieves all enabled grants for an account
func (r *PostgresRepository) ListTenantAccess(ctx context.Context, superadminID uuid.UUID) ([]TenantAccess, error) {
	query := `
		SELECT superadmin_id, tenant_id, access_level, enabled, created_at
		FROM tenant_access
		WHERE superadmin_id = $1
		  AND enabled = TRUE
		ORDER BY tenant_id ASC
	`

	rows, err := r.pool.Query(ctx, query, superadminID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenant access: %w", err)
	}
	defer rows.Close()

	var grants []TenantAccess
	for rows.Next() {
		var access TenantAccess
		err := rows.Scan(
			&access.SuperadminID,
			&access.TenantID,
			&access.AccessLevel,
			&access.Enabled,
			&access.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tenant access: %w", err)
		}
		grants = append(grants, access)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating tenant access: %w", rows.Err())
	}

	return grants, nil
}
