package superadmin

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for superadmin registry data access.
// There is intentionally no account delete method: accounts deactivate so
// audit entries never dangle.
type Repository interface {
	// CreateAccount persists a new account
	CreateAccount(ctx context.Context, account Account) (*Account, error)

	// GetAccountByEmail retrieves an account by exact email match,
	// active or not. Returns ErrAccountNotFound when absent.
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)

	// GetAccountByID retrieves an account by ID
	GetAccountByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// ListAccounts retrieves all accounts
	ListAccounts(ctx context.Context) ([]Account, error)

	// DeactivateAccount marks an account inactive
	DeactivateAccount(ctx context.Context, id uuid.UUID) error

	// GrantTenantAccess creates or re-enables an access row for the exact pair
	GrantTenantAccess(ctx context.Context, access TenantAccess) error

	// RevokeTenantAccess removes the access row for the exact pair (idempotent)
	RevokeTenantAccess(ctx context.Context, superadminID uuid.UUID, tenantID string) error

	// HasTenantAccess reports whether an enabled row exists for the exact pair
	HasTenantAccess(ctx context.Context, superadminID uuid.UUID, tenantID string) (bool, error)

	// ListTenantAccess retrieves all enabled grants for an account
	ListTenantAccess(ctx context.Context, superadminID uuid.UUID) ([]TenantAccess, error)
}
