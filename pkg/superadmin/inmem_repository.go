package superadmin

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type tenantKey struct {
	superadminID uuid.UUID
	tenantID     string
}

// InMemoryRepository implements Repository using in-memory storage
type InMemoryRepository struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]Account
	grants   map[tenantKey]TenantAccess
}

// NewInMemoryRepository creates a new in-memory superadmin repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		accounts: make(map[uuid.UUID]Account),
		grants:   make(map[tenantKey]TenantAccess),
	}
}

// CreateAccount persists a new account
func (r *InMemoryRepository) CreateAccount(ctx context.Context, account Account) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.accounts {
		if existing.Email == account.Email {
			return nil, ErrEmailAlreadyExists{Email: account.Email}
		}
	}

	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	r.accounts[account.ID] = account

	copied := account
	return &copied, nil
}

// GetAccountByEmail retrieves an account by exact email match
func (r *InMemoryRepository) GetAccountByEmail(ctx context.Context, email string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, account := range r.accounts {
		if account.Email == email {
			copied := account
			return &copied, nil
		}
	}
	return nil, ErrAccountNotFound
}

// GetAccountByID retrieves an account by ID
func (r *InMemoryRepository) GetAccountByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}

	copied := account
	return &copied, nil
}

// ListAccounts retrieves all accounts
func (r *InMemoryRepository) ListAccounts(ctx context.Context) ([]Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	accounts := make([]Account, 0, len(r.accounts))
	for _, account := range r.accounts {
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// DeactivateAccount marks an account inactive
func (r *InMemoryRepository) DeactivateAccount(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}

	account.IsActive = false
	r.accounts[id] = account
	return nil
}

// GrantTenantAccess creates or re-enables an access row for the exact pair
func (r *InMemoryRepository) GrantTenantAccess(ctx context.Context, access TenantAccess) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if access.CreatedAt.IsZero() {
		access.CreatedAt = time.Now().UTC()
	}
	r.grants[tenantKey{access.SuperadminID, access.TenantID}] = access
	return nil
}

// RevokeTenantAccess removes the access row for the exact pair (idempotent)
func (r *InMemoryRepository) RevokeTenantAccess(ctx context.Context, superadminID uuid.UUID, tenantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.grants, tenantKey{superadminID, tenantID})
	return nil
}

// HasTenantAccess reports whether an enabled row exists for the exact pair
func (r *InMemoryRepository) HasTenantAccess(ctx context.Context, superadminID uuid.UUID, tenantID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	access, ok := r.grants[tenantKey{superadminID, tenantID}]
	return ok && access.Enabled, nil
}

// ListTenantAccess retrieves all enabled grants for an account
func (r *InMemoryRepository) ListTenantAccess(ctx context.Context, superadminID uuid.UUID) ([]TenantAccess, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var grants []TenantAccess
	for key, access := range r.grants {
		if key.superadminID == superadminID && access.Enabled {
			grants = append(grants, access)
		}
	}
	return grants, nil
}
