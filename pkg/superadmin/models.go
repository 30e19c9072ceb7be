package superadmin

import (
	"time"

	"github.com/google/uuid"
)

// DefaultRole is the role assigned when an account is created without one
const DefaultRole = "superadmin"

// Account represents a platform-level elevated identity.
// Accounts are deactivated, never hard-deleted, so audit entries keep
// a valid linkage to the account that performed them.
type Account struct {
	ID                  uuid.UUID `json:"id"`
	Email               string    `json:"email"`
	Name                string    `json:"name"`
	Role                string    `json:"role"`
	ServiceAccountEmail string    `json:"service_account_email,omitempty"`
	GrantedScopes       []string  `json:"granted_scopes,omitempty"`
	IsActive            bool      `json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
}

// TenantAccess represents an explicit per-(account, tenant) grant.
// Access exists iff an enabled row exists for that exact pair; there is
// no inheritance and no wildcard.
type TenantAccess struct {
	SuperadminID uuid.UUID `json:"superadmin_id"`
	TenantID     string    `json:"tenant_id"`
	AccessLevel  string    `json:"access_level"`
	Enabled      bool      `json:"enabled"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateAccountRequest represents the request to create a superadmin account
type CreateAccountRequest struct {
	Email               string   `json:"email"`
	Name                string   `json:"name"`
	Role                string   `json:"role,omitempty"`
	ServiceAccountEmail string   `json:"service_account_email,omitempty"`
	GrantedScopes       []string `json:"granted_scopes,omitempty"`
}

// GrantTenantAccessRequest represents the request to grant tenant access
type GrantTenantAccessRequest struct {
	SuperadminID uuid.UUID `json:"account_id"`
	TenantID     string    `json:"tenant_id"`
	AccessLevel  string    `json:"access_level,omitempty"`
}
