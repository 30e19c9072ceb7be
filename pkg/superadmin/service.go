package superadmin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Service provides the superadmin registry and per-tenant authorization.
// Authorization is default-deny throughout: only an active exact-email
// account is elevated, and tenant access exists only where an explicit
// enabled grant exists.
type Service struct {
	repo Repository
}

// NewService creates a new superadmin service
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
	}
}

// IsSuperadmin returns the account elevated for the given email.
// Only active accounts match, by exact email; there is no role hierarchy
// and no derived admin-of-admin status. Returns ErrNotSuperadmin otherwise.
func (s *Service) IsSuperadmin(ctx context.Context, email string) (*Account, error) {
	if email == "" {
		return nil, ErrNotSuperadmin
	}

	account, err := s.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrNotSuperadmin
		}
		return nil, err
	}

	if !account.IsActive {
		return nil, ErrNotSuperadmin
	}

	return account, nil
}

// HasTenantAccess reports whether the account holds an explicit enabled grant
// for exactly this tenant. Storage errors deny access (fail closed).
func (s *Service) HasTenantAccess(ctx context.Context, superadminID uuid.UUID, tenantID string) (bool, error) {
	if tenantID == "" {
		return false, nil
	}

	allowed, err := s.repo.HasTenantAccess(ctx, superadminID, tenantID)
	if err != nil {
		slog.Error("Tenant access check failed, denying", "superadmin_id", superadminID, "tenant_id", tenantID, "err", err)
		return false, err
	}

	return allowed, nil
}

// CreateAccount creates a new superadmin account. Callers must already hold
// superadmin status; the HTTP layer enforces that, so self-elevation through
// this interface is impossible. The first account is provisioned out-of-band.
func (s *Service) CreateAccount(ctx context.Context, req CreateAccountRequest) (*Account, error) {
	if req.Email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if req.Name == "" {
		return nil, fmt.Errorf("name is required")
	}

	role := req.Role
	if role == "" {
		role = DefaultRole
	}

	account := Account{
		ID:                  uuid.New(),
		Email:               req.Email,
		Name:                req.Name,
		Role:                role,
		ServiceAccountEmail: req.ServiceAccountEmail,
		GrantedScopes:       req.GrantedScopes,
		IsActive:            true,
	}

	created, err := s.repo.CreateAccount(ctx, account)
	if err != nil {
		return nil, err
	}

	slog.Info("Superadmin account created", "id", created.ID, "email", created.Email, "role", created.Role)
	return created, nil
}

// ListAccounts retrieves all registered accounts
func (s *Service) ListAccounts(ctx context.Context) ([]Account, error) {
	return s.repo.ListAccounts(ctx)
}

// GetAccount retrieves an account by ID
func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.repo.GetAccountByID(ctx, id)
}

// DeactivateAccount marks an account inactive. Accounts are never hard-deleted.
func (s *Service) DeactivateAccount(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeactivateAccount(ctx, id)
}

// GrantTenantAccess creates an explicit enabled grant for the exact pair
func (s *Service) GrantTenantAccess(ctx context.Context, req GrantTenantAccessRequest) (*TenantAccess, error) {
	if req.SuperadminID == uuid.Nil {
		return nil, fmt.Errorf("account_id is required")
	}
	if req.TenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}

	if _, err := s.repo.GetAccountByID(ctx, req.SuperadminID); err != nil {
		return nil, err
	}

	accessLevel := req.AccessLevel
	if accessLevel == "" {
		accessLevel = "full"
	}

	access := TenantAccess{
		SuperadminID: req.SuperadminID,
		TenantID:     req.TenantID,
		AccessLevel:  accessLevel,
		Enabled:      true,
	}

	if err := s.repo.GrantTenantAccess(ctx, access); err != nil {
		return nil, err
	}

	slog.Info("Tenant access granted", "superadmin_id", access.SuperadminID, "tenant_id", access.TenantID, "access_level", access.AccessLevel)
	return &access, nil
}

// RevokeTenantAccess removes the grant for the exact pair (idempotent)
func (s *Service) RevokeTenantAccess(ctx context.Context, superadminID uuid.UUID, tenantID string) error {
	if err := s.repo.RevokeTenantAccess(ctx, superadminID, tenantID); err != nil {
		return err
	}

	slog.Info("Tenant access revoked", "superadmin_id", superadminID, "tenant_id", tenantID)
	return nil
}

// ListTenantAccess retrieves all enabled grants for an account
func (s *Service) ListTenantAccess(ctx context.Context, superadminID uuid.UUID) ([]TenantAccess, error) {
	return s.repo.ListTenantAccess(ctx, superadminID)
}

// EnsureAccount creates an account for the given email if none exists.
// Used for out-of-band seeding of the first superadmin at startup.
func (s *Service) EnsureAccount(ctx context.Context, email, name string) (*Account, error) {
	existing, err := s.repo.GetAccountByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	return s.CreateAccount(ctx, CreateAccountRequest{Email: email, Name: name})
}
