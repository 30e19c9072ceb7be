package superadmin

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/meauxhq/meaux-admin/pkg/sessions"
)

type contextKey struct {
	name string
}

func (k *contextKey) String() string {
	return "superadmin context value " + k.name
}

var accountKey = &contextKey{"Account"}

// AccountFromContext returns the elevated account attached by RequireSuperadmin
func AccountFromContext(ctx context.Context) (*Account, bool) {
	account, ok := ctx.Value(accountKey).(*Account)
	return account, ok
}

// Middleware gates admin-only routes on superadmin status
type Middleware struct {
	service *Service
}

// NewMiddleware creates a new elevation middleware
func NewMiddleware(service *Service) *Middleware {
	return &Middleware{
		service: service,
	}
}

// RequireSuperadmin promotes an authenticated request to elevated state.
// The session email must match an active superadmin account exactly;
// everything else, including registry lookup failures, gets 403.
func (m *Middleware) RequireSuperadmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessions.FromContext(r.Context())
		if !ok {
			http.Error(w, "unauthenticated", http.StatusUnauthorized)
			return
		}

		account, err := m.service.IsSuperadmin(r.Context(), session.Email)
		if err != nil {
			if err != ErrNotSuperadmin {
				slog.Error("Superadmin lookup failed, denying", "path", r.URL.Path, "err", err)
			}
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		ctx := context.WithValue(r.Context(), accountKey, account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
