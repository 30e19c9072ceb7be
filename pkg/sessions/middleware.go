package sessions

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// contextKey is a value for use with context.WithValue. It's used as
// a pointer so it fits in an interface{} without allocation. This technique
// for defining context keys was copied from Go 1.7's new use of context in net/http.
type contextKey struct {
	name string
}

func (k *contextKey) String() string {
	return "sessions context value " + k.name
}

var sessionKey = &contextKey{"Session"}

// FromContext returns the authenticated session attached by Middleware.Authenticate
func FromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(sessionKey).(*Session)
	return session, ok
}

// Middleware authenticates requests from the session cookie.
// Requests with no valid session are rejected: API paths get 401, page paths
// are redirected to the login path. Storage failures fail closed.
type Middleware struct {
	sessions    *Service
	loginPath   string
	apiPrefixes []string
}

// MiddlewareOption is a function that configures a Middleware
type MiddlewareOption func(*Middleware)

// WithLoginPath sets the redirect target for unauthenticated page requests
func WithLoginPath(path string) MiddlewareOption {
	return func(m *Middleware) {
		m.loginPath = path
	}
}

// WithAPIPrefixes sets the path prefixes treated as API routes (401 instead of redirect)
func WithAPIPrefixes(prefixes ...string) MiddlewareOption {
	return func(m *Middleware) {
		m.apiPrefixes = prefixes
	}
}

// NewMiddleware creates a new session middleware
func NewMiddleware(sessions *Service, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		sessions:    sessions,
		loginPath:   "/login",
		apiPrefixes: []string{"/api", "/superadmin"},
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Authenticate resolves the session cookie into a context-attached session.
// Any lookup failure, including storage being unavailable, is treated as
// "no session" - never as "session valid".
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromCookie(r)
		if token == "" {
			m.reject(w, r)
			return
		}

		session, err := m.sessions.GetSession(r.Context(), token)
		if err != nil {
			if err != ErrSessionNotFound {
				slog.Error("Session lookup failed, failing closed", "path", r.URL.Path, "err", err)
			}
			m.reject(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) reject(w http.ResponseWriter, r *http.Request) {
	if m.isAPIPath(r.URL.Path) {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, m.loginPath, http.StatusFound)
}

func (m *Middleware) isAPIPath(path string) bool {
	for _, prefix := range m.apiPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
