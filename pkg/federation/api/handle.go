// Package api exposes the identity federation HTTP endpoints under /auth.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/meauxhq/meaux-admin/pkg/federation"
	"github.com/meauxhq/meaux-admin/pkg/sessions"
)

// StateCookieName carries the CSRF state parameter across the redirect
const StateCookieName = "meaux_oauth_state"

// stateCookieMaxAge bounds how long an initiated flow stays redeemable
const stateCookieMaxAge = 600

// Handle handles the OAuth2 login endpoints
type Handle struct {
	federation   *federation.Service
	sessions     *sessions.Service
	cookieSetter sessions.CookieSetter
	landingURL   string
	secureCookie bool
}

// Option is a function that configures a Handle
type Option func(*Handle)

// WithLandingURL sets the post-login redirect target
func WithLandingURL(landingURL string) Option {
	return func(h *Handle) {
		h.landingURL = landingURL
	}
}

// WithSecureCookie controls the Secure attribute on the state cookie
func WithSecureCookie(secure bool) Option {
	return func(h *Handle) {
		h.secureCookie = secure
	}
}

// NewHandle creates a new federation API handle
func NewHandle(federationService *federation.Service, sessionService *sessions.Service, cookieSetter sessions.CookieSetter, opts ...Option) *Handle {
	h := &Handle{
		federation:   federationService,
		sessions:     sessionService,
		cookieSetter: cookieSetter,
		landingURL:   "/admin",
		secureCookie: true,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Handler returns the /auth router
func Handler(h *Handle) http.Handler {
	r := chi.NewRouter()
	r.Get("/logout", h.Logout)
	r.Get("/{provider}", h.Authorize)
	r.Get("/{provider}/callback", h.Callback)
	return r
}

// Authorize redirects the client to the provider's authorization URL
func (h *Handle) Authorize(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "provider")

	state, err := federation.GenerateState()
	if err != nil {
		slog.Error("Failed to generate state", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	authURL, err := h.federation.AuthorizationURL(providerID, state)
	if err != nil {
		http.Error(w, "unknown provider", http.StatusNotFound)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Path:     "/auth",
		Value:    state,
		MaxAge:   stateCookieMaxAge,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback exchanges the authorization code, creates a session, and sets the
// session cookie
func (h *Handle) Callback(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "provider")

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	if !h.validState(r) {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}

	identity, err := h.federation.Exchange(r.Context(), providerID, code)
	if err != nil {
		var upstream *federation.UpstreamError
		if errors.As(err, &upstream) {
			slog.Error("Provider exchange failed", "provider", providerID, "status", upstream.StatusCode, "body", truncate(upstream.Body, 512))
			http.Error(w, "identity provider error", http.StatusBadGateway)
			return
		}
		if errors.Is(err, federation.ErrProviderNotFound) {
			http.Error(w, "unknown provider", http.StatusNotFound)
			return
		}
		slog.Error("Identity exchange failed", "provider", providerID, "err", err)
		http.Error(w, "login failed", http.StatusBadGateway)
		return
	}

	session, err := h.sessions.CreateSession(r.Context(), sessions.CreateSessionRequest{
		UserID:   identity.ExternalID,
		Email:    identity.Email,
		Name:     identity.Name,
		Picture:  identity.AvatarURL,
		Provider: sessions.Provider(providerID),
		ProviderTokens: sessions.ProviderTokens{
			AccessToken:  identity.Tokens.AccessToken,
			RefreshToken: identity.Tokens.RefreshToken,
			TokenType:    identity.Tokens.TokenType,
			Expiry:       providerTokenExpiry(identity.Tokens.ExpiresIn),
		},
	})
	if err != nil {
		slog.Error("Failed to create session", "provider", providerID, "err", err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	h.clearStateCookie(w)
	h.cookieSetter.SetCookie(w, session.ID, session.ExpiresAt)
	http.Redirect(w, r, h.landingURL, http.StatusFound)
}

// Logout invalidates the session and clears the cookie.
// Always succeeds from the client's perspective.
func (h *Handle) Logout(w http.ResponseWriter, r *http.Request) {
	if token := sessions.TokenFromCookie(r); token != "" {
		if err := h.sessions.DeleteSession(r.Context(), token); err != nil {
			slog.Error("Failed to delete session on logout", "err", err)
		}
	}

	h.cookieSetter.ClearCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

// validState compares the state query parameter against the flow cookie.
// A missing cookie fails the check: the flow must have been initiated here.
func (h *Handle) validState(r *http.Request) bool {
	cookie, err := r.Cookie(StateCookieName)
	if err != nil {
		return false
	}
	return cookie.Value != "" && cookie.Value == r.URL.Query().Get("state")
}

func (h *Handle) clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Path:     "/auth",
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
	})
}

func providerTokenExpiry(expiresIn int) time.Time {
	if expiresIn <= 0 {
		return time.Time{}
	}
	return time.Now().UTC().Add(time.Duration(expiresIn) * time.Second)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
