package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meauxhq/meaux-admin/pkg/federation"
	"github.com/meauxhq/meaux-admin/pkg/sessions"
)

func newLoginEnv(t *testing.T) (http.Handler, *sessions.Service, func()) {
	t.Helper()

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/token"):
			r.ParseForm()
			if r.PostFormValue("code") != "good-code" {
				json.NewEncoder(w).Encode(map[string]any{"error": "bad_verification_code"})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": "provider-token",
				"token_type":   "bearer",
				"expires_in":   3600,
			})
		case strings.HasSuffix(r.URL.Path, "/user"):
			json.NewEncoder(w).Encode(map[string]any{
				"id":    "g-1",
				"email": "admin@example.com",
				"name":  "Admin",
			})
		default:
			http.NotFound(w, r)
		}
	}))

	federationService := federation.NewService(federation.WithBaseURL("http://localhost:4000"))
	require.NoError(t, federationService.RegisterProvider(&federation.Provider{
		ID:           "google",
		DisplayName:  "Google",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		AuthURL:      provider.URL + "/authorize",
		TokenURL:     provider.URL + "/token",
		UserInfoURL:  provider.URL + "/user",
		Enabled:      true,
	}))

	sessionService := sessions.NewService(sessions.NewInMemoryRepository())
	handle := NewHandle(federationService, sessionService, sessions.NewCookieSetter(true, false),
		WithSecureCookie(false),
		WithLandingURL("/admin"),
	)

	return Handler(handle), sessionService, provider.Close
}

func TestAuthorizeSetsStateCookie(t *testing.T) {
	router, _, cleanup := newLoginEnv(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/google", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")
	assert.NotEmpty(t, state)

	var stateCookie *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == StateCookieName {
			stateCookie = cookie
		}
	}
	require.NotNil(t, stateCookie)
	assert.Equal(t, state, stateCookie.Value)
	assert.True(t, stateCookie.HttpOnly)
}

func TestAuthorizeUnknownProvider(t *testing.T) {
	router, _, cleanup := newLoginEnv(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/gitlab", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCallbackCreatesSession(t *testing.T) {
	router, sessionService, cleanup := newLoginEnv(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/google/callback?code=good-code&state=state-1", nil)
	req.AddCookie(&http.Cookie{Name: StateCookieName, Value: "state-1"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))

	var sessionCookie *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == sessions.CookieName {
			sessionCookie = cookie
		}
	}
	require.NotNil(t, sessionCookie)
	assert.True(t, sessionCookie.HttpOnly)

	session, err := sessionService.GetSession(context.Background(), sessionCookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", session.Email)
	assert.Equal(t, sessions.ProviderGoogle, session.Provider)
}

func TestCallbackMissingCode(t *testing.T) {
	router, _, cleanup := newLoginEnv(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/google/callback?state=state-1", nil)
	req.AddCookie(&http.Cookie{Name: StateCookieName, Value: "state-1"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallbackStateMismatch(t *testing.T) {
	router, _, cleanup := newLoginEnv(t)
	defer cleanup()

	// Cookie and query disagree
	req := httptest.NewRequest(http.MethodGet, "/google/callback?code=good-code&state=tampered", nil)
	req.AddCookie(&http.Cookie{Name: StateCookieName, Value: "state-1"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Missing cookie entirely: the flow was not initiated here
	req = httptest.NewRequest(http.MethodGet, "/google/callback?code=good-code&state=state-1", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallbackProviderRejection(t *testing.T) {
	router, _, cleanup := newLoginEnv(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/google/callback?code=replayed-code&state=state-1", nil)
	req.AddCookie(&http.Cookie{Name: StateCookieName, Value: "state-1"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestLogout(t *testing.T) {
	router, sessionService, cleanup := newLoginEnv(t)
	defer cleanup()

	session, err := sessionService.CreateSession(context.Background(), sessions.CreateSessionRequest{
		UserID:   "g-1",
		Email:    "admin@example.com",
		Provider: sessions.ProviderGoogle,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: sessions.CookieName, Value: session.ID})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)

	_, err = sessionService.GetSession(context.Background(), session.ID)
	assert.ErrorIs(t, err, sessions.ErrSessionNotFound)

	var cleared *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == sessions.CookieName {
			cleared = cookie
		}
	}
	require.NotNil(t, cleared)
	assert.True(t, cleared.MaxAge < 0)

	// Logout without a session still redirects cleanly
	req = httptest.NewRequest(http.MethodGet, "/logout", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusFound, rec.Code)
}
