package federation

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
)

// fakeProvider simulates an identity provider's token, userinfo and emails
// endpoints on a single httptest server.
type fakeProvider struct {
	validCode  string
	usedCodes  map[string]bool
	userInfo   map[string]any
	emails     []map[string]any
	emailsPath string
}

func (f *fakeProvider) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		code := r.PostFormValue("code")
		if code != f.validCode || f.usedCodes[code] {
			// GitHub style: 200 with an error payload and no access_token
			json.NewEncoder(w).Encode(map[string]any{"error": "bad_verification_code"})
			return
		}
		f.usedCodes[code] = true
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "provider-access-token",
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	})

	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer provider-access-token" {
			http.Error(w, `{"message":"Bad credentials"}`, http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(f.userInfo)
	})

	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(f.emails)
	})

	return mux
}

func newTestService(t *testing.T, fake *fakeProvider, providerID string) (*Service, func()) {
	t.Helper()

	server := httptest.NewServer(fake.handler())

	provider := &Provider{
		ID:           providerID,
		DisplayName:  "Fake",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		AuthURL:      server.URL + "/authorize",
		TokenURL:     server.URL + "/token",
		UserInfoURL:  server.URL + "/user",
		Enabled:      true,
		Scopes:       []string{"read:user"},
	}
	if fake.emailsPath != "" {
		provider.EmailsURL = server.URL + fake.emailsPath
	}

	service := NewService(WithBaseURL("http://localhost:4000"))
	require.NoError(t, service.RegisterProvider(provider))

	return service, server.Close
}

func TestExchangeGoogleProfile(t *testing.T) {
	fake := &fakeProvider{
		validCode: "code-1",
		usedCodes: map[string]bool{},
		userInfo: map[string]any{
			"id":      "g-12345",
			"email":   "admin@example.com",
			"name":    "Admin User",
			"picture": "https://example.com/avatar.png",
		},
	}
	service, cleanup := newTestService(t, fake, "google")
	defer cleanup()

	identity, err := service.Exchange(context.Background(), "google", "code-1")
	require.NoError(t, err)

	assert.Equal(t, "google", identity.Provider)
	assert.Equal(t, "g-12345", identity.ExternalID)
	assert.Equal(t, "admin@example.com", identity.Email)
	assert.Equal(t, "Admin User", identity.Name)
	assert.Equal(t, "provider-access-token", identity.Tokens.AccessToken)
}

func TestExchangeGitHubVerifiedEmailFallback(t *testing.T) {
	fake := &fakeProvider{
		validCode: "code-1",
		usedCodes: map[string]bool{},
		userInfo: map[string]any{
			"id":    float64(99),
			"login": "octocat",
			// Profile email hidden
			"email": nil,
		},
		emails: []map[string]any{
			{"email": "secondary@example.com", "primary": false, "verified": true},
			{"email": "primary@example.com", "primary": true, "verified": true},
		},
		emailsPath: "/user/emails",
	}
	service, cleanup := newTestService(t, fake, "github")
	defer cleanup()

	identity, err := service.Exchange(context.Background(), "github", "code-1")
	require.NoError(t, err)

	assert.Equal(t, "99", identity.ExternalID)
	assert.Equal(t, "primary@example.com", identity.Email)
	assert.Equal(t, "octocat", identity.Name)
}

func TestExchangeGitHubNoVerifiedEmailPlaceholder(t *testing.T) {
	fake := &fakeProvider{
		validCode: "code-1",
		usedCodes: map[string]bool{},
		userInfo: map[string]any{
			"id":    float64(99),
			"login": "octocat",
		},
		emails: []map[string]any{
			{"email": "unverified@example.com", "primary": true, "verified": false},
		},
		emailsPath: "/user/emails",
	}
	service, cleanup := newTestService(t, fake, "github")
	defer cleanup()

	identity, err := service.Exchange(context.Background(), "github", "code-1")
	require.NoError(t, err)

	// Deterministic non-deliverable placeholder
	assert.Equal(t, "github_99@no-email.invalid", identity.Email)
}

func TestExchangeMissingCode(t *testing.T) {
	service := NewService()

	_, err := service.Exchange(context.Background(), "google", "")
	assert.ErrorIs(t, err, ErrMissingCode)
}

func TestExchangeUnknownProvider(t *testing.T) {
	service := NewService()

	_, err := service.Exchange(context.Background(), "gitlab", "code-1")
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestExchangeCodeReplayRejected(t *testing.T) {
	fake := &fakeProvider{
		validCode: "code-1",
		usedCodes: map[string]bool{},
		userInfo:  map[string]any{"id": "g-1", "email": "a@example.com"},
	}
	service, cleanup := newTestService(t, fake, "google")
	defer cleanup()

	_, err := service.Exchange(context.Background(), "google", "code-1")
	require.NoError(t, err)

	// The provider invalidates the code; its rejection is surfaced, not retried
	_, err = service.Exchange(context.Background(), "google", "code-1")
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "google", upstream.Provider)
}

func TestExchangeMissingAccessToken(t *testing.T) {
	fake := &fakeProvider{
		validCode: "other-code",
		usedCodes: map[string]bool{},
	}
	service, cleanup := newTestService(t, fake, "github")
	defer cleanup()

	_, err := service.Exchange(context.Background(), "github", "wrong-code")
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Contains(t, upstream.Body, "bad_verification_code")
}

func TestAuthorizationURL(t *testing.T) {
	service := NewService(WithBaseURL("https://admin.example.com"))
	require.NoError(t, service.RegisterProvider(NewGoogleProvider("client-id", "client-secret")))

	authURL, err := service.AuthorizationURL("google", "state-123")
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	query := parsed.Query()
	assert.Equal(t, "client-id", query.Get("client_id"))
	assert.Equal(t, "state-123", query.Get("state"))
	assert.Equal(t, "code", query.Get("response_type"))
	assert.Equal(t, "https://admin.example.com/auth/google/callback", query.Get("redirect_uri"))
	assert.Contains(t, query.Get("scope"), GoogleDriveScope)
	assert.Equal(t, "offline", query.Get("access_type"))
}

func TestGenerateStateUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		state, err := GenerateState()
		require.NoError(t, err)
		assert.Len(t, state, 32)
		assert.False(t, seen[state])
		seen[state] = true
	}
}

func TestRegisterProviderValidation(t *testing.T) {
	service := NewService()

	err := service.RegisterProvider(&Provider{ID: "broken", Enabled: true})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "broken"))
}
