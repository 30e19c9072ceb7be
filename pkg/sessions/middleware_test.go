package sessions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := FromContext(r.Context())
		require.True(t, ok, "session must be attached to context")
		require.NotEmpty(t, session.Email)
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticateValidSession(t *testing.T) {
	service := NewService(NewInMemoryRepository())
	session, err := service.CreateSession(context.Background(), CreateSessionRequest{
		UserID:   "ext-1",
		Email:    "admin@example.com",
		Provider: ProviderGoogle,
	})
	require.NoError(t, err)

	middleware := NewMiddleware(service)

	req := httptest.NewRequest(http.MethodGet, "/superadmin/status", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: session.ID})
	rec := httptest.NewRecorder()

	middleware.Authenticate(okHandler(t)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthenticateNoCookieAPIPath(t *testing.T) {
	middleware := NewMiddleware(NewService(NewInMemoryRepository()))

	req := httptest.NewRequest(http.MethodGet, "/superadmin/status", nil)
	rec := httptest.NewRecorder()

	middleware.Authenticate(okHandler(t)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateNoCookiePagePath(t *testing.T) {
	middleware := NewMiddleware(NewService(NewInMemoryRepository()), WithLoginPath("/auth/google"))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	rec := httptest.NewRecorder()

	middleware.Authenticate(okHandler(t)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/google", rec.Header().Get("Location"))
}

func TestAuthenticateExpiredSession(t *testing.T) {
	service := NewService(NewInMemoryRepository(), WithTTL(-time.Minute))
	session, err := service.CreateSession(context.Background(), CreateSessionRequest{
		UserID:   "ext-1",
		Email:    "admin@example.com",
		Provider: ProviderGoogle,
	})
	require.NoError(t, err)

	middleware := NewMiddleware(service)

	req := httptest.NewRequest(http.MethodGet, "/superadmin/status", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: session.ID})
	rec := httptest.NewRecorder()

	middleware.Authenticate(okHandler(t)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateStorageFailureFailsClosed(t *testing.T) {
	middleware := NewMiddleware(NewService(failingRepository{}))

	req := httptest.NewRequest(http.MethodGet, "/superadmin/status", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "sometoken"})
	rec := httptest.NewRecorder()

	middleware.Authenticate(okHandler(t)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCookieSetter(t *testing.T) {
	setter := NewCookieSetter(true, true)
	rec := httptest.NewRecorder()

	setter.SetCookie(rec, "token-value", time.Now().Add(time.Hour))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, CookieName, cookie.Name)
	assert.Equal(t, "token-value", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)

	rec = httptest.NewRecorder()
	setter.ClearCookie(rec)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].MaxAge < 0)
}

type failingRepository struct{}

func (failingRepository) Create(ctx context.Context, session Session) error {
	return assert.AnError
}

func (failingRepository) GetByID(ctx context.Context, id string) (*Session, error) {
	return nil, assert.AnError
}

func (failingRepository) Delete(ctx context.Context, id string) error {
	return assert.AnError
}

func (failingRepository) DeleteExpired(ctx context.Context, now time.Time) error {
	return assert.AnError
}
