package sessions

import (
	"net/http"
	"time"
)

// Session cookie parameters
const (
	CookieName   = "meaux_session"
	CookieMaxAge = 604800 // 7 days, matches DefaultSessionTTL
)

// CookieSetter interface defines methods for session cookie operations
type CookieSetter interface {
	// SetCookie writes the session cookie with the given token and expiry
	SetCookie(w http.ResponseWriter, token string, expire time.Time) error

	// ClearCookie clears the session cookie
	ClearCookie(w http.ResponseWriter) error
}

// BaseCookieSetter provides the default implementation of CookieSetter
type BaseCookieSetter struct {
	Path     string
	HttpOnly bool
	Secure   bool
	SameSite http.SameSite
}

// SetCookie writes the session cookie with the given token and expiry
func (c *BaseCookieSetter) SetCookie(w http.ResponseWriter, token string, expire time.Time) error {
	cookie := &http.Cookie{
		Name:     CookieName,
		Path:     c.Path,
		Value:    token,
		Expires:  expire,
		MaxAge:   CookieMaxAge,
		HttpOnly: c.HttpOnly,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	}

	http.SetCookie(w, cookie)
	return nil
}

// ClearCookie clears the session cookie
func (c *BaseCookieSetter) ClearCookie(w http.ResponseWriter) error {
	cookie := &http.Cookie{
		Name:     CookieName,
		Path:     c.Path,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: c.HttpOnly,
		Secure:   c.Secure,
	}

	http.SetCookie(w, cookie)
	return nil
}

// NewCookieSetter creates a new session cookie setter
func NewCookieSetter(httpOnly, secure bool) CookieSetter {
	return &BaseCookieSetter{
		Path:     "/",
		HttpOnly: httpOnly,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// TokenFromCookie extracts the session token from the request cookie
func TokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
