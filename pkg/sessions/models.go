package sessions

import (
	"time"
)

// Provider identifies the identity provider a session was federated from
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderGitHub Provider = "github"
)

// ProviderTokens holds the raw OAuth2 tokens returned by the identity provider.
// They are stored with the session so delegated flows can reuse the refresh token.
type ProviderTokens struct {
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

// Session represents a durable authenticated binding between a client and an identity.
// The ID is the opaque token stored in the session cookie.
type Session struct {
	ID             string         `json:"id"`
	UserID         string         `json:"user_id"`
	Email          string         `json:"email"`
	Name           string         `json:"name"`
	Picture        string         `json:"picture,omitempty"`
	Provider       Provider       `json:"provider"`
	ProviderTokens ProviderTokens `json:"provider_tokens,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	ExpiresAt      time.Time      `json:"expires_at"`
}

// IsExpired reports whether the session's absolute expiry has passed
func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// CreateSessionRequest represents the request to create a new session
type CreateSessionRequest struct {
	UserID         string         `json:"user_id"`
	Email          string         `json:"email"`
	Name           string         `json:"name"`
	Picture        string         `json:"picture,omitempty"`
	Provider       Provider       `json:"provider"`
	ProviderTokens ProviderTokens `json:"provider_tokens,omitempty"`
}
