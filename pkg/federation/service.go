// Package federation normalizes OAuth2 authorization-code flows against
// external identity providers into a single identity shape.
package federation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Identity is the normalized result of a successful provider exchange
type Identity struct {
	Provider   string        `json:"provider"`
	ExternalID string        `json:"external_id"`
	Email      string        `json:"email"`
	Name       string        `json:"name"`
	AvatarURL  string        `json:"avatar_url,omitempty"`
	Tokens     TokenResponse `json:"tokens"`
}

// TokenResponse represents the OAuth2 token response from a provider
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
}

// Service handles OAuth2 client flows with external identity providers
type Service struct {
	providers  map[string]*Provider
	baseURL    string
	httpClient *http.Client
}

// Option is a function that configures a Service
type Option func(*Service)

// WithBaseURL sets the public base URL used to build callback URLs
func WithBaseURL(baseURL string) Option {
	return func(s *Service) {
		s.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for provider calls
func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) {
		s.httpClient = client
	}
}

// NewService creates a new identity federation service
func NewService(opts ...Option) *Service {
	service := &Service{
		providers:  make(map[string]*Provider),
		baseURL:    "http://localhost:4000",
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}

	for _, opt := range opts {
		opt(service)
	}

	return service
}

// RegisterProvider adds a provider to the federation
func (s *Service) RegisterProvider(provider *Provider) error {
	if err := provider.ValidateConfig(); err != nil {
		return fmt.Errorf("invalid provider %s: %w", provider.ID, err)
	}
	s.providers[provider.ID] = provider
	return nil
}

// GetProvider returns an enabled provider by id
func (s *Service) GetProvider(providerID string) (*Provider, error) {
	provider, ok := s.providers[providerID]
	if !ok || !provider.Enabled {
		return nil, ErrProviderNotFound
	}
	return provider, nil
}

// AuthorizationURL builds the provider authorization redirect URL
func (s *Service) AuthorizationURL(providerID, state string) (string, error) {
	provider, err := s.GetProvider(providerID)
	if err != nil {
		return "", err
	}

	authURL, err := provider.BuildAuthURL(state, s.callbackURL(providerID))
	if err != nil {
		return "", fmt.Errorf("failed to build auth URL: %w", err)
	}

	slog.Info("Authorization redirect built", "provider", providerID)
	return authURL, nil
}

// Exchange trades an authorization code for a normalized identity.
// Codes are single-use: a replay fails with the provider's own rejection,
// which is surfaced unmodified and never retried.
func (s *Service) Exchange(ctx context.Context, providerID, code string) (*Identity, error) {
	if code == "" {
		return nil, ErrMissingCode
	}

	provider, err := s.GetProvider(providerID)
	if err != nil {
		return nil, err
	}

	tokens, err := s.exchangeCode(ctx, provider, code)
	if err != nil {
		return nil, err
	}

	identity, err := s.fetchIdentity(ctx, provider, tokens.AccessToken)
	if err != nil {
		return nil, err
	}
	identity.Tokens = *tokens

	slog.Info("Identity exchange completed", "provider", providerID, "external_id", identity.ExternalID, "email", identity.Email)
	return identity, nil
}

// GenerateState returns a random state parameter for CSRF protection
func GenerateState() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func (s *Service) callbackURL(providerID string) string {
	return fmt.Sprintf("%s/auth/%s/callback", s.baseURL, providerID)
}

// exchangeCode POSTs the authorization code to the provider token endpoint
func (s *Service) exchangeCode(ctx context.Context, provider *Provider, code string) (*TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("client_id", provider.ClientID)
	data.Set("client_secret", provider.ClientSecret)
	data.Set("code", code)
	data.Set("redirect_uri", s.callbackURL(provider.ID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, provider.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call token endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Provider: provider.ID, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tokens TokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	// GitHub reports code errors with a 200 status and an error field,
	// so an absent access token is the reliable failure signal.
	if tokens.AccessToken == "" {
		return nil, &UpstreamError{Provider: provider.ID, StatusCode: resp.StatusCode, Body: string(body)}
	}

	return &tokens, nil
}

// fetchIdentity retrieves and normalizes the provider's user profile
func (s *Service) fetchIdentity(ctx context.Context, provider *Provider, accessToken string) (*Identity, error) {
	body, err := s.getJSON(ctx, provider, provider.UserInfoURL, accessToken)
	if err != nil {
		return nil, err
	}

	identity, err := parseIdentity(provider, body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse user info: %w", err)
	}

	if identity.Email == "" && provider.EmailsURL != "" {
		identity.Email, err = s.lookupVerifiedEmail(ctx, provider, accessToken)
		if err != nil {
			return nil, err
		}
	}

	// Deterministic non-deliverable placeholder; callers must never send
	// mail to it.
	if identity.Email == "" {
		identity.Email = fmt.Sprintf("%s_%s@no-email.invalid", provider.ID, identity.ExternalID)
	}

	return identity, nil
}

// lookupVerifiedEmail queries the provider's verified-emails endpoint and
// selects the primary-and-verified entry, if any.
func (s *Service) lookupVerifiedEmail(ctx context.Context, provider *Provider, accessToken string) (string, error) {
	body, err := s.getJSON(ctx, provider, provider.EmailsURL, accessToken)
	if err != nil {
		return "", err
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := json.Unmarshal(body, &emails); err != nil {
		return "", fmt.Errorf("failed to parse emails response: %w", err)
	}

	for _, entry := range emails {
		if entry.Primary && entry.Verified {
			return entry.Email, nil
		}
	}

	return "", nil
}

func (s *Service) getJSON(ctx context.Context, provider *Provider, endpoint, accessToken string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Provider: provider.ID, StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

// parseIdentity normalizes provider-specific profile shapes
func parseIdentity(provider *Provider, data []byte) (*Identity, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user info: %w", err)
	}

	identity := &Identity{
		Provider: provider.ID,
	}

	switch provider.ID {
	case "google":
		identity.ExternalID = getStringValue(raw, "id")
		identity.Email = getStringValue(raw, "email")
		identity.Name = getStringValue(raw, "name")
		identity.AvatarURL = getStringValue(raw, "picture")

	case "github":
		// GitHub ids are numeric in JSON
		identity.ExternalID = fmt.Sprintf("%v", raw["id"])
		identity.Email = getStringValue(raw, "email")
		identity.Name = getStringValue(raw, "name")
		if identity.Name == "" {
			identity.Name = getStringValue(raw, "login")
		}
		identity.AvatarURL = getStringValue(raw, "avatar_url")

	default:
		identity.ExternalID = getStringValue(raw, "sub")
		if identity.ExternalID == "" {
			identity.ExternalID = getStringValue(raw, "id")
		}
		identity.Email = getStringValue(raw, "email")
		identity.Name = getStringValue(raw, "name")
		identity.AvatarURL = getStringValue(raw, "picture")
	}

	if identity.ExternalID == "" || identity.ExternalID == "<nil>" {
		return nil, fmt.Errorf("no external ID found in user info")
	}

	return identity, nil
}

func getStringValue(data map[string]any, key string) string {
	if val, ok := data[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}
