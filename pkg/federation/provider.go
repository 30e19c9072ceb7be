package federation

import (
	"fmt"
	"net/url"
	"strings"
)

// Provider represents an external OAuth2 identity provider configuration
type Provider struct {
	ID              string            `json:"id"`
	DisplayName     string            `json:"display_name"`
	ClientID        string            `json:"client_id"`
	ClientSecret    string            `json:"client_secret"`
	AuthURL         string            `json:"auth_url"`
	TokenURL        string            `json:"token_url"`
	UserInfoURL     string            `json:"user_info_url"`
	EmailsURL       string            `json:"emails_url,omitempty"`
	Scopes          []string          `json:"scopes"`
	ExtraAuthParams map[string]string `json:"extra_auth_params,omitempty"`
	Enabled         bool              `json:"enabled"`
}

// ValidateConfig validates the provider configuration
func (p *Provider) ValidateConfig() error {
	if p.ID == "" {
		return fmt.Errorf("provider ID is required")
	}
	if p.ClientID == "" {
		return fmt.Errorf("client ID is required")
	}
	if p.ClientSecret == "" {
		return fmt.Errorf("client secret is required")
	}
	if _, err := url.Parse(p.AuthURL); err != nil {
		return fmt.Errorf("invalid authorization URL: %w", err)
	}
	if _, err := url.Parse(p.TokenURL); err != nil {
		return fmt.Errorf("invalid token URL: %w", err)
	}
	if _, err := url.Parse(p.UserInfoURL); err != nil {
		return fmt.Errorf("invalid user info URL: %w", err)
	}
	return nil
}

// BuildAuthURL builds the provider authorization redirect URL
func (p *Provider) BuildAuthURL(state, redirectURI string) (string, error) {
	authURL, err := url.Parse(p.AuthURL)
	if err != nil {
		return "", fmt.Errorf("invalid auth URL: %w", err)
	}

	params := url.Values{}
	params.Set("client_id", p.ClientID)
	params.Set("response_type", "code")
	params.Set("redirect_uri", redirectURI)
	params.Set("state", state)

	if len(p.Scopes) > 0 {
		params.Set("scope", strings.Join(p.Scopes, " "))
	}

	for key, value := range p.ExtraAuthParams {
		params.Set(key, value)
	}

	authURL.RawQuery = params.Encode()
	return authURL.String(), nil
}
