// Package credbroker mints and caches delegated cloud access tokens via the
// OAuth2 JWT-bearer assertion flow, so no long-lived cloud credential is ever
// stored per human session.
package credbroker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// JWTBearerGrantType is the OAuth2 grant type for self-signed assertion exchange
const JWTBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// DefaultAssertionTTL is the assertion validity claimed in the signed JWT.
// The provider may grant a shorter token lifetime; the cache always uses the
// lifetime the provider reports, never this claim.
const DefaultAssertionTTL = time.Hour

// Broker exchanges signed assertions for delegated access tokens and caches
// the results per session in an append-only durable store.
type Broker struct {
	repo                Repository
	signer              Signer
	serviceAccountEmail string
	tokenURL            string
	scope               string
	httpClient          *http.Client
	assertionTTL        time.Duration
	group               singleflight.Group
	now                 func() time.Time
}

// BrokerOption is a function that configures a Broker
type BrokerOption func(*Broker)

// WithHTTPClient sets the HTTP client used for token endpoint calls
func WithHTTPClient(client *http.Client) BrokerOption {
	return func(b *Broker) {
		b.httpClient = client
	}
}

// WithAssertionTTL sets the expiry claimed in signed assertions
func WithAssertionTTL(ttl time.Duration) BrokerOption {
	return func(b *Broker) {
		b.assertionTTL = ttl
	}
}

// WithClock overrides the broker's clock (tests)
func WithClock(now func() time.Time) BrokerOption {
	return func(b *Broker) {
		b.now = now
	}
}

// NewBroker creates a new credential broker. A nil signer or empty
// service-account identity leaves the broker in a degraded state where
// GetToken returns ErrNotConfigured; nothing crashes.
func NewBroker(repo Repository, signer Signer, serviceAccountEmail, tokenURL, scope string, opts ...BrokerOption) *Broker {
	broker := &Broker{
		repo:                repo,
		signer:              signer,
		serviceAccountEmail: serviceAccountEmail,
		tokenURL:            tokenURL,
		scope:               scope,
		httpClient:          &http.Client{Timeout: 15 * time.Second},
		assertionTTL:        DefaultAssertionTTL,
		now:                 time.Now,
	}

	for _, opt := range opts {
		opt(broker)
	}

	return broker
}

// Configured reports whether the broker can mint tokens
func (b *Broker) Configured() bool {
	return b.signer != nil && b.serviceAccountEmail != "" && b.tokenURL != ""
}

// GetToken returns a delegated access token for the session, reusing the
// freshest cached non-expired token when one exists and minting otherwise.
// Concurrent first-time mints for the same session are coalesced per process;
// duplicate mints across processes remain correct, each token is
// independently valid.
func (b *Broker) GetToken(ctx context.Context, sessionID string) (*CachedToken, error) {
	if !b.Configured() {
		return nil, ErrNotConfigured
	}
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}

	cached, err := b.repo.GetFreshest(ctx, sessionID, b.now().UTC())
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrTokenNotFound) {
		return nil, err
	}

	result, err, _ := b.group.Do(sessionID, func() (any, error) {
		// Re-check under the flight: another caller may have minted already.
		if cached, err := b.repo.GetFreshest(ctx, sessionID, b.now().UTC()); err == nil {
			return cached, nil
		}
		return b.mint(ctx, sessionID)
	})
	if err != nil {
		return nil, err
	}

	return result.(*CachedToken), nil
}

// mint signs a JWT-bearer assertion, exchanges it at the token endpoint, and
// appends the result to the cache.
func (b *Broker) mint(ctx context.Context, sessionID string) (*CachedToken, error) {
	now := b.now().UTC()

	claims := jwt.MapClaims{
		"iss":   b.serviceAccountEmail,
		"scope": b.scope,
		"aud":   b.tokenURL,
		"iat":   now.Unix(),
		"exp":   now.Add(b.assertionTTL).Unix(),
	}

	assertion, err := b.signer.Sign(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to sign assertion: %w", err)
	}

	accessToken, lifetime, err := b.exchangeAssertion(ctx, assertion)
	if err != nil {
		return nil, err
	}

	token := CachedToken{
		ID:          uuid.New(),
		SessionID:   sessionID,
		AccessToken: accessToken,
		// Expiry comes from the provider-reported lifetime against the
		// current clock. The assertion's own exp claim is irrelevant here:
		// the provider may shorten the grant.
		ExpiresAt: b.now().UTC().Add(lifetime),
		Scope:     b.scope,
		CreatedAt: b.now().UTC(),
	}

	if err := b.repo.Insert(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to cache delegated token: %w", err)
	}

	slog.Info("Delegated token minted", "session_id_prefix", sessionIDPrefix(sessionID), "expires_at", token.ExpiresAt)
	return &token, nil
}

// exchangeAssertion POSTs the signed assertion to the token endpoint
func (b *Broker) exchangeAssertion(ctx context.Context, assertion string) (string, time.Duration, error) {
	data := url.Values{}
	data.Set("grant_type", JWTBearerGrantType)
	data.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("failed to call token endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", 0, &TokenEndpointError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tokenResponse struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(body, &tokenResponse); err != nil {
		return "", 0, fmt.Errorf("failed to parse token response: %w", err)
	}

	if tokenResponse.AccessToken == "" {
		return "", 0, &TokenEndpointError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return tokenResponse.AccessToken, time.Duration(tokenResponse.ExpiresIn) * time.Second, nil
}

// CleanupExpired prunes cache rows that expired before now (maintenance task)
func (b *Broker) CleanupExpired(ctx context.Context) error {
	return b.repo.DeleteExpiredBefore(ctx, b.now().UTC())
}

func sessionIDPrefix(sessionID string) string {
	if len(sessionID) > 8 {
		return sessionID[:8]
	}
	return sessionID
}
