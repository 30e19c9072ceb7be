// Package config defines the environment-driven configuration for the admin
// service. Structs are tagged for cleanenv; secrets are read but never logged.
package config

import (
	"fmt"
)

// DbConfig holds the postgres connection settings
type DbConfig struct {
	Host     string `env:"ADMIN_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"ADMIN_PG_PORT" env-default:"5432"`
	Database string `env:"ADMIN_PG_DATABASE" env-default:"admin_db"`
	User     string `env:"ADMIN_PG_USER" env-default:"admin"`
	Password string `env:"ADMIN_PG_PASSWORD" env-default:"pwd"`
	Schema   string `env:"ADMIN_PG_SCHEMA" env-default:"public"`
}

// ToDatabaseURL builds a pgx connection URL from the settings
func (d DbConfig) ToDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s,public",
		d.User, d.Password, d.Host, d.Port, d.Database, d.Schema)
}

// SessionConfig holds session and cookie settings
type SessionConfig struct {
	CookieHttpOnly bool   `env:"COOKIE_HTTP_ONLY" env-default:"true"`
	CookieSecure   bool   `env:"COOKIE_SECURE" env-default:"true"`
	TTL            string `env:"SESSION_TTL" env-default:"168h"`
}

// ProviderConfig holds OAuth2 client credentials for the identity providers
type ProviderConfig struct {
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleEnabled      bool   `env:"GOOGLE_ENABLED" env-default:"true"`

	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	GitHubEnabled      bool   `env:"GITHUB_ENABLED" env-default:"true"`
}

// BrokerConfig holds the service-account identity used to mint delegated
// cloud tokens. PrivateKeyFile points at a PEM-encoded RSA key; when the
// identity is incomplete the broker runs unconfigured and delegated
// endpoints degrade instead of failing startup.
type BrokerConfig struct {
	ServiceAccountEmail string `env:"BROKER_SERVICE_ACCOUNT_EMAIL"`
	PrivateKeyFile      string `env:"BROKER_PRIVATE_KEY_FILE"`
	TokenURL            string `env:"BROKER_TOKEN_URL" env-default:"https://oauth2.googleapis.com/token"`
	Scope               string `env:"BROKER_SCOPE" env-default:"https://www.googleapis.com/auth/drive"`
	APIHostSuffix       string `env:"BROKER_API_HOST_SUFFIX" env-default:".googleapis.com"`
}

// Config is the full admin service configuration
type Config struct {
	BaseUrl             string `env:"BASE_URL" env-default:"http://localhost:4000"`
	LandingURL          string `env:"LANDING_URL" env-default:"/admin"`
	LoginPath           string `env:"LOGIN_PATH" env-default:"/auth/google"`
	SuperadminSeedEmail string `env:"SUPERADMIN_SEED_EMAIL"`
	CleanupInterval     string `env:"CLEANUP_INTERVAL" env-default:"1h"`
	DbConfig            DbConfig
	SessionConfig       SessionConfig
	ProviderConfig      ProviderConfig
	BrokerConfig        BrokerConfig
}
