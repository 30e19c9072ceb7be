package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"

	"github.com/meauxhq/meaux-admin/pkg/audit"
	"github.com/meauxhq/meaux-admin/pkg/config"
	"github.com/meauxhq/meaux-admin/pkg/credbroker"
	"github.com/meauxhq/meaux-admin/pkg/federation"
	federationapi "github.com/meauxhq/meaux-admin/pkg/federation/api"
	"github.com/meauxhq/meaux-admin/pkg/sessions"
	"github.com/meauxhq/meaux-admin/pkg/superadmin"
	superadminapi "github.com/meauxhq/meaux-admin/pkg/superadmin/api"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err == nil {
		slog.Info("Configuration loaded from .env file")
	}

	cfg := config.Config{}
	cleanenv.ReadEnv(&cfg)

	pool, err := pgxpool.New(context.Background(), cfg.DbConfig.ToDatabaseURL())
	if err != nil {
		slog.Error("Failed creating dbpool", "db", cfg.DbConfig.Database, "host", cfg.DbConfig.Host, "port", cfg.DbConfig.Port, "user", cfg.DbConfig.User)
		os.Exit(-1)
	}

	sessionService := newSessionService(pool, cfg.SessionConfig)
	superadminService := superadmin.NewService(superadmin.NewPostgresRepository(pool))
	recorder := audit.NewRecorder(audit.NewPostgresRepository(pool))
	broker := newBroker(pool, cfg.BrokerConfig)
	federationService := newFederationService(cfg)

	seedSuperadmin(superadminService, cfg.SuperadminSeedEmail)

	server := app.DefaultApp()
	app.RegisterHealthzRoutes(server.R)

	cookieSetter := sessions.NewCookieSetter(cfg.SessionConfig.CookieHttpOnly, cfg.SessionConfig.CookieSecure)
	federationHandle := federationapi.NewHandle(federationService, sessionService, cookieSetter,
		federationapi.WithLandingURL(cfg.LandingURL),
		federationapi.WithSecureCookie(cfg.SessionConfig.CookieSecure),
	)
	server.R.Mount("/auth", federationapi.Handler(federationHandle))

	sessionMiddleware := sessions.NewMiddleware(sessionService, sessions.WithLoginPath(cfg.LoginPath))
	elevation := superadmin.NewMiddleware(superadminService)
	superadminHandle := superadminapi.NewHandle(superadminService, broker, recorder,
		superadminapi.WithAPIHostSuffix(cfg.BrokerConfig.APIHostSuffix),
	)

	server.R.Group(func(r chi.Router) {
		r.Use(sessionMiddleware.Authenticate)
		r.Mount("/superadmin", superadminapi.Handler(superadminHandle, elevation))
	})

	stopCleanup := startCleanup(sessionService, broker, cfg.CleanupInterval)
	defer stopCleanup()

	server.Run()

	// Let detached audit writes drain before the process exits.
	recorder.Wait()
}

func newSessionService(pool *pgxpool.Pool, cfg config.SessionConfig) *sessions.Service {
	opts := []sessions.Option{}
	if ttl, err := time.ParseDuration(cfg.TTL); err == nil && ttl > 0 {
		opts = append(opts, sessions.WithTTL(ttl))
	} else {
		slog.Warn("Invalid session TTL, using default", "value", cfg.TTL)
	}
	return sessions.NewService(sessions.NewPostgresRepository(pool), opts...)
}

// newBroker builds the credential broker. An incomplete service-account
// identity leaves the broker unconfigured; delegated endpoints then report
// the capability as unavailable instead of blocking startup.
func newBroker(pool *pgxpool.Pool, cfg config.BrokerConfig) *credbroker.Broker {
	var signer credbroker.Signer
	if cfg.PrivateKeyFile != "" {
		privateKey, err := credbroker.LoadPrivateKeyFromFile(cfg.PrivateKeyFile)
		if err != nil {
			slog.Error("Failed to load broker private key", "path", cfg.PrivateKeyFile, "err", err)
			os.Exit(-1)
		}
		signer = credbroker.NewRSASigner(privateKey)
	} else {
		slog.Warn("No broker private key configured, delegated access disabled")
	}

	return credbroker.NewBroker(
		credbroker.NewPostgresRepository(pool),
		signer,
		cfg.ServiceAccountEmail,
		cfg.TokenURL,
		cfg.Scope,
	)
}

func newFederationService(cfg config.Config) *federation.Service {
	service := federation.NewService(federation.WithBaseURL(cfg.BaseUrl))

	if cfg.ProviderConfig.GoogleEnabled && cfg.ProviderConfig.GoogleClientID != "" {
		provider := federation.NewGoogleProvider(cfg.ProviderConfig.GoogleClientID, cfg.ProviderConfig.GoogleClientSecret)
		if err := service.RegisterProvider(provider); err != nil {
			slog.Error("Failed to register google provider", "err", err)
			os.Exit(-1)
		}
	}

	if cfg.ProviderConfig.GitHubEnabled && cfg.ProviderConfig.GitHubClientID != "" {
		provider := federation.NewGitHubProvider(cfg.ProviderConfig.GitHubClientID, cfg.ProviderConfig.GitHubClientSecret)
		if err := service.RegisterProvider(provider); err != nil {
			slog.Error("Failed to register github provider", "err", err)
			os.Exit(-1)
		}
	}

	return service
}

// seedSuperadmin guarantees at least one active superadmin account exists so
// the default-deny registry is bootstrappable without manual SQL.
func seedSuperadmin(service *superadmin.Service, email string) {
	if email == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	account, err := service.EnsureAccount(ctx, email, "Seed Superadmin")
	if err != nil {
		slog.Error("Failed to seed superadmin account", "email", email, "err", err)
		os.Exit(-1)
	}
	slog.Info("Superadmin seed ensured", "email", account.Email, "id", account.ID)
}

// startCleanup prunes expired sessions and delegated token cache rows on an
// interval. Returns a stop function.
func startCleanup(sessionService *sessions.Service, broker *credbroker.Broker, interval string) func() {
	every, err := time.ParseDuration(interval)
	if err != nil || every <= 0 {
		every = time.Hour
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				if err := sessionService.CleanupExpired(ctx); err != nil {
					slog.Error("Session cleanup failed", "err", err)
				}
				if err := broker.CleanupExpired(ctx); err != nil {
					slog.Error("Token cache cleanup failed", "err", err)
				}
				cancel()
			}
		}
	}()

	return func() { close(done) }
}
