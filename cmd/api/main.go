// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

// Command api is the entry point for the Hydroline authentication server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent) and optionally seed RBAC.
//  6. Wire services and HTTP handlers.
//  7. Start the session janitor and the HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hydroline/hydroline-services/internal/api"
	"github.com/hydroline/hydroline-services/internal/platform/config"
	"github.com/hydroline/hydroline-services/internal/platform/constants"
	"github.com/hydroline/hydroline-services/internal/platform/middleware"
	"github.com/hydroline/hydroline-services/internal/platform/migration"
	pgstore "github.com/hydroline/hydroline-services/internal/platform/postgres"
	redisstore "github.com/hydroline/hydroline-services/internal/platform/redis"
	"github.com/hydroline/hydroline-services/internal/platform/sec"
	"github.com/hydroline/hydroline-services/internal/system/audit"
	"github.com/hydroline/hydroline-services/internal/users/account"
	"github.com/hydroline/hydroline-services/internal/users/auth"
	"github.com/hydroline/hydroline-services/internal/users/rbac"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.Bool("sso_enabled", cfg.SSO.Enabled),
	)

	// Root context lives until SIGINT/SIGTERM.
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startupCtx, startupCancel := context.WithTimeout(rootCtx, 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, poolOptions(cfg), log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing_postgres_pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, cfg.RedisPoolSize, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing_redis_client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis_close_failed", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations & Seed ──────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	hasher := sec.NewPasswordHasher(cfg.BcryptCost)
	if cfg.SeedOnStart {
		catalogue, err := rbac.DefaultCatalogue()
		must(log, err, "load rbac catalogue")
		must(log, rbac.NewSeeder(pool, hasher, log).Seed(startupCtx, catalogue), "seed rbac")
	}

	// ── 6. Metrics ────────────────────────────────────────────────────────
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// ── 7. Domain Wiring ──────────────────────────────────────────────────
	tokens := sec.NewTokenIssuer(sec.IssuerConfig{
		AccessSecret:  cfg.JWT.Secret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		Issuer:        cfg.JWT.Issuer,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		SSOTTL:        cfg.SSO.TokenTTL,
	})

	resolver := rbac.NewResolver(rbac.NewRepository(pool))
	auditLog := audit.NewRepository(pool)
	recorder := audit.NewRecorder(auditLog)

	authService := auth.NewService(auth.Dependencies{
		Users:    auth.NewUserRepository(pool),
		Sessions: auth.NewSessionRepository(pool),
		Hasher:   hasher,
		Tokens:   tokens,
		Roles:    resolver,
		Audit:    recorder,
		Metrics:  auth.NewMetrics(registry),
		Options: auth.Options{
			RotateRefreshToken:         cfg.Auth.RotateRefreshToken,
			RefreshChecksSessionExpiry: cfg.Auth.RefreshChecksSessionExpiry,
			VerifySessionOnAccess:      cfg.Auth.VerifySessionOnAccess,
		},
	})

	ssoBridge := auth.NewSSOBridge(auth.SSOConfig{
		Enabled:   cfg.SSO.Enabled,
		Targets:   cfg.SSO.Targets(),
		SingleUse: cfg.SSO.SingleUse,
	}, tokens, auth.NewTokenLedger(rdb))

	providers, err := auth.NewProviderRegistry(cfg.OAuth, &http.Client{Timeout: constants.OAuthExchangeTimeout})
	must(log, err, "configure oauth providers")
	oauthFlow := auth.NewOAuthFlow(providers, auth.NewStateStore(rdb), authService, cfg.OAuth.StateTTL)

	loginLimiter := middleware.NewRateLimiter(rootCtx, constants.LoginRateLimitRPS, constants.LoginRateLimitBurst)

	accountService := account.NewService(account.NewRepository(pool), resolver, recorder, log)

	// ── 8. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func(ctx context.Context) error {
			return pgstore.Ping(ctx, pool)
		},
		CheckCache: func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		},
	}, log)

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      auth.NewHandler(authService, ssoBridge, oauthFlow, resolver, loginLimiter),
		Account:   account.NewHandler(accountService, resolver),
		Audit:     audit.NewHandler(auditLog, resolver),
	}

	observability := api.Observability{Metrics: middleware.NewHTTPMetrics(registry)}
	if cfg.MetricsEnabled {
		observability.Gatherer = registry
	}

	server := api.NewServer(rootCtx, cfg, log, authService, handlers, observability)

	// ── 10. Background Work ───────────────────────────────────────────────
	go auth.NewJanitor(authService, cfg.SessionCleanupInterval, log).Run(rootCtx)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// ── 11. Graceful Shutdown ─────────────────────────────────────────────
	select {
	case <-rootCtx.Done():
		log.Info("shutdown_signal_received")
	case err := <-serverErr:
		log.Error("server_startup_failed", slog.Any("error", err))
	}

	log.Info("server_shutting_down", slog.Duration("timeout", constants.ShutdownTimeout))

	if err := server.Shutdown(constants.ShutdownTimeout); err != nil {
		log.Error("server_shutdown_failed", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server_stopped")
}

// poolOptions maps the database settings onto the pool.
func poolOptions(cfg *config.Config) pgstore.PoolOptions {
	options := pgstore.DefaultPoolOptions()
	options.MaxConns = cfg.DatabaseMaxConns
	options.MinConns = cfg.DatabaseMinConns
	options.StatementTimeout = cfg.DatabaseStatementTimeout
	return options
}

// newLogger builds the JSON logger tagged with the application name.
func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String(constants.FieldApp, constants.AppName))
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned
// and handled explicitly.
func must(log *slog.Logger, err error, step string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("step", step),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
