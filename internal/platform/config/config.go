// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values. A '.env' file in the
working directory is loaded first when present (development convenience).

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to the token issuer, auth service and SSO bridge via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// # Configuration Schema

// Config holds all runtime configuration for the Hydroline API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Pool sizing for DatabaseURL
	DatabaseMaxConns         int32         `env:"DATABASE_MAX_CONNS"         envDefault:"25"`
	DatabaseMinConns         int32         `env:"DATABASE_MIN_CONNS"         envDefault:"5"`
	DatabaseStatementTimeout time.Duration `env:"DATABASE_STATEMENT_TIMEOUT" envDefault:"30s"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value store (Redis): OAuth state and SSO single-use ledger
	RedisURL      string `env:"REDIS_URL,required"`
	RedisPoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"10"`

	// Token signing and lifetimes
	JWT JWTConfig `envPrefix:"JWT_"`

	// Authentication behavior switches
	Auth AuthConfig `envPrefix:"AUTH_"`

	// Single sign-on bridge
	SSO SSOConfig `envPrefix:"SSO_"`

	// Third-party login providers
	OAuth OAuthConfig `envPrefix:"OAUTH_"`

	// BcryptCost is the work factor for password hashing.
	BcryptCost int `env:"BCRYPT_COST" envDefault:"12"`

	// SessionCleanupInterval is how often the janitor sweeps expired sessions. Zero disables it.
	SessionCleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"1h"`

	// SeedOnStart runs the RBAC catalogue seeder before serving traffic.
	SeedOnStart bool `env:"SEED_ON_START" envDefault:"false"`

	// Cross-Origin Resource Sharing
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:8080,http://localhost:3000,http://localhost:5173"`

	// MetricsEnabled exposes GET /metrics.
	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`
}

// JWTConfig holds the secrets and lifetimes of the access/refresh token pair.
type JWTConfig struct {
	Secret        string        `env:"SECRET,required"`
	RefreshSecret string        `env:"REFRESH_SECRET,required"`
	Issuer        string        `env:"ISSUER"             envDefault:"hydroline-services"`
	AccessTTL     time.Duration `env:"EXPIRES_IN"         envDefault:"15m"`
	RefreshTTL    time.Duration `env:"REFRESH_EXPIRES_IN" envDefault:"168h"`
}

// AuthConfig groups the behavior switches of the authentication service.
type AuthConfig struct {
	// RotateRefreshToken issues a fresh refresh token on every refresh call.
	RotateRefreshToken bool `env:"ROTATE_REFRESH_TOKEN" envDefault:"false"`

	// RefreshChecksSessionExpiry additionally rejects refresh when the session row has expired.
	RefreshChecksSessionExpiry bool `env:"REFRESH_CHECK_SESSION_EXPIRY" envDefault:"false"`

	// VerifySessionOnAccess re-checks the session row on every authenticated request.
	VerifySessionOnAccess bool `env:"VERIFY_SESSION_ON_ACCESS" envDefault:"true"`
}

// SSOConfig configures the cross-system handoff.
type SSOConfig struct {
	Enabled              bool          `env:"ENABLED"    envDefault:"false"`
	TokenTTL             time.Duration `env:"TOKEN_TTL"  envDefault:"15m"`
	SingleUse            bool          `env:"SINGLE_USE" envDefault:"true"`
	WikiCallbackURL      string        `env:"WIKI_CALLBACK_URL"`
	ForumCallbackURL     string        `env:"FORUM_CALLBACK_URL"`
	MediaWikiCallbackURL string        `env:"MEDIAWIKI_CALLBACK_URL"`
}

// Targets returns the callback URL per allow-listed system key.
func (c SSOConfig) Targets() map[string]string {
	return map[string]string{
		"wiki":      c.WikiCallbackURL,
		"forum":     c.ForumCallbackURL,
		"mediawiki": c.MediaWikiCallbackURL,
	}
}

// OAuthConfig lists the third-party providers known to the registry.
type OAuthConfig struct {
	StateTTL  time.Duration       `env:"STATE_TTL" envDefault:"10m"`
	Microsoft OAuthProviderConfig `envPrefix:"MICROSOFT_"`
	QQ        OAuthProviderConfig `envPrefix:"QQ_"`
	WeChat    OAuthProviderConfig `envPrefix:"WECHAT_"`
	Discord   OAuthProviderConfig `envPrefix:"DISCORD_"`
}

// OAuthProviderConfig is the descriptor of one provider.
type OAuthProviderConfig struct {
	Enabled      bool   `env:"ENABLED" envDefault:"false"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	CallbackURL  string `env:"CALLBACK_URL"`

	// TrustEmail lets a login link to an existing account by email. Only
	// enable it for providers that verify the addresses they report.
	TrustEmail bool `env:"TRUST_EMAIL" envDefault:"false"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// A missing .env file is the normal production case.
	_ = godotenv.Load()

	cfg := &Config{}

	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.JWT.Secret) == "" || strings.TrimSpace(c.JWT.RefreshSecret) == "" {
		problems = append(problems, "JWT_SECRET and JWT_REFRESH_SECRET must be set")
	} else if c.JWT.Secret == c.JWT.RefreshSecret {
		problems = append(problems, "JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}

	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		problems = append(problems, "token lifetimes must be positive")
	}

	if c.SSO.TokenTTL <= 0 {
		problems = append(problems, "SSO_TOKEN_TTL must be positive")
	}

	if c.DatabaseMaxConns <= 0 || c.DatabaseMinConns < 0 || c.DatabaseMinConns > c.DatabaseMaxConns {
		problems = append(problems, "DATABASE_MIN_CONNS must be between 0 and DATABASE_MAX_CONNS")
	}

	if c.SessionCleanupInterval < 0 {
		problems = append(problems, "SESSION_CLEANUP_INTERVAL must not be negative")
	}

	if len(problems) > 0 {
		return errors.New("config: " + strings.Join(problems, "; "))
	}

	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AllowedOrigins returns the configured CORS origins.
func (c *Config) AllowedOrigins() []string {
	return c.CORSOrigins
}
