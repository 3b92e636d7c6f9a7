// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Identity: Session defaults, SSO token type and Redis key prefixes.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "hydroline-services"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second

	// OAuthExchangeTimeout bounds calls to third-party token endpoints.
	OAuthExchangeTimeout = 10 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// LoginRateLimitRPS throttles credential endpoints per IP.
	LoginRateLimitRPS = 1.0

	// LoginRateLimitBurst allows a short run of retries before throttling.
	LoginRateLimitBurst = 10

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # HTTP Headers

const (
	HeaderAuthorization = "Authorization"
	HeaderXRequestID    = "X-Request-ID"
	HeaderOrigin        = "Origin"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderUserAgent     = "User-Agent"
	HeaderRetryAfter    = "Retry-After"

	// BearerPrefix precedes the access token in the Authorization header.
	BearerPrefix = "Bearer "
)

// # Sessions

const (
	// UnknownDevice is stored when the client sent no User-Agent.
	UnknownDevice = "Unknown Device"

	// UnknownIP is stored when no client address could be determined.
	UnknownIP = "Unknown IP"
)

// # Tokens

const (
	// TokenTypeRefresh marks a refresh token.
	TokenTypeRefresh = "refresh"

	// TokenTypeSSO marks a cross-system handoff token.
	TokenTypeSSO = "sso"

	// SSOTokenQueryParam is appended to the SSO callback URL.
	SSOTokenQueryParam = "token"
)

// # JSON Field Identifiers

const (
	FieldData      = "data"
	FieldError     = "error"
	FieldCode      = "code"
	FieldDetails   = "details"
	FieldMessage   = "message"
	FieldStatus    = "status"
	FieldTimestamp = "timestamp"
	FieldApp       = "app"
	FieldVersion   = "version"
	FieldChecks    = "checks"
)

// Envelope status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// # Database Schemas

const (
	SchemaUsers  = "users"
	SchemaRBAC   = "rbac"
	SchemaSystem = "system"
)

// # Redis Prefixes (Key Taxonomy)

const (
	RedisPrefixOAuthState = "auth:oauth_state:"
	RedisPrefixSSOUsed    = "auth:sso_used:"
)
