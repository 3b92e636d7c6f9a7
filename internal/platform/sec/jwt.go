// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. The auth service depends on it through small interfaces
// so tests can substitute deterministic fakes.
//
// Three claim shapes are issued, all HS256:
//
//   - [AccessClaims]: access secret, no "type" claim.
//   - [RefreshClaims]: refresh secret, "type" = "refresh".
//   - [SSOClaims]: access secret, "type" = "sso".
//
// Each shape validates its own required fields, so a token of one kind can
// never be decoded as another.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hydroline/hydroline-services/internal/platform/constants"
)

// # Errors

var (
	// ErrTokenExpired is returned for a correctly signed token past its expiry.
	ErrTokenExpired = errors.New("sec: token expired")

	// ErrTokenSignature covers wrong secrets and disallowed algorithms.
	ErrTokenSignature = errors.New("sec: bad token signature")

	// ErrTokenMalformed covers undecodable tokens, wrong issuers, and claims
	// missing a required field or carrying the wrong type tag.
	ErrTokenMalformed = errors.New("sec: malformed token")
)

// # Claims

// AccessClaims is the payload of an access token.
//
// TokenVersion is a pointer because tokens minted before versioning existed
// carry no stamp; those skip the version comparison.
type AccessClaims struct {
	jwt.RegisteredClaims

	Username     string `json:"username"`
	TokenVersion *int   `json:"tokenVersion,omitempty"`
	Type         string `json:"type,omitempty"`
}

// Validate implements [jwt.ClaimsValidator]. Any type tag is rejected.
func (claims *AccessClaims) Validate() error {
	if err := claims.requireIdentity(); err != nil {
		return err
	}
	if claims.Type != "" {
		return fmt.Errorf("unexpected token type %q", claims.Type)
	}
	return nil
}

func (claims *AccessClaims) requireIdentity() error {
	switch {
	case claims.Subject == "":
		return errors.New("missing sub")
	case claims.ID == "":
		return errors.New("missing jti")
	case claims.Username == "":
		return errors.New("missing username")
	}
	return nil
}

// UserID returns the subject claim.
func (claims *AccessClaims) UserID() string { return claims.Subject }

// TokenID returns the jti claim.
func (claims *AccessClaims) TokenID() string { return claims.ID }

// Version returns the token-version stamp and whether one was present.
func (claims *AccessClaims) Version() (int, bool) {
	if claims.TokenVersion == nil {
		return 0, false
	}
	return *claims.TokenVersion, true
}

// RefreshClaims is the payload of a refresh token.
type RefreshClaims struct {
	AccessClaims
}

// Validate implements [jwt.ClaimsValidator]. The "refresh" tag is required.
func (claims *RefreshClaims) Validate() error {
	if err := claims.requireIdentity(); err != nil {
		return err
	}
	if claims.Type != constants.TokenTypeRefresh {
		return fmt.Errorf("expected refresh token, got type %q", claims.Type)
	}
	return nil
}

// SSOClaims is the payload of a cross-system handoff token.
type SSOClaims struct {
	jwt.RegisteredClaims

	Username string `json:"username"`
	Type     string `json:"type"`
}

// Validate implements [jwt.ClaimsValidator]. The "sso" tag is required.
func (claims *SSOClaims) Validate() error {
	switch {
	case claims.Subject == "":
		return errors.New("missing sub")
	case claims.ID == "":
		return errors.New("missing jti")
	case claims.Username == "":
		return errors.New("missing username")
	case claims.Type != constants.TokenTypeSSO:
		return fmt.Errorf("expected sso token, got type %q", claims.Type)
	}
	return nil
}

// Subject is what a token is minted for.
type Subject struct {
	UserID       string
	Username     string
	TokenVersion int
}

// TokenPair is the result of a successful login or registration.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	TokenID          string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// # Issuer

// IssuerConfig carries the secrets and lifetimes for [TokenIssuer].
type IssuerConfig struct {
	AccessSecret  string
	RefreshSecret string
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SSOTTL        time.Duration
}

// TokenIssuer mints and verifies HS256 tokens.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	ssoTTL        time.Duration
	now           func() time.Time
}

// NewTokenIssuer creates a [TokenIssuer] from cfg.
func NewTokenIssuer(cfg IssuerConfig) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		issuer:        cfg.Issuer,
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		ssoTTL:        cfg.SSOTTL,
		now:           time.Now,
	}
}

// WithClock returns a copy of the issuer that reads time from now.
func (issuer *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	clone := *issuer
	clone.now = now
	return &clone
}

// RefreshTTL is the lifetime of refresh tokens, which also bounds sessions.
func (issuer *TokenIssuer) RefreshTTL() time.Duration { return issuer.refreshTTL }

// SSOTTL is the lifetime of SSO handoff tokens.
func (issuer *TokenIssuer) SSOTTL() time.Duration { return issuer.ssoTTL }

// IssuePair mints an access and a refresh token sharing tokenID.
func (issuer *TokenIssuer) IssuePair(subject Subject, tokenID string) (*TokenPair, error) {
	accessToken, accessExpiry, err := issuer.IssueAccess(subject, tokenID)
	if err != nil {
		return nil, err
	}

	refreshToken, refreshExpiry, err := issuer.IssueRefresh(subject, tokenID)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		TokenID:          tokenID,
		AccessExpiresAt:  accessExpiry,
		RefreshExpiresAt: refreshExpiry,
	}, nil
}

// IssueAccess mints an access token.
func (issuer *TokenIssuer) IssueAccess(subject Subject, tokenID string) (string, time.Time, error) {
	issuedAt, expiresAt := issuer.window(issuer.accessTTL)
	claims := &AccessClaims{
		RegisteredClaims: issuer.registered(subject.UserID, tokenID, issuedAt, expiresAt),
		Username:         subject.Username,
		TokenVersion:     &subject.TokenVersion,
	}
	return issuer.sign(claims, issuer.accessSecret, expiresAt)
}

// IssueRefresh mints a refresh token.
func (issuer *TokenIssuer) IssueRefresh(subject Subject, tokenID string) (string, time.Time, error) {
	issuedAt, expiresAt := issuer.window(issuer.refreshTTL)
	claims := &RefreshClaims{AccessClaims{
		RegisteredClaims: issuer.registered(subject.UserID, tokenID, issuedAt, expiresAt),
		Username:         subject.Username,
		TokenVersion:     &subject.TokenVersion,
		Type:             constants.TokenTypeRefresh,
	}}
	return issuer.sign(claims, issuer.refreshSecret, expiresAt)
}

// IssueSSO mints a short-lived handoff token for an external system.
func (issuer *TokenIssuer) IssueSSO(subject Subject, tokenID string) (string, time.Time, error) {
	issuedAt, expiresAt := issuer.window(issuer.ssoTTL)
	claims := &SSOClaims{
		RegisteredClaims: issuer.registered(subject.UserID, tokenID, issuedAt, expiresAt),
		Username:         subject.Username,
		Type:             constants.TokenTypeSSO,
	}
	return issuer.sign(claims, issuer.accessSecret, expiresAt)
}

func (issuer *TokenIssuer) window(ttl time.Duration) (time.Time, time.Time) {
	issuedAt := issuer.now()
	return issuedAt, issuedAt.Add(ttl)
}

func (issuer *TokenIssuer) registered(userID, tokenID string, issuedAt, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   userID,
		ID:        tokenID,
		Issuer:    issuer.issuer,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}

func (issuer *TokenIssuer) sign(claims jwt.Claims, secret []byte, expiresAt time.Time) (string, time.Time, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sec: failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// # Verification

// VerifyAccess checks an access token. Refresh and SSO tokens are rejected.
func (issuer *TokenIssuer) VerifyAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := issuer.parse(tokenString, claims, issuer.accessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefresh checks a refresh token against the refresh secret.
func (issuer *TokenIssuer) VerifyRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := issuer.parse(tokenString, claims, issuer.refreshSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifySSO checks an SSO handoff token.
func (issuer *TokenIssuer) VerifySSO(tokenString string) (*SSOClaims, error) {
	claims := &SSOClaims{}
	if err := issuer.parse(tokenString, claims, issuer.accessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// InspectAccess decodes an access token whose signature is valid but which
// may already be expired.
//
// Logout uses it so that a client holding only an expired access token can
// still end its session. The signature is always checked.
func (issuer *TokenIssuer) InspectAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, issuer.keyFunc(issuer.accessSecret),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, classify(err)
	}

	if err := claims.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if claims.Issuer != issuer.issuer {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrTokenMalformed, claims.Issuer)
	}

	return claims, nil
}

func (issuer *TokenIssuer) parse(tokenString string, claims jwt.Claims, secret []byte) error {
	_, err := jwt.ParseWithClaims(tokenString, claims, issuer.keyFunc(secret),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(issuer.now),
	)
	if err != nil {
		return classify(err)
	}
	return nil
}

func (issuer *TokenIssuer) keyFunc(secret []byte) jwt.Keyfunc {
	return func(*jwt.Token) (any, error) { return secret, nil }
}

// classify folds the jwt error tree into the three verification outcomes.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrTokenSignature, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}
