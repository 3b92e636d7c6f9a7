// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

package auth

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/hydroline/hydroline-services/internal/platform/apperr"
	"github.com/hydroline/hydroline-services/internal/platform/constants"
	"github.com/hydroline/hydroline-services/internal/platform/sec"
)

// SSOConfig configures the [SSOBridge].
type SSOConfig struct {
	Enabled bool

	// Targets maps an allow-listed system key to its callback URL. A key
	// with an empty URL is known but not configured.
	Targets map[string]string

	// SingleUse makes VerifyToken accept each token at most once.
	SingleUse bool
}

// SSOBridge issues short-lived handoff tokens for federated systems.
type SSOBridge struct {
	config SSOConfig
	tokens *sec.TokenIssuer
	ledger TokenLedger
	now    func() time.Time
}

// NewSSOBridge constructs an [SSOBridge]. ledger may be nil when SingleUse is off.
func NewSSOBridge(config SSOConfig, tokens *sec.TokenIssuer, ledger TokenLedger) *SSOBridge {
	return &SSOBridge{config: config, tokens: tokens, ledger: ledger, now: time.Now}
}

// Targets lists the allow-listed system keys.
func (bridge *SSOBridge) Targets() []string {
	keys := make([]string, 0, len(bridge.config.Targets))
	for key := range bridge.config.Targets {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

/*
RedirectURL builds the callback URL carrying a fresh SSO token.

Parameters:
  - principal: *sec.Principal
  - target: string (allow-listed system key)

Returns:
  - string: <callbackUrl>?token=<token>, merged with any existing query
  - error: FeatureDisabled, UnknownTarget, Misconfigured, or signing errors
*/
func (bridge *SSOBridge) RedirectURL(principal *sec.Principal, target string) (string, error) {
	if !bridge.config.Enabled {
		return "", apperr.FeatureDisabled("SSO is disabled")
	}

	callback, known := bridge.config.Targets[target]
	if !known {
		return "", apperr.UnknownTarget(fmt.Sprintf("Unknown SSO target %q", target))
	}
	if callback == "" {
		return "", apperr.Misconfigured(fmt.Sprintf("SSO target %q has no callback URL", target))
	}

	location, err := url.Parse(callback)
	if err != nil {
		return "", apperr.Misconfigured(fmt.Sprintf("SSO target %q has an invalid callback URL", target))
	}

	token, _, err := bridge.tokens.IssueSSO(sec.Subject{
		UserID:       principal.UserID,
		Username:     principal.Username,
		TokenVersion: principal.TokenVersion,
	}, sec.NewTokenID())
	if err != nil {
		return "", fmt.Errorf("auth_sso_issue_failed: %w", err)
	}

	query := location.Query()
	query.Set(constants.SSOTokenQueryParam, token)
	location.RawQuery = query.Encode()

	return location.String(), nil
}

/*
VerifyToken checks a handoff token presented by a federated system.

Description: With SingleUse on, the token's jti is claimed in the ledger for
the rest of the token's lifetime and a second presentation fails.

Parameters:
  - ctx: context.Context
  - token: string

Returns:
  - *sec.SSOClaims: Subject, username and purpose tag
  - error: InvalidToken, or ledger failures
*/
func (bridge *SSOBridge) VerifyToken(ctx context.Context, token string) (*sec.SSOClaims, error) {
	if !bridge.config.Enabled {
		return nil, apperr.FeatureDisabled("SSO is disabled")
	}

	claims, err := bridge.tokens.VerifySSO(token)
	if err != nil {
		return nil, apperr.InvalidToken("Invalid SSO token")
	}

	if !bridge.config.SingleUse || bridge.ledger == nil {
		return claims, nil
	}

	ttl := time.Minute
	if claims.ExpiresAt != nil {
		if remaining := claims.ExpiresAt.Sub(bridge.now()); remaining > 0 {
			ttl = remaining
		}
	}

	fresh, err := bridge.ledger.Claim(ctx, claims.ID, ttl)
	if err != nil {
		return nil, fmt.Errorf("auth_sso_claim_failed: %w", err)
	}
	if !fresh {
		return nil, apperr.InvalidToken("SSO token has already been used")
	}

	return claims, nil
}
