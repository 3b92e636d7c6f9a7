// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hydroline/hydroline-services/internal/platform/apperr"
	"github.com/hydroline/hydroline-services/internal/platform/constants"
	"github.com/hydroline/hydroline-services/internal/platform/ctxutil"
	"github.com/hydroline/hydroline-services/internal/platform/respond"
	"github.com/hydroline/hydroline-services/internal/platform/sec"
)

// Authenticator turns a bearer access token into a checked [sec.Principal].
//
// Implementations verify the signature, the account state, the token version
// and (when configured) the backing session.
type Authenticator interface {
	AuthenticateAccessToken(ctx context.Context, token string) (*sec.Principal, error)
}

// AccessChecker decides role and permission requirements for a user.
//
// anyRoles passes when the user holds at least one of them; allPermissions
// passes only when the user holds every one. Empty lists always pass.
type AccessChecker interface {
	CheckAccess(ctx context.Context, userID string, anyRoles, allPermissions []string) error
}

// Authenticate extracts and verifies the bearer token from the Authorization header.
//
// # Flow
//  1. No header: the request proceeds as anonymous.
//  2. Malformed header or rejected token: the failure is recorded in the
//     context and the request proceeds as anonymous. Public routes keep
//     working, protected routes answer with the recorded failure.
//  3. Accepted token: the [*sec.Principal] is injected into the context.
func Authenticate(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			authHeader := request.Header.Get(constants.HeaderAuthorization)

			// ── 1. Anonymous Access ───────────────────────────────────────────
			if authHeader == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 2. Format Validation ──────────────────────────────────────────
			token, ok := BearerToken(authHeader)
			if !ok {
				ctx := ctxutil.WithAuthError(request.Context(), apperr.InvalidToken("Invalid authorization format"))
				next.ServeHTTP(writer, request.WithContext(ctx))
				return
			}

			// ── 3. Token Verification ─────────────────────────────────────────
			principal, err := authenticator.AuthenticateAccessToken(request.Context(), token)
			if err != nil {
				ctx := ctxutil.WithAuthError(request.Context(), err)
				next.ServeHTTP(writer, request.WithContext(ctx))
				return
			}

			// ── 4. Context Injection ──────────────────────────────────────────
			ctx := ctxutil.WithPrincipal(request.Context(), principal)
			ctx = ctxutil.WithLogger(ctx, ctxutil.GetLogger(ctx).With(slog.String("user_id", principal.UserID)))
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth blocks requests that are not authenticated.
//
// Must be registered in the router AFTER [Authenticate]. The recorded token
// failure (expired, invalidated, revoked) is returned as-is.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if ctxutil.GetPrincipal(request.Context()) == nil {
			respond.Error(writer, request, authFailure(request.Context()))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// RequireRoles passes when the user holds any of roles. It implies [RequireAuth].
func RequireRoles(checker AccessChecker, roles ...string) func(http.Handler) http.Handler {
	return RequireAccess(checker, roles, nil)
}

// RequirePermissions passes when the user holds every permission. It implies [RequireAuth].
func RequirePermissions(checker AccessChecker, permissions ...string) func(http.Handler) http.Handler {
	return RequireAccess(checker, nil, permissions)
}

// RequireAccess combines a role and a permission requirement.
//
// # Flow
//  1. Unauthenticated requests are rejected with 401.
//  2. The checker resolves the user's roles and permissions once.
//  3. A failed check is answered with its 403 error.
func RequireAccess(checker AccessChecker, anyRoles, allPermissions []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			principal := ctxutil.GetPrincipal(request.Context())

			// ── 1. Authentication Check ───────────────────────────────────────
			if principal == nil {
				respond.Error(writer, request, authFailure(request.Context()))
				return
			}

			// ── 2. Authorization Check ────────────────────────────────────────
			if err := checker.CheckAccess(request.Context(), principal.UserID, anyRoles, allPermissions); err != nil {
				respond.Error(writer, request, err)
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

func authFailure(ctx context.Context) error {
	if err := ctxutil.GetAuthError(ctx); err != nil {
		return err
	}
	return apperr.Unauthorized("Authentication required")
}

// BearerToken extracts the token of an Authorization header. The scheme is
// matched case-insensitively.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, strings.TrimSpace(constants.BearerPrefix)) {
		return "", false
	}

	token = strings.TrimSpace(token)
	return token, token != ""
}
