// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hydroline/hydroline-services/internal/platform/apperr"
	"github.com/hydroline/hydroline-services/internal/platform/ctxutil"
	"github.com/hydroline/hydroline-services/internal/platform/sec"
	"github.com/hydroline/hydroline-services/internal/system/audit"
)

// # Session Management

/*
ListSessions returns the user's usable sessions, flagging the current one.

Parameters:
  - ctx: context.Context
  - userID: string
  - currentTokenID: string

Returns:
  - []SessionView: Most recently used first
  - error: Storage failures
*/
func (service *Service) ListSessions(ctx context.Context, userID, currentTokenID string) ([]SessionView, error) {
	sessions, err := service.sessions.ListActive(ctx, userID, service.now())
	if err != nil {
		return nil, fmt.Errorf("auth_service_list_sessions_failed: %w", err)
	}

	views := make([]SessionView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, newSessionView(session, currentTokenID))
	}

	return views, nil
}

/*
RevokeSession deactivates one session of the user.

Description: Idempotent. Unknown or foreign token ids succeed without effect.

Parameters:
  - ctx: context.Context
  - userID: string
  - tokenID: string

Returns:
  - error: Storage failures
*/
func (service *Service) RevokeSession(ctx context.Context, userID, tokenID string) error {
	matched, err := service.sessions.Revoke(ctx, userID, tokenID)
	if err != nil {
		return fmt.Errorf("auth_service_revoke_session_failed: %w", err)
	}

	if matched {
		service.metrics.revoked(scopeSingle, 1)
		service.record(ctx, &userID, audit.ActionRevokeSession, resourceSession, tokenID, "", "", nil)
	}

	return nil
}

/*
RevokeAllSessions logs the user out everywhere.

Description: Bumps the token version so even tokens whose session row
survives stop working, then deactivates every session.

Parameters:
  - ctx: context.Context
  - userID: string

Returns:
  - int64: Sessions deactivated
  - error: NotFound or storage failures
*/
func (service *Service) RevokeAllSessions(ctx context.Context, userID string) (int64, error) {
	revoked, err := service.users.RevokeAll(ctx, userID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return 0, err
		}
		return 0, fmt.Errorf("auth_service_revoke_all_failed: %w", err)
	}

	service.metrics.revoked(scopeAll, revoked)
	service.record(ctx, &userID, audit.ActionRevokeAllSessions, resourceUser, userID, "", "",
		map[string]any{"sessionsRevoked": revoked})

	return revoked, nil
}

/*
RevokeAllExcept deactivates every session but keepTokenID.

Description: The token version is left alone so the kept session's access
token stays valid.

Parameters:
  - ctx: context.Context
  - userID: string
  - keepTokenID: string

Returns:
  - int64: Sessions deactivated
  - error: Storage failures
*/
func (service *Service) RevokeAllExcept(ctx context.Context, userID, keepTokenID string) (int64, error) {
	revoked, err := service.sessions.RevokeAllExcept(ctx, userID, keepTokenID)
	if err != nil {
		return 0, fmt.Errorf("auth_service_revoke_others_failed: %w", err)
	}

	service.metrics.revoked(scopeOthers, revoked)
	service.record(ctx, &userID, audit.ActionRevokeOtherSessions, resourceSession, keepTokenID, "", "",
		map[string]any{"sessionsRevoked": revoked})

	return revoked, nil
}

/*
Logout ends the caller's current session. It never fails.

Description: When the request carried no valid principal (typically because
the access token has expired), the bearer token is inspected with its
signature checked but its expiry ignored, so a client can still end a session
whose access token lapsed. Anything unreadable is ignored.

Parameters:
  - ctx: context.Context
  - principal: *sec.Principal (may be nil)
  - bearer: string (raw access token, may be empty)
*/
func (service *Service) Logout(ctx context.Context, principal *sec.Principal, bearer string) {
	logger := ctxutil.GetLogger(ctx)

	userID, tokenID := "", ""
	switch {
	case principal != nil:
		userID, tokenID = principal.UserID, principal.TokenID
	case bearer != "":
		claims, err := service.tokens.InspectAccess(bearer)
		if err != nil {
			logger.Debug("auth_logout_token_unreadable", slog.Any("error", err))
			return
		}
		userID, tokenID = claims.UserID(), claims.TokenID()
	default:
		return
	}

	matched, err := service.sessions.Revoke(ctx, userID, tokenID)
	if err != nil {
		logger.Warn("auth_logout_revoke_failed", slog.String("user_id", userID), slog.Any("error", err))
		return
	}

	if matched {
		service.metrics.revoked(scopeSingle, 1)
	}
	service.record(ctx, &userID, audit.ActionLogout, resourceSession, tokenID, "", "", nil)
}

/*
CleanupExpiredSessions deletes sessions that are expired or inactive.

Description: Never touches a session that is active and unexpired. Safe to
run concurrently with traffic and repeatedly.

Parameters:
  - ctx: context.Context

Returns:
  - int64: Rows deleted
  - error: Storage failures
*/
func (service *Service) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	deleted, err := service.sessions.DeleteStale(ctx, service.now())
	if err != nil {
		return 0, fmt.Errorf("auth_service_cleanup_sessions_failed: %w", err)
	}

	service.metrics.cleaned(deleted)
	ctxutil.GetLogger(ctx).Info("session_cleanup_finished", slog.Int64("deleted", deleted))

	var actor *string
	if principal := ctxutil.GetPrincipal(ctx); principal != nil {
		actor = &principal.UserID
	}
	service.record(ctx, actor, audit.ActionCleanupSessions, resourceSession, "", "", "",
		map[string]any{"deleted": deleted})

	return deleted, nil
}
