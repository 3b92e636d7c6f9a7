// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydroline/hydroline-services/internal/platform/apperr"
	"github.com/hydroline/hydroline-services/internal/platform/constants"
	"github.com/hydroline/hydroline-services/internal/platform/ctxutil"
	"github.com/hydroline/hydroline-services/internal/platform/sec"
	"github.com/hydroline/hydroline-services/internal/system/audit"
	"github.com/hydroline/hydroline-services/pkg/pointer"
)

// # Login

/*
TestLoginThenRefresh verifies a fresh refresh token yields an access token for the same user.
*/
func TestLoginThenRefresh(t *testing.T) {
	f := newFixture(t, Options{VerifySessionOnAccess: true})
	user := f.seedUser(t, "steve", true)
	ctx := context.Background()

	login, err := f.service.LoginWithPassword(ctx, "steve", testPassword, "Firefox", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, login.User.ID)
	assert.Equal(t, []string{DefaultRole}, login.User.Roles)

	refreshed, err := f.service.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.Empty(t, refreshed.RefreshToken)

	claims, err := f.tokens.VerifyAccess(refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID())
	assert.Equal(t, tokenIDOf(t, f.tokens, login.AccessToken), claims.TokenID())

	principal, err := f.service.AuthenticateAccessToken(ctx, refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, principal.UserID)

	assert.Equal(t, float64(1), f.counter(t, "hydroline_auth_logins_total", "result", resultSuccess))
	assert.Equal(t, float64(1), f.counter(t, "hydroline_auth_refresh_total", "result", resultSuccess))
}

/*
TestLogin_RecordsSession verifies the session row mirrors the login context.
*/
func TestLogin_RecordsSession(t *testing.T) {
	f := newFixture(t, Options{})
	f.seedUser(t, "steve", true)

	login, err := f.service.LoginWithPassword(context.Background(), "steve", testPassword, "  ", "")
	require.NoError(t, err)

	session := f.session(t, tokenIDOf(t, f.tokens, login.AccessToken))
	assert.True(t, session.IsActive)
	assert.Equal(t, constants.UnknownDevice, session.DeviceInfo)
	assert.Equal(t, constants.UnknownIP, session.IPAddress)
	assert.Equal(t, f.clock.Now().Add(f.tokens.RefreshTTL()), session.ExpiresAt)
	assert.Contains(t, f.audit.actions(), audit.ActionLogin)
}

/*
TestLoginWithPassword_GenericFailures verifies unknown users and wrong passwords look the same.
*/
func TestLoginWithPassword_GenericFailures(t *testing.T) {
	f := newFixture(t, Options{})
	f.seedUser(t, "steve", true)
	ctx := context.Background()

	_, unknown := f.service.LoginWithPassword(ctx, "herobrine", testPassword, "", "")
	_, wrong := f.service.LoginWithPassword(ctx, "steve", "wrong-password", "", "")

	assertCode(t, unknown, apperr.CodeBadCredentials)
	assertCode(t, wrong, apperr.CodeBadCredentials)
	assert.Equal(t, unknown.Error(), wrong.Error())

	assert.Equal(t, float64(2), f.counter(t, "hydroline_auth_logins_total", "result", resultFailure))
	assert.Equal(t, []audit.Action{audit.ActionLoginFailed, audit.ActionLoginFailed}, f.audit.actions())
}

/*
TestLoginWithPassword_ByEmail verifies email identifiers are case-folded and matched.
*/
func TestLoginWithPassword_ByEmail(t *testing.T) {
	f := newFixture(t, Options{})
	user := f.seedUser(t, "steve", true)

	login, err := f.service.LoginWithPassword(context.Background(), "Steve@Hydroline.test", testPassword, "", "")
	require.NoError(t, err)
	assert.Equal(t, user.ID, login.User.ID)
}

/*
TestLoginWithPassword_InactiveAccount verifies the disabled state is revealed only after a correct password.
*/
func TestLoginWithPassword_InactiveAccount(t *testing.T) {
	f := newFixture(t, Options{})
	f.seedUser(t, "alex", false)
	ctx := context.Background()

	_, err := f.service.LoginWithPassword(ctx, "alex", testPassword, "", "")
	assertCode(t, err, apperr.CodeAccountDisabled)

	_, err = f.service.LoginWithPassword(ctx, "alex", "wrong-password", "", "")
	assertCode(t, err, apperr.CodeBadCredentials)
}

/*
TestValidateCredentials_PasswordlessAccount verifies provider-provisioned accounts cannot log in with a password.
*/
func TestValidateCredentials_PasswordlessAccount(t *testing.T) {
	f := newFixture(t, Options{})
	user := &User{ID: "u-oauth", Username: "microsoft_abc", IsActive: true}
	require.NoError(t, memoryUsers{store: f.store}.Create(context.Background(), user, nil, DefaultRole))

	_, err := f.service.ValidateCredentials(context.Background(), "microsoft_abc", "")
	assertCode(t, err, apperr.CodeBadCredentials)
}

/*
TestValidateCredentials_StripsHash verifies the returned user carries no password hash.
*/
func TestValidateCredentials_StripsHash(t *testing.T) {
	f := newFixture(t, Options{})
	f.seedUser(t, "steve", true)

	user, err := f.service.ValidateCredentials(context.Background(), "steve", testPassword)
	require.NoError(t, err)
	assert.Nil(t, user.PasswordHash)
}

/*
TestConcurrentLogins verifies parallel logins get distinct, independent sessions.
*/
func TestConcurrentLogins(t *testing.T) {
	f := newFixture(t, Options{VerifySessionOnAccess: true})
	f.seedUser(t, "steve", true)
	ctx := context.Background()

	user := f.mustUser(t, "steve")
	user.PasswordHash = nil

	const parallel = 2
	results := make([]*AuthResult, parallel)
	errs := make([]error, parallel)

	var wg sync.WaitGroup
	for i := range parallel {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clone := *user
			results[i], errs[i] = f.service.Login(ctx, &clone, "", "")
		}()
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	first := tokenIDOf(t, f.tokens, results[0].AccessToken)
	second := tokenIDOf(t, f.tokens, results[1].AccessToken)
	require.NotEqual(t, first, second)
	assert.Len(t, f.store.sessions, 2)

	require.NoError(t, f.service.RevokeSession(ctx, user.ID, first))

	_, err := f.service.Refresh(ctx, results[1].RefreshToken)
	assert.NoError(t, err)
	_, err = f.service.AuthenticateAccessToken(ctx, results[1].AccessToken)
	assert.NoError(t, err)
}

func (f *fixture) mustUser(t *testing.T, username string) *User {
	t.Helper()

	user, err := memoryUsers{store: f.store}.FindByUsername(context.Background(), username)
	require.NoError(t, err)
	return user
}

// # Refresh

/*
TestRefresh_Failures verifies each refresh rejection reason.
*/
func TestRefresh_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("garbage token", func(t *testing.T) {
		f := newFixture(t, Options{})
		_, err := f.service.Refresh(ctx, "not-a-token")
		assertCode(t, err, apperr.CodeInvalidToken)
		assert.Equal(t, float64(1), f.counter(t, "hydroline_auth_refresh_total", "result", resultFailure))
	})

	t.Run("access token presented", func(t *testing.T) {
		f := newFixture(t, Options{})
		f.seedUser(t, "steve", true)
		login, err := f.service.LoginWithPassword(ctx, "steve", testPassword, "", "")
		require.NoError(t, err)

		_, err = f.service.Refresh(ctx, login.AccessToken)
		assertCode(t, err, apperr.CodeInvalidToken)
	})

	t.Run("deleted user", func(t *testing.T) {
		f := newFixture(t, Options{})
		user := f.seedUser(t, "steve", true)
		login, err := f.service.LoginWithPassword(ctx, "steve", testPassword, "", "")
		require.NoError(t, err)

		delete(f.store.users, user.ID)
		_, err = f.service.Refresh(ctx, login.RefreshToken)
		assertCode(t, err, apperr.CodeInvalidToken)
	})

	t.Run("disabled user", func(t *testing.T) {
		f := newFixture(t, Options{})
		user := f.seedUser(t, "steve", true)
		login, err := f.service.LoginWithPassword(ctx, "steve", testPassword, "", "")
		require.NoError(t, err)

		f.store.users[user.ID].IsActive = false
		_, err = f.service.Refresh(ctx, login.RefreshToken)
		assertCode(t, err, apperr.CodeAccountDisabled)
	})

	t.Run("missing session", func(t *testing.T) {
		f := newFixture(t, Options{})
		f.seedUser(t, "steve", true)
		login, err := f.service.LoginWithPassword(ctx, "steve", testPassword, "", "")
		require.NoError(t, err)

		delete(f.store.sessions, tokenIDOf(t, f.tokens, login.AccessToken))
		_, err = f.service.Refresh(ctx, login.RefreshToken)
		assertCode(t, err, apperr.CodeSessionRevoked)
	})
}

/*
TestRefresh_SessionExpiryOption verifies expired session rows only block refresh when configured.
*/
func TestRefresh_SessionExpiryOption(t *testing.T) {
	ctx := context.Background()

	for _, checks := range []bool{false, true} {
		f := newFixture(t, Options{RefreshChecksSessionExpiry: checks})
		f.seedUser(t, "steve", true)
		login, err := f.service.LoginWithPassword(ctx, "steve", testPassword, "", "")
		require.NoError(t, err)

		tokenID := tokenIDOf(t, f.tokens, login.AccessToken)
		f.store.sessions[tokenID].ExpiresAt = f.clock.Now().Add(-time.Minute)

		_, err = f.service.Refresh(ctx, login.RefreshToken)
		if checks {
			assertCode(t, err, apperr.CodeSessionRevoked)
		} else {
			assert.NoError(t, err)
		}
	}
}

/*
TestRefresh_Rotation verifies rotation returns a new refresh token bound to the same session.
*/
func TestRefresh_Rotation(t *testing.T) {
	f := newFixture(t, Options{RotateRefreshToken: true})
	f.seedUser(t, "steve", true)
	ctx := context.Background()

	login, err := f.service.LoginWithPassword(ctx, "steve", testPassword, "", "")
	require.NoError(t, err)

	refreshed, err := f.service.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, refreshed.RefreshToken)

	claims, err := f.tokens.VerifyRefresh(refreshed.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, tokenIDOf(t, f.tokens, login.AccessToken), claims.TokenID())
}

// # Revocation

/*
TestChangePassword_InvalidatesEveryToken verifies old tokens die and the new password works.
*/
func TestChangePassword_InvalidatesEveryToken(t *testing.T) {
	f := newFixture(t, Options{VerifySessionOnAccess: true})
	user := f.seedUser(t, "steve", true)
	ctx := context.Background()

	laptop, err := f.service.LoginWithPassword(ctx, "steve", testPassword, "laptop", "")
	require.NoError(t, err)
	phone, err := f.service.LoginWithPassword(ctx, "steve", testPassword, "phone", "")
	require.NoError(t, err)

	require.NoError(t, f.service.ChangePassword(ctx, user.ID, testPassword, "new-password"))

	for _, login := range []*AuthResult{laptop, phone} {
		_, err = f.service.Refresh(ctx, login.RefreshToken)
		assertCode(t, err, apperr.CodeTokenInvalidated)

		_, err = f.service.AuthenticateAccessToken(ctx, login.AccessToken)
		assertCode(t, err, apperr.CodeTokenInvalidated)
	}

	_, err = f.service.LoginWithPassword(ctx, "steve", testPassword, "", "")
	assertCode(t, err, apperr.CodeBadCredentials)

	fresh, err := f.service.LoginWithPassword(ctx, "steve", "new-password", "", "")
	require.NoError(t, err)
	_, err = f.service.AuthenticateAccessToken(ctx, fresh.AccessToken)
	assert.NoError(t, err)

	assert.Equal(t, float64(2), f.counter(t, "hydroline_auth_sessions_revoked_total", "scope", scopePassword))
	assert.Contains(t, f.audit.actions(), audit.ActionChangePassword)
}

/*
TestChangePassword_Rejections verifies the account preconditions.
*/
func TestChangePassword_Rejections(t *testing.T) {
	f := newFixture(t, Options{})
	user := f.seedUser(t, "steve", true)
	ctx := context.Background()

	err := f.service.ChangePassword(ctx, user.ID, "wrong-password", "new-password")
	assertCode(t, err, apperr.CodeWrongPassword)

	err = f.service.ChangePassword(ctx, "missing", testPassword, "new-password")
	assertCode(t, err, apperr.CodeNotFound)

	f.store.users[user.ID].PasswordHash = nil
	err = f.service.ChangePassword(ctx, user.ID, testPassword, "new-password")
	assertCode(t, err, apperr.CodeNoPasswordSet)

	assert.Equal(t, 0, f.store.users[user.ID].TokenVersion)
}

/*
TestRevokeSession_LeavesOtherSessions verifies one revocation only affects its own jti.
*/
func TestRevokeSession_LeavesOtherSessions(t *testing.T) {
	f := newFixture(t, Options{VerifySessionOnAccess: true})
	user := f.seedUser(t, "steve", true)
	ctx := context.Background()

	first, err := f.service.LoginWithPassword(ctx, "steve", testPassword, "", "")
	require.NoError(t, err)
	second, err := f.service.LoginWithPassword(ctx, "steve", testPassword, "", "")
	require.NoError(t, err)

	require.NoError(t, f.service.RevokeSession(ctx, user.ID, tokenIDOf(t, f.tokens, first.AccessToken)))

	_, err = f.service.Refresh(ctx, first.RefreshToken)
	assertCode(t, err, apperr.CodeSessionRevoked)
	_, err = f.service.AuthenticateAccessToken(ctx, first.AccessToken)
	assertCode(t, err, apperr.CodeSessionRevoked)

	_, err = f.service.Refresh(ctx, second.RefreshToken)
	assert.NoError(t, err)
}

/*
TestRevokeSession_ForeignOrUnknown verifies revoking someone else's jti is a silent no-op.
*/
func TestRevokeSession_ForeignOrUnknown(t *testing.T) {
	f := newFixture(t, Options{})
	f.seedUser(t, "steve", true)
	intruder := f.seedUser(t, "alex", true)
	ctx := context.Background()

	login, err := f.service.LoginWithPassword(ctx, "steve", testPassword, "", "")
	require.NoError(t, err)
	tokenID := tokenIDOf(t, f.tokens, login.AccessToken)

	require.NoError(t, f.service.RevokeSession(ctx, intruder.ID, tokenID))
	require.NoError(t, f.service.RevokeSession(ctx, intruder.ID, "unknown"))

	assert.True(t, f.session(t, tokenID).IsActive)
	assert.NotContains(t, f.audit.actions(), audit.ActionRevokeSession)
}

/*
TestRevokeAllExcept_KeepsCurrentSession verifies the kept access and refresh tokens stay valid.
*/
func TestRevokeAllExcept_KeepsCurrentSession(t *testing.T) {
	f := newFixture(t, Options{VerifySessionOnAccess: true})
	user := f.seedUser(t, "steve", true)
	ctx := context.Background()

	keep, err := f.service.LoginWithPassword(ctx, "steve", testPassword, "", "")
	require.NoError(t, err)
	other, err := f.service.LoginWithPassword(ctx, "steve", testPassword, "", "")
	require.NoError(t, err)
	third, err := f.service.LoginWithPassword(ctx, "steve", testPassword, "", "")
	require.NoError(t, err)

	revoked, err := f.service.RevokeAllExcept(ctx, user.ID, tokenIDOf(t, f.tokens, keep.AccessToken))
	require.NoError(t, err)
	assert.Equal(t, int64(2), revoked)
	assert.Equal(t, 0, f.mustUser(t, "steve").TokenVersion)

	_, err = f.service.AuthenticateAccessToken(ctx, keep.AccessToken)
	assert.NoError(t, err)
	_, err = f.service.Refresh(ctx, keep.RefreshToken)
	assert.NoError(t, err)

	for _, login := range []*AuthResult{other, third} {
		_, err = f.service.Refresh(ctx, login.RefreshToken)
		assertCode(t, err, apperr.CodeSessionRevoked)
	}
}

/*
TestRevokeAllSessions_BumpsVersion verifies logout-everywhere invalidates every token.
*/
func TestRevokeAllSessions_BumpsVersion(t *testing.T) {
	f := newFixture(t, Options{})
	user := f.seedUser(t, "steve", true)
	ctx := context.Background()

	login, err := f.service.LoginWithPassword(ctx, "steve", testPassword, "", "")
	require.NoError(t, err)

	revoked, err := f.service.RevokeAllSessions(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), revoked)
	assert.Equal(t, 1, f.mustUser(t, "steve").TokenVersion)

	_, err = f.service.AuthenticateAccessToken(ctx, login.AccessToken)
	assertCode(t, err, apperr.CodeTokenInvalidated)

	_, err = f.service.RevokeAllSessions(ctx, "missing")
	assertCode(t, err, apperr.CodeNotFound)
}

// # Access Tokens

/*
TestAuthenticateAccessToken_Expired verifies an expired signature-valid token is TokenExpired.
*/
func TestAuthenticateAccessToken_Expired(t *testing.T) {
	f := newFixture(t, Options{})
	f.seedUser(t, "steve", true)
	ctx := context.Background()

	login, err := f.service.LoginWithPassword(ctx, "steve", testPassword, "", "")
	require.NoError(t, err)

	f.clock.Advance(16 * time.Minute)
	_, err = f.service.AuthenticateAccessToken(ctx, login.AccessToken)
	assertCode(t, err, apperr.CodeTokenExpired)

	_, err = f.service.AuthenticateAccessToken(ctx, "garbage")
	assertCode(t, err, apperr.CodeInvalidToken)
}

/*
TestAuthenticateAccessToken_RejectsSSOToken verifies handoff tokens never pass as access tokens.
*/
func TestAuthenticateAccessToken_RejectsSSOToken(t *testing.T) {
	f := newFixture(t, Options{})
	user := f.seedUser(t, "steve", true)

	token, _, err := f.tokens.IssueSSO(sec.Subject{UserID: user.ID, Username: "steve"}, sec.NewTokenID())
	require.NoError(t, err)

	_, err = f.service.AuthenticateAccessToken(context.Background(), token)
	assertCode(t, err, apperr.CodeInvalidToken)
}

/*
TestAuthenticateAccessToken_TouchesSession verifies lastUsedAt follows authenticated use.
*/
func TestAuthenticateAccessToken_TouchesSession(t *testing.T) {
	f := newFixture(t, Options{VerifySessionOnAccess: true})
	f.seedUser(t, "steve", true)
	ctx := context.Background()

	login, err := f.service.LoginWithPassword(ctx, "steve", testPassword, "", "")
	require.NoError(t, err)
	tokenID := tokenIDOf(t, f.tokens, login.AccessToken)

	f.clock.Advance(5 * time.Minute)
	principal, err := f.service.AuthenticateAccessToken(ctx, login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, tokenID, principal.TokenID)
	assert.Equal(t, f.clock.Now(), f.session(t, tokenID).LastUsedAt)
}

/*
TestAuthenticateAccessToken_SessionCheckOptional verifies revoked sessions pass when session checks are off.
*/
func TestAuthenticateAccessToken_SessionCheckOptional(t *testing.T) {
	f := newFixture(t, Options{VerifySessionOnAccess: false})
	user := f.seedUser(t, "steve", true)
	ctx := context.Background()

	login, err := f.service.LoginWithPassword(ctx, "steve", testPassword, "", "")
	require.NoError(t, err)
	require.NoError(t, f.service.RevokeSession(ctx, user.ID, tokenIDOf(t, f.tokens, login.AccessToken)))

	_, err = f.service.AuthenticateAccessToken(ctx, login.AccessToken)
	assert.NoError(t, err)
}

// # Registration

/*
TestRegister_CreatesAndLogsIn verifies registration assigns the default role and opens a session.
*/
func TestRegister_CreatesAndLogsIn(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	result, err := f.service.Register(ctx, RegisterInput{
		Username:      "Steve",
		Email:         pointer.To("Steve@Example.COM"),
		Password:      "diamond-pickaxe",
		DisplayName:   pointer.To("  Steve  "),
		MinecraftUUID: "069A79F4-44E9-4726-A5BE-FCA90E38AAF5",
		MinecraftNick: "Notch",
	}, "Firefox", "10.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, "Steve", result.User.Username)
	assert.Equal(t, "steve@example.com", *result.User.Email)
	assert.Equal(t, "Steve", *result.User.DisplayName)
	assert.Equal(t, []string{DefaultRole}, result.User.Roles)
	assert.NotEmpty(t, result.AccessToken)

	profile, linked := f.store.profiles["069a79f444e94726a5befca90e38aaf5"]
	require.True(t, linked)
	assert.Equal(t, result.User.ID, profile.UserID)

	_, err = f.service.LoginWithPassword(ctx, "Steve", "diamond-pickaxe", "", "")
	assert.NoError(t, err)
	assert.Equal(t, []audit.Action{audit.ActionRegister, audit.ActionLogin, audit.ActionLogin}, f.audit.actions())
}

/*
TestRegister_Conflicts verifies duplicate usernames and emails are rejected.
*/
func TestRegister_Conflicts(t *testing.T) {
	f := newFixture(t, Options{})
	f.seedUser(t, "steve", true)
	ctx := context.Background()

	_, err := f.service.Register(ctx, RegisterInput{Username: "steve", Password: "secret1"}, "", "")
	assertCode(t, err, apperr.CodeConflict)

	_, err = f.service.Register(ctx, RegisterInput{Username: "other", Email: pointer.To("STEVE@hydroline.test"), Password: "secret1"}, "", "")
	assertCode(t, err, apperr.CodeConflict)
}

// # Session Listing & Cleanup

/*
TestListSessions_FlagsCurrent verifies the caller's session is marked and revoked ones are hidden.
*/
func TestListSessions_FlagsCurrent(t *testing.T) {
	f := newFixture(t, Options{})
	user := f.seedUser(t, "steve", true)
	ctx := context.Background()

	first, err := f.service.LoginWithPassword(ctx, "steve", testPassword, "laptop", "")
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	second, err := f.service.LoginWithPassword(ctx, "steve", testPassword, "phone", "")
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	third, err := f.service.LoginWithPassword(ctx, "steve", testPassword, "tablet", "")
	require.NoError(t, err)
	require.NoError(t, f.service.RevokeSession(ctx, user.ID, tokenIDOf(t, f.tokens, third.AccessToken)))

	current := tokenIDOf(t, f.tokens, first.AccessToken)
	views, err := f.service.ListSessions(ctx, user.ID, current)
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, tokenIDOf(t, f.tokens, second.AccessToken), views[0].TokenID)
	assert.False(t, views[0].Current)
	assert.Equal(t, current, views[1].TokenID)
	assert.True(t, views[1].Current)
	assert.Equal(t, "laptop", views[1].DeviceInfo)
}

/*
TestCleanupExpiredSessions_KeepsLiveSessions verifies only expired or inactive rows are deleted.
*/
func TestCleanupExpiredSessions_KeepsLiveSessions(t *testing.T) {
	f := newFixture(t, Options{})
	user := f.seedUser(t, "steve", true)
	ctx := context.Background()

	live, err := f.service.LoginWithPassword(ctx, "steve", testPassword, "", "")
	require.NoError(t, err)
	revoked, err := f.service.LoginWithPassword(ctx, "steve", testPassword, "", "")
	require.NoError(t, err)
	expired, err := f.service.LoginWithPassword(ctx, "steve", testPassword, "", "")
	require.NoError(t, err)

	require.NoError(t, f.service.RevokeSession(ctx, user.ID, tokenIDOf(t, f.tokens, revoked.AccessToken)))
	f.store.sessions[tokenIDOf(t, f.tokens, expired.AccessToken)].ExpiresAt = f.clock.Now().Add(-time.Second)

	admin := &sec.Principal{UserID: "admin-id"}
	deleted, err := f.service.CleanupExpiredSessions(ctxutil.WithPrincipal(ctx, admin))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	assert.True(t, f.session(t, tokenIDOf(t, f.tokens, live.AccessToken)).IsActive)
	assert.Len(t, f.store.sessions, 1)

	again, err := f.service.CleanupExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Zero(t, again)

	assert.Equal(t, float64(2), f.counter(t, "hydroline_auth_sessions_cleaned_total", "", ""))

	last := f.audit.entries[len(f.audit.entries)-2]
	assert.Equal(t, audit.ActionCleanupSessions, last.Action)
	require.NotNil(t, last.UserID)
	assert.Equal(t, "admin-id", *last.UserID)
}

// # Logout & Profile

/*
TestLogout_ExpiredAccessToken verifies logout still ends a session whose access token lapsed.
*/
func TestLogout_ExpiredAccessToken(t *testing.T) {
	f := newFixture(t, Options{})
	f.seedUser(t, "steve", true)
	ctx := context.Background()

	login, err := f.service.LoginWithPassword(ctx, "steve", testPassword, "", "")
	require.NoError(t, err)
	tokenID := tokenIDOf(t, f.tokens, login.AccessToken)

	f.clock.Advance(time.Hour)
	f.service.Logout(ctx, nil, login.AccessToken)
	assert.False(t, f.session(t, tokenID).IsActive)

	assert.NotPanics(t, func() {
		f.service.Logout(ctx, nil, "")
		f.service.Logout(ctx, nil, "garbage")
	})
}

/*
TestLogout_WithPrincipal verifies the authenticated principal's jti is revoked.
*/
func TestLogout_WithPrincipal(t *testing.T) {
	f := newFixture(t, Options{})
	user := f.seedUser(t, "steve", true)
	ctx := context.Background()

	login, err := f.service.LoginWithPassword(ctx, "steve", testPassword, "", "")
	require.NoError(t, err)
	tokenID := tokenIDOf(t, f.tokens, login.AccessToken)

	f.service.Logout(ctx, &sec.Principal{UserID: user.ID, TokenID: tokenID}, "")
	assert.False(t, f.session(t, tokenID).IsActive)
	assert.Contains(t, f.audit.actions(), audit.ActionLogout)
}

/*
TestProfile verifies the profile carries roles and the token identity.
*/
func TestProfile(t *testing.T) {
	f := newFixture(t, Options{})
	user := f.seedUser(t, "steve", true)

	profile, err := f.service.Profile(context.Background(), &sec.Principal{UserID: user.ID, TokenID: "jti-1"})
	require.NoError(t, err)
	assert.Equal(t, "steve", profile.Username)
	assert.Equal(t, []string{DefaultRole}, profile.Roles)
	assert.Equal(t, "jti-1", profile.TokenID)

	_, err = f.service.Profile(context.Background(), &sec.Principal{UserID: "missing"})
	assertCode(t, err, apperr.CodeNotFound)
}
