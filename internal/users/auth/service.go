// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hydroline/hydroline-services/internal/platform/apperr"
	"github.com/hydroline/hydroline-services/internal/platform/constants"
	"github.com/hydroline/hydroline-services/internal/platform/ctxutil"
	"github.com/hydroline/hydroline-services/internal/platform/sec"
	"github.com/hydroline/hydroline-services/internal/system/audit"
	"github.com/hydroline/hydroline-services/pkg/normalize"
	"github.com/hydroline/hydroline-services/pkg/uuid"
)

// # Contracts & Types

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) (bool, error)
	VerifyDummy(plain string)
}

// RoleResolver returns the role names currently held by a user.
type RoleResolver interface {
	RoleNames(ctx context.Context, userID string) ([]string, error)
}

// AuditRecorder receives best-effort audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Options are the tunable policies of the [Service].
type Options struct {
	// RotateRefreshToken issues a new refresh token (same jti) on every refresh.
	RotateRefreshToken bool

	// RefreshChecksSessionExpiry rejects refreshes whose session row has expired.
	RefreshChecksSessionExpiry bool

	// VerifySessionOnAccess checks the jti's session on every authenticated request.
	VerifySessionOnAccess bool
}

// Dependencies wires a [Service].
type Dependencies struct {
	Users    UserRepository
	Sessions SessionRepository
	Hasher   PasswordHasher
	Tokens   *sec.TokenIssuer
	Roles    RoleResolver
	Audit    AuditRecorder
	Metrics  *Metrics
	Options  Options
}

// Service implements the authentication use cases.
type Service struct {
	users    UserRepository
	sessions SessionRepository
	hasher   PasswordHasher
	tokens   *sec.TokenIssuer
	roles    RoleResolver
	audit    AuditRecorder
	metrics  *Metrics
	options  Options
	now      func() time.Time
}

// NewService constructs a [Service]. Metrics may be nil.
func NewService(deps Dependencies) *Service {
	metrics := deps.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	return &Service{
		users:    deps.Users,
		sessions: deps.Sessions,
		hasher:   deps.Hasher,
		tokens:   deps.Tokens,
		roles:    deps.Roles,
		audit:    deps.Audit,
		metrics:  metrics,
		options:  deps.Options,
		now:      time.Now,
	}
}

// # Credentials

/*
ValidateCredentials checks an identifier and password.

Description: The identifier is matched as a username first and, when it looks
like an address, as an email. Unknown users and password-less accounts burn a
dummy comparison and fail exactly like a wrong password.

Parameters:
  - ctx: context.Context
  - identifier: string (username or email)
  - password: string

Returns:
  - *User: The account with its password hash stripped
  - error: BadCredentials, AccountDisabled, or internal failures
*/
func (service *Service) ValidateCredentials(ctx context.Context, identifier, password string) (*User, error) {
	user, err := service.lookup(ctx, identifier)
	if err != nil {
		if apperr.IsNotFound(err) {
			service.hasher.VerifyDummy(password)
			return nil, apperr.BadCredentials()
		}
		return nil, fmt.Errorf("auth_service_validate_credentials_failed: %w", err)
	}

	if !user.HasPassword() {
		service.hasher.VerifyDummy(password)
		return nil, apperr.BadCredentials()
	}

	ok, err := service.hasher.Verify(password, *user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("auth_service_verify_password_failed: %w", err)
	}
	if !ok {
		return nil, apperr.BadCredentials()
	}

	if !user.IsActive {
		return nil, apperr.AccountDisabled()
	}

	user.PasswordHash = nil
	return user, nil
}

func (service *Service) lookup(ctx context.Context, identifier string) (*User, error) {
	user, err := service.users.FindByUsername(ctx, normalize.Username(identifier))
	if err == nil || !apperr.IsNotFound(err) || !strings.Contains(identifier, "@") {
		return user, err
	}
	return service.users.FindByEmail(ctx, normalize.Email(identifier))
}

// # Login Flow

/*
Login opens a new session for an already authenticated user.

Parameters:
  - ctx: context.Context
  - user: *User
  - deviceInfo: string (blank becomes "Unknown Device")
  - ipAddress: string (blank becomes "Unknown IP")

Returns:
  - *AuthResult: User view and token pair
  - error: Token signing or storage failures
*/
func (service *Service) Login(ctx context.Context, user *User, deviceInfo, ipAddress string) (*AuthResult, error) {
	tokenID := sec.NewTokenID()

	pair, err := service.tokens.IssuePair(subjectOf(user), tokenID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_issue_tokens_failed: %w", err)
	}

	now := service.now()
	session := &Session{
		ID:         uuid.New(),
		UserID:     user.ID,
		TokenID:    tokenID,
		DeviceInfo: fallback(deviceInfo, constants.UnknownDevice),
		IPAddress:  fallback(ipAddress, constants.UnknownIP),
		ExpiresAt:  now.Add(service.tokens.RefreshTTL()),
		LastUsedAt: now,
		IsActive:   true,
		CreatedAt:  now,
	}

	if err := service.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("auth_service_create_session_failed: %w", err)
	}

	roles, err := service.roles.RoleNames(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_resolve_roles_failed: %w", err)
	}

	service.record(ctx, &user.ID, audit.ActionLogin, resourceSession, tokenID, session.IPAddress, session.DeviceInfo, nil)

	return &AuthResult{
		User:         newUserView(user, roles),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

/*
LoginWithPassword is ValidateCredentials followed by Login.

Parameters:
  - ctx: context.Context
  - identifier: string
  - password: string
  - deviceInfo: string
  - ipAddress: string

Returns:
  - *AuthResult: User view and token pair
  - error: Credential failures or internal errors
*/
func (service *Service) LoginWithPassword(ctx context.Context, identifier, password, deviceInfo, ipAddress string) (*AuthResult, error) {
	user, err := service.ValidateCredentials(ctx, identifier, password)
	if err != nil {
		service.metrics.login(err)
		if apperr.IsAppError(err) {
			ctxutil.GetLogger(ctx).Debug("auth_login_rejected", slog.String("reason", apperr.As(err).Code))
			service.record(ctx, nil, audit.ActionLoginFailed, resourceUser, normalize.Username(identifier), ipAddress, deviceInfo, nil)
		}
		return nil, err
	}

	result, err := service.Login(ctx, user, deviceInfo, ipAddress)
	service.metrics.login(err)
	if err != nil {
		return nil, err
	}

	ctxutil.GetLogger(ctx).Info("auth_login_succeeded", slog.String("user_id", user.ID))
	return result, nil
}

// # Refresh Flow

/*
Refresh exchanges a refresh token for a new access token.

Description: The new access token reuses the jti and the current token
version. Verification failures are reported as a generic InvalidToken.
Session expiry is only enforced when RefreshChecksSessionExpiry is set.

Parameters:
  - ctx: context.Context
  - refreshToken: string

Returns:
  - *RefreshResult: New access token (and refresh token when rotating)
  - error: InvalidToken, AccountDisabled, TokenInvalidated, SessionRevoked
*/
func (service *Service) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	result, err := service.refresh(ctx, refreshToken)
	service.metrics.refresh(err)
	return result, err
}

func (service *Service) refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	claims, err := service.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, apperr.InvalidToken("Invalid refresh token")
	}

	user, err := service.users.FindByID(ctx, claims.UserID())
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.InvalidToken("Invalid refresh token")
		}
		return nil, fmt.Errorf("auth_service_refresh_failed: %w", err)
	}
	if !user.IsActive {
		return nil, apperr.AccountDisabled()
	}

	if version, ok := claims.Version(); !ok || version != user.TokenVersion {
		return nil, apperr.TokenInvalidated()
	}

	session, err := service.sessions.FindByTokenID(ctx, claims.TokenID())
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.SessionRevoked()
		}
		return nil, fmt.Errorf("auth_service_refresh_failed: %w", err)
	}
	if !session.IsActive || session.UserID != user.ID {
		return nil, apperr.SessionRevoked()
	}
	if service.options.RefreshChecksSessionExpiry && !session.ExpiresAt.After(service.now()) {
		return nil, apperr.SessionRevoked()
	}

	subject := subjectOf(user)
	result := &RefreshResult{}

	result.AccessToken, _, err = service.tokens.IssueAccess(subject, claims.TokenID())
	if err != nil {
		return nil, fmt.Errorf("auth_service_issue_tokens_failed: %w", err)
	}

	if service.options.RotateRefreshToken {
		result.RefreshToken, _, err = service.tokens.IssueRefresh(subject, claims.TokenID())
		if err != nil {
			return nil, fmt.Errorf("auth_service_issue_tokens_failed: %w", err)
		}
	}

	return result, nil
}

// # Bearer Authentication

/*
AuthenticateAccessToken turns a bearer token into a [sec.Principal].

Description: Checks signature and expiry, that the user still exists and is
active, that a version-stamped token matches the current token version, and,
with VerifySessionOnAccess, that the jti's session is usable. A usable session
has its lastusedat touched.

Parameters:
  - ctx: context.Context
  - accessToken: string

Returns:
  - *sec.Principal: The authenticated caller
  - error: TokenExpired, InvalidToken, AccountDisabled, TokenInvalidated, SessionRevoked
*/
func (service *Service) AuthenticateAccessToken(ctx context.Context, accessToken string) (*sec.Principal, error) {
	claims, err := service.tokens.VerifyAccess(accessToken)
	if err != nil {
		if errors.Is(err, sec.ErrTokenExpired) {
			return nil, apperr.TokenExpired()
		}
		return nil, apperr.InvalidToken("Invalid access token")
	}

	user, err := service.users.FindByID(ctx, claims.UserID())
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.InvalidToken("Invalid access token")
		}
		return nil, fmt.Errorf("auth_service_authenticate_failed: %w", err)
	}
	if !user.IsActive {
		return nil, apperr.AccountDisabled()
	}

	if version, ok := claims.Version(); ok && version != user.TokenVersion {
		return nil, apperr.TokenInvalidated()
	}

	if service.options.VerifySessionOnAccess {
		if err := service.checkSession(ctx, user.ID, claims.TokenID()); err != nil {
			return nil, err
		}
	}

	return &sec.Principal{
		UserID:       user.ID,
		Username:     user.Username,
		TokenID:      claims.TokenID(),
		TokenVersion: user.TokenVersion,
	}, nil
}

func (service *Service) checkSession(ctx context.Context, userID, tokenID string) error {
	session, err := service.sessions.FindByTokenID(ctx, tokenID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return apperr.SessionRevoked()
		}
		return fmt.Errorf("auth_service_authenticate_failed: %w", err)
	}

	now := service.now()
	if !session.Usable(now) || session.UserID != userID {
		return apperr.SessionRevoked()
	}

	if err := service.sessions.Touch(ctx, tokenID, now); err != nil {
		ctxutil.GetLogger(ctx).Warn("session_touch_failed", slog.Any("error", err))
	}

	return nil
}

// # Account Management

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Username      string
	Email         *string
	Password      string
	DisplayName   *string
	MinecraftUUID string
	MinecraftNick string
}

/*
Register creates an account and logs it in.

Description: The account, its optional Minecraft profile and the default role
are written in one transaction. The caller receives a fresh session.

Parameters:
  - ctx: context.Context
  - input: RegisterInput
  - deviceInfo: string
  - ipAddress: string

Returns:
  - *AuthResult: The new user and its token pair
  - error: Conflict if the username or email is taken, or storage errors
*/
func (service *Service) Register(ctx context.Context, input RegisterInput, deviceInfo, ipAddress string) (*AuthResult, error) {
	username := normalize.Username(input.Username)
	email := normalize.Optional(input.Email, normalize.Email)

	if err := service.ensureAvailable(ctx, username, email); err != nil {
		return nil, err
	}

	hash, err := service.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	user := &User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: &hash,
		DisplayName:  normalize.Optional(input.DisplayName, normalize.Text),
		IsActive:     true,
	}

	var profile *MinecraftProfile
	if input.MinecraftUUID != "" {
		profile = &MinecraftProfile{
			ID:            uuid.New(),
			MinecraftUUID: strings.ToLower(strings.ReplaceAll(input.MinecraftUUID, "-", "")),
			MinecraftNick: strings.TrimSpace(input.MinecraftNick),
			IsPrimary:     true,
		}
	}

	if err := service.users.Create(ctx, user, profile, DefaultRole); err != nil {
		if apperr.IsAppError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	service.record(ctx, &user.ID, audit.ActionRegister, resourceUser, user.ID, ipAddress, deviceInfo, nil)
	ctxutil.GetLogger(ctx).Info("auth_user_registered", slog.String("user_id", user.ID))

	user.PasswordHash = nil
	return service.Login(ctx, user, deviceInfo, ipAddress)
}

func (service *Service) ensureAvailable(ctx context.Context, username string, email *string) error {
	if _, err := service.users.FindByUsername(ctx, username); err == nil {
		return apperr.Conflict("Username is already taken")
	} else if !apperr.IsNotFound(err) {
		return fmt.Errorf("auth_service_register_failed: %w", err)
	}

	if email == nil {
		return nil
	}

	if _, err := service.users.FindByEmail(ctx, *email); err == nil {
		return apperr.Conflict("Email is already registered")
	} else if !apperr.IsNotFound(err) {
		return fmt.Errorf("auth_service_register_failed: %w", err)
	}

	return nil
}

/*
ChangePassword replaces a user's password and ends all of their sessions.

Description: The new hash, the token version bump and the session
deactivation are one transaction, so the caller has to log in again.

Parameters:
  - ctx: context.Context
  - userID: string
  - oldPassword: string
  - newPassword: string

Returns:
  - error: NotFound, NoPasswordSet, WrongPassword, or storage errors
*/
func (service *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return err
		}
		return fmt.Errorf("auth_service_change_password_failed: %w", err)
	}

	if !user.HasPassword() {
		return apperr.NoPasswordSet()
	}

	ok, err := service.hasher.Verify(oldPassword, *user.PasswordHash)
	if err != nil {
		return fmt.Errorf("auth_service_verify_password_failed: %w", err)
	}
	if !ok {
		return apperr.WrongPassword()
	}

	hash, err := service.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	revoked, err := service.users.ChangePassword(ctx, userID, hash)
	if err != nil {
		if apperr.IsNotFound(err) {
			return err
		}
		return fmt.Errorf("auth_service_change_password_failed: %w", err)
	}

	service.metrics.revoked(scopePassword, revoked)
	service.record(ctx, &userID, audit.ActionChangePassword, resourceUser, userID, "", "",
		map[string]any{"sessionsRevoked": revoked})

	return nil
}

/*
Profile returns the caller's account view.

Parameters:
  - ctx: context.Context
  - principal: *sec.Principal

Returns:
  - *Profile: User view with roles and token identity
  - error: NotFound or storage errors
*/
func (service *Service) Profile(ctx context.Context, principal *sec.Principal) (*Profile, error) {
	user, err := service.users.FindByID(ctx, principal.UserID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("auth_service_profile_failed: %w", err)
	}

	roles, err := service.roles.RoleNames(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_resolve_roles_failed: %w", err)
	}

	return &Profile{
		UserView:     newUserView(user, roles),
		TokenID:      principal.TokenID,
		TokenVersion: user.TokenVersion,
	}, nil
}

// # Helpers

func subjectOf(user *User) sec.Subject {
	return sec.Subject{UserID: user.ID, Username: user.Username, TokenVersion: user.TokenVersion}
}

func fallback(value, placeholder string) string {
	if value = strings.TrimSpace(value); value == "" {
		return placeholder
	}
	return value
}

func (service *Service) record(ctx context.Context, userID *string, action audit.Action, resource, resourceID, ipAddress, userAgent string, detail map[string]any) {
	if service.audit == nil {
		return
	}
	service.audit.Record(ctx, audit.Entry{
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Detail:     detail,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
	})
}
