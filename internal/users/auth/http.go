// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

// Package auth contains the authentication core: credential checks, the
// session lifecycle, token refresh and revocation, SSO handoff and OAuth
// login, plus the HTTP delivery layer for those use cases.
//
// # Sessions
//
// A login creates one Session row keyed by a fresh jti and returns an access
// and a refresh token that both carry that jti and the user's token version.
// Two independent revocation levers exist:
//
//   - Token version: bumping it (password change, logout everywhere) kills
//     every token of the user at once, whether or not its session row survives.
//   - Session active flag: clearing it kills one login episode.
//
// Both are consulted on every refresh and, unless disabled, on every
// authenticated request.
//
// # Architecture
//
// Handlers parse and validate input, call the [Service] (or the [SSOBridge]
// and [OAuthFlow]) and write the standard envelope via the respond package.
// They contain no business logic or database queries.
package auth

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hydroline/hydroline-services/internal/platform/apperr"
	"github.com/hydroline/hydroline-services/internal/platform/middleware"
	requestutil "github.com/hydroline/hydroline-services/internal/platform/request"
	"github.com/hydroline/hydroline-services/internal/platform/respond"
	"github.com/hydroline/hydroline-services/internal/platform/validate"
	"github.com/hydroline/hydroline-services/internal/users/rbac"
)

// oauthBasePath is where the provider listing points its login links.
const oauthBasePath = "/api/v1/auth/oauth"

// Handler implements the authentication HTTP endpoints.
type Handler struct {
	service      *Service
	sso          *SSOBridge
	oauth        *OAuthFlow
	access       middleware.AccessChecker
	loginLimiter *middleware.RateLimiter
}

// NewHandler constructs a [Handler]. loginLimiter may be nil.
func NewHandler(service *Service, sso *SSOBridge, oauth *OAuthFlow, access middleware.AccessChecker, loginLimiter *middleware.RateLimiter) *Handler {
	return &Handler{
		service:      service,
		sso:          sso,
		oauth:        oauth,
		access:       access,
		loginLimiter: loginLimiter,
	}
}

// Routes returns a [chi.Router] with the authentication endpoints.
//
// # Endpoints
//   - POST   /register            : Creates an account and logs it in.
//   - POST   /login               : Authenticates and returns a token pair.
//   - POST   /refresh             : Exchanges a refresh token for an access token.
//   - POST   /logout              : Ends the current session (best-effort).
//   - GET    /profile             : Current account.
//   - POST   /change-password     : Changes the password, logging out everywhere.
//   - GET    /sessions            : Active sessions of the caller.
//   - DELETE /sessions/{tokenId}  : Revokes one session.
//   - DELETE /sessions            : Revokes every session but the current one.
//   - POST   /logout-all          : Revokes every session and outstanding token.
//   - POST   /cleanup-sessions    : Sweeps stale sessions (admin).
//   - GET    /sso/{system}        : SSO redirect URL for a federated system.
//   - POST   /sso/verify          : Verifies an SSO handoff token.
//   - GET    /oauth/providers     : Enabled OAuth providers.
//   - GET    /oauth/{provider}    : OAuth authorize URL.
//   - GET    /oauth/{provider}/callback : OAuth login completion.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/register", handler.register)
	router.Group(func(public chi.Router) {
		if handler.loginLimiter != nil {
			public.Use(handler.loginLimiter.Handler)
		}
		public.Post("/login", handler.login)
	})
	router.Post("/refresh", handler.refresh)
	router.Post("/logout", handler.logout)
	router.Post("/sso/verify", handler.verifySSO)
	router.Get("/oauth/providers", handler.oauthProviders)
	router.Get("/oauth/{provider}", handler.oauthBegin)
	router.Get("/oauth/{provider}/callback", handler.oauthCallback)

	router.Group(func(protected chi.Router) {
		protected.Use(middleware.RequireAuth)

		protected.Get("/profile", handler.profile)
		protected.Post("/change-password", handler.changePassword)
		protected.Get("/sessions", handler.listSessions)
		protected.Delete("/sessions/{tokenId}", handler.revokeSession)
		protected.Delete("/sessions", handler.revokeOtherSessions)
		protected.Post("/logout-all", handler.logoutAll)
		protected.Get("/sso/{system}", handler.ssoRedirect)
	})

	router.Group(func(admin chi.Router) {
		admin.Use(middleware.RequireRoles(handler.access, rbac.RoleAdmin, rbac.RoleSuperAdmin))
		admin.Post("/cleanup-sessions", handler.cleanupSessions)
	})

	return router
}

// # Registration & Login

type registerRequest struct {
	Username      string  `json:"username"`
	Email         *string `json:"email"`
	Password      string  `json:"password"`
	DisplayName   *string `json:"displayName"`
	MinecraftUUID string  `json:"minecraftUuid"`
	MinecraftNick string  `json:"minecraftNick"`
}

func (input registerRequest) validate() error {
	v := &validate.Validator{}

	v.Required(FieldUsername, input.Username).
		MinLen(FieldUsername, input.Username, UsernameMinLength).
		MaxLen(FieldUsername, input.Username, UsernameMaxLength).
		Matches(FieldUsername, input.Username, usernamePattern, "Only letters, digits, underscores and hyphens are allowed")

	if input.Email != nil {
		v.OptionalEmail(FieldEmail, *input.Email)
	}

	v.Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, PasswordMinLength).
		MaxLen(FieldPassword, input.Password, PasswordMaxLength)

	if input.DisplayName != nil {
		v.MaxLen(FieldDisplayName, *input.DisplayName, DisplayNameMaxLength)
	}

	if input.MinecraftUUID != "" {
		v.Matches(FieldMinecraftUUID, input.MinecraftUUID, minecraftUUIDPattern, "Must be a valid Minecraft UUID")
	}
	v.MaxLen(FieldMinecraftNick, input.MinecraftNick, MinecraftNickMax).
		Custom(FieldMinecraftUUID, input.MinecraftUUID == "" && input.MinecraftNick != "", "Required when minecraftNick is set")

	return v.Err()
}

// register handles POST /auth/register.
//
// # Returns
//   - 201 Created with the user and a token pair.
//   - 400 Bad Request if validation fails.
//   - 409 Conflict if the username, email or Minecraft UUID is taken.
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	// ── 1. Payload Extraction ─────────────────────────────────────────────
	var input registerRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 2. Boundary Validation ────────────────────────────────────────────
	if err := input.validate(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 3. Application Execution ──────────────────────────────────────────
	client := requestutil.Client(request)
	result, err := handler.service.Register(request.Context(), RegisterInput{
		Username:      input.Username,
		Email:         emptyToNil(input.Email),
		Password:      input.Password,
		DisplayName:   emptyToNil(input.DisplayName),
		MinecraftUUID: input.MinecraftUUID,
		MinecraftNick: input.MinecraftNick,
	}, client.DeviceInfo, client.IPAddress)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, result)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// login handles POST /auth/login.
//
// # Returns
//   - 200 OK with the user and a token pair.
//   - 400 Bad Request on empty fields.
//   - 401 Unauthorized for bad credentials, without saying which part was wrong.
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := &validate.Validator{}
	v.Required(FieldUsername, input.Username).Required(FieldPassword, input.Password)
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	client := requestutil.Client(request)
	result, err := handler.service.LoginWithPassword(request.Context(), input.Username, input.Password, client.DeviceInfo, client.IPAddress)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// refresh handles POST /auth/refresh.
//
// Every client-side failure (invalid, expired, stale version, revoked
// session) is answered with 400.
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := (&validate.Validator{}).Required(FieldRefreshToken, input.RefreshToken).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.service.Refresh(request.Context(), input.RefreshToken)
	if err != nil {
		if appError := apperr.As(err); appError != nil && appError.HTTPStatus < http.StatusInternalServerError {
			err = appError.WithStatus(http.StatusBadRequest)
		}
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result)
}

// logout handles POST /auth/logout. It always succeeds.
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	handler.service.Logout(request.Context(), requestutil.Principal(request), requestutil.BearerToken(request))
	respond.Message(writer, "Logged out")
}

// # Account

func (handler *Handler) profile(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	profile, err := handler.service.Profile(request.Context(), principal)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, profile)
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// changePassword handles POST /auth/change-password.
//
// Every outstanding token of the account stops working afterwards, the
// caller's included.
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := &validate.Validator{}
	v.Required(FieldOldPassword, input.OldPassword).
		Required(FieldNewPassword, input.NewPassword).
		MinLen(FieldNewPassword, input.NewPassword, PasswordMinLength).
		MaxLen(FieldNewPassword, input.NewPassword, PasswordMaxLength)
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.ChangePassword(request.Context(), principal.UserID, input.OldPassword, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "Password changed, please log in again")
}

// # Sessions

func (handler *Handler) listSessions(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	sessions, err := handler.service.ListSessions(request.Context(), principal.UserID, principal.TokenID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, sessions)
}

func (handler *Handler) revokeSession(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	tokenID := requestutil.Param(request, "tokenId")
	if err := handler.service.RevokeSession(request.Context(), principal.UserID, tokenID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "Session revoked")
}

func (handler *Handler) revokeOtherSessions(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	revoked, err := handler.service.RevokeAllExcept(request.Context(), principal.UserID, principal.TokenID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]int64{"revoked": revoked})
}

func (handler *Handler) logoutAll(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	revoked, err := handler.service.RevokeAllSessions(request.Context(), principal.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]int64{"revoked": revoked})
}

func (handler *Handler) cleanupSessions(writer http.ResponseWriter, request *http.Request) {
	deleted, err := handler.service.CleanupExpiredSessions(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]int64{"deleted": deleted})
}

// # SSO

// ssoRedirect handles GET /auth/sso/{system}.
//
// Answers {redirectUrl}, or a 302 when called with ?redirect=true.
func (handler *Handler) ssoRedirect(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	location, err := handler.sso.RedirectURL(principal, requestutil.Param(request, "system"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if follow, _ := strconv.ParseBool(request.URL.Query().Get("redirect")); follow {
		respond.Redirect(writer, request, location)
		return
	}

	respond.OK(writer, map[string]string{"redirectUrl": location})
}

type verifySSORequest struct {
	Token string `json:"token"`
}

type ssoIdentity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	TokenID  string `json:"tokenId"`
}

// verifySSO handles POST /auth/sso/verify for federated systems.
func (handler *Handler) verifySSO(writer http.ResponseWriter, request *http.Request) {
	var input verifySSORequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := (&validate.Validator{}).Required(FieldToken, input.Token).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	claims, err := handler.sso.VerifyToken(request.Context(), input.Token)
	if err != nil {
		if appError := apperr.As(err); appError != nil && appError.HTTPStatus == http.StatusUnauthorized {
			err = appError.WithStatus(http.StatusBadRequest)
		}
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, ssoIdentity{UserID: claims.Subject, Username: claims.Username, TokenID: claims.ID})
}

// # OAuth

func (handler *Handler) oauthProviders(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, handler.oauth.Providers(oauthBasePath))
}

func (handler *Handler) oauthBegin(writer http.ResponseWriter, request *http.Request) {
	location, err := handler.oauth.Begin(request.Context(), requestutil.Param(request, "provider"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"authorizeUrl": location})
}

func (handler *Handler) oauthCallback(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()

	v := &validate.Validator{}
	v.Required(FieldCode, query.Get(FieldCode)).Required(FieldState, query.Get(FieldState))
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	client := requestutil.Client(request)
	result, err := handler.oauth.Complete(request.Context(),
		requestutil.Param(request, "provider"),
		query.Get(FieldCode),
		query.Get(FieldState),
		client.DeviceInfo,
		client.IPAddress,
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result)
}

func emptyToNil(value *string) *string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	return value
}
