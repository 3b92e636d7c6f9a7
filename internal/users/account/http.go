// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

package account

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hydroline/hydroline-services/internal/platform/middleware"
	requestutil "github.com/hydroline/hydroline-services/internal/platform/request"
	"github.com/hydroline/hydroline-services/internal/platform/respond"
	"github.com/hydroline/hydroline-services/internal/platform/validate"
	"github.com/hydroline/hydroline-services/internal/users/rbac"
)

const displayNameMaxLength = 100

// Handler implements the HTTP layer for profile and account administration.
type Handler struct {
	accountService *Service
	access         middleware.AccessChecker
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service, access middleware.AccessChecker) *Handler {
	return &Handler{accountService: service, access: access}
}

// Routes returns a [chi.Router] configured with the account endpoints.
//
// # Endpoints
//   - GET    /me                      : Own account with grants.
//   - PATCH  /me                      : Edits the own profile.
//   - GET    /users/{id}              : Any account (user:read).
//   - POST   /users/{id}/activate     : Re-enables an account (user:write).
//   - POST   /users/{id}/deactivate   : Disables and logs out an account (user:write).
//   - PUT    /users/{id}/roles/{role} : Assigns a role (role:assign).
//   - DELETE /users/{id}/roles/{role} : Removes a role (role:assign).
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Group(func(self chi.Router) {
		self.Use(middleware.RequireAuth)
		self.Get("/me", handler.getMe)
		self.Patch("/me", handler.updateMe)
	})

	router.With(middleware.RequirePermissions(handler.access, rbac.PermissionUserRead)).
		Get("/users/{id}", handler.getUser)

	router.Group(func(admin chi.Router) {
		admin.Use(middleware.RequirePermissions(handler.access, rbac.PermissionUserWrite))
		admin.Post("/users/{id}/activate", handler.setActive(true))
		admin.Post("/users/{id}/deactivate", handler.setActive(false))
	})

	router.Group(func(roles chi.Router) {
		roles.Use(middleware.RequirePermissions(handler.access, rbac.PermissionRoleAssign))
		roles.Put("/users/{id}/roles/{role}", handler.assignRole)
		roles.Delete("/users/{id}/roles/{role}", handler.revokeRole)
	})

	return router
}

// # Own Account

/*
GET /api/v1/me.

Response:
  - 200: Account: Profile, roles, permissions and linked identities
  - 401: Authentication required
*/
func (handler *Handler) getMe(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.accountService.GetAccount(request.Context(), principal.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, account)
}

type updateMeRequest struct {
	DisplayName *string `json:"displayName"`
}

/*
PATCH /api/v1/me.

Request:
  - body: {displayName} (empty string clears it)

Response:
  - 200: Account: The updated view
  - 400: Validation failure
  - 401: Authentication required
*/
func (handler *Handler) updateMe(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateMeRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if input.DisplayName != nil {
		if err := (&validate.Validator{}).MaxLen("displayName", *input.DisplayName, displayNameMaxLength).Err(); err != nil {
			respond.Error(writer, request, err)
			return
		}
	}

	account, err := handler.accountService.UpdateProfile(request.Context(), principal.UserID, UpdateProfileInput{
		DisplayName: input.DisplayName,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, account)
}

// # Administration

func (handler *Handler) getUser(writer http.ResponseWriter, request *http.Request) {
	account, err := handler.accountService.GetAccount(request.Context(), requestutil.Param(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, account)
}

// setActive answers {"sessionsRevoked": n}.
func (handler *Handler) setActive(active bool) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		principal, err := requestutil.RequiredPrincipal(request)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}

		revoked, err := handler.accountService.SetActive(request.Context(), principal.UserID, requestutil.Param(request, "id"), active)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}

		respond.OK(writer, map[string]int64{"sessionsRevoked": revoked})
	}
}

type assignRoleRequest struct {
	ExpiresAt *time.Time `json:"expiresAt"`
}

/*
PUT /api/v1/users/{id}/roles/{role}.

Request:
  - body: {expiresAt} (optional RFC 3339 timestamp)

Response:
  - 200: Role assigned
  - 400: Expiry in the past
  - 403: Missing role:assign, or super_admin without being one
  - 404: Unknown user or role
*/
func (handler *Handler) assignRole(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input assignRoleRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.accountService.AssignRole(request.Context(),
		principal.UserID,
		requestutil.Param(request, "id"),
		requestutil.Param(request, "role"),
		input.ExpiresAt,
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "Role assigned")
}

func (handler *Handler) revokeRole(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.accountService.RevokeRole(request.Context(),
		principal.UserID,
		requestutil.Param(request, "id"),
		requestutil.Param(request, "role"),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "Role removed")
}
