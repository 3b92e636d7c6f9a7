// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

package audit

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hydroline/hydroline-services/internal/platform/middleware"
	requestutil "github.com/hydroline/hydroline-services/internal/platform/request"
	"github.com/hydroline/hydroline-services/internal/platform/respond"
	"github.com/hydroline/hydroline-services/internal/platform/validate"
	"github.com/hydroline/hydroline-services/internal/users/rbac"
	"github.com/hydroline/hydroline-services/pkg/pagination"
	"github.com/hydroline/hydroline-services/pkg/uuid"
)

// Handler serves the audit trail.
type Handler struct {
	reader Reader
	access middleware.AccessChecker
}

// NewHandler constructs an audit [Handler].
func NewHandler(reader Reader, access middleware.AccessChecker) *Handler {
	return &Handler{reader: reader, access: access}
}

// Routes returns a [chi.Router] configured with the audit endpoints.
//
// # Endpoints
//   - GET /    : Every entry, filterable by userId, action and resource (audit:read).
//   - GET /me  : The caller's own entries, filterable by action and resource.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.With(middleware.RequireAuth).Get("/me", handler.listOwn)
	router.With(middleware.RequirePermissions(handler.access, rbac.PermissionAuditRead)).Get("/", handler.listAll)

	return router
}

/*
GET /api/v1/audit-logs/me.

Request:
  - action: string (optional)
  - resource: string (optional)
  - page, limit: int

Response:
  - 200: []Entry with pagination meta
  - 401: Authentication required
*/
func (handler *Handler) listOwn(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	filter := filterFrom(request)
	filter.UserID = principal.UserID
	handler.list(writer, request, filter)
}

/*
GET /api/v1/audit-logs.

Request:
  - userId: string (optional UUID)
  - action: string (optional)
  - resource: string (optional)
  - page, limit: int

Response:
  - 200: []Entry with pagination meta
  - 400: Malformed userId
  - 403: Missing audit:read
*/
func (handler *Handler) listAll(writer http.ResponseWriter, request *http.Request) {
	filter := filterFrom(request)
	filter.UserID = strings.TrimSpace(request.URL.Query().Get("userId"))

	if err := (&validate.Validator{}).
		Custom("userId", filter.UserID != "" && !uuid.Valid(filter.UserID), "must be a UUID").
		Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.list(writer, request, filter)
}

func (handler *Handler) list(writer http.ResponseWriter, request *http.Request, filter Filter) {
	params := pagination.FromQuery(request.URL.Query())

	entries, total, err := handler.reader.List(request.Context(), filter, params.Limit, params.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, entries, pagination.NewMeta(params, total))
}

// filterFrom reads the filters shared by both listings.
func filterFrom(request *http.Request) Filter {
	query := request.URL.Query()
	return Filter{
		Action:   Action(strings.ToUpper(strings.TrimSpace(query.Get("action")))),
		Resource: strings.TrimSpace(query.Get("resource")),
	}
}
