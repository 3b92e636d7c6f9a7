// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

package account

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/hydroline/hydroline-services/internal/platform/apperr"
	"github.com/hydroline/hydroline-services/internal/system/audit"
	"github.com/hydroline/hydroline-services/internal/users/auth"
	"github.com/hydroline/hydroline-services/internal/users/rbac"
)

const resourceUser = "user"

// # Service Layer

// Service orchestrates profile edits and administrative account changes.
type Service struct {
	repository Repository
	grants     GrantResolver
	audit      AuditRecorder
	logger     *slog.Logger
	now        func() time.Time
}

// NewService constructs a new [Service] with its dependencies.
func NewService(repository Repository, grants GrantResolver, recorder AuditRecorder, logger *slog.Logger) *Service {
	return &Service{
		repository: repository,
		grants:     grants,
		audit:      recorder,
		logger:     logger,
		now:        time.Now,
	}
}

// # Profile Management

/*
GetAccount assembles the full view of a user.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *Account: Profile, live grants and linked identities
  - error: Not found or execution failures
*/
func (service *Service) GetAccount(context context.Context, userID string) (*Account, error) {
	user, err := service.repository.FindByID(context, userID)
	if err != nil {
		return nil, fmt.Errorf("account_service_get_account_failed: %w", err)
	}

	grants, err := service.grants.Resolve(context, userID)
	if err != nil {
		return nil, fmt.Errorf("account_service_resolve_grants_failed: %w", err)
	}

	profiles, err := service.repository.ListMinecraftProfiles(context, userID)
	if err != nil {
		return nil, fmt.Errorf("account_service_list_profiles_failed: %w", err)
	}

	return newAccount(user, grants, profiles), nil
}

// UpdateProfileInput defines the mutable subset of profile fields.
type UpdateProfileInput struct {
	DisplayName *string
}

/*
UpdateProfile applies the caller's own profile changes.

Description: An empty display name clears it.

Parameters:
  - context: context.Context
  - userID: string
  - input: UpdateProfileInput

Returns:
  - *Account: The updated view
  - error: Update or storage failures
*/
func (service *Service) UpdateProfile(context context.Context, userID string, input UpdateProfileInput) (*Account, error) {
	displayName := input.DisplayName
	if displayName != nil && *displayName == "" {
		displayName = nil
	}

	if err := service.repository.UpdateDisplayName(context, userID, displayName); err != nil {
		return nil, fmt.Errorf("account_service_update_failed: %w", err)
	}

	service.record(context, userID, audit.ActionUpdateProfile, userID, nil)
	service.logger.Info("user_profile_updated", slog.String("user_id", userID))

	return service.GetAccount(context, userID)
}

// # Administration

/*
SetActive switches an account on or off on behalf of an administrator.

Description: Deactivation locks the account out immediately: its outstanding
tokens stop verifying and every session is closed. Administrators cannot
deactivate themselves.

Parameters:
  - context: context.Context
  - actorID: string (administrator)
  - userID: string (target)
  - active: bool

Returns:
  - int64: Sessions closed
  - error: Forbidden, NotFound or storage failures
*/
func (service *Service) SetActive(context context.Context, actorID, userID string, active bool) (int64, error) {
	if !active && actorID == userID {
		return 0, apperr.Forbidden("You cannot deactivate your own account")
	}

	revoked, err := service.repository.SetActive(context, userID, active)
	if err != nil {
		return 0, fmt.Errorf("account_service_set_active_failed: %w", err)
	}

	action := audit.ActionActivateAccount
	if !active {
		action = audit.ActionDeactivateAccount
	}
	service.record(context, actorID, action, userID, map[string]any{"sessionsRevoked": revoked})

	service.logger.Warn("user_account_active_changed",
		slog.String("user_id", userID),
		slog.Bool("active", active),
		slog.Int64("sessions_revoked", revoked),
	)

	return revoked, nil
}

/*
AssignRole grants a role to a user, optionally until expiresAt.

Description: Only holders of super_admin may hand out super_admin. The change
applies from the next request since grants are never cached.

Parameters:
  - context: context.Context
  - actorID: string
  - userID: string
  - role: string
  - expiresAt: *time.Time (nil for permanent, must be in the future)

Returns:
  - error: Validation, InsufficientRole, NotFound or storage failures
*/
func (service *Service) AssignRole(context context.Context, actorID, userID, role string, expiresAt *time.Time) error {
	if expiresAt != nil && !expiresAt.After(service.now()) {
		return apperr.ValidationError("Role assignment expiry must be in the future",
			apperr.FieldError{Field: "expiresAt", Message: "Must be in the future"})
	}

	if err := service.guardSuperAdmin(context, actorID, role); err != nil {
		return err
	}

	if _, err := service.repository.FindByID(context, userID); err != nil {
		return fmt.Errorf("account_service_assign_role_lookup_failed: %w", err)
	}

	if err := service.repository.AssignRole(context, userID, role, &actorID, expiresAt); err != nil {
		return fmt.Errorf("account_service_assign_role_failed: %w", err)
	}

	detail := map[string]any{"role": role}
	if expiresAt != nil {
		detail["expiresAt"] = expiresAt.UTC().Format(time.RFC3339)
	}
	service.record(context, actorID, audit.ActionAssignRole, userID, detail)

	return nil
}

/*
RevokeRole removes a role from a user.

Parameters:
  - context: context.Context
  - actorID: string
  - userID: string
  - role: string

Returns:
  - error: InsufficientRole, NotFound("Role assignment") or storage failures
*/
func (service *Service) RevokeRole(context context.Context, actorID, userID, role string) error {
	if err := service.guardSuperAdmin(context, actorID, role); err != nil {
		return err
	}

	removed, err := service.repository.RevokeRole(context, userID, role)
	if err != nil {
		return fmt.Errorf("account_service_revoke_role_failed: %w", err)
	}
	if !removed {
		return apperr.NotFound("Role assignment")
	}

	service.record(context, actorID, audit.ActionRevokeRole, userID, map[string]any{"role": role})
	return nil
}

func (service *Service) guardSuperAdmin(context context.Context, actorID, role string) error {
	if role != rbac.RoleSuperAdmin {
		return nil
	}

	grants, err := service.grants.Resolve(context, actorID)
	if err != nil {
		return fmt.Errorf("account_service_resolve_actor_failed: %w", err)
	}
	if !slices.Contains(grants.Roles, rbac.RoleSuperAdmin) {
		return apperr.InsufficientRole("Only a super administrator can change the super_admin role")
	}
	return nil
}

func (service *Service) record(context context.Context, actorID string, action audit.Action, targetID string, detail map[string]any) {
	if service.audit == nil {
		return
	}
	service.audit.Record(context, audit.Entry{
		UserID:     &actorID,
		Action:     action,
		Resource:   resourceUser,
		ResourceID: targetID,
		Detail:     detail,
	})
}

func newAccount(user *auth.User, grants rbac.Grants, profiles []auth.MinecraftProfile) *Account {
	linked := make([]MinecraftProfile, 0, len(profiles))
	for _, profile := range profiles {
		linked = append(linked, MinecraftProfile{
			MinecraftUUID: profile.MinecraftUUID,
			MinecraftNick: profile.MinecraftNick,
			IsPrimary:     profile.IsPrimary,
		})
	}

	roles, permissions := grants.Roles, grants.Permissions
	if roles == nil {
		roles = []string{}
	}
	if permissions == nil {
		permissions = []string{}
	}

	return &Account{
		ID:                user.ID,
		Username:          user.Username,
		Email:             user.Email,
		DisplayName:       user.DisplayName,
		IsActive:          user.IsActive,
		HasPassword:       user.HasPassword(),
		Roles:             roles,
		Permissions:       permissions,
		MinecraftProfiles: linked,
		CreatedAt:         user.CreatedAt,
		UpdatedAt:         user.UpdatedAt,
	}
}
