// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

/*
Package account handles profile management and account administration.

Users view and edit their own profile. Administrators look up any account,
switch it on or off and change its role assignments.

# Architecture

  - Entities: Account (read model), built from auth.User, its Minecraft
    profiles and its live RBAC grants.
  - Domain: This package depends on the auth package for the User entity and
    on the rbac package for grant resolution.
  - Security: Deactivating an account bumps its token version and deactivates
    every session in the same transaction, so the account is locked out on
    the very next request.
*/
package account

import (
	"context"
	"time"

	"github.com/hydroline/hydroline-services/internal/users/auth"
	"github.com/hydroline/hydroline-services/internal/users/rbac"
)

// # Domain Entities

// Account is the full view of one user, as seen by the owner or an administrator.
type Account struct {
	ID                string             `json:"id"`
	Username          string             `json:"username"`
	Email             *string            `json:"email"`
	DisplayName       *string            `json:"displayName"`
	IsActive          bool               `json:"isActive"`
	HasPassword       bool               `json:"hasPassword"`
	Roles             []string           `json:"roles"`
	Permissions       []string           `json:"permissions"`
	MinecraftProfiles []MinecraftProfile `json:"minecraftProfiles"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

// MinecraftProfile is a linked in-game identity.
type MinecraftProfile struct {
	MinecraftUUID string `json:"minecraftUuid"`
	MinecraftNick string `json:"minecraftNick"`
	IsPrimary     bool   `json:"isPrimary"`
}

// # Repository Contracts

// Repository defines the persistence contract for account administration.
type Repository interface {
	/*
		FindByID retrieves a user record by their unique ID.

		Parameters:
		  - context: context.Context
		  - id: string (UUIDv7)

		Returns:
		  - *auth.User: Loaded account entity
		  - error: apperr.NotFound or storage failures
	*/
	FindByID(context context.Context, id string) (*auth.User, error)

	/*
		ListMinecraftProfiles returns the linked identities of a user, primary first.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - []auth.MinecraftProfile: Possibly empty list
		  - error: Storage failures
	*/
	ListMinecraftProfiles(context context.Context, userID string) ([]auth.MinecraftProfile, error)

	/*
		UpdateDisplayName replaces the display name. nil clears it.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - displayName: *string

		Returns:
		  - error: apperr.NotFound or storage failures
	*/
	UpdateDisplayName(context context.Context, userID string, displayName *string) error

	/*
		SetActive flips the active flag.

		Description: Deactivation also bumps tokenversion and deactivates every
		session in one transaction. Activation touches nothing else.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - active: bool

		Returns:
		  - int64: Sessions deactivated (always 0 on activation)
		  - error: apperr.NotFound or storage failures
	*/
	SetActive(context context.Context, userID string, active bool) (int64, error)

	/*
		AssignRole grants a role, replacing the expiry of an existing assignment.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - role: string (role name)
		  - assignedBy: *string (nil for system assignments)
		  - expiresAt: *time.Time (nil for permanent)

		Returns:
		  - error: apperr.NotFound("Role") for unknown roles, or storage failures
	*/
	AssignRole(context context.Context, userID, role string, assignedBy *string, expiresAt *time.Time) error

	/*
		RevokeRole removes a role assignment.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - role: string

		Returns:
		  - bool: Whether an assignment was removed
		  - error: Storage failures
	*/
	RevokeRole(context context.Context, userID, role string) (bool, error)
}

// GrantResolver returns the live roles and permissions of a user.
type GrantResolver interface {
	Resolve(ctx context.Context, userID string) (rbac.Grants, error)
}

// AuditRecorder receives best-effort audit entries.
type AuditRecorder = auth.AuditRecorder
