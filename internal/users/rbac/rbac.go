// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

/*
Package rbac resolves what a user is allowed to do.

Permissions are granted to roles and roles to users. A user's effective
grants are the union over every unexpired role assignment; roles do not
inherit from one another.

Resolution always reads the store. There is no cache between requests, so a
revoked role or permission takes effect on the very next request.
*/
package rbac

import "time"

// # Catalogue Entities

// Role is a named bundle of permissions.
type Role struct {
	ID          string
	Name        string
	Description string
	Priority    int
	IsSystem    bool
}

// Permission is a (resource, action) pair addressed by its "resource:action" name.
type Permission struct {
	ID          string
	Name        string
	Resource    string
	Action      string
	Description string
	IsSystem    bool
}

// Assignment links a user to a role, optionally until ExpiresAt.
type Assignment struct {
	UserID     string
	RoleID     string
	AssignedBy *string
	ExpiresAt  *time.Time
}

// # Resolution

// Grants is the effective role and permission set of one user.
type Grants struct {
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// Requirement is declared on a protected endpoint.
//
// AnyRoles passes when the user holds at least one listed role.
// AllPermissions passes only when the user holds every listed permission.
type Requirement struct {
	AnyRoles       []string
	AllPermissions []string
}

// IsEmpty reports whether the requirement lets every caller through.
func (requirement Requirement) IsEmpty() bool {
	return len(requirement.AnyRoles) == 0 && len(requirement.AllPermissions) == 0
}

// Reason says why a [Decision] denied access.
type Reason string

const (
	ReasonNone                   Reason = ""
	ReasonUnauthenticated        Reason = "UNAUTHENTICATED"
	ReasonInsufficientRole       Reason = "INSUFFICIENT_ROLE"
	ReasonInsufficientPermission Reason = "INSUFFICIENT_PERMISSION"
)

// Decision is the outcome of [Resolver.Authorize].
//
// Missing lists the roles that would have been accepted (role denial) or the
// permissions the user lacks (permission denial).
type Decision struct {
	Allowed bool
	Reason  Reason
	Missing []string
}

// # Built-in Roles

const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleModerator  = "moderator"
	RoleUser       = "user"
)

// # Built-in Permissions

const (
	PermissionUserRead   = "user:read"
	PermissionUserWrite  = "user:write"
	PermissionRoleAssign = "role:assign"
	PermissionAuditRead  = "audit:read"
)
