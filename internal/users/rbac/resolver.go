// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

package rbac

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hydroline/hydroline-services/internal/platform/apperr"
	"github.com/hydroline/hydroline-services/pkg/slice"
)

// Resolver evaluates endpoint requirements against a user's live grants.
type Resolver struct {
	store Store
	now   func() time.Time
}

// NewResolver constructs a [Resolver] reading from store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store, now: time.Now}
}

/*
Resolve returns the effective roles and permissions of userID.

Parameters:
  - ctx: context.Context
  - userID: string

Returns:
  - Grants: Role and permission names, deduplicated
  - error: Store failures
*/
func (resolver *Resolver) Resolve(ctx context.Context, userID string) (Grants, error) {
	grants, err := resolver.store.UserGrants(ctx, userID, resolver.now())
	if err != nil {
		return Grants{}, fmt.Errorf("rbac_resolve_failed: %w", err)
	}

	grants.Roles = slice.Unique(grants.Roles)
	grants.Permissions = slice.Unique(grants.Permissions)
	return grants, nil
}

/*
Authorize decides whether userID satisfies requirement.

Description: Roles are checked before permissions. An empty requirement
allows without touching the store. An empty userID is Unauthenticated.

Parameters:
  - ctx: context.Context
  - userID: string
  - requirement: Requirement

Returns:
  - Decision: The verdict and, on denial, what was missing
  - error: Store failures
*/
func (resolver *Resolver) Authorize(ctx context.Context, userID string, requirement Requirement) (Decision, error) {
	if requirement.IsEmpty() {
		return Decision{Allowed: true}, nil
	}

	if userID == "" {
		return Decision{Reason: ReasonUnauthenticated}, nil
	}

	grants, err := resolver.Resolve(ctx, userID)
	if err != nil {
		return Decision{}, err
	}

	if len(requirement.AnyRoles) > 0 && !slice.ContainsAny(requirement.AnyRoles, grants.Roles) {
		return Decision{Reason: ReasonInsufficientRole, Missing: requirement.AnyRoles}, nil
	}

	if missing := slice.Missing(requirement.AllPermissions, grants.Permissions); len(missing) > 0 {
		return Decision{Reason: ReasonInsufficientPermission, Missing: missing}, nil
	}

	return Decision{Allowed: true}, nil
}

// CheckAccess adapts [Resolver.Authorize] to the HTTP guard, turning a denial
// into the matching client error.
func (resolver *Resolver) CheckAccess(ctx context.Context, userID string, anyRoles, allPermissions []string) error {
	decision, err := resolver.Authorize(ctx, userID, Requirement{AnyRoles: anyRoles, AllPermissions: allPermissions})
	if err != nil {
		return err
	}

	switch decision.Reason {
	case ReasonNone:
		return nil
	case ReasonUnauthenticated:
		return apperr.Unauthorized("Authentication required")
	case ReasonInsufficientRole:
		return apperr.InsufficientRole("Requires one of roles: " + strings.Join(decision.Missing, ", "))
	default:
		return apperr.InsufficientPermission("Missing permissions: " + strings.Join(decision.Missing, ", "))
	}
}

// RoleNames returns just the role half of [Resolver.Resolve].
func (resolver *Resolver) RoleNames(ctx context.Context, userID string) ([]string, error) {
	grants, err := resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	return grants.Roles, nil
}
