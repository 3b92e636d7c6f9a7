// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

package rbac

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hydroline/hydroline-services/internal/platform/apperr"
	"github.com/hydroline/hydroline-services/internal/platform/postgres"
)

// PostgresRepository implements [Store] over the rbac schema.
type PostgresRepository struct {
	db postgres.DB
}

// NewRepository creates a PostgreSQL implementation of [Store].
func NewRepository(db postgres.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

/*
UserGrants resolves roles and permissions in a single round trip.

Description: Left joins keep roles that carry no permissions (e.g. "user").
Assignments whose expiresat has passed are ignored.

Parameters:
  - context: context.Context
  - userID: string
  - now: time.Time

Returns:
  - Grants: Roles ordered by priority, permissions by name
  - error: Query failures
*/
func (repository *PostgresRepository) UserGrants(context context.Context, userID string, now time.Time) (Grants, error) {
	const query = `
		SELECT r.name, p.name
		FROM rbac.userrole ur
		JOIN rbac.role r ON r.id = ur.roleid
		LEFT JOIN rbac.rolepermission rp ON rp.roleid = r.id
		LEFT JOIN rbac.permission p ON p.id = rp.permissionid
		WHERE ur.userid = $1 AND (ur.expiresat IS NULL OR ur.expiresat > $2)
		ORDER BY r.priority DESC, r.name, p.name`

	rows, err := repository.db.Query(context, query, userID, now)
	if err != nil {
		return Grants{}, fmt.Errorf("postgres_rbac_repo_user_grants_failed: %w", err)
	}
	defer rows.Close()

	grants := Grants{Roles: []string{}, Permissions: []string{}}
	seenRoles := map[string]struct{}{}
	seenPermissions := map[string]struct{}{}

	for rows.Next() {
		var role string
		var permission *string
		if err := rows.Scan(&role, &permission); err != nil {
			return Grants{}, fmt.Errorf("postgres_rbac_repo_user_grants_scan_failed: %w", err)
		}

		if _, ok := seenRoles[role]; !ok {
			seenRoles[role] = struct{}{}
			grants.Roles = append(grants.Roles, role)
		}
		if permission == nil {
			continue
		}
		if _, ok := seenPermissions[*permission]; !ok {
			seenPermissions[*permission] = struct{}{}
			grants.Permissions = append(grants.Permissions, *permission)
		}
	}

	if err := rows.Err(); err != nil {
		return Grants{}, fmt.Errorf("postgres_rbac_repo_user_grants_failed: %w", err)
	}

	return grants, nil
}

/*
AssignRole grants the role called roleName to userID.

Description: Runs on the given querier so callers can include it in their
own transaction. Re-assigning a held role is a no-op.

Parameters:
  - context: context.Context
  - querier: postgres.Querier (pool or pgx.Tx)
  - userID: string
  - roleName: string
  - assignedBy: *string (nil for system assignments)

Returns:
  - error: apperr.NotFound("Role") or execution errors
*/
func AssignRole(context context.Context, querier postgres.Querier, userID, roleName string, assignedBy *string) error {
	const (
		lookup = `SELECT id FROM rbac.role WHERE name = $1`
		insert = `
			INSERT INTO rbac.userrole (userid, roleid, assignedby, createdat)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (userid, roleid) DO NOTHING`
	)

	var roleID string
	if err := querier.QueryRow(context, lookup, roleName).Scan(&roleID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			notFound := apperr.NotFound("Role")
			notFound.Cause = fmt.Errorf("role %q is not in the catalogue", roleName)
			return notFound
		}
		return fmt.Errorf("postgres_rbac_repo_assign_role_failed: %w", err)
	}

	if _, err := querier.Exec(context, insert, userID, roleID, assignedBy, time.Now()); err != nil {
		return fmt.Errorf("postgres_rbac_repo_assign_role_failed: %w", err)
	}

	return nil
}
