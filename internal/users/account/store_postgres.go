// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hydroline/hydroline-services/internal/platform/apperr"
	"github.com/hydroline/hydroline-services/internal/platform/postgres"
	"github.com/hydroline/hydroline-services/internal/users/auth"
)

// # Repository Implementation

// PostgresRepository implements [Repository] over the users and rbac schemas.
//
// # Schema Table Mapping
//   - users.account: Identity, active flag and token version.
//   - users.minecraftprofile: Linked in-game identities.
//   - users.session: Deactivated together with the account.
//   - rbac.userrole: Role assignments.
type PostgresRepository struct {
	db    postgres.DB
	users *auth.PostgresUserRepository
}

// NewRepository creates a new Postgres implementation of [Repository].
func NewRepository(db postgres.DB) *PostgresRepository {
	return &PostgresRepository{db: db, users: auth.NewUserRepository(db)}
}

// FindByID delegates to the auth user repository.
func (repository *PostgresRepository) FindByID(context context.Context, id string) (*auth.User, error) {
	return repository.users.FindByID(context, id)
}

/*
ListMinecraftProfiles reads users.minecraftprofile for one account.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - []auth.MinecraftProfile: Primary profile first, then by link date
  - error: Query failures
*/
func (repository *PostgresRepository) ListMinecraftProfiles(context context.Context, userID string) ([]auth.MinecraftProfile, error) {
	const query = `
		SELECT id, userid, minecraftuuid, minecraftnick, isprimary, createdat
		FROM users.minecraftprofile
		WHERE userid = $1
		ORDER BY isprimary DESC, createdat`

	rows, err := repository.db.Query(context, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres_account_repo_list_profiles_failed: %w", err)
	}
	defer rows.Close()

	profiles := []auth.MinecraftProfile{}
	for rows.Next() {
		var profile auth.MinecraftProfile
		if err := rows.Scan(
			&profile.ID,
			&profile.UserID,
			&profile.MinecraftUUID,
			&profile.MinecraftNick,
			&profile.IsPrimary,
			&profile.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres_account_repo_list_profiles_scan_failed: %w", err)
		}
		profiles = append(profiles, profile)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_account_repo_list_profiles_failed: %w", err)
	}

	return profiles, nil
}

/*
UpdateDisplayName writes users.account.displayname.

Parameters:
  - context: context.Context
  - userID: string
  - displayName: *string (nil stores NULL)

Returns:
  - error: apperr.NotFound or execution failures
*/
func (repository *PostgresRepository) UpdateDisplayName(context context.Context, userID string, displayName *string) error {
	const query = `UPDATE users.account SET displayname = $2, updatedat = $3 WHERE id = $1`

	tag, err := repository.db.Exec(context, query, userID, displayName, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_account_repo_update_display_name_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}

	return nil
}

/*
SetActive flips isactive, locking the account out on deactivation.

Parameters:
  - context: context.Context
  - userID: string
  - active: bool

Returns:
  - int64: Sessions deactivated
  - error: apperr.NotFound or execution failures
*/
func (repository *PostgresRepository) SetActive(context context.Context, userID string, active bool) (int64, error) {
	if active {
		const query = `UPDATE users.account SET isactive = TRUE, updatedat = $2 WHERE id = $1`

		tag, err := repository.db.Exec(context, query, userID, time.Now())
		if err != nil {
			return 0, fmt.Errorf("postgres_account_repo_activate_failed: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return 0, apperr.NotFound("User")
		}
		return 0, nil
	}

	const (
		lock = `
			UPDATE users.account
			SET isactive = FALSE, tokenversion = tokenversion + 1, updatedat = $2
			WHERE id = $1`
		deactivate = `UPDATE users.session SET isactive = FALSE WHERE userid = $1 AND isactive`
	)

	var revoked int64
	err := postgres.WithTx(context, repository.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(context, lock, userID, time.Now())
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apperr.NotFound("User")
		}

		tag, err = tx.Exec(context, deactivate, userID)
		if err != nil {
			return err
		}
		revoked = tag.RowsAffected()
		return nil
	})

	if err != nil {
		if apperr.IsNotFound(err) {
			return 0, err
		}
		return 0, fmt.Errorf("postgres_account_repo_deactivate_failed: %w", err)
	}

	return revoked, nil
}

/*
AssignRole upserts a row of rbac.userrole.

Description: The role is resolved by name first so an unknown role is
reported instead of silently assigning nothing.

Parameters:
  - context: context.Context
  - userID: string
  - role: string
  - assignedBy: *string
  - expiresAt: *time.Time

Returns:
  - error: apperr.NotFound("Role") or execution failures
*/
func (repository *PostgresRepository) AssignRole(context context.Context, userID, role string, assignedBy *string, expiresAt *time.Time) error {
	const (
		lookup = `SELECT id FROM rbac.role WHERE name = $1`
		upsert = `
			INSERT INTO rbac.userrole (userid, roleid, assignedby, expiresat, createdat)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (userid, roleid)
			DO UPDATE SET assignedby = EXCLUDED.assignedby, expiresat = EXCLUDED.expiresat`
	)

	err := postgres.WithTx(context, repository.db, func(tx pgx.Tx) error {
		var roleID string
		if err := tx.QueryRow(context, lookup, role).Scan(&roleID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.NotFound("Role")
			}
			return err
		}

		_, err := tx.Exec(context, upsert, userID, roleID, assignedBy, expiresAt, time.Now())
		return err
	})

	if err != nil {
		if apperr.IsNotFound(err) {
			return err
		}
		return fmt.Errorf("postgres_account_repo_assign_role_failed: %w", err)
	}

	return nil
}

/*
RevokeRole deletes the assignment of a named role.

Parameters:
  - context: context.Context
  - userID: string
  - role: string

Returns:
  - bool: Whether a row was deleted
  - error: Execution failures
*/
func (repository *PostgresRepository) RevokeRole(context context.Context, userID, role string) (bool, error) {
	const query = `
		DELETE FROM rbac.userrole ur
		USING rbac.role r
		WHERE ur.roleid = r.id AND ur.userid = $1 AND r.name = $2`

	tag, err := repository.db.Exec(context, query, userID, role)
	if err != nil {
		return false, fmt.Errorf("postgres_account_repo_revoke_role_failed: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}
