// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hydroline/hydroline-services/internal/platform/apperr"
	"github.com/hydroline/hydroline-services/internal/platform/dberr"
	"github.com/hydroline/hydroline-services/internal/platform/postgres"
	"github.com/hydroline/hydroline-services/internal/users/rbac"
)

// # User Repository

// PostgresUserRepository implements [UserRepository] using pgx.
type PostgresUserRepository struct {
	db postgres.DB
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(db postgres.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

const userColumns = `id, username, email, passwordhash, displayname, isactive, tokenversion, createdat, updatedat`

func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.IsActive,
		&user.TokenVersion,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

/*
FindByID retrieves a user record by their unique ID.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	const query = `SELECT ` + userColumns + ` FROM users.account WHERE id = $1`

	user, err := scanUser(repository.db.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_id_failed: %w", err)
	}

	return user, nil
}

/*
FindByUsername retrieves a user record by their unique username.

Parameters:
  - context: context.Context
  - username: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByUsername(context context.Context, username string) (*User, error) {
	const query = `SELECT ` + userColumns + ` FROM users.account WHERE username = $1`

	user, err := scanUser(repository.db.QueryRow(context, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_username_failed: %w", err)
	}

	return user, nil
}

/*
FindByEmail retrieves a user record by their email address.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	const query = `SELECT ` + userColumns + ` FROM users.account WHERE email = $1`

	user, err := scanUser(repository.db.QueryRow(context, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_email_failed: %w", err)
	}

	return user, nil
}

/*
Create persists a new account with its optional Minecraft profile and role.

Description: All three inserts share one transaction. Unique violations are
reported as a Conflict naming the duplicated identity.

Parameters:
  - context: context.Context
  - user: *User
  - profile: *MinecraftProfile (optional)
  - role: string

Returns:
  - error: apperr.Conflict or database errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User, profile *MinecraftProfile, role string) error {
	const insertAccount = `
		INSERT INTO users.account (
			id, username, email, passwordhash, displayname, isactive, tokenversion, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	const insertProfile = `
		INSERT INTO users.minecraftprofile (
			id, userid, minecraftuuid, minecraftnick, isprimary, createdat
		) VALUES ($1, $2, $3, $4, $5, $6)`

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	err := postgres.WithTx(context, repository.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(context, insertAccount,
			user.ID,
			user.Username,
			user.Email,
			user.PasswordHash,
			user.DisplayName,
			user.IsActive,
			user.TokenVersion,
			user.CreatedAt,
			user.UpdatedAt,
		)
		if err != nil {
			return err
		}

		if profile != nil {
			profile.UserID = user.ID
			profile.CreatedAt = user.CreatedAt
			_, err = tx.Exec(context, insertProfile,
				profile.ID,
				profile.UserID,
				profile.MinecraftUUID,
				profile.MinecraftNick,
				profile.IsPrimary,
				profile.CreatedAt,
			)
			if err != nil {
				return err
			}
		}

		if err := rbac.AssignRole(context, tx, user.ID, role, nil); err != nil {
			if apperr.IsNotFound(err) {
				// An unseeded catalogue is a server fault, not a client error.
				return fmt.Errorf("role %q is not seeded", role)
			}
			return err
		}
		return nil
	})

	if err != nil {
		if dberr.IsUniqueViolation(err) {
			conflict := apperr.Conflict(conflictMessage(dberr.ConstraintName(err)))
			conflict.Cause = err
			return conflict
		}
		return fmt.Errorf("postgres_user_repo_create_failed: %w", err)
	}

	return nil
}

func conflictMessage(constraint string) string {
	switch constraint {
	case "account_username_key":
		return "Username is already taken"
	case "account_email_key":
		return "Email is already registered"
	case "minecraftprofile_minecraftuuid_key":
		return "Minecraft account is already linked"
	default:
		return "Account already exists"
	}
}

/*
ChangePassword replaces the hash, bumps tokenversion and deactivates sessions.

Parameters:
  - context: context.Context
  - userID: string
  - newHash: string

Returns:
  - int64: Sessions deactivated
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) ChangePassword(context context.Context, userID, newHash string) (int64, error) {
	const query = `
		UPDATE users.account
		SET passwordhash = $2, tokenversion = tokenversion + 1, updatedat = $3
		WHERE id = $1`

	return repository.bumpAndRevoke(context, "change_password", userID, query, newHash)
}

/*
RevokeAll bumps tokenversion and deactivates every session.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - int64: Sessions deactivated
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) RevokeAll(context context.Context, userID string) (int64, error) {
	const query = `
		UPDATE users.account
		SET tokenversion = tokenversion + 1, updatedat = $2
		WHERE id = $1`

	return repository.bumpAndRevoke(context, "revoke_all", userID, query)
}

func (repository *PostgresUserRepository) bumpAndRevoke(context context.Context, op, userID, accountUpdate string, args ...any) (int64, error) {
	const deactivate = `UPDATE users.session SET isactive = FALSE WHERE userid = $1 AND isactive`

	var revoked int64
	err := postgres.WithTx(context, repository.db, func(tx pgx.Tx) error {
		params := append([]any{userID}, args...)
		params = append(params, time.Now())

		tag, err := tx.Exec(context, accountUpdate, params...)
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
		return 0, fmt.Errorf("postgres_user_repo_%s_failed: %w", op, err)
	}

	return revoked, nil
}

// # Session Repository

// PostgresSessionRepository implements [SessionRepository].
type PostgresSessionRepository struct {
	db postgres.Querier
}

// NewSessionRepository creates a new PostgreSQL implementation of SessionRepository.
func NewSessionRepository(db postgres.Querier) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

const sessionColumns = `id, userid, tokenid, deviceinfo, ipaddress, expiresat, lastusedat, isactive, createdat`

func scanSession(row pgx.Row) (*Session, error) {
	session := &Session{}
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.TokenID,
		&session.DeviceInfo,
		&session.IPAddress,
		&session.ExpiresAt,
		&session.LastUsedAt,
		&session.IsActive,
		&session.CreatedAt,
	)
	return session, err
}

/*
Create persists a new session record into the users.session table.

Parameters:
  - context: context.Context
  - session: *Session

Returns:
  - error: apperr.Conflict on a reused token id, or storage failures
*/
func (repository *PostgresSessionRepository) Create(context context.Context, session *Session) error {
	const query = `
		INSERT INTO users.session (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := repository.db.Exec(context, query,
		session.ID,
		session.UserID,
		session.TokenID,
		session.DeviceInfo,
		session.IPAddress,
		session.ExpiresAt,
		session.LastUsedAt,
		session.IsActive,
		session.CreatedAt,
	)

	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return dberr.Wrap(err, "Session")
		}
		return fmt.Errorf("postgres_session_repo_create_failed: %w", err)
	}

	return nil
}

/*
FindByTokenID retrieves a session by its jti.

Description: Returns inactive and expired rows too; callers decide usability.

Parameters:
  - context: context.Context
  - tokenID: string

Returns:
  - *Session: Stored session
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresSessionRepository) FindByTokenID(context context.Context, tokenID string) (*Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM users.session WHERE tokenid = $1`

	session, err := scanSession(repository.db.QueryRow(context, query, tokenID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Session")
		}
		return nil, fmt.Errorf("postgres_session_repo_find_failed: %w", err)
	}

	return session, nil
}

// Touch updates lastusedat for the session identified by tokenID.
func (repository *PostgresSessionRepository) Touch(context context.Context, tokenID string, at time.Time) error {
	const query = `UPDATE users.session SET lastusedat = $2 WHERE tokenid = $1`

	if _, err := repository.db.Exec(context, query, tokenID, at); err != nil {
		return fmt.Errorf("postgres_session_repo_touch_failed: %w", err)
	}
	return nil
}

/*
ListActive returns the user's usable sessions.

Parameters:
  - context: context.Context
  - userID: string
  - now: time.Time

Returns:
  - []*Session: Ordered by lastusedat descending
  - error: Query failures
*/
func (repository *PostgresSessionRepository) ListActive(context context.Context, userID string, now time.Time) ([]*Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM users.session
		WHERE userid = $1 AND isactive AND expiresat > $2
		ORDER BY lastusedat DESC`

	rows, err := repository.db.Query(context, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("postgres_session_repo_list_failed: %w", err)
	}
	defer rows.Close()

	sessions := []*Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres_session_repo_list_scan_failed: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_session_repo_list_failed: %w", err)
	}

	return sessions, nil
}

/*
Revoke marks one session of a user inactive.

Parameters:
  - context: context.Context
  - userID: string
  - tokenID: string

Returns:
  - bool: Whether a row matched
  - error: Revocation failures
*/
func (repository *PostgresSessionRepository) Revoke(context context.Context, userID, tokenID string) (bool, error) {
	const query = `UPDATE users.session SET isactive = FALSE WHERE userid = $1 AND tokenid = $2`

	tag, err := repository.db.Exec(context, query, userID, tokenID)
	if err != nil {
		return false, fmt.Errorf("postgres_session_repo_revoke_failed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// RevokeAllExcept deactivates every active session of userID but keepTokenID.
func (repository *PostgresSessionRepository) RevokeAllExcept(context context.Context, userID, keepTokenID string) (int64, error) {
	const query = `
		UPDATE users.session SET isactive = FALSE
		WHERE userid = $1 AND tokenid <> $2 AND isactive`

	tag, err := repository.db.Exec(context, query, userID, keepTokenID)
	if err != nil {
		return 0, fmt.Errorf("postgres_session_repo_revoke_others_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

/*
DeleteStale physically removes expired or inactive sessions.

Parameters:
  - context: context.Context
  - now: time.Time

Returns:
  - int64: Rows deleted
  - error: Execution failures
*/
func (repository *PostgresSessionRepository) DeleteStale(context context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM users.session WHERE expiresat < $1 OR isactive = FALSE`

	tag, err := repository.db.Exec(context, query, now)
	if err != nil {
		return 0, fmt.Errorf("postgres_session_repo_delete_stale_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}
