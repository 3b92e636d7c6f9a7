// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydroline/hydroline-services/internal/platform/apperr"
)

var userColumnNames = []string{"id", "username", "email", "passwordhash", "displayname", "isactive", "tokenversion", "createdat", "updatedat"}

var sessionColumnNames = []string{"id", "userid", "tokenid", "deviceinfo", "ipaddress", "expiresat", "lastusedat", "isactive", "createdat"}

// # Users

/*
TestUserRepository_FindByUsername verifies nullable columns are scanned.
*/
func TestUserRepository_FindByUsername(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	hash := "$2a$04$hash"

	mock.ExpectQuery("FROM users.account WHERE username = \\$1").
		WithArgs("steve").
		WillReturnRows(pgxmock.NewRows(userColumnNames).
			AddRow("u-1", "steve", nil, &hash, nil, true, 2, now, now))

	user, err := NewUserRepository(mock).FindByUsername(context.Background(), "steve")
	require.NoError(t, err)

	assert.Equal(t, "u-1", user.ID)
	assert.Nil(t, user.Email)
	assert.Nil(t, user.DisplayName)
	require.NotNil(t, user.PasswordHash)
	assert.Equal(t, hash, *user.PasswordHash)
	assert.Equal(t, 2, user.TokenVersion)
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestUserRepository_FindByID_NotFound verifies pgx.ErrNoRows becomes NotFound.
*/
func TestUserRepository_FindByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM users.account WHERE id = \\$1").WithArgs("missing").WillReturnError(pgx.ErrNoRows)

	_, err = NewUserRepository(mock).FindByID(context.Background(), "missing")
	assert.True(t, apperr.IsNotFound(err))
}

/*
TestUserRepository_Create verifies the account, profile and role share one transaction.
*/
func TestUserRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	user := &User{ID: "u-1", Username: "steve", IsActive: true}
	profile := &MinecraftProfile{ID: "p-1", MinecraftUUID: "069a79f444e94726a5befca90e38aaf5", MinecraftNick: "Notch", IsPrimary: true}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users.account").
		WithArgs("u-1", "steve", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), true, 0, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO users.minecraftprofile").
		WithArgs("p-1", "u-1", profile.MinecraftUUID, "Notch", true, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT id FROM rbac.role").
		WithArgs(DefaultRole).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("r-user"))
	mock.ExpectExec("INSERT INTO rbac.userrole").
		WithArgs("u-1", "r-user", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, NewUserRepository(mock).Create(context.Background(), user, profile, DefaultRole))
	assert.Equal(t, "u-1", profile.UserID)
	assert.False(t, user.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestUserRepository_Create_UnseededRole verifies a missing default role rolls
back the account and surfaces as an internal failure.
*/
func TestUserRepository_Create_UnseededRole(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	user := &User{ID: "u-1", Username: "steve", IsActive: true}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users.account").
		WithArgs("u-1", "steve", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), true, 0, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT id FROM rbac.role").WithArgs(DefaultRole).WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	err = NewUserRepository(mock).Create(context.Background(), user, nil, DefaultRole)
	require.Error(t, err)
	assert.False(t, apperr.IsAppError(err))
	assert.Contains(t, err.Error(), "is not seeded")
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestUserRepository_Create_Conflict verifies unique violations name the duplicated identity.
*/
func TestUserRepository_Create_Conflict(t *testing.T) {
	cases := map[string]string{
		"account_username_key":               "Username is already taken",
		"account_email_key":                  "Email is already registered",
		"minecraftprofile_minecraftuuid_key": "Minecraft account is already linked",
	}

	for constraint, message := range cases {
		t.Run(constraint, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			mock.ExpectBegin()
			mock.ExpectExec("INSERT INTO users.account").
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: constraint})
			mock.ExpectRollback()

			err = NewUserRepository(mock).Create(context.Background(), &User{ID: "u-1", Username: "steve"}, nil, DefaultRole)
			assert.True(t, apperr.HasCode(err, apperr.CodeConflict))
			assert.Equal(t, message, err.Error())
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

/*
TestUserRepository_ChangePassword verifies the version bump and session deactivation commit together.
*/
func TestUserRepository_ChangePassword(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("SET passwordhash = \\$2, tokenversion = tokenversion \\+ 1").
		WithArgs("u-1", "new-hash", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE users.session SET isactive = FALSE").
		WithArgs("u-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))
	mock.ExpectCommit()

	revoked, err := NewUserRepository(mock).ChangePassword(context.Background(), "u-1", "new-hash")
	require.NoError(t, err)
	assert.Equal(t, int64(3), revoked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestUserRepository_RevokeAll_UnknownUser verifies a missing account rolls back as NotFound.
*/
func TestUserRepository_RevokeAll_UnknownUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("SET tokenversion = tokenversion \\+ 1").
		WithArgs("missing", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	_, err = NewUserRepository(mock).RevokeAll(context.Background(), "missing")
	assert.True(t, apperr.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// # Sessions

/*
TestSessionRepository_ListActive verifies the usability filter and ordering are pushed to SQL.
*/
func TestSessionRepository_ListActive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	expires := now.Add(time.Hour)

	mock.ExpectQuery("WHERE userid = \\$1 AND isactive AND expiresat > \\$2\\s+ORDER BY lastusedat DESC").
		WithArgs("u-1", now).
		WillReturnRows(pgxmock.NewRows(sessionColumnNames).
			AddRow("s-2", "u-1", "jti-2", "phone", "10.0.0.2", expires, now, true, now).
			AddRow("s-1", "u-1", "jti-1", "laptop", "10.0.0.1", expires, now.Add(-time.Minute), true, now))

	sessions, err := NewSessionRepository(mock).ListActive(context.Background(), "u-1", now)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "jti-2", sessions[0].TokenID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestSessionRepository_Revoke verifies the matched flag follows the affected row count.
*/
func TestSessionRepository_Revoke(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("WHERE userid = \\$1 AND tokenid = \\$2").
		WithArgs("u-1", "jti-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("WHERE userid = \\$1 AND tokenid = \\$2").
		WithArgs("u-2", "jti-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repository := NewSessionRepository(mock)

	matched, err := repository.Revoke(context.Background(), "u-1", "jti-1")
	require.NoError(t, err)
	assert.True(t, matched)

	matched, err = repository.Revoke(context.Background(), "u-2", "jti-1")
	require.NoError(t, err)
	assert.False(t, matched)
}

/*
TestSessionRepository_DeleteStale verifies only expired or inactive rows are targeted.
*/
func TestSessionRepository_DeleteStale(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	mock.ExpectExec("DELETE FROM users.session WHERE expiresat < \\$1 OR isactive = FALSE").
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	deleted, err := NewSessionRepository(mock).DeleteStale(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)
}

/*
TestSessionRepository_FindByTokenID_Errors verifies missing rows and driver errors are told apart.
*/
func TestSessionRepository_FindByTokenID_Errors(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	boom := errors.New("conn reset")
	mock.ExpectQuery("WHERE tokenid = \\$1").WithArgs("gone").WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("WHERE tokenid = \\$1").WithArgs("jti-1").WillReturnError(boom)

	repository := NewSessionRepository(mock)

	_, err = repository.FindByTokenID(context.Background(), "gone")
	assert.True(t, apperr.IsNotFound(err))

	_, err = repository.FindByTokenID(context.Background(), "jti-1")
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "postgres_session_repo_find_failed")
}
