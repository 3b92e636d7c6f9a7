// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

package auth

import (
	"context"
	"time"
)

// # User Repository

// UserRepository is the credential store.
//
// Operations that touch more than one table (registration, password change,
// mass revocation) are single methods so the implementation can run them in
// one transaction.
type UserRepository interface {

	/*
		FindByID retrieves a user by primary key.

		Parameters:
		  - ctx: context.Context
		  - id: string

		Returns:
		  - *User: Stored account
		  - error: apperr.NotFound or database errors
	*/
	FindByID(ctx context.Context, id string) (*User, error)

	/*
		FindByUsername retrieves a user by normalized username.

		Parameters:
		  - ctx: context.Context
		  - username: string

		Returns:
		  - *User: Stored account
		  - error: apperr.NotFound or database errors
	*/
	FindByUsername(ctx context.Context, username string) (*User, error)

	/*
		FindByEmail retrieves a user by case-folded email.

		Parameters:
		  - ctx: context.Context
		  - email: string

		Returns:
		  - *User: Stored account
		  - error: apperr.NotFound or database errors
	*/
	FindByEmail(ctx context.Context, email string) (*User, error)

	/*
		Create persists a new account, its optional Minecraft profile and its
		initial role atomically.

		Parameters:
		  - ctx: context.Context
		  - user: *User
		  - profile: *MinecraftProfile (optional)
		  - role: string (role name to assign)

		Returns:
		  - error: apperr.Conflict on duplicate identity, or database errors
	*/
	Create(ctx context.Context, user *User, profile *MinecraftProfile, role string) error

	/*
		ChangePassword stores newHash, increments the token version and
		deactivates every session of the user in one transaction.

		Parameters:
		  - ctx: context.Context
		  - userID: string
		  - newHash: string

		Returns:
		  - int64: Number of sessions deactivated
		  - error: apperr.NotFound or database errors
	*/
	ChangePassword(ctx context.Context, userID, newHash string) (int64, error)

	/*
		RevokeAll increments the token version and deactivates every session of
		the user in one transaction.

		Parameters:
		  - ctx: context.Context
		  - userID: string

		Returns:
		  - int64: Number of sessions deactivated
		  - error: apperr.NotFound or database errors
	*/
	RevokeAll(ctx context.Context, userID string) (int64, error)
}

// # Session Repository

// SessionRepository is the session store.
type SessionRepository interface {
	// Create inserts a new active session.
	Create(ctx context.Context, session *Session) error

	// FindByTokenID returns the session for jti regardless of its state.
	FindByTokenID(ctx context.Context, tokenID string) (*Session, error)

	// Touch sets lastusedat on the session for jti.
	Touch(ctx context.Context, tokenID string, at time.Time) error

	// ListActive returns usable sessions of a user, most recently used first.
	ListActive(ctx context.Context, userID string, now time.Time) ([]*Session, error)

	// Revoke deactivates the session (userID, tokenID). It reports whether a
	// row matched.
	Revoke(ctx context.Context, userID, tokenID string) (bool, error)

	// RevokeAllExcept deactivates every active session of userID but keepTokenID.
	RevokeAllExcept(ctx context.Context, userID, keepTokenID string) (int64, error)

	// DeleteStale removes sessions that expired before now or are inactive.
	DeleteStale(ctx context.Context, now time.Time) (int64, error)
}

// # Volatile Stores

// StateStore holds OAuth state values between redirect and callback.
type StateStore interface {
	// Save remembers state for provider until ttl elapses.
	Save(ctx context.Context, state, provider string, ttl time.Duration) error

	// Consume returns the provider for state and forgets it. A missing or
	// expired state is apperr.NotFound.
	Consume(ctx context.Context, state string) (string, error)
}

// TokenLedger records consumed single-use token ids.
type TokenLedger interface {
	// Claim marks tokenID as used for ttl. It returns false when the id had
	// already been claimed.
	Claim(ctx context.Context, tokenID string, ttl time.Duration) (bool, error)
}
