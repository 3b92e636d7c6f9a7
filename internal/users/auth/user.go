// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

package auth

import "time"

// # Domain Entities

// User is a stored account.
//
// Email and PasswordHash are nil for accounts provisioned through an external
// provider. TokenVersion only ever increases.
type User struct {
	ID           string
	Username     string
	Email        *string
	PasswordHash *string
	DisplayName  *string
	IsActive     bool
	TokenVersion int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword reports whether the account can log in with a password.
func (user *User) HasPassword() bool {
	return user.PasswordHash != nil && *user.PasswordHash != ""
}

// Session is one login episode, keyed by the jti shared by its token pair.
type Session struct {
	ID         string
	UserID     string
	TokenID    string
	DeviceInfo string
	IPAddress  string
	ExpiresAt  time.Time
	LastUsedAt time.Time
	IsActive   bool
	CreatedAt  time.Time
}

// Usable reports whether the session may back a request at now.
func (session *Session) Usable(now time.Time) bool {
	return session.IsActive && session.ExpiresAt.After(now)
}

// MinecraftProfile links an account to an in-game identity.
type MinecraftProfile struct {
	ID            string
	UserID        string
	MinecraftUUID string
	MinecraftNick string
	IsPrimary     bool
	CreatedAt     time.Time
}

// # Views

// UserView is the password-free user representation returned to clients.
type UserView struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	Email       *string  `json:"email"`
	DisplayName *string  `json:"displayName"`
	Roles       []string `json:"roles"`
}

// AuthResult is returned by login, registration and OAuth callbacks.
type AuthResult struct {
	User         UserView `json:"user"`
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
}

// RefreshResult carries the new access token and, when rotation is on, a new
// refresh token.
type RefreshResult struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// SessionView is one entry of the session list.
type SessionView struct {
	ID         string    `json:"id"`
	TokenID    string    `json:"tokenId"`
	DeviceInfo string    `json:"deviceInfo"`
	IPAddress  string    `json:"ipAddress"`
	LastUsedAt time.Time `json:"lastUsedAt"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Current    bool      `json:"current"`
}

// Profile is the authenticated caller as seen by GET /auth/profile.
type Profile struct {
	UserView
	TokenID      string `json:"tokenId"`
	TokenVersion int    `json:"tokenVersion"`
}

func newUserView(user *User, roles []string) UserView {
	if roles == nil {
		roles = []string{}
	}
	return UserView{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Roles:       roles,
	}
}

func newSessionView(session *Session, currentTokenID string) SessionView {
	return SessionView{
		ID:         session.ID,
		TokenID:    session.TokenID,
		DeviceInfo: session.DeviceInfo,
		IPAddress:  session.IPAddress,
		LastUsedAt: session.LastUsedAt,
		CreatedAt:  session.CreatedAt,
		ExpiresAt:  session.ExpiresAt,
		Current:    session.TokenID == currentTokenID,
	}
}
