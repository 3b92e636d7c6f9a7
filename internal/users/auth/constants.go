// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

package auth

import "regexp"

// # Request Fields

const (
	FieldUsername      = "username"
	FieldEmail         = "email"
	FieldPassword      = "password"
	FieldDisplayName   = "displayName"
	FieldRefreshToken  = "refreshToken"
	FieldOldPassword   = "oldPassword"
	FieldNewPassword   = "newPassword"
	FieldMinecraftUUID = "minecraftUuid"
	FieldMinecraftNick = "minecraftNick"
	FieldToken         = "token"
	FieldCode          = "code"
	FieldState         = "state"
)

// # Input Constraints

const (
	UsernameMinLength    = 3
	UsernameMaxLength    = 50
	PasswordMinLength    = 6
	PasswordMaxLength    = 128
	DisplayNameMaxLength = 100
	MinecraftNickMax     = 16
)

var (
	usernamePattern      = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	minecraftUUIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-?[0-9a-fA-F]{4}-?[0-9a-fA-F]{4}-?[0-9a-fA-F]{4}-?[0-9a-fA-F]{12}$`)
)

// # Audit Resources

const (
	resourceUser    = "user"
	resourceSession = "session"
)

// DefaultRole is assigned to every self-registered account.
const DefaultRole = "user"
