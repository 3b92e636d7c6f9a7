// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

package sec

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcryptMaxInput is the number of password bytes bcrypt actually consumes.
const bcryptMaxInput = 72

// PasswordHasher hashes and checks passwords with bcrypt at a fixed cost.
type PasswordHasher struct {
	cost      int
	dummyHash []byte
}

// NewPasswordHasher returns a hasher using cost, clamped to bcrypt's accepted range.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	// Same cost as real hashes so VerifyDummy takes as long as Verify.
	dummy, err := bcrypt.GenerateFromPassword([]byte("hydroline-dummy-password"), cost)
	if err != nil {
		panic("sec: failed to prepare dummy hash: " + err.Error())
	}

	return &PasswordHasher{cost: cost, dummyHash: dummy}
}

// Hash hashes a plain-text password.
//
// Input beyond 72 bytes is ignored by bcrypt; it is cut here so long
// passphrases hash instead of failing with [bcrypt.ErrPasswordTooLong].
func (hasher *PasswordHasher) Hash(plainTextPassword string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword(truncate(plainTextPassword), hasher.cost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// Verify reports whether plainTextPassword matches existingHash.
//
// A malformed hash is reported as an error, a mismatch is not.
func (hasher *PasswordHasher) Verify(plainTextPassword, existingHash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), truncate(plainTextPassword))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("sec: failed to compare password: %w", err)
	}
}

// VerifyDummy burns one comparison so that an unknown account costs the
// same as a wrong password.
func (hasher *PasswordHasher) VerifyDummy(plainTextPassword string) {
	_ = bcrypt.CompareHashAndPassword(hasher.dummyHash, truncate(plainTextPassword))
}

func truncate(password string) []byte {
	raw := []byte(password)
	if len(raw) > bcryptMaxInput {
		raw = raw[:bcryptMaxInput]
	}
	return raw
}
