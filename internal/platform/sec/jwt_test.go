// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

package sec

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(now time.Time) *TokenIssuer {
	return NewTokenIssuer(IssuerConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		Issuer:        "hydroline-test",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		SSOTTL:        15 * time.Minute,
	}).WithClock(func() time.Time { return now })
}

var steve = Subject{UserID: "u-1", Username: "steve", TokenVersion: 3}

/*
TestIssuePair_SharesTokenID verifies both halves of a pair carry the same jti.
*/
func TestIssuePair_SharesTokenID(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestIssuer(now)

	pair, err := issuer.IssuePair(steve, "jti-1")
	require.NoError(t, err)

	access, err := issuer.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	refresh, err := issuer.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)

	assert.Equal(t, "jti-1", access.TokenID())
	assert.Equal(t, "jti-1", refresh.TokenID())
	assert.Equal(t, "u-1", access.UserID())
	assert.Equal(t, "steve", refresh.Username)
	assert.Equal(t, "refresh", refresh.Type)
	assert.Empty(t, access.Type)

	version, ok := access.Version()
	assert.True(t, ok)
	assert.Equal(t, 3, version)

	assert.Equal(t, now.Add(15*time.Minute), pair.AccessExpiresAt)
	assert.Equal(t, now.Add(7*24*time.Hour), pair.RefreshExpiresAt)
}

/*
TestVerify_CrossKind verifies tokens cannot be presented as another kind.
*/
func TestVerify_CrossKind(t *testing.T) {
	issuer := newTestIssuer(time.Now())
	pair, err := issuer.IssuePair(steve, "jti-2")
	require.NoError(t, err)
	sso, _, err := issuer.IssueSSO(steve, "jti-3")
	require.NoError(t, err)

	// Refresh token against the access secret fails the signature.
	_, err = issuer.VerifyAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenSignature)

	// Access token against the refresh secret fails the signature.
	_, err = issuer.VerifyRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenSignature)

	// SSO shares the access secret but its type tag is rejected.
	_, err = issuer.VerifyAccess(sso)
	assert.ErrorIs(t, err, ErrTokenMalformed)

	// An access token lacks the sso tag.
	_, err = issuer.VerifySSO(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenMalformed)

	claims, err := issuer.VerifySSO(sso)
	require.NoError(t, err)
	assert.Equal(t, "sso", claims.Type)
	assert.Equal(t, "steve", claims.Username)
}

/*
TestVerify_MissingRequiredClaims verifies structurally incomplete tokens are malformed.
*/
func TestVerify_MissingRequiredClaims(t *testing.T) {
	issuer := newTestIssuer(time.Now())

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u-1",
		"iss": "hydroline-test",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("access-secret"))
	require.NoError(t, err)

	_, err = issuer.VerifyAccess(token)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

/*
TestVerify_Expired verifies that expiry is reported distinctly.
*/
func TestVerify_Expired(t *testing.T) {
	issuedAt := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	pair, err := newTestIssuer(issuedAt).IssuePair(steve, "jti-4")
	require.NoError(t, err)

	later := newTestIssuer(issuedAt.Add(16 * time.Minute))

	_, err = later.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)

	// The refresh half is still good.
	_, err = later.VerifyRefresh(pair.RefreshToken)
	assert.NoError(t, err)

	// Logout can still read the expired access token.
	claims, err := later.InspectAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "jti-4", claims.TokenID())
}

/*
TestInspectAccess_ChecksSignature verifies inspection never trusts forged tokens.
*/
func TestInspectAccess_ChecksSignature(t *testing.T) {
	issuer := newTestIssuer(time.Now())
	forger := NewTokenIssuer(IssuerConfig{AccessSecret: "guess", Issuer: "hydroline-test", AccessTTL: time.Minute})

	forged, _, err := forger.IssueAccess(steve, "jti-victim")
	require.NoError(t, err)

	_, err = issuer.InspectAccess(forged)
	assert.ErrorIs(t, err, ErrTokenSignature)
}

/*
TestVerify_Garbage verifies malformed and foreign tokens.
*/
func TestVerify_Garbage(t *testing.T) {
	issuer := newTestIssuer(time.Now())

	_, err := issuer.VerifyAccess("not-a-token")
	assert.ErrorIs(t, err, ErrTokenMalformed)

	// alg=none must never be accepted.
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "u-1", "jti": "x", "username": "steve", "iss": "hydroline-test", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = issuer.VerifyAccess(unsigned)
	assert.ErrorIs(t, err, ErrTokenSignature)

	// Wrong issuer.
	foreign := NewTokenIssuer(IssuerConfig{AccessSecret: "access-secret", Issuer: "someone-else", AccessTTL: time.Minute})
	token, _, err := foreign.IssueAccess(steve, "jti-5")
	require.NoError(t, err)

	_, err = issuer.VerifyAccess(token)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

/*
TestNewTokenID_Unique verifies that identifiers are distinct and ordered.
*/
func TestNewTokenID_Unique(t *testing.T) {
	first := NewTokenID()
	second := NewTokenID()

	assert.Len(t, first, 26)
	assert.NotEqual(t, first, second)
	assert.Less(t, first, second)
}
