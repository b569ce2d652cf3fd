package utils

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("admin123", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NotEqual(t, "admin123", hash)
	assert.True(t, VerifyPassword(hash, "admin123"))
	assert.False(t, VerifyPassword(hash, "admin124"))
}

func TestHashPassword_DifferentSalts(t *testing.T) {
	a, err := HashPassword("same", bcrypt.MinCost)
	require.NoError(t, err)
	b, err := HashPassword("same", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestHashPassword_LongInputTruncated(t *testing.T) {
	long := strings.Repeat("x", 100)
	hash, err := HashPassword(long, bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, VerifyPassword(hash, long))
	assert.True(t, VerifyPassword(hash, strings.Repeat("x", 72)))
}

func TestNewSessionToken(t *testing.T) {
	a, err := NewSessionToken()
	require.NoError(t, err)
	b, err := NewSessionToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	raw, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, SessionTokenBytes)
}

func TestHashToken_Stable(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Len(t, HashToken("abc"), 64)
}

func TestAdminToken_RoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tok, err := NewAdminToken("secret", 7, "admin", 3, time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), tok.Exp)

	claims, err := ParseAdminToken("secret", tok.Token, func() time.Time { return now.Add(time.Minute) })
	require.NoError(t, err)
	assert.Equal(t, uint64(7), claims.AdminID)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, uint64(3), claims.StoreID)
}

func TestAdminToken_Expired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tok, err := NewAdminToken("secret", 7, "admin", 3, time.Hour, now)
	require.NoError(t, err)

	_, err = ParseAdminToken("secret", tok.Token, func() time.Time { return now.Add(2 * time.Hour) })
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestAdminToken_Invalid(t *testing.T) {
	now := time.Now()
	tok, err := NewAdminToken("secret", 7, "admin", 3, time.Hour, now)
	require.NoError(t, err)

	_, err = ParseAdminToken("other-secret", tok.Token, nil)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = ParseAdminToken("secret", "not.a.jwt", nil)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
