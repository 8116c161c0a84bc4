package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager(testSecret, "rental-escrow", time.Hour)

	token, err := tm.GenerateAccessToken(42, "admin@example.com", []string{RoleAdmin})
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int32(42), claims.UserID)
	assert.Equal(t, TokenTypeAccess, claims.Type)
	assert.True(t, claims.IsAdmin())
}

func TestTokenManager_NonAdmin(t *testing.T) {
	tm := NewTokenManager(testSecret, "rental-escrow", time.Hour)

	token, err := tm.GenerateAccessToken(7, "renter@example.com", nil)
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.False(t, claims.IsAdmin())
}

func TestTokenManager_WrongSecret(t *testing.T) {
	token, err := NewTokenManager(testSecret, "rental-escrow", time.Hour).GenerateAccessToken(1, "", nil)
	require.NoError(t, err)

	_, err = NewTokenManager("another-secret-another-secret-xx", "rental-escrow", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_WrongIssuer(t *testing.T) {
	token, err := NewTokenManager(testSecret, "someone-else", time.Hour).GenerateAccessToken(1, "", nil)
	require.NoError(t, err)

	_, err = NewTokenManager(testSecret, "rental-escrow", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func signed(t *testing.T, claims UserClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func TestTokenManager_Expired(t *testing.T) {
	token := signed(t, UserClaims{
		UserID: 1,
		Type:   TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			Issuer:    "rental-escrow",
			Audience:  jwt.ClaimStrings{accessAudience},
		},
	})

	_, err := NewTokenManager(testSecret, "rental-escrow", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenManager_WrongType(t *testing.T) {
	token := signed(t, UserClaims{
		UserID: 1,
		Type:   "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			Issuer:    "rental-escrow",
			Audience:  jwt.ClaimStrings{accessAudience},
		},
	})

	_, err := NewTokenManager(testSecret, "rental-escrow", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestTokenManager_Garbage(t *testing.T) {
	_, err := NewTokenManager(testSecret, "rental-escrow", time.Hour).ValidateToken("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
