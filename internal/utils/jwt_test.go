package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken("secret", "665a1b2c3d4e5f6a7b8c9d0e", time.Hour)
	require.NoError(t, err)

	id, err := ParseToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "665a1b2c3d4e5f6a7b8c9d0e", id)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken("secret", "u1", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken("other", token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, err := GenerateToken("secret", "u1", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken("secret", token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestPeekSubjectIgnoresSignature(t *testing.T) {
	token, err := GenerateToken("someone-elses-secret", "u1", time.Hour)
	require.NoError(t, err)

	id, err := PeekSubject(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", id)
}

func TestPeekSubjectFallsBackToIDClaim(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": "mongo-id"})
	signed, err := token.SignedString([]byte("x"))
	require.NoError(t, err)

	id, err := PeekSubject(signed)
	require.NoError(t, err)
	assert.Equal(t, "mongo-id", id)
}

func TestPeekSubjectWithoutSubject(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"role": "customer"})
	signed, err := token.SignedString([]byte("x"))
	require.NoError(t, err)

	_, err = PeekSubject(signed)
	assert.ErrorIs(t, err, ErrNoSubject)

	_, err = PeekSubject("not-a-token")
	assert.Error(t, err)
}
