package helpers

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()

	t.Run("should flag expired JWTs", func(t *testing.T) {
		assert.True(t, TokenExpired(signedToken(t, now.Add(-time.Minute)), now))
	})

	t.Run("should accept live JWTs", func(t *testing.T) {
		assert.False(t, TokenExpired(signedToken(t, now.Add(time.Hour)), now))
	})

	t.Run("should never expire opaque tokens", func(t *testing.T) {
		assert.False(t, TokenExpired("opaque-session-token", now))
		_, ok := TokenExpiry("opaque-session-token")
		assert.False(t, ok)
	})
}
