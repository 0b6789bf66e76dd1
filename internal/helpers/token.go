package helpers

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry reads the exp claim of a stored session token without verifying its signature.
// The client cannot verify tokens; the claim is only used to tell a stale local token apart.
// Returns false when the token is opaque or carries no expiry.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, &claims)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// TokenExpired reports whether a JWT session token is past its expiry. Opaque tokens never expire
// locally.
func TokenExpired(token string, now time.Time) bool {
	expiry, ok := TokenExpiry(token)
	return ok && !now.Before(expiry)
}
