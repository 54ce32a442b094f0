/*
Package token manages the durable session credential on the client side.

It provides unverified introspection of the JWT issued by the server (expiry checks
before spending a network round trip) and a file-backed store that persists the raw
token across process restarts.
*/
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
)

// Introspect parses the raw token string WITHOUT verifying its signature and returns
// the embedded claims. The client holds no signing secret; the server remains the
// authority on token validity, and /auth/check is still consulted for live sessions.
func Introspect(raw string) (*Claims, error) {
	claims := &Claims{}

	parser := &jwt.Parser{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, err
	}

	if claims.UserID == "" {
		return nil, errors.New("token carries no user identifier")
	}

	return claims, nil
}

// Expired reports whether the claims' expiration time has passed at the given instant.
// A token without an expiration claim is treated as not expired and left to the server to judge.
func (c *Claims) Expired(now time.Time) bool {
	if c.ExpiresAt == 0 {
		return false
	}
	return now.Unix() >= c.ExpiresAt
}
