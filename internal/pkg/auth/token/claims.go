package token

import "github.com/golang-jwt/jwt"

// Claims defines the structure of the session token claims issued by the Chatify backend.
// The client never verifies the signature (it does not hold the secret); claims are read
// only to decide whether a stored token is obviously dead before spending a network call.
type Claims struct {
	// StandardClaims embeds the JWT standard fields such as Exp (Expiration),
	// Iat (Issued At), and Iss (Issuer).
	jwt.StandardClaims `json:"standard_claims"`

	// UserID is the identifier of the account the token was issued for.
	UserID string `json:"userId"`
}
