package authn

import "github.com/golang-jwt/jwt/v5"

// TokenClaims is the payload of a stateless bearer token: the standard
// registered claims (issuance and expiry among them) plus the identity of the
// User the token asserts. The payload is embedded, not looked up-- nothing in
// it may be trusted before the signature and expiry have both been verified.
type TokenClaims struct {
	jwt.RegisteredClaims
	// UserID is the ID of the User this token asserts.
	UserID string `json:"userID"`
	// Name is the display name of the User this token asserts.
	Name string `json:"name,omitempty"`
}
