package auth

import "github.com/golang-jwt/jwt/v5"

// UserClaim carries the user id as subject and a unique token id used for
// revocation.
type UserClaim struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`

	jwt.RegisteredClaims
}
