package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the payload of the bearer token issued on login. The
// verifier middleware decodes it on every protected request.
type TokenClaims struct {
	AccountID string `json:"account_id"`
	RoleID    int    `json:"role_id"`
	jwt.RegisteredClaims
}
