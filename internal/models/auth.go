package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Caller converts the verified claims into an engine identity.
func (c *JWTClaims) Caller() Caller {
	return Caller{UserID: c.UserID, Role: c.Role}
}
