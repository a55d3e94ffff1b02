package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the roles carried in access tokens.
type UserRole string

// Supported roles.
const (
	RoleAdmin     UserRole = "ADMIN"
	RoleRegistrar UserRole = "REGISTRAR"
	RoleStudent   UserRole = "STUDENT"
)

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}
