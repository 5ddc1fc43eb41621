package models

import "github.com/golang-jwt/jwt/v5"

// UserRole gates the administrative trigger endpoints.
type UserRole string

const (
	RoleAdmin      UserRole = "ADMIN"
	RoleSuperAdmin UserRole = "SUPER_ADMIN"
)

// JWTClaims is the token payload the operational surface accepts.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}
