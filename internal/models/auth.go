package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the available roles for access control.
type UserRole string

const (
	RoleAdmin       UserRole = "ADMIN"
	RoleVeterinario UserRole = "VETERINARIO"
	RoleCiudadano   UserRole = "CIUDADANO"
)

// JWTClaims represents the JWT payload minted by the auth service.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
