package model

import (
	"time"
)

const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleQuizUser   = "quiz_user"
)

func ValidRole(role string) bool {
	switch role {
	case RoleSuperAdmin, RoleAdmin, RoleQuizUser:
		return true
	}
	return false
}

type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"` // Not exposed
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
