package auth

import (
	"time"

	"github.com/showroom-dms/showroom/internal/shared"
)

// User represents a staff account.
type User struct {
	ID           int64       `json:"id"`
	Username     string      `json:"username"`
	FullName     string      `json:"full_name"`
	Role         shared.Role `json:"role"`
	PasswordHash string      `json:"-"`
	IsActive     bool        `json:"is_active"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Actor converts the account into the identity passed to core operations.
func (u User) Actor() shared.Actor {
	return shared.Actor{ID: u.ID, Name: u.FullName, Role: u.Role}
}

// LoginRequest carries login credentials.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// CreateUserRequest carries the fields for a new staff account.
type CreateUserRequest struct {
	FullName string `json:"full_name" validate:"required,max=120"`
	Username string `json:"username" validate:"required,alphanum,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=Admin Owner Manager Salesman Accounts"`
}
