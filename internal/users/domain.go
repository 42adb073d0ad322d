package users

import "time"

// User is an account that places orders and records movements.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	FullName     string     `json:"full_name"`
	Role         string     `json:"role"`
	Status       string     `json:"status"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// CreateRequest registers a user. The password is hashed before storage.
type CreateRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email,max=100"`
	FullName string `json:"full_name" validate:"max=100"`
	Role     string `json:"role" validate:"required,oneof=admin manager staff"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}
