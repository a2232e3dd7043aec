package models

import "time"

// Dashboard accounts. Signing in unlocks the SQL portal and file uploads;
// the report endpoints stay public.

type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type User struct {
	ID             int        `json:"id"`
	Email          string     `json:"email"`
	HashedPassword []byte     `json:"-"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// AccountResponse answers signup and login.
type AccountResponse struct {
	Message     string     `json:"message"`
	UserEmail   string     `json:"user_email"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}
