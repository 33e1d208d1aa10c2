package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	AuthProviderPassword = "password"
	AuthProviderGoogle   = "google"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash *string   `json:"-"`
	AuthProvider string    `json:"auth_provider"`
	CreatedAt    time.Time `json:"created_at"`
}
