package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Online       bool       `json:"online"`
	LastSeenAt   *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Public returns a copy safe to embed in API responses and pushes
// (same fields, but guarantees the hash never rides along on joins).
func (u *User) Public() *User {
	c := *u
	c.PasswordHash = ""
	return &c
}
