package domain

import "time"

// User models a registered account. IsAdmin is never settable through the
// public API; it is granted out of band (startup seeding).
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}
