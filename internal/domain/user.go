// Package domain defines the core entities of the Vibe Lab server.
package domain

import "time"

// User represents an account in the system.
// Accounts are created by registration and remain unapproved until an admin
// (or an auto-approving invitation) flips IsApproved.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash,omitempty"` // Stored hashed, filter from API responses
	IsApproved   bool      `json:"is_approved"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// Principal is the authenticated identity derived from a valid session token.
// Its fields reflect the user row at resolution time, not the token claims,
// so role changes and un-approvals take effect on the next request.
type Principal struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	IsAdmin    bool   `json:"is_admin"`
	IsApproved bool   `json:"is_approved"`
}
