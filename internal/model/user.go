package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// prices and totals travel as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an account as stored in the `users` table.
//
// Fields:
//
//	ID           – UUID primary key.
//	Email        – unique, lower-cased address.
//	Name         – display name.
//	PasswordHash – bcrypt hash, never serialized.
//	Role         – user or admin.
//	CreatedAt    – timestamp of creation.
type User struct {
	ID           string    `json:"id"`         // users.id
	Email        string    `json:"email"`      // users.email
	Name         string    `json:"name"`       // users.name
	PasswordHash string    `json:"-"`          // users.password_hash
	Role         string    `json:"role"`       // users.role
	CreatedAt    time.Time `json:"created_at"` // users.created_at
}

// Identity is the authenticated caller as seen by domain operations.
type Identity struct {
	UserID string
	Role   string
}

// IsAdmin reports whether the caller carries the admin role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }
