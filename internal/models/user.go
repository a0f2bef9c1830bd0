package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the access level of an account.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// User represents an account in the system.
// Passwords are stored and compared in plain text; this is a demo user table, not an identity provider.
type User struct {
	// ID is the unique identifier (UUID for created accounts, "admin-id" for the bootstrap admin).
	ID string `json:"id" validate:"required"`
	// Username is unique at creation time only.
	Username string `json:"username" validate:"required,max=64"`
	// Password is the plaintext password. Omitted from public views.
	Password string `json:"password,omitempty" validate:"required"`
	// Role is ADMIN or USER.
	Role Role `json:"role" validate:"oneof=ADMIN USER"`
	// IsOnline is set on login and cleared on logout.
	IsOnline bool `json:"isOnline"`
	// LastIP is the network address seen at the last login.
	LastIP string `json:"lastIp,omitempty"`
	// Location is a human readable "City, Country" string resolved at the last login.
	Location string `json:"location,omitempty"`
	// CreatedAt is a unix timestamp in milliseconds.
	CreatedAt int64 `json:"createdAt"`
}

// NewUser builds a regular account with a fresh UUID, the way the admin panel creates identities.
func NewUser(username, password string) User {
	return User{
		ID:        uuid.New().String(),
		Username:  username,
		Password:  password,
		Role:      RoleUser,
		CreatedAt: NowMillis(),
		Location:  "Unknown",
		LastIP:    "0.0.0.0",
	}
}

// IsAdmin reports whether the user has the ADMIN role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Public returns a copy of the user without the password.
func (u User) Public() User {
	u.Password = ""
	return u
}

// PublicUsers maps Public over a slice.
func PublicUsers(users []User) []User {
	out := make([]User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out
}

// NowMillis returns the current time as unix milliseconds.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
