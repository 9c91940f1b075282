// Package models defines client-side data models used by the NutriKeeper core.
package models

import "time"

// Role is the privilege level of a local account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// SessionTTL is the lifetime of a session from the moment it is issued.
const SessionTTL = 7 * 24 * time.Hour

// Credential is a locally registered account.
type Credential struct {
	// UserID is a random UUID assigned at registration.
	UserID string `json:"userId"`

	// Email is stored trimmed and lower-cased; it is the uniqueness key.
	Email string `json:"email"`

	DisplayName string `json:"displayName"`

	// PasswordHash is the argon2id digest of the password, base64url encoded.
	PasswordHash string `json:"passwordHash"`
	// Salt is 32 random bytes, base64url encoded.
	Salt string `json:"salt"`

	Role        Role       `json:"role"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	IsVerified  bool       `json:"isVerified"`
}

// Session is the single active authenticated context on a device.
type Session struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
