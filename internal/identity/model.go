package identity

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Status of an identity record.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

// RoleUser is the default role assigned on registration.
const RoleUser = "user"

// Identity represents an authenticated account keyed by its normalized phone
// number. PasswordHash is empty for OTP-only accounts.
type Identity struct {
	ID            string
	Key           string
	FullName      string
	PasswordHash  []byte
	PhoneVerified bool
	Status        string
	Role          string
	CreatedAt     time.Time
	LastLogin     time.Time
}

// Active reports whether the identity may authenticate.
func (i Identity) Active() bool {
	return i.Status == StatusActive
}

// HasPassword reports whether a password credential is set.
func (i Identity) HasPassword() bool {
	return len(i.PasswordHash) > 0
}

// VerifyPassword compares a candidate password against the stored hash.
func (i Identity) VerifyPassword(password string) bool {
	if !i.HasPassword() {
		return false
	}
	return bcrypt.CompareHashAndPassword(i.PasswordHash, []byte(password)) == nil
}

// HashPassword derives a bcrypt hash for storage.
func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

// SafeView is the identity projection returned to clients; it never carries
// credential material.
type SafeView struct {
	ID            string    `json:"id"`
	Phone         string    `json:"phone"`
	FullName      string    `json:"full_name,omitempty"`
	PhoneVerified bool      `json:"phone_verified"`
	Status        string    `json:"status"`
	Role          string    `json:"role"`
	CreatedAt     time.Time `json:"created_at"`
}

// Safe returns the client-facing projection of the identity.
func (i Identity) Safe() SafeView {
	return SafeView{
		ID:            i.ID,
		Phone:         i.Key,
		FullName:      i.FullName,
		PhoneVerified: i.PhoneVerified,
		Status:        i.Status,
		Role:          i.Role,
		CreatedAt:     i.CreatedAt,
	}
}
