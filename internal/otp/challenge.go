package otp

import "time"

// Purpose scopes a challenge to the operation it gates. A code issued for one
// purpose is not valid for another, even for the same phone.
type Purpose string

const (
	PurposeRegister      Purpose = "register"
	PurposeLogin         Purpose = "login"
	PurposeResetPassword Purpose = "reset_password"
)

// Valid reports whether the purpose is one of the known values.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeRegister, PurposeLogin, PurposeResetPassword:
		return true
	default:
		return false
	}
}

// Challenge is one outstanding OTP code bound to a (identity key, purpose)
// pair, together with its verification state.
type Challenge struct {
	IdentityKey string
	Purpose     Purpose
	Code        string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	Attempts    int
	Consumed    bool
}

// Expired reports whether the challenge is past its TTL at the given instant.
func (c Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
