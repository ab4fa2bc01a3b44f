package auth

import "errors"

// Identity-state failures are terminal for the request that hit them. OTP and
// token failures are defined in the otp and token packages; callers branch on
// kind with errors.Is/errors.As, never on message text.
var (
	ErrAlreadyRegistered = errors.New("phone number already registered")
	ErrNotRegistered     = errors.New("phone number not registered")
	ErrAccountSuspended  = errors.New("account suspended")
	ErrMissingCredential = errors.New("either otp code or password is required")
	ErrWrongPassword     = errors.New("wrong password")
	ErrPasswordTooShort  = errors.New("password below minimum length")
)
