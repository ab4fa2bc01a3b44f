package otp

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound indicates no active challenge exists for the pair. Expired
	// challenges are reported the same way.
	ErrNotFound = errors.New("otp challenge not found or expired")

	// ErrAlreadyUsed indicates the challenge was consumed by an earlier
	// successful verification.
	ErrAlreadyUsed = errors.New("otp code already used")

	// ErrAttemptsExceeded indicates the attempt cap was reached; the caller
	// must request a fresh code.
	ErrAttemptsExceeded = errors.New("otp verification attempts exceeded")
)

// WrongCodeError indicates the submitted code did not match.
type WrongCodeError struct {
	Remaining int
}

func (e WrongCodeError) Error() string {
	return fmt.Sprintf("wrong otp code, %d attempts remaining", e.Remaining)
}

// ThrottledError indicates a code was issued too recently for the pair.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e ThrottledError) Error() string {
	return fmt.Sprintf("otp issued too recently, retry in %s", e.RetryAfter.Round(time.Second))
}
