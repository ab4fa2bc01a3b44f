package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/swiftship/swiftship/internal/config"
	"github.com/swiftship/swiftship/internal/notification"
)

// Service orchestrates challenge issuance and verification against a Store
// and a Notifier.
type Service struct {
	store    Store
	notifier notification.Notifier
	logger   *slog.Logger

	ttl            time.Duration
	codeLength     int
	maxAttempts    int
	resendCooldown time.Duration
	notifyTimeout  time.Duration
	devExpose      bool

	// Overridable in tests.
	generate func(length int) (string, error)
	now      func() time.Time
}

// NewService creates an OTP service configured from cfg.
func NewService(cfg config.Config, store Store, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{
		store:          store,
		notifier:       notifier,
		logger:         logger,
		ttl:            cfg.OTPTTL,
		codeLength:     cfg.OTPLength,
		maxAttempts:    cfg.OTPMaxAttempts,
		resendCooldown: cfg.OTPResendCooldown,
		notifyTimeout:  cfg.NotifyTimeout,
		devExpose:      cfg.OTPDevExpose,
		generate:       generateCode,
		now:            time.Now,
	}
}

// Receipt reports the outcome of an Issue call. Code is populated only under
// development-mode instrumentation and must never reach production responses.
type Receipt struct {
	ExpiresAt time.Time
	Delivered bool
	Code      string
}

// Issue creates a new challenge for the pair and hands the code to the
// notifier. Issuing replaces any prior challenge, so the old code becomes
// unusable immediately. A challenge created within the resend cooldown blocks
// reissue with ThrottledError.
//
// A delivery failure does not roll back the store write; the challenge stays
// issued and the receipt reports Delivered=false. Resending after the
// cooldown is the recovery path.
func (s *Service) Issue(ctx context.Context, identityKey string, purpose Purpose) (Receipt, error) {
	if !purpose.Valid() {
		return Receipt{}, fmt.Errorf("unknown otp purpose %q", purpose)
	}

	now := s.now()
	if existing, err := s.store.Get(ctx, identityKey, purpose); err == nil && !existing.Consumed {
		if wait := existing.CreatedAt.Add(s.resendCooldown).Sub(now); wait > 0 {
			return Receipt{}, ThrottledError{RetryAfter: wait}
		}
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return Receipt{}, err
	}

	code, err := s.generate(s.codeLength)
	if err != nil {
		return Receipt{}, fmt.Errorf("generate otp code: %w", err)
	}

	ch := Challenge{
		IdentityKey: identityKey,
		Purpose:     purpose,
		Code:        code,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}
	if err := s.store.Put(ctx, ch); err != nil {
		return Receipt{}, err
	}

	receipt := Receipt{ExpiresAt: ch.ExpiresAt, Delivered: true}
	if s.devExpose {
		receipt.Code = code
	}

	nctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()
	msg := notification.Message{
		Kind:        notification.KindOTP,
		Destination: identityKey,
		Body:        fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(s.ttl.Minutes())),
	}
	if err := s.notifier.Send(nctx, msg); err != nil {
		receipt.Delivered = false
		s.logger.Warn("otp delivery failed", "destination", identityKey, "purpose", string(purpose), "error", err)
	}

	return receipt, nil
}

// Verify checks a submitted code against the active challenge for the pair.
// On success the challenge is consumed exactly once; concurrent verifications
// of the same code cannot both succeed. A wrong code burns an attempt, and
// the attempt that reaches the cap destroys the challenge.
func (s *Service) Verify(ctx context.Context, identityKey string, purpose Purpose, submitted string) error {
	ch, err := s.store.Get(ctx, identityKey, purpose)
	if err != nil {
		return err
	}

	if ch.Attempts >= s.maxAttempts {
		_ = s.store.Delete(ctx, identityKey, purpose)
		return ErrAttemptsExceeded
	}
	if ch.Consumed {
		return ErrAlreadyUsed
	}

	if subtle.ConstantTimeCompare([]byte(submitted), []byte(ch.Code)) != 1 {
		n, err := s.store.RecordAttempt(ctx, identityKey, purpose)
		if err != nil {
			return err
		}
		if n >= s.maxAttempts {
			_ = s.store.Delete(ctx, identityKey, purpose)
			return ErrAttemptsExceeded
		}
		return WrongCodeError{Remaining: s.maxAttempts - n}
	}

	consumed, err := s.store.Consume(ctx, identityKey, purpose)
	if err != nil {
		return err
	}
	if !consumed {
		return ErrAlreadyUsed
	}
	return nil
}

// generateCode draws an unbiased numeric code of the given length from
// crypto/rand, zero padded.
func generateCode(length int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", length, n), nil
}
