package otp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/swiftship/swiftship/internal/config"
	"github.com/swiftship/swiftship/internal/logging"
	"github.com/swiftship/swiftship/internal/notification"
)

type stubNotifier struct {
	sent []notification.Message
	err  error
}

func (n *stubNotifier) Send(_ context.Context, msg notification.Message) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func testConfig() config.Config {
	return config.Config{
		OTPTTL:            5 * time.Minute,
		OTPLength:         6,
		OTPMaxAttempts:    5,
		OTPResendCooldown: time.Minute,
		NotifyTimeout:     time.Second,
	}
}

func newTestService(t *testing.T) (*Service, *stubNotifier) {
	t.Helper()
	notifier := &stubNotifier{}
	svc := NewService(testConfig(), NewMemoryStore(), notifier, logging.Discard())
	svc.generate = func(int) (string, error) { return "123456", nil }
	return svc, notifier
}

func TestIssueAndVerifyOnce(t *testing.T) {
	svc, notifier := newTestService(t)
	ctx := context.Background()

	receipt, err := svc.Issue(ctx, "+84912345678", PurposeRegister)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !receipt.Delivered {
		t.Fatalf("expected delivered receipt")
	}
	if receipt.Code != "" {
		t.Fatalf("code must not leak outside dev mode")
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.sent))
	}

	if err := svc.Verify(ctx, "+84912345678", PurposeRegister, "000000"); err != nil {
		var wrong WrongCodeError
		if !errors.As(err, &wrong) {
			t.Fatalf("expected WrongCodeError, got %v", err)
		}
		if wrong.Remaining != 4 {
			t.Fatalf("expected 4 remaining attempts, got %d", wrong.Remaining)
		}
	} else {
		t.Fatalf("expected wrong code failure")
	}

	if err := svc.Verify(ctx, "+84912345678", PurposeRegister, "123456"); err != nil {
		t.Fatalf("verify: %v", err)
	}

	if err := svc.Verify(ctx, "+84912345678", PurposeRegister, "123456"); !errors.Is(err, ErrAlreadyUsed) {
		t.Fatalf("expected ErrAlreadyUsed on second verification, got %v", err)
	}
}

func TestIssueThrottledWithinCooldown(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Issue(ctx, "+84912345678", PurposeLogin); err != nil {
		t.Fatalf("first issue: %v", err)
	}

	_, err := svc.Issue(ctx, "+84912345678", PurposeLogin)
	var throttled ThrottledError
	if !errors.As(err, &throttled) {
		t.Fatalf("expected ThrottledError, got %v", err)
	}
	if throttled.RetryAfter <= 0 {
		t.Fatalf("expected positive retry-after, got %s", throttled.RetryAfter)
	}

	// A different purpose for the same phone is a separate pair.
	if _, err := svc.Issue(ctx, "+84912345678", PurposeResetPassword); err != nil {
		t.Fatalf("issue for other purpose: %v", err)
	}
}

func TestReissueInvalidatesOldCode(t *testing.T) {
	svc, _ := newTestService(t)
	svc.resendCooldown = 0
	ctx := context.Background()

	if _, err := svc.Issue(ctx, "+84912345678", PurposeLogin); err != nil {
		t.Fatalf("first issue: %v", err)
	}
	svc.generate = func(int) (string, error) { return "654321", nil }
	if _, err := svc.Issue(ctx, "+84912345678", PurposeLogin); err != nil {
		t.Fatalf("second issue: %v", err)
	}

	err := svc.Verify(ctx, "+84912345678", PurposeLogin, "123456")
	var wrong WrongCodeError
	if !errors.As(err, &wrong) {
		t.Fatalf("old code should no longer match, got %v", err)
	}
	if err := svc.Verify(ctx, "+84912345678", PurposeLogin, "654321"); err != nil {
		t.Fatalf("new code should verify: %v", err)
	}
}

func TestVerifyAttemptsExceeded(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Issue(ctx, "+84912345678", PurposeRegister); err != nil {
		t.Fatalf("issue: %v", err)
	}

	for i := 0; i < 4; i++ {
		err := svc.Verify(ctx, "+84912345678", PurposeRegister, "000000")
		var wrong WrongCodeError
		if !errors.As(err, &wrong) {
			t.Fatalf("attempt %d: expected WrongCodeError, got %v", i+1, err)
		}
		if wrong.Remaining != 4-i {
			t.Fatalf("attempt %d: expected %d remaining, got %d", i+1, 4-i, wrong.Remaining)
		}
	}

	// The attempt that reaches the cap destroys the challenge.
	if err := svc.Verify(ctx, "+84912345678", PurposeRegister, "000000"); !errors.Is(err, ErrAttemptsExceeded) {
		t.Fatalf("expected ErrAttemptsExceeded, got %v", err)
	}

	// Even the correct code cannot revive it.
	if err := svc.Verify(ctx, "+84912345678", PurposeRegister, "123456"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after exhaustion, got %v", err)
	}
}

func TestVerifyExpiredChallenge(t *testing.T) {
	svc, _ := newTestService(t)
	store := svc.store.(*memoryStore)
	ctx := context.Background()

	if _, err := svc.Issue(ctx, "+84912345678", PurposeLogin); err != nil {
		t.Fatalf("issue: %v", err)
	}

	store.now = func() time.Time { return time.Now().Add(6 * time.Minute) }

	if err := svc.Verify(ctx, "+84912345678", PurposeLogin, "123456"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for expired challenge, got %v", err)
	}
}

func TestVerifyWithoutChallenge(t *testing.T) {
	svc, _ := newTestService(t)

	if err := svc.Verify(context.Background(), "+84912345678", PurposeLogin, "123456"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIssueDeliveryFailureKeepsChallenge(t *testing.T) {
	notifier := &stubNotifier{err: errors.New("gateway unavailable")}
	svc := NewService(testConfig(), NewMemoryStore(), notifier, logging.Discard())
	svc.generate = func(int) (string, error) { return "123456", nil }
	ctx := context.Background()

	receipt, err := svc.Issue(ctx, "+84912345678", PurposeLogin)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if receipt.Delivered {
		t.Fatalf("expected undelivered receipt")
	}

	// The challenge survives the delivery failure.
	if err := svc.Verify(ctx, "+84912345678", PurposeLogin, "123456"); err != nil {
		t.Fatalf("verify after failed delivery: %v", err)
	}
}

func TestIssueDevExposeReturnsCode(t *testing.T) {
	cfg := testConfig()
	cfg.OTPDevExpose = true
	svc := NewService(cfg, NewMemoryStore(), &stubNotifier{}, logging.Discard())
	svc.generate = func(int) (string, error) { return "123456", nil }

	receipt, err := svc.Issue(context.Background(), "+84912345678", PurposeLogin)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if receipt.Code != "123456" {
		t.Fatalf("expected dev code in receipt, got %q", receipt.Code)
	}
}

func TestGenerateCodeShape(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := generateCode(6)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 digits, got %q", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("non-digit in code %q", code)
			}
		}
	}
}
