package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/swiftship/swiftship/internal/config"
	"github.com/swiftship/swiftship/internal/identity"
	"github.com/swiftship/swiftship/internal/otp"
	"github.com/swiftship/swiftship/internal/phone"
	"github.com/swiftship/swiftship/internal/token"
)

// Service is the top-level authentication orchestrator. It composes the OTP
// service, the identity repository and the token issuer; every operation
// normalizes the raw phone input before touching state.
type Service struct {
	cfg        config.Config
	identities identity.Repository
	otps       *otp.Service
	tokens     *token.Issuer
	logger     *slog.Logger

	now func() time.Time
}

// NewService wires the authentication service.
func NewService(cfg config.Config, identities identity.Repository, otps *otp.Service, tokens *token.Issuer, logger *slog.Logger) *Service {
	return &Service{
		cfg:        cfg,
		identities: identities,
		otps:       otps,
		tokens:     tokens,
		logger:     logger,
		now:        time.Now,
	}
}

// Result is returned by operations that authenticate an identity.
type Result struct {
	Identity identity.SafeView
	Tokens   token.Pair
}

// RequestOTP issues a challenge for the phone and purpose. Registration
// requires the phone to be unknown; login and reset require it to exist.
// Nothing is issued when the precondition fails.
func (s *Service) RequestOTP(ctx context.Context, rawPhone string, purpose otp.Purpose) (otp.Receipt, error) {
	key, err := phone.Normalize(rawPhone, s.cfg.CountryCode)
	if err != nil {
		return otp.Receipt{}, err
	}

	_, err = s.identities.FindByKey(ctx, key)
	switch purpose {
	case otp.PurposeRegister:
		if err == nil {
			return otp.Receipt{}, ErrAlreadyRegistered
		}
		if !errors.Is(err, identity.ErrNotFound) {
			return otp.Receipt{}, err
		}
	case otp.PurposeLogin, otp.PurposeResetPassword:
		if errors.Is(err, identity.ErrNotFound) {
			return otp.Receipt{}, ErrNotRegistered
		}
		if err != nil {
			return otp.Receipt{}, err
		}
	}

	return s.otps.Issue(ctx, key, purpose)
}

// RegisterInput carries the register operation parameters. Password and
// FullName are optional; an account without a password is OTP-only.
type RegisterInput struct {
	Phone    string
	Code     string
	Password string
	FullName string
}

// Register verifies the registration challenge and creates the identity with
// its phone marked verified, then issues a token pair.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Result, error) {
	key, err := phone.Normalize(in.Phone, s.cfg.CountryCode)
	if err != nil {
		return Result{}, err
	}

	// Race guard; Create below still enforces uniqueness.
	if _, err := s.identities.FindByKey(ctx, key); err == nil {
		return Result{}, ErrAlreadyRegistered
	} else if !errors.Is(err, identity.ErrNotFound) {
		return Result{}, err
	}

	var hash []byte
	if in.Password != "" {
		if len(in.Password) < s.cfg.MinPasswordLength {
			return Result{}, ErrPasswordTooShort
		}
		if hash, err = identity.HashPassword(in.Password); err != nil {
			return Result{}, err
		}
	}

	if err := s.otps.Verify(ctx, key, otp.PurposeRegister, in.Code); err != nil {
		return Result{}, err
	}

	ident := identity.Identity{
		ID:            uuid.NewString(),
		Key:           key,
		FullName:      in.FullName,
		PasswordHash:  hash,
		PhoneVerified: true,
		Status:        identity.StatusActive,
		Role:          identity.RoleUser,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.identities.Create(ctx, ident); err != nil {
		if errors.Is(err, identity.ErrConflict) {
			return Result{}, ErrAlreadyRegistered
		}
		return Result{}, err
	}

	s.logger.Info("identity registered", "identity_id", ident.ID, "phone", ident.Key)
	return s.finish(ctx, ident)
}

// LoginInput carries the login operation parameters. Exactly one of Code and
// Password must be supplied; when both are present the OTP path wins.
type LoginInput struct {
	Phone    string
	Code     string
	Password string
}

// Login authenticates via OTP or password and issues a token pair.
func (s *Service) Login(ctx context.Context, in LoginInput) (Result, error) {
	key, err := phone.Normalize(in.Phone, s.cfg.CountryCode)
	if err != nil {
		return Result{}, err
	}

	ident, err := s.identities.FindByKey(ctx, key)
	if errors.Is(err, identity.ErrNotFound) {
		return Result{}, ErrNotRegistered
	}
	if err != nil {
		return Result{}, err
	}
	if !ident.Active() {
		return Result{}, ErrAccountSuspended
	}

	switch {
	case in.Code != "":
		if err := s.otps.Verify(ctx, key, otp.PurposeLogin, in.Code); err != nil {
			return Result{}, err
		}
	case in.Password != "":
		if !ident.VerifyPassword(in.Password) {
			return Result{}, ErrWrongPassword
		}
	default:
		return Result{}, ErrMissingCredential
	}

	return s.finish(ctx, ident)
}

// ResetPasswordInput carries the reset operation parameters.
type ResetPasswordInput struct {
	Phone       string
	Code        string
	NewPassword string
}

// ResetPassword verifies the reset challenge and replaces the stored password
// hash. No tokens are issued; the caller logs in again with the new password.
func (s *Service) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	key, err := phone.Normalize(in.Phone, s.cfg.CountryCode)
	if err != nil {
		return err
	}

	ident, err := s.identities.FindByKey(ctx, key)
	if errors.Is(err, identity.ErrNotFound) {
		return ErrNotRegistered
	}
	if err != nil {
		return err
	}

	if len(in.NewPassword) < s.cfg.MinPasswordLength {
		return ErrPasswordTooShort
	}

	if err := s.otps.Verify(ctx, key, otp.PurposeResetPassword, in.Code); err != nil {
		return err
	}

	hash, err := identity.HashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	if err := s.identities.UpdatePassword(ctx, key, hash); err != nil {
		return err
	}

	s.logger.Info("password reset", "identity_id", ident.ID)
	return nil
}

// Refresh verifies a refresh token and mints a new access token for the
// identity, which must still exist and be active. The refresh token itself is
// never rotated here; it stays valid until its own expiry.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, int64, error) {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return "", 0, err
	}

	ident, err := s.identities.FindByKey(ctx, claims.IdentityKey())
	if errors.Is(err, identity.ErrNotFound) {
		// A token for a vanished identity fails like any invalid token.
		return "", 0, token.ErrInvalidToken
	}
	if err != nil {
		return "", 0, err
	}
	if !ident.Active() {
		return "", 0, ErrAccountSuspended
	}

	access, err := s.tokens.IssueAccessToken(ident.Key, ident.Role)
	if err != nil {
		return "", 0, err
	}
	return access, int64(s.cfg.AccessTokenTTL.Seconds()), nil
}

// Profile loads the safe view of an identity by its key.
func (s *Service) Profile(ctx context.Context, key string) (identity.SafeView, error) {
	ident, err := s.identities.FindByKey(ctx, key)
	if errors.Is(err, identity.ErrNotFound) {
		return identity.SafeView{}, ErrNotRegistered
	}
	if err != nil {
		return identity.SafeView{}, err
	}
	return ident.Safe(), nil
}

// finish issues the token pair and stamps last login. The stamp is best
// effort; a failed write never blocks an otherwise successful authentication.
func (s *Service) finish(ctx context.Context, ident identity.Identity) (Result, error) {
	pair, err := s.tokens.IssuePair(ident.Key, ident.Role)
	if err != nil {
		return Result{}, err
	}
	if err := s.identities.UpdateLastLogin(ctx, ident.Key, s.now().UTC()); err != nil {
		s.logger.Warn("stamp last login", "identity_id", ident.ID, "error", err)
	}
	return Result{Identity: ident.Safe(), Tokens: pair}, nil
}
