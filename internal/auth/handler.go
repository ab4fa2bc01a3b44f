package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/swiftship/swiftship/internal/otp"
	"github.com/swiftship/swiftship/internal/phone"
	"github.com/swiftship/swiftship/internal/token"
)

// Handler exposes the authentication operations over HTTP.
type Handler struct {
	svc *Service
}

// NewHandler constructs the auth HTTP handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type requestOTPRequest struct {
	Phone   string `json:"phone"`
	Purpose string `json:"purpose"`
}

// RequestOTP issues a one-time code for register, login or password reset.
func (h *Handler) RequestOTP(c *fiber.Ctx) error {
	var req requestOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	purpose := otp.Purpose(req.Purpose)
	if !purpose.Valid() {
		return respondError(c, "invalid_purpose", http.StatusBadRequest, "purpose must be register, login or reset_password", nil)
	}

	receipt, err := h.svc.RequestOTP(c.UserContext(), req.Phone, purpose)
	if err != nil {
		return mapError(c, err)
	}

	body := fiber.Map{
		"expires_at": receipt.ExpiresAt.UTC().Format(time.RFC3339),
		"delivered":  receipt.Delivered,
	}
	if receipt.Code != "" {
		body["dev_code"] = receipt.Code
	}
	return c.Status(http.StatusAccepted).JSON(body)
}

type registerRequest struct {
	Phone    string `json:"phone"`
	Code     string `json:"code"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// Register creates an identity after OTP verification and returns tokens.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.svc.Register(c.UserContext(), RegisterInput{
		Phone:    req.Phone,
		Code:     req.Code,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		return mapError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"identity": res.Identity, "tokens": res.Tokens})
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Code     string `json:"code"`
	Password string `json:"password"`
}

// Login authenticates via OTP code or password and returns tokens.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.svc.Login(c.UserContext(), LoginInput{Phone: req.Phone, Code: req.Code, Password: req.Password})
	if err != nil {
		return mapError(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"identity": res.Identity, "tokens": res.Tokens})
}

type resetPasswordRequest struct {
	Phone       string `json:"phone"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// ResetPassword replaces the password after OTP verification. The caller must
// log in again afterwards.
func (h *Handler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	if err := h.svc.ResetPassword(c.UserContext(), ResetPasswordInput{Phone: req.Phone, Code: req.Code, NewPassword: req.NewPassword}); err != nil {
		return mapError(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "password_reset"})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh issues a new access token from a valid refresh token.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	access, expiresIn, err := h.svc.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return mapError(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"access_token": access, "expires_in": expiresIn})
}

// Me returns the authenticated identity's profile.
func (h *Handler) Me(c *fiber.Ctx) error {
	key, _ := c.Locals("identity_key").(string)
	if key == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing identity")
	}
	view, err := h.svc.Profile(c.UserContext(), key)
	if err != nil {
		return mapError(c, err)
	}
	return c.Status(http.StatusOK).JSON(view)
}

// mapError translates the failure taxonomy into HTTP responses carrying a
// machine-readable code so clients branch on kind, not on message text.
func mapError(c *fiber.Ctx, err error) error {
	var wrongCode otp.WrongCodeError
	var throttled otp.ThrottledError

	switch {
	case errors.Is(err, phone.ErrInvalidPhone):
		return respondError(c, "invalid_phone", http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, ErrAlreadyRegistered):
		return respondError(c, "already_registered", http.StatusConflict, err.Error(), nil)
	case errors.Is(err, ErrNotRegistered):
		return respondError(c, "not_registered", http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, ErrAccountSuspended):
		return respondError(c, "account_suspended", http.StatusForbidden, err.Error(), nil)
	case errors.Is(err, ErrMissingCredential):
		return respondError(c, "missing_credential", http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, ErrPasswordTooShort):
		return respondError(c, "password_too_short", http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, ErrWrongPassword):
		return respondError(c, "wrong_password", http.StatusUnauthorized, err.Error(), nil)
	case errors.As(err, &throttled):
		return respondError(c, "throttled_retry_later", http.StatusTooManyRequests, err.Error(), fiber.Map{
			"retry_after_seconds": int(throttled.RetryAfter.Seconds()) + 1,
		})
	case errors.As(err, &wrongCode):
		return respondError(c, "otp_wrong_code", http.StatusUnauthorized, err.Error(), fiber.Map{
			"remaining_attempts": wrongCode.Remaining,
		})
	case errors.Is(err, otp.ErrNotFound):
		return respondError(c, "otp_not_found_or_expired", http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, otp.ErrAlreadyUsed):
		return respondError(c, "otp_already_used", http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, otp.ErrAttemptsExceeded):
		return respondError(c, "otp_attempts_exceeded", http.StatusTooManyRequests, err.Error(), nil)
	case errors.Is(err, token.ErrInvalidToken):
		return respondError(c, "invalid_or_expired_token", http.StatusUnauthorized, err.Error(), nil)
	default:
		return fiber.NewError(http.StatusInternalServerError, "internal error")
	}
}

func respondError(c *fiber.Ctx, code string, status int, message string, extra fiber.Map) error {
	body := fiber.Map{"error": code, "message": message}
	for k, v := range extra {
		body[k] = v
	}
	return c.Status(status).JSON(body)
}
