package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/swiftship/swiftship/internal/auth"
)

// RegisterAuthRoutes wires the public authentication endpoints. The rate
// limiter guards every endpoint that touches OTP or credential state.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, rateLimiter fiber.Handler) {
	group := r.Group("/auth")
	if rateLimiter != nil {
		group.Use(rateLimiter)
	}
	group.Post("/request-otp", h.RequestOTP)
	group.Post("/register", h.Register)
	group.Post("/login", h.Login)
	group.Post("/reset-password", h.ResetPassword)
	group.Post("/refresh", h.Refresh)
}
