package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/swiftship/swiftship/internal/identity"
	"github.com/swiftship/swiftship/internal/token"
)

// JWTAuth validates bearer access tokens and requires the identity behind the
// token to still exist and be active.
func JWTAuth(tokens *token.Issuer, repo identity.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		raw := strings.TrimSpace(authz[len("Bearer "):])

		claims, err := tokens.VerifyAccessToken(raw)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		ident, err := repo.FindByKey(c.UserContext(), claims.IdentityKey())
		if err != nil || !ident.Active() {
			return fiber.NewError(http.StatusUnauthorized, "token invalidated")
		}

		c.Locals("identity_key", ident.Key)
		c.Locals("role", ident.Role)
		return c.Next()
	}
}
