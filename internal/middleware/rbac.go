package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/codequesthq/codequest-api/internal/utils"
)

// RequireRole refuses the request unless the authenticated user carries one of
// the allowed roles. JWTProtected must run earlier in the chain.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		normalized := strings.ToLower(strings.TrimSpace(role))
		if normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("user_role").(string)
		if _, ok := allowed[strings.ToLower(strings.TrimSpace(role))]; !ok {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}
