// middleware/auth.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UserContextMiddleware extracts the operator identity and roles set by the
// Gateway. Every engine mutation is attributed to an operator, so a missing
// X-User-ID is rejected.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get("X-User-ID"))
		if userID == "" {
			log.Printf("❌ [USER_CTX] X-User-ID missing on %s %s", c.Method(), c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID: request must come through gateway with auth context",
			})
		}

		var roles []string
		for _, r := range strings.Split(c.Get("X-User-Roles"), ",") {
			if r = strings.TrimSpace(r); r != "" {
				roles = append(roles, r)
			}
		}

		c.Locals(string(UserIDContextKey), userID)
		c.Locals(string(UserRolesContextKey), roles)
		return c.Next()
	}
}

// UserID returns the identity attached by UserContextMiddleware or
// StreamAuthMiddleware.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(string(UserIDContextKey)).(string)
	return id
}

// UserRoles returns the roles attached by UserContextMiddleware.
func UserRoles(c *fiber.Ctx) []string {
	roles, _ := c.Locals(string(UserRolesContextKey)).([]string)
	return roles
}
