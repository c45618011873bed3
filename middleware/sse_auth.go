// middleware/sse_auth.go
package middleware

import (
	"log"
	"strings"

	"club-live-engine/broadcast"

	"github.com/gofiber/fiber/v2"
)

type contextKey string

const (
	UserIDContextKey    contextKey = "userID"
	UserRolesContextKey contextKey = "userRoles"
)

// StreamAuthMiddleware validates the session `token` query param before an
// event stream is opened.
//
// Usage:
//
//	app.Get("/live/stream", middleware.StreamAuthMiddleware(signer), h.Stream)
func StreamAuthMiddleware(auth broadcast.Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := strings.TrimSpace(c.Query("token"))
		if token == "" {
			log.Printf("[StreamAuth] ❌ Missing token for %s (remote %s)", c.Path(), c.IP())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing token in query",
			})
		}

		userID, err := auth.Authenticate(token)
		if err != nil {
			log.Printf("[StreamAuth] ❌ Rejected token (prefix: %s...): %v", token[:min(10, len(token))], err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		c.Locals(string(UserIDContextKey), userID)
		log.Printf("[StreamAuth] ✅ Authenticated subscriber %s", userID)
		return c.Next()
	}
}
