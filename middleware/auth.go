package middleware

import (
	"log"
	"strings"

	"quiz-match-service/services"

	"github.com/gofiber/fiber/v2"
)

const (
	localUserID      = "user_id"
	localDisplayName = "display_name"
)

// UserContextMiddleware resolves the caller from the gateway's X-User-ID and
// X-User-Name headers, falling back to a player token when verifier is set.
// Requests without an identity are rejected.
func UserContextMiddleware(verifier *TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get("X-User-ID"))
		displayName := strings.TrimSpace(c.Get("X-User-Name"))
		source := "gateway"

		if userID == "" {
			id, name, err := verifier.identity(c)
			if err != nil {
				log.Printf("❌ [USER_CTX] %v | Path: %s", err, c.Path())
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid access token"})
			}
			userID, source = id, "token"
			if displayName == "" {
				displayName = name
			}
		}

		if userID == "" {
			log.Printf("❌ [USER_CTX] X-User-ID required but missing: %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID: request must come through gateway with auth context",
			})
		}

		c.Locals(localUserID, userID)
		c.Locals(localDisplayName, displayName)

		log.Printf("👤 [USER_CTX] UserID=%s (%s) | Path: %s", userID, source, c.Path())
		return c.Next()
	}
}

// IdentityFrom returns the caller stored by UserContextMiddleware.
func IdentityFrom(c *fiber.Ctx) services.Identity {
	id, _ := c.Locals(localUserID).(string)
	name, _ := c.Locals(localDisplayName).(string)
	return services.Identity{UserID: id, DisplayName: name}
}
