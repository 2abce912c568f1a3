// middleware/sse_auth.go
package middleware

import (
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// SSEAuthMiddleware authenticates EventSource connections. Browsers cannot
// set headers on SSE requests, so the Gateway appends the service token and
// the user's ID as query params instead.
//
// Usage:
//
//	app.Get("/user/notifications/stream", middleware.SSEAuthMiddleware(), notificationService.StreamUserNotificationsSSE)
func SSEAuthMiddleware() fiber.Handler {
	expectedToken := os.Getenv("PLATFORM_SERVICE_TOKEN")
	if expectedToken == "" {
		log.Fatal("❌ PLATFORM_SERVICE_TOKEN is not set — SSE routes cannot authenticate Gateway")
	}

	return func(c *fiber.Ctx) error {
		token := strings.TrimSpace(c.Query("token"))
		userID := strings.TrimSpace(c.Query("user_id"))

		if token == "" || userID == "" {
			log.Printf("[SSEAuth] ❌ Missing query params on %s (token present=%t, user_id present=%t)",
				c.Path(), token != "", userID != "")
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing token or user_id in query",
			})
		}

		if token != expectedToken {
			log.Printf("[SSEAuth] ❌ Invalid token for %s (prefix: %.10s...)", c.Path(), token)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		c.Locals("user_id", userID)
		return c.Next()
	}
}
