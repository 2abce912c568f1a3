package middleware

import (
	"log"

	"investment-reward-system/models"
	"investment-reward-system/services"

	"github.com/gofiber/fiber/v2"
)

// AccountContextMiddleware resolves the Gateway user to the local platform
// account and attaches it to the request context. Routes behind it can assume
// a registered, non-suspended account.
func AccountContextMiddleware(users *services.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		externalID, _ := c.Locals("user_id").(string)
		if externalID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing user context",
			})
		}

		account, found, err := users.GetByExternalID(externalID)
		if err != nil {
			log.Printf("❌ [ACCOUNT_CTX] lookup failed for %s: %v", externalID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to resolve account",
			})
		}
		if !found {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "account not registered on this platform",
			})
		}
		if account.Status != models.UserStatusActive {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": services.ErrAccountSuspended.Error(),
			})
		}

		c.Locals("account_id", account.ID)
		c.Locals("account", account)
		c.Locals("is_admin", account.IsAdmin)
		return c.Next()
	}
}

// AdminOnlyMiddleware gates the admin surface. Admin status comes from the
// resolved account, not from client-supplied headers.
func AdminOnlyMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		isAdmin, _ := c.Locals("is_admin").(bool)
		if !isAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "administrator access required",
			})
		}
		return c.Next()
	}
}
