// handlers/user_routes.go
package handlers

import (
	"errors"
	"strconv"

	"investment-reward-system/middleware"
	"investment-reward-system/models"
	"investment-reward-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupUserRoutes(app *fiber.App, userService *services.UserService, referralService *services.ReferralService, notificationService *services.NotificationService) {
	// Registration needs the gateway user context but no local account yet.
	withUser := app.Group("/", middleware.UserContextMiddleware())

	withUser.Post("/register", func(c *fiber.Ctx) error {
		externalID := c.Locals("user_id").(string)

		var req struct {
			Phone         string `json:"phone"`
			Name          string `json:"name"`
			WithdrawalPin string `json:"withdrawal_pin"`
			InviteCode    string `json:"invite_code"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		if req.Phone == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "phone is required"})
		}

		user, err := userService.Register(services.RegisterInput{
			ExternalUserID: externalID,
			Phone:          req.Phone,
			Name:           req.Name,
			WithdrawalPin:  req.WithdrawalPin,
			InviteCode:     req.InviteCode,
		})
		switch {
		case errors.Is(err, services.ErrAlreadyRegistered):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "account already registered"})
		case errors.Is(err, services.ErrInvalidInviteCode):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid referral code"})
		case err != nil:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "registration failed",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(user)
	})

	secured := app.Group("/s", middleware.UserContextMiddleware(), middleware.AccountContextMiddleware(userService))

	secured.Get("/profile", func(c *fiber.Ctx) error {
		account := c.Locals("account").(*models.User)
		return c.JSON(account)
	})

	secured.Get("/referrals", func(c *fiber.Ctx) error {
		accountID := c.Locals("account_id").(string)
		summary, err := referralService.GetSummary(accountID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch referral summary",
				"cause": err.Error(),
			})
		}
		return c.JSON(summary)
	})

	secured.Get("/notifications", func(c *fiber.Ctx) error {
		accountID := c.Locals("account_id").(string)
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		items, err := notificationService.ListForUser(accountID, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch notifications",
				"cause": err.Error(),
			})
		}
		unread, err := notificationService.UnreadCount(accountID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to count notifications",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"notifications": items, "unread_count": unread})
	})

	secured.Post("/notifications/:id/read", func(c *fiber.Ctx) error {
		accountID := c.Locals("account_id").(string)
		if err := notificationService.MarkRead(accountID, c.Params("id")); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to mark notification read",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"message": "OK"})
	})

	secured.Post("/notifications/read-all", func(c *fiber.Ctx) error {
		accountID := c.Locals("account_id").(string)
		marked, err := notificationService.MarkAllRead(accountID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to mark notifications read",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"message": "OK", "marked_count": marked})
	})

	// SSE stream: EventSource cannot set headers, so auth rides in the query.
	app.Get("/user/notifications/stream",
		middleware.SSEAuthMiddleware(),
		middleware.AccountContextMiddleware(userService),
		notificationService.StreamUserNotificationsSSE)
}
