// handlers/task_routes.go
package handlers

import (
	"errors"
	"time"

	"investment-reward-system/middleware"
	"investment-reward-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupTaskRoutes(app *fiber.App, taskService *services.TaskService, userService *services.UserService) {
	secured := app.Group("/s", middleware.UserContextMiddleware(), middleware.AccountContextMiddleware(userService))

	// Task list with derived state and lock countdown for each checklist.
	secured.Get("/tasks", func(c *fiber.Ctx) error {
		accountID := c.Locals("account_id").(string)
		now := time.Now()

		tasks, err := taskService.ListTasks(accountID, now)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch tasks",
				"cause": err.Error(),
			})
		}

		response := make([]fiber.Map, 0, len(tasks))
		for i := range tasks {
			state, lockLeft, err := services.DeriveTaskState(&tasks[i], now)
			if errors.Is(err, services.ErrCorruptTask) {
				// Surface for repair instead of guessing a state.
				response = append(response, fiber.Map{
					"task":  tasks[i],
					"error": "task record needs manual repair",
				})
				continue
			}
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to derive task state",
					"cause": err.Error(),
				})
			}
			response = append(response, fiber.Map{
				"task":              tasks[i],
				"state":             state,
				"lock_seconds_left": int64(lockLeft / time.Second),
			})
		}
		return c.JSON(response)
	})

	secured.Post("/tasks/:productId/actions", func(c *fiber.Ctx) error {
		accountID := c.Locals("account_id").(string)

		var req struct {
			Action string `json:"action"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		result, err := taskService.CompleteAction(accountID, c.Params("productId"), req.Action, time.Now())
		if errors.Is(err, services.ErrCorruptTask) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": "task record needs manual repair",
			})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to complete action",
				"cause": err.Error(),
			})
		}
		return c.JSON(result)
	})

	secured.Post("/tasks/:productId/claim", func(c *fiber.Ctx) error {
		accountID := c.Locals("account_id").(string)

		result, err := taskService.ClaimReward(accountID, c.Params("productId"), time.Now())
		if errors.Is(err, services.ErrCorruptTask) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": "task record needs manual repair",
			})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to claim reward",
				"cause": err.Error(),
			})
		}
		return c.JSON(result)
	})
}
