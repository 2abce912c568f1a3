// handlers/product_routes.go
package handlers

import (
	"errors"

	"investment-reward-system/middleware"
	"investment-reward-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupProductRoutes(app *fiber.App, productService *services.ProductService, userService *services.UserService) {
	// 🔓 Public routes — *no user context*, but **still require Gateway auth**
	app.Get("/products", func(c *fiber.Ctx) error {
		products, err := productService.ListActive()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch products",
				"cause": err.Error(),
			})
		}
		return c.JSON(products)
	})

	app.Get("/products/:slug", func(c *fiber.Ctx) error {
		product, err := productService.GetBySlug(c.Params("slug"))
		if errors.Is(err, services.ErrProductNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found"})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch product",
				"cause": err.Error(),
			})
		}
		return c.JSON(product)
	})

	// 🔐 Secured routes — require user context and a registered account
	secured := app.Group("/s", middleware.UserContextMiddleware(), middleware.AccountContextMiddleware(userService))

	secured.Post("/products/:id/invest", func(c *fiber.Ctx) error {
		accountID := c.Locals("account_id").(string)

		investment, err := productService.Invest(accountID, c.Params("id"))
		switch {
		case errors.Is(err, services.ErrProductNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found"})
		case errors.Is(err, services.ErrProductInactive):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "product is not available"})
		case errors.Is(err, services.ErrProductOutOfStock):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "product is sold out"})
		case errors.Is(err, services.ErrAlreadyInvested):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "you already hold this product"})
		case errors.Is(err, services.ErrInsufficientBalance):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "insufficient balance"})
		case err != nil:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "investment failed",
				"cause": err.Error(),
			})
		}

		return c.Status(fiber.StatusCreated).JSON(investment)
	})

	secured.Get("/investments", func(c *fiber.Ctx) error {
		accountID := c.Locals("account_id").(string)
		investments, err := productService.ListInvestments(accountID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch investments",
				"cause": err.Error(),
			})
		}
		return c.JSON(investments)
	})
}
