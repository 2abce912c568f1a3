// handlers/admin_routes.go
package handlers

import (
	"errors"

	"investment-reward-system/middleware"
	"investment-reward-system/models"
	"investment-reward-system/services"
	"investment-reward-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func SetupAdminRoutes(app *fiber.App, transactionService *services.TransactionService, productService *services.ProductService, userService *services.UserService) {
	admin := app.Group("/s/admin",
		middleware.UserContextMiddleware(),
		middleware.AccountContextMiddleware(userService),
		middleware.AdminOnlyMiddleware(),
	)

	// --- Deposit / withdrawal review queues ---

	admin.Get("/deposits", func(c *fiber.Ctx) error {
		txns, err := transactionService.ListPending(models.TransactionKindDeposit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch pending deposits",
				"cause": err.Error(),
			})
		}
		return c.JSON(txns)
	})

	admin.Post("/deposits/:id/approve", func(c *fiber.Ctx) error {
		err := transactionService.ApproveDeposit(c.Params("id"))
		return decisionResponse(c, err, "deposit approved")
	})

	admin.Post("/deposits/:id/reject", func(c *fiber.Ctx) error {
		err := transactionService.RejectDeposit(c.Params("id"), reasonFromBody(c))
		return decisionResponse(c, err, "deposit rejected")
	})

	admin.Get("/withdrawals", func(c *fiber.Ctx) error {
		txns, err := transactionService.ListPending(models.TransactionKindWithdrawal)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch pending withdrawals",
				"cause": err.Error(),
			})
		}
		return c.JSON(txns)
	})

	admin.Post("/withdrawals/:id/approve", func(c *fiber.Ctx) error {
		err := transactionService.ApproveWithdrawal(c.Params("id"))
		return decisionResponse(c, err, "withdrawal approved")
	})

	admin.Post("/withdrawals/:id/reject", func(c *fiber.Ctx) error {
		err := transactionService.RejectWithdrawal(c.Params("id"), reasonFromBody(c))
		return decisionResponse(c, err, "withdrawal rejected")
	})

	// --- User management ---

	admin.Get("/users", func(c *fiber.Ctx) error {
		var users []models.User
		if err := userService.DB.Order("created_at DESC").Limit(200).Find(&users).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch users",
				"cause": err.Error(),
			})
		}
		return c.JSON(users)
	})

	admin.Post("/users/:id/adjust", func(c *fiber.Ctx) error {
		var req struct {
			Amount int64  `json:"amount"`
			Reason string `json:"reason"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		txn, err := transactionService.AdjustFunds(c.Params("id"), req.Amount, req.Reason)
		if errors.Is(err, services.ErrInsufficientBalance) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "adjustment exceeds user balance"})
		}
		if errors.Is(err, services.ErrAccountNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "adjustment failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(txn)
	})

	admin.Post("/users/:id/suspend", func(c *fiber.Ctx) error {
		if err := userService.SetStatus(c.Params("id"), models.UserStatusSuspended); err != nil {
			return statusChangeError(c, err)
		}
		return c.JSON(fiber.Map{"message": "user suspended"})
	})

	admin.Post("/users/:id/activate", func(c *fiber.Ctx) error {
		if err := userService.SetStatus(c.Params("id"), models.UserStatusActive); err != nil {
			return statusChangeError(c, err)
		}
		return c.JSON(fiber.Map{"message": "user reactivated"})
	})

	// --- Product management ---

	admin.Post("/products", func(c *fiber.Ctx) error {
		var req struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			ImageURL    string `json:"image_url"`
			Price       int64  `json:"price"`
			TotalReturn int64  `json:"total_return"`
			CycleDays   int    `json:"cycle_days"`
			Stock       int64  `json:"stock"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		product, err := productService.CreateProduct(req.Name, req.Description, req.ImageURL,
			req.Price, req.TotalReturn, req.Stock, req.CycleDays)
		if errors.Is(err, services.ErrDuplicateSlug) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "a product with this name already exists"})
		}
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "failed to create product",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(product)
	})

	// Multipart: image. Replaces the product's catalogue image; the file lands
	// in object storage when configured, on local disk otherwise.
	admin.Post("/products/:id/image", func(c *fiber.Ctx) error {
		imageFile, err := c.FormFile("image")
		if err != nil || imageFile.Size == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "image file is required"})
		}

		var imageURL string
		if utils.R2Configured() {
			imageURL, err = utils.UploadProductImage(imageFile)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to upload product image",
					"cause": err.Error(),
				})
			}
		} else {
			localPath := utils.GetUploadPath("products/" + uuid.NewString() + "_" + imageFile.Filename)
			if err := utils.SaveFile(imageFile, localPath); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to save product image",
					"cause": err.Error(),
				})
			}
			imageURL = "/" + localPath
		}

		product, err := productService.UpdateProduct(c.Params("id"), services.ProductUpdate{ImageURL: &imageURL})
		if errors.Is(err, services.ErrProductNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found"})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to update product",
				"cause": err.Error(),
			})
		}
		return c.JSON(product)
	})

	admin.Patch("/products/:id", func(c *fiber.Ctx) error {
		var upd services.ProductUpdate
		if err := c.BodyParser(&upd); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		product, err := productService.UpdateProduct(c.Params("id"), upd)
		if errors.Is(err, services.ErrProductNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found"})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to update product",
				"cause": err.Error(),
			})
		}
		return c.JSON(product)
	})
}

// decisionResponse maps approve/reject outcomes to HTTP codes. ErrNotPending
// covers both unknown state and the double-click case: the first decision won.
func decisionResponse(c *fiber.Ctx, err error, okMessage string) error {
	switch {
	case errors.Is(err, services.ErrTransactionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "transaction not found"})
	case errors.Is(err, services.ErrNotPending):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "transaction is no longer pending"})
	case err != nil:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "decision failed",
			"cause": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"message": okMessage})
}

func statusChangeError(c *fiber.Ctx, err error) error {
	if errors.Is(err, services.ErrAccountNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "status change failed",
		"cause": err.Error(),
	})
}

func reasonFromBody(c *fiber.Ctx) string {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil || req.Reason == "" {
		return "not specified"
	}
	return req.Reason
}
