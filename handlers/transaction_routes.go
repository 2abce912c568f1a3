// handlers/transaction_routes.go
package handlers

import (
	"errors"
	"strconv"

	"investment-reward-system/middleware"
	"investment-reward-system/models"
	"investment-reward-system/services"
	"investment-reward-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func SetupTransactionRoutes(app *fiber.App, transactionService *services.TransactionService, userService *services.UserService) {
	secured := app.Group("/s", middleware.UserContextMiddleware(), middleware.AccountContextMiddleware(userService))

	// Multipart: amount, bank_reference, proof (image). The proof lands in
	// object storage when configured, on local disk otherwise.
	secured.Post("/deposits", func(c *fiber.Ctx) error {
		accountID := c.Locals("account_id").(string)

		amount, err := strconv.ParseInt(c.FormValue("amount"), 10, 64)
		if err != nil || amount <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "amount must be a positive integer"})
		}
		bankReference := c.FormValue("bank_reference")

		proofURL := ""
		if proofFile, err := c.FormFile("proof"); err == nil && proofFile.Size > 0 {
			if utils.R2Configured() {
				proofURL, err = utils.UploadProofImage(proofFile)
				if err != nil {
					return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
						"error": "failed to upload proof image",
						"cause": err.Error(),
					})
				}
			} else {
				localPath := utils.GetUploadPath("proofs/" + uuid.NewString() + "_" + proofFile.Filename)
				if err := utils.SaveFile(proofFile, localPath); err != nil {
					return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
						"error": "failed to save proof image",
						"cause": err.Error(),
					})
				}
				proofURL = "/" + localPath
			}
		}

		txn, err := transactionService.RequestDeposit(accountID, amount, bankReference, proofURL)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to file deposit request",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(txn)
	})

	secured.Post("/withdrawals", func(c *fiber.Ctx) error {
		account := c.Locals("account").(*models.User)

		var req struct {
			Amount        int64  `json:"amount"`
			Pin           string `json:"pin"`
			BankReference string `json:"bank_reference"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		if req.Amount <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "amount must be a positive integer"})
		}

		if err := userService.VerifyWithdrawalPin(account, req.Pin); err != nil {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "withdrawal PIN does not match"})
		}

		txn, err := transactionService.RequestWithdrawal(account.ID, req.Amount, req.BankReference)
		if errors.Is(err, services.ErrInsufficientBalance) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "insufficient balance"})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to file withdrawal request",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(txn)
	})

	secured.Get("/transactions", func(c *fiber.Ctx) error {
		accountID := c.Locals("account_id").(string)
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		txns, err := transactionService.ListForUser(accountID, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch transactions",
				"cause": err.Error(),
			})
		}
		return c.JSON(txns)
	})
}
