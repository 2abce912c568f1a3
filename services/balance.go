// services/balance.go
package services

import (
	"errors"
	"fmt"

	"investment-reward-system/models"

	"gorm.io/gorm"
)

var (
	// ErrInsufficientBalance is returned when a conditional debit finds less
	// than the requested amount on the account.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrAccountNotFound is returned when a balance update matches no row.
	ErrAccountNotFound = errors.New("account not found")
)

// creditBalance adds amount to a user's balance with a single atomic UPDATE.
// Balances are never read-then-overwritten: concurrent credits must not lose
// updates even when two admin approvals race for the same account.
func creditBalance(tx *gorm.DB, userID string, amount int64) error {
	res := tx.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return fmt.Errorf("credit balance for %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// debitBalance subtracts amount from a user's balance. The balance predicate
// makes the debit-and-check a single compare-and-swap, so a racing withdrawal
// cannot drive the balance negative.
func debitBalance(tx *gorm.DB, userID string, amount int64) error {
	res := tx.Model(&models.User{}).
		Where("id = ? AND balance >= ?", userID, amount).
		UpdateColumn("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return fmt.Errorf("debit balance for %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
			return fmt.Errorf("debit balance for %s: %w", userID, err)
		}
		if count == 0 {
			return ErrAccountNotFound
		}
		return ErrInsufficientBalance
	}
	return nil
}
