// services/transaction_service.go
package services

import (
	"errors"
	"fmt"
	"log"

	"investment-reward-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrNotPending is returned when an admin decision targets a transaction
	// that has already been decided. Status only ever moves Pending →
	// Completed or Pending → Failed.
	ErrNotPending = errors.New("transaction is not pending")
)

type TransactionService struct {
	DB        *gorm.DB
	Referrals *ReferralService
	Notifier  *NotificationService
}

func NewTransactionService(db *gorm.DB, referrals *ReferralService, notifier *NotificationService) *TransactionService {
	return &TransactionService{DB: db, Referrals: referrals, Notifier: notifier}
}

// RequestDeposit files a pending deposit with its evidence. The balance is
// only credited when an admin approves it.
func (s *TransactionService) RequestDeposit(userID string, amount int64, bankReference, proofImageURL string) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("deposit amount must be positive")
	}
	txn := models.Transaction{
		ID:            uuid.NewString(),
		UserID:        userID,
		Amount:        amount,
		Kind:          models.TransactionKindDeposit,
		Status:        models.TransactionStatusPending,
		Description:   "Deposit request",
		BankReference: bankReference,
		ProofImageURL: proofImageURL,
	}
	if err := s.DB.Create(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

// RequestWithdrawal files a pending withdrawal. The amount is debited up
// front with a conditional atomic update so the funds cannot be spent twice
// while the request waits for review; a rejection refunds it.
func (s *TransactionService) RequestWithdrawal(userID string, amount int64, bankReference string) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("withdrawal amount must be positive")
	}
	txn := models.Transaction{
		ID:            uuid.NewString(),
		UserID:        userID,
		Amount:        -amount,
		Kind:          models.TransactionKindWithdrawal,
		Status:        models.TransactionStatusPending,
		Description:   "Withdrawal request",
		BankReference: bankReference,
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := debitBalance(tx, userID, amount); err != nil {
			return err
		}
		return tx.Create(&txn).Error
	})
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// ApproveDeposit credits the balance and fans out referral commissions.
// The Pending→Completed flip is a guarded update, so a double click on the
// admin button finds nothing to approve the second time; the referral engine
// is additionally idempotent per deposit on its own.
func (s *TransactionService) ApproveDeposit(transactionID string) error {
	txn, err := s.getPending(transactionID, models.TransactionKindDeposit)
	if err != nil {
		return err
	}

	var firstDeposit bool
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Transaction{}).
			Where("id = ? AND status = ?", txn.ID, models.TransactionStatusPending).
			Update("status", models.TransactionStatusCompleted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotPending
		}

		// Guarded flag flip doubles as the first-deposit test: only the
		// first approval for this account changes a row here.
		res = tx.Model(&models.User{}).
			Where("id = ? AND has_deposited = ?", txn.UserID, false).
			Update("has_deposited", true)
		if res.Error != nil {
			return res.Error
		}
		firstDeposit = res.RowsAffected > 0

		return creditBalance(tx, txn.UserID, txn.Amount)
	})
	if err != nil {
		return err
	}

	// Commission failures are logged, never surfaced: the depositor's own
	// approval must not be blocked by a referrer-side problem.
	if err := s.Referrals.ProcessDepositBonus(txn, firstDeposit); err != nil {
		log.Printf("❌ [DEPOSIT] referral processing failed for %s: %v", txn.ID, err)
	}

	s.Notifier.Notify(txn.UserID, "Deposit approved",
		fmt.Sprintf("Your deposit of %d has been credited.", txn.Amount))
	return nil
}

// RejectDeposit marks a pending deposit as failed. Nothing was credited, so
// there is nothing to unwind.
func (s *TransactionService) RejectDeposit(transactionID, reason string) error {
	txn, err := s.getPending(transactionID, models.TransactionKindDeposit)
	if err != nil {
		return err
	}
	if err := s.markFailed(txn.ID, reason); err != nil {
		return err
	}
	s.Notifier.Notify(txn.UserID, "Deposit rejected",
		fmt.Sprintf("Your deposit of %d was rejected: %s", txn.Amount, reason))
	return nil
}

// ApproveWithdrawal completes a pending withdrawal; the funds were already
// debited at request time.
func (s *TransactionService) ApproveWithdrawal(transactionID string) error {
	txn, err := s.getPending(transactionID, models.TransactionKindWithdrawal)
	if err != nil {
		return err
	}
	res := s.DB.Model(&models.Transaction{}).
		Where("id = ? AND status = ?", txn.ID, models.TransactionStatusPending).
		Update("status", models.TransactionStatusCompleted)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotPending
	}
	s.Notifier.Notify(txn.UserID, "Withdrawal approved",
		fmt.Sprintf("Your withdrawal of %d has been paid out.", -txn.Amount))
	return nil
}

// RejectWithdrawal fails the request and refunds the held amount atomically.
func (s *TransactionService) RejectWithdrawal(transactionID, reason string) error {
	txn, err := s.getPending(transactionID, models.TransactionKindWithdrawal)
	if err != nil {
		return err
	}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Transaction{}).
			Where("id = ? AND status = ?", txn.ID, models.TransactionStatusPending).
			Update("status", models.TransactionStatusFailed)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotPending
		}
		return creditBalance(tx, txn.UserID, -txn.Amount)
	})
	if err != nil {
		return err
	}
	s.Notifier.Notify(txn.UserID, "Withdrawal rejected",
		fmt.Sprintf("Your withdrawal of %d was rejected and refunded: %s", -txn.Amount, reason))
	return nil
}

// AdjustFunds applies a signed admin adjustment with its ledger entry.
func (s *TransactionService) AdjustFunds(userID string, amount int64, reason string) (*models.Transaction, error) {
	if amount == 0 {
		return nil, fmt.Errorf("adjustment amount must be non-zero")
	}
	txn := models.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      amount,
		Kind:        models.TransactionKindAdminAdjustment,
		Status:      models.TransactionStatusCompleted,
		Description: reason,
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if amount > 0 {
			if err := creditBalance(tx, userID, amount); err != nil {
				return err
			}
		} else {
			if err := debitBalance(tx, userID, -amount); err != nil {
				return err
			}
		}
		return tx.Create(&txn).Error
	})
	if err != nil {
		return nil, err
	}
	s.Notifier.Notify(userID, "Balance adjusted",
		fmt.Sprintf("An administrator adjusted your balance by %d: %s", amount, reason))
	return &txn, nil
}

// ListForUser returns a user's ledger, newest first.
func (s *TransactionService) ListForUser(userID string, limit int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var txns []models.Transaction
	err := s.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&txns).Error
	return txns, err
}

// ListPending returns the admin review queue for one transaction kind.
func (s *TransactionService) ListPending(kind models.TransactionKind) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := s.DB.Where("kind = ? AND status = ?", kind, models.TransactionStatusPending).
		Order("created_at ASC").
		Find(&txns).Error
	return txns, err
}

func (s *TransactionService) getPending(transactionID string, kind models.TransactionKind) (*models.Transaction, error) {
	var txn models.Transaction
	err := s.DB.Where("id = ? AND kind = ?", transactionID, kind).First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	if txn.Status != models.TransactionStatusPending {
		return nil, ErrNotPending
	}
	return &txn, nil
}

func (s *TransactionService) markFailed(transactionID, reason string) error {
	res := s.DB.Model(&models.Transaction{}).
		Where("id = ? AND status = ?", transactionID, models.TransactionStatusPending).
		Updates(map[string]interface{}{
			"status":      models.TransactionStatusFailed,
			"description": gorm.Expr("description || ?", " (rejected: "+reason+")"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotPending
	}
	return nil
}
