package services

import (
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"investment-reward-system/models"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gorm.io/gorm"
)

// ReferralService pays multi-level commissions when a deposit is approved.
// Up to three ancestors of the depositor are credited: 5% / 3% / 2% of the
// deposit amount, plus a one-time registration bonus (24% of the welcome
// bonus) for the direct referrer on the depositor's first deposit.
type ReferralService struct {
	DB       *gorm.DB
	Config   RewardConfig
	Notifier *NotificationService

	printer *message.Printer
}

func NewReferralService(db *gorm.DB, cfg RewardConfig, notifier *NotificationService) *ReferralService {
	return &ReferralService{
		DB:       db,
		Config:   cfg,
		Notifier: notifier,
		printer:  message.NewPrinter(language.English),
	}
}

// ProcessDepositBonus walks the depositor's referral ancestry and credits each
// level. firstDeposit must reflect the depositor's HasDeposited flag *before*
// this deposit was approved.
//
// Idempotent per deposit: each commission ledger entry carries the deposit
// transaction ID as its reference, guarded by a unique index, so a duplicate
// approval event (retried admin click, redelivered message) cannot pay twice.
//
// Each level is attempted independently: a failure at one level is logged and
// does not abort the others or the depositor's own approval flow. A missing
// ancestor truncates the chain silently.
func (s *ReferralService) ProcessDepositBonus(deposit *models.Transaction, firstDeposit bool) error {
	var depositor models.User
	if err := s.DB.Where("id = ?", deposit.UserID).First(&depositor).Error; err != nil {
		return fmt.Errorf("load depositor %s: %w", deposit.UserID, err)
	}
	if depositor.ReferredBy == nil {
		return nil
	}

	amount := deposit.Amount
	levels := []struct {
		level   int
		percent float64
	}{
		{1, s.Config.ReferralLevel1Percent},
		{2, s.Config.ReferralLevel2Percent},
		{3, s.Config.ReferralLevel3Percent},
	}

	ancestorID := depositor.ReferredBy
	for _, lvl := range levels {
		if ancestorID == nil {
			break
		}
		var ancestor models.User
		if err := s.DB.Where("id = ?", *ancestorID).First(&ancestor).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				break
			}
			return fmt.Errorf("load level %d referrer: %w", lvl.level, err)
		}

		bonus := roundPercent(amount, lvl.percent)
		if lvl.level == 1 && firstDeposit {
			bonus += roundPercent(s.Config.WelcomeBonus, s.Config.RegistrationBonusPercent)
		}

		if err := s.payCommission(&ancestor, bonus, lvl.level, deposit, &depositor, firstDeposit); err != nil {
			// Log and keep going: one failed level must not starve the rest.
			log.Printf("❌ [REFERRAL] level %d payout failed for deposit %s: %v", lvl.level, deposit.ID, err)
		}

		ancestorID = ancestor.ReferredBy
	}
	return nil
}

// payCommission credits one ancestor. The ledger entry, balance credit and
// counter bumps commit in a single transaction keyed on (user, kind,
// reference, level); if the entry already exists the whole call is a no-op.
func (s *ReferralService) payCommission(referrer *models.User, bonus int64, level int, deposit *models.Transaction, depositor *models.User, firstDeposit bool) error {
	var existing int64
	err := s.DB.Model(&models.Transaction{}).
		Where("user_id = ? AND kind = ? AND reference_id = ? AND referral_level = ?",
			referrer.ID, models.TransactionKindReferralBonus, deposit.ID, level).
		Count(&existing).Error
	if err != nil {
		return err
	}
	if existing > 0 {
		log.Printf("[REFERRAL] deposit %s level %d already processed, skipping", deposit.ID, level)
		return nil
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		entry := models.Transaction{
			ID:            uuid.NewString(),
			UserID:        referrer.ID,
			Amount:        bonus,
			Kind:          models.TransactionKindReferralBonus,
			Status:        models.TransactionStatusCompleted,
			Description:   fmt.Sprintf("Level %d referral commission on deposit %s", level, deposit.ID),
			ReferenceID:   &deposit.ID,
			ReferralLevel: level,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		if err := creditBalance(tx, referrer.ID, bonus); err != nil {
			return err
		}

		cols := map[string]interface{}{
			"referral_earnings": gorm.Expr("referral_earnings + ?", bonus),
		}
		if level == 1 && firstDeposit {
			cols["referral_count"] = gorm.Expr("referral_count + 1")
		}
		if err := tx.Model(&models.User{}).Where("id = ?", referrer.ID).UpdateColumns(cols).Error; err != nil {
			return err
		}

		if level == 1 && firstDeposit {
			now := time.Now()
			if err := tx.Model(&models.Referral{}).
				Where("referred_id = ? AND bonus_awarded = ?", depositor.ID, false).
				UpdateColumns(map[string]interface{}{
					"first_deposit_id":  deposit.ID,
					"first_deposit_amt": deposit.Amount,
					"bonus_awarded":     true,
					"awarded_at":        now,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.Notifier.Notify(referrer.ID, "Referral bonus",
		s.printer.Sprintf("You earned %d from a level %d referral deposit.", bonus, level))
	return nil
}

// GetSummary powers the referral dashboard: code, counters and bonus ledger.
func (s *ReferralService) GetSummary(userID string) (map[string]interface{}, error) {
	var user models.User
	if err := s.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}

	var referrals []models.Referral
	if err := s.DB.Where("referrer_id = ?", userID).
		Order("created_at DESC").
		Find(&referrals).Error; err != nil {
		return nil, err
	}

	var bonuses []models.Transaction
	if err := s.DB.Where("user_id = ? AND kind = ?", userID, models.TransactionKindReferralBonus).
		Order("created_at DESC").
		Limit(100).
		Find(&bonuses).Error; err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"referral_code":     user.ReferralCode,
		"referral_count":    user.ReferralCount,
		"referral_earnings": user.ReferralEarnings,
		"total_invited":     len(referrals),
		"referrals":         referrals,
		"bonuses":           bonuses,
	}, nil
}

// roundPercent computes round(amount * percent / 100) with standard rounding
// to the nearest integer currency unit.
func roundPercent(amount int64, percent float64) int64 {
	return int64(math.Round(float64(amount) * percent / 100))
}
