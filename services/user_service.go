package services

import (
	"errors"
	"fmt"
	"strings"

	"investment-reward-system/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// referralCodeAttempts bounds the collision-retry loop at code generation.
// Uniqueness is enforced here, at creation time, not at lookup time.
const referralCodeAttempts = 5

var (
	ErrAlreadyRegistered  = errors.New("account already registered")
	ErrInvalidInviteCode  = errors.New("referral code does not match any account")
	ErrReferralCodeSpace  = errors.New("could not allocate a unique referral code")
	ErrAccountSuspended   = errors.New("account is suspended")
	ErrWrongWithdrawalPin = errors.New("withdrawal PIN does not match")
)

type UserService struct {
	DB       *gorm.DB
	Config   RewardConfig
	Notifier *NotificationService
}

func NewUserService(db *gorm.DB, cfg RewardConfig, notifier *NotificationService) *UserService {
	return &UserService{DB: db, Config: cfg, Notifier: notifier}
}

// RegisterInput carries the fields the client submits at sign-up. Identity
// itself comes from the Gateway's user context, not from this payload.
type RegisterInput struct {
	ExternalUserID string
	Phone          string
	Name           string
	WithdrawalPin  string
	InviteCode     string // inviter's referral code, optional
}

// Register provisions the platform account for a gateway-authenticated user:
// unique referral code, immutable referred-by link, welcome bonus credit with
// its ledger entry, and the referral edge record for the inviter's dashboard.
func (s *UserService) Register(in RegisterInput) (*models.User, error) {
	var count int64
	if err := s.DB.Model(&models.User{}).Where("external_user_id = ?", in.ExternalUserID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrAlreadyRegistered
	}

	var referrer *models.User
	if code := strings.TrimSpace(in.InviteCode); code != "" {
		var u models.User
		err := s.DB.Where("referral_code = ?", strings.ToUpper(code)).First(&u).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidInviteCode
		}
		if err != nil {
			return nil, err
		}
		referrer = &u
	}

	pinHash := ""
	if in.WithdrawalPin != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(in.WithdrawalPin), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash withdrawal pin: %w", err)
		}
		pinHash = string(hashed)
	}

	user := models.User{
		ID:             uuid.NewString(),
		ExternalUserID: in.ExternalUserID,
		Phone:          in.Phone,
		Name:           in.Name,
		WithdrawalPin:  pinHash,
		Balance:        0,
		Status:         models.UserStatusActive,
		IsAdmin:        s.Config.SuperAdminPhone != "" && in.Phone == s.Config.SuperAdminPhone,
	}
	if referrer != nil {
		user.ReferredBy = &referrer.ID
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.createWithUniqueCode(tx, &user); err != nil {
			return err
		}

		if s.Config.WelcomeBonus > 0 {
			entry := models.Transaction{
				ID:          uuid.NewString(),
				UserID:      user.ID,
				Amount:      s.Config.WelcomeBonus,
				Kind:        models.TransactionKindWelcomeBonus,
				Status:      models.TransactionStatusCompleted,
				Description: "Welcome bonus",
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
			if err := creditBalance(tx, user.ID, s.Config.WelcomeBonus); err != nil {
				return err
			}
			user.Balance = s.Config.WelcomeBonus
		}

		if referrer != nil {
			edge := models.Referral{
				ID:               uuid.NewString(),
				ReferrerID:       referrer.ID,
				ReferredID:       user.ID,
				ReferralCodeUsed: referrer.ReferralCode,
			}
			if err := tx.Create(&edge).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if referrer != nil {
		s.Notifier.Notify(referrer.ID, "New referral",
			fmt.Sprintf("%s joined using your referral code.", user.Name))
	}
	return &user, nil
}

// createWithUniqueCode inserts the user, retrying with a fresh referral code
// if the unique index rejects a collision.
func (s *UserService) createWithUniqueCode(tx *gorm.DB, user *models.User) error {
	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		user.ReferralCode = newReferralCode()
		var taken int64
		if err := tx.Model(&models.User{}).Where("referral_code = ?", user.ReferralCode).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			continue
		}
		if err := tx.Create(user).Error; err != nil {
			// A concurrent registration can still win the code between the
			// check and the insert; retry with a new code.
			if attempt < referralCodeAttempts-1 {
				continue
			}
			return err
		}
		return nil
	}
	return ErrReferralCodeSpace
}

// newReferralCode derives a short upper-case code from a fresh UUID.
func newReferralCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:8])
}

// GetByExternalID resolves the local account for a gateway user.
func (s *UserService) GetByExternalID(externalUserID string) (*models.User, bool, error) {
	var user models.User
	err := s.DB.Where("external_user_id = ?", externalUserID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &user, true, nil
}

// VerifyWithdrawalPin compares the submitted PIN against the stored hash.
func (s *UserService) VerifyWithdrawalPin(user *models.User, pin string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(user.WithdrawalPin), []byte(pin)); err != nil {
		return ErrWrongWithdrawalPin
	}
	return nil
}

// SetStatus suspends or reactivates an account. Accounts are never deleted.
func (s *UserService) SetStatus(userID string, status models.UserStatus) error {
	res := s.DB.Model(&models.User{}).Where("id = ?", userID).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}
