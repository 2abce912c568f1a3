package services

import (
	"testing"

	"investment-reward-system/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// in-memory sqlite lives per-connection; keep the pool at one
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Investment{},
		&models.ProductTask{},
		&models.Transaction{},
		&models.Referral{},
		&models.Notification{},
		&models.PaymentEvent{},
	))
	return db
}

func testConfig() RewardConfig {
	return RewardConfig{
		WelcomeBonus:             300,
		RegistrationBonusPercent: 24,
		ReferralLevel1Percent:    5,
		ReferralLevel2Percent:    3,
		ReferralLevel3Percent:    2,
	}
}

func seedUser(t *testing.T, db *gorm.DB, name string, balance int64, referredBy *string) *models.User {
	t.Helper()
	u := models.User{
		ID:             uuid.NewString(),
		ExternalUserID: uuid.NewString(),
		Phone:          "0800" + uuid.NewString()[:8],
		Name:           name,
		Balance:        balance,
		ReferralCode:   newReferralCode(),
		ReferredBy:     referredBy,
		Status:         models.UserStatusActive,
	}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

func seedProduct(t *testing.T, db *gorm.DB, name string, price, totalReturn int64, cycleDays int) *models.Product {
	t.Helper()
	p := models.Product{
		ID:          uuid.NewString(),
		Name:        name,
		Slug:        uuid.NewString()[:8],
		Price:       price,
		CycleDays:   cycleDays,
		TotalReturn: totalReturn,
		Status:      models.ProductStatusActive,
	}
	require.NoError(t, db.Create(&p).Error)
	return &p
}

func userBalance(t *testing.T, db *gorm.DB, userID string) int64 {
	t.Helper()
	var u models.User
	require.NoError(t, db.Where("id = ?", userID).First(&u).Error)
	return u.Balance
}
