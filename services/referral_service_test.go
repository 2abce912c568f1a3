package services

import (
	"testing"

	"investment-reward-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// seedChain builds the ancestry A <- B <- C <- D, where D is the depositor,
// C the direct (level 1) referrer, B level 2 and A level 3.
func seedChain(t *testing.T, db *gorm.DB) (a, b, c, d *models.User) {
	t.Helper()
	a = seedUser(t, db, "Anna", 0, nil)
	b = seedUser(t, db, "Ben", 0, &a.ID)
	c = seedUser(t, db, "Cara", 0, &b.ID)
	d = seedUser(t, db, "Dan", 0, &c.ID)
	return a, b, c, d
}

func seedDeposit(t *testing.T, db *gorm.DB, userID string, amount int64) *models.Transaction {
	t.Helper()
	txn := models.Transaction{
		ID:     uuid.NewString(),
		UserID: userID,
		Amount: amount,
		Kind:   models.TransactionKindDeposit,
		Status: models.TransactionStatusCompleted,
	}
	require.NoError(t, db.Create(&txn).Error)
	return &txn
}

func TestFirstDepositPaysThreeLevels(t *testing.T) {
	db := newTestDB(t)
	svc := NewReferralService(db, testConfig(), NewNotificationService(db))
	a, b, c, d := seedChain(t, db)

	deposit := seedDeposit(t, db, d.ID, 10000)
	require.NoError(t, svc.ProcessDepositBonus(deposit, true))

	// level 1: 5% of 10000 plus 24% of the 300 welcome bonus
	assert.Equal(t, int64(572), userBalance(t, db, c.ID))
	assert.Equal(t, int64(300), userBalance(t, db, b.ID))
	assert.Equal(t, int64(200), userBalance(t, db, a.ID))
	assert.Equal(t, int64(0), userBalance(t, db, d.ID))

	var cara models.User
	require.NoError(t, db.Where("id = ?", c.ID).First(&cara).Error)
	assert.Equal(t, int64(572), cara.ReferralEarnings)
	assert.Equal(t, int64(1), cara.ReferralCount)

	var ben models.User
	require.NoError(t, db.Where("id = ?", b.ID).First(&ben).Error)
	assert.Equal(t, int64(300), ben.ReferralEarnings)
	assert.Equal(t, int64(0), ben.ReferralCount)

	// one ledger entry per level, tied to the deposit
	var entries []models.Transaction
	require.NoError(t, db.Where("kind = ? AND reference_id = ?", models.TransactionKindReferralBonus, deposit.ID).
		Order("referral_level ASC").Find(&entries).Error)
	require.Len(t, entries, 3)
	assert.Equal(t, int64(572), entries[0].Amount)
	assert.Equal(t, 1, entries[0].ReferralLevel)
	assert.Equal(t, int64(300), entries[1].Amount)
	assert.Equal(t, int64(200), entries[2].Amount)
}

func TestRepeatDepositSkipsRegistrationBonus(t *testing.T) {
	db := newTestDB(t)
	svc := NewReferralService(db, testConfig(), NewNotificationService(db))
	a, b, c, d := seedChain(t, db)

	first := seedDeposit(t, db, d.ID, 10000)
	require.NoError(t, svc.ProcessDepositBonus(first, true))

	second := seedDeposit(t, db, d.ID, 10000)
	require.NoError(t, svc.ProcessDepositBonus(second, false))

	// second round adds plain 500/300/200, no welcome-bonus cut
	assert.Equal(t, int64(572+500), userBalance(t, db, c.ID))
	assert.Equal(t, int64(600), userBalance(t, db, b.ID))
	assert.Equal(t, int64(400), userBalance(t, db, a.ID))

	var cara models.User
	require.NoError(t, db.Where("id = ?", c.ID).First(&cara).Error)
	assert.Equal(t, int64(1), cara.ReferralCount, "referral count only moves on the first deposit")
}

func TestDepositBonusIdempotentPerDeposit(t *testing.T) {
	db := newTestDB(t)
	svc := NewReferralService(db, testConfig(), NewNotificationService(db))
	_, _, c, d := seedChain(t, db)

	deposit := seedDeposit(t, db, d.ID, 10000)
	require.NoError(t, svc.ProcessDepositBonus(deposit, true))
	before := userBalance(t, db, c.ID)

	// a redelivered approval event must find everything already paid
	require.NoError(t, svc.ProcessDepositBonus(deposit, true))
	assert.Equal(t, before, userBalance(t, db, c.ID))

	var count int64
	require.NoError(t, db.Model(&models.Transaction{}).
		Where("kind = ? AND reference_id = ?", models.TransactionKindReferralBonus, deposit.ID).
		Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestShortChainTruncatesSilently(t *testing.T) {
	db := newTestDB(t)
	svc := NewReferralService(db, testConfig(), NewNotificationService(db))

	root := seedUser(t, db, "Root", 0, nil)
	child := seedUser(t, db, "Child", 0, &root.ID)

	deposit := seedDeposit(t, db, child.ID, 10000)
	require.NoError(t, svc.ProcessDepositBonus(deposit, false))

	assert.Equal(t, int64(500), userBalance(t, db, root.ID))

	var count int64
	require.NoError(t, db.Model(&models.Transaction{}).
		Where("kind = ?", models.TransactionKindReferralBonus).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestNoReferrerNoBonus(t *testing.T) {
	db := newTestDB(t)
	svc := NewReferralService(db, testConfig(), NewNotificationService(db))
	solo := seedUser(t, db, "Solo", 0, nil)

	deposit := seedDeposit(t, db, solo.ID, 10000)
	require.NoError(t, svc.ProcessDepositBonus(deposit, true))

	var count int64
	require.NoError(t, db.Model(&models.Transaction{}).
		Where("kind = ?", models.TransactionKindReferralBonus).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestApproveDepositFansOutCommissions(t *testing.T) {
	db := newTestDB(t)
	notifier := NewNotificationService(db)
	referrals := NewReferralService(db, testConfig(), notifier)
	txns := NewTransactionService(db, referrals, notifier)
	a, b, c, d := seedChain(t, db)

	edge := models.Referral{
		ID:               uuid.NewString(),
		ReferrerID:       c.ID,
		ReferredID:       d.ID,
		ReferralCodeUsed: c.ReferralCode,
	}
	require.NoError(t, db.Create(&edge).Error)

	deposit, err := txns.RequestDeposit(d.ID, 20000, "BANK-REF-1", "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), userBalance(t, db, d.ID), "pending deposit credits nothing")

	require.NoError(t, txns.ApproveDeposit(deposit.ID))

	assert.Equal(t, int64(20000), userBalance(t, db, d.ID))
	assert.Equal(t, int64(1072), userBalance(t, db, c.ID)) // 5% + 72 registration bonus
	assert.Equal(t, int64(600), userBalance(t, db, b.ID))
	assert.Equal(t, int64(400), userBalance(t, db, a.ID))

	var dan models.User
	require.NoError(t, db.Where("id = ?", d.ID).First(&dan).Error)
	assert.True(t, dan.HasDeposited)

	// the referral edge records the qualifying deposit
	require.NoError(t, db.Where("referred_id = ?", d.ID).First(&edge).Error)
	assert.True(t, edge.BonusAwarded)
	require.NotNil(t, edge.FirstDepositID)
	assert.Equal(t, deposit.ID, *edge.FirstDepositID)
	assert.Equal(t, int64(20000), edge.FirstDepositAmt)

	// double click on the approve button
	err = txns.ApproveDeposit(deposit.ID)
	require.ErrorIs(t, err, ErrNotPending)
	assert.Equal(t, int64(1072), userBalance(t, db, c.ID))
}
