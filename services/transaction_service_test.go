package services

import (
	"testing"

	"investment-reward-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTxnFixture(t *testing.T) *TransactionService {
	t.Helper()
	db := newTestDB(t)
	notifier := NewNotificationService(db)
	referrals := NewReferralService(db, testConfig(), notifier)
	return NewTransactionService(db, referrals, notifier)
}

func TestWithdrawalHoldsFundsUpFront(t *testing.T) {
	svc := newTxnFixture(t)
	user := seedUser(t, svc.DB, "Alice", 1000, nil)

	txn, err := svc.RequestWithdrawal(user.ID, 600, "GTB-001")
	require.NoError(t, err)
	assert.Equal(t, int64(-600), txn.Amount)
	assert.Equal(t, models.TransactionStatusPending, txn.Status)
	assert.Equal(t, int64(400), userBalance(t, svc.DB, user.ID))

	// the held funds cannot be spent again
	_, err = svc.RequestWithdrawal(user.ID, 600, "GTB-002")
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, int64(400), userBalance(t, svc.DB, user.ID))
}

func TestRejectWithdrawalRefunds(t *testing.T) {
	svc := newTxnFixture(t)
	user := seedUser(t, svc.DB, "Alice", 1000, nil)

	txn, err := svc.RequestWithdrawal(user.ID, 600, "GTB-001")
	require.NoError(t, err)

	require.NoError(t, svc.RejectWithdrawal(txn.ID, "account name mismatch"))
	assert.Equal(t, int64(1000), userBalance(t, svc.DB, user.ID))

	var reloaded models.Transaction
	require.NoError(t, svc.DB.Where("id = ?", txn.ID).First(&reloaded).Error)
	assert.Equal(t, models.TransactionStatusFailed, reloaded.Status)

	// a second rejection finds nothing pending and refunds nothing
	require.ErrorIs(t, svc.RejectWithdrawal(txn.ID, "again"), ErrNotPending)
	assert.Equal(t, int64(1000), userBalance(t, svc.DB, user.ID))
}

func TestApproveWithdrawalKeepsDebit(t *testing.T) {
	svc := newTxnFixture(t)
	user := seedUser(t, svc.DB, "Alice", 1000, nil)

	txn, err := svc.RequestWithdrawal(user.ID, 600, "GTB-001")
	require.NoError(t, err)

	require.NoError(t, svc.ApproveWithdrawal(txn.ID))
	assert.Equal(t, int64(400), userBalance(t, svc.DB, user.ID))

	require.ErrorIs(t, svc.ApproveWithdrawal(txn.ID), ErrNotPending)
}

func TestRejectDepositCreditsNothing(t *testing.T) {
	svc := newTxnFixture(t)
	user := seedUser(t, svc.DB, "Alice", 0, nil)

	txn, err := svc.RequestDeposit(user.ID, 5000, "GTB-001", "https://cdn.example/proof.png")
	require.NoError(t, err)

	require.NoError(t, svc.RejectDeposit(txn.ID, "proof unreadable"))
	assert.Equal(t, int64(0), userBalance(t, svc.DB, user.ID))

	var reloaded models.Transaction
	require.NoError(t, svc.DB.Where("id = ?", txn.ID).First(&reloaded).Error)
	assert.Equal(t, models.TransactionStatusFailed, reloaded.Status)
	assert.Contains(t, reloaded.Description, "proof unreadable")

	var user2 models.User
	require.NoError(t, svc.DB.Where("id = ?", user.ID).First(&user2).Error)
	assert.False(t, user2.HasDeposited, "a rejected deposit is not a first deposit")
}

func TestAdjustFundsSigned(t *testing.T) {
	svc := newTxnFixture(t)
	user := seedUser(t, svc.DB, "Alice", 500, nil)

	_, err := svc.AdjustFunds(user.ID, 250, "goodwill credit")
	require.NoError(t, err)
	assert.Equal(t, int64(750), userBalance(t, svc.DB, user.ID))

	_, err = svc.AdjustFunds(user.ID, -700, "chargeback")
	require.NoError(t, err)
	assert.Equal(t, int64(50), userBalance(t, svc.DB, user.ID))

	// a debit past zero is refused outright
	_, err = svc.AdjustFunds(user.ID, -100, "too much")
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, int64(50), userBalance(t, svc.DB, user.ID))

	_, err = svc.AdjustFunds(user.ID, 0, "noop")
	require.Error(t, err)
}

func TestListPendingFiltersByKind(t *testing.T) {
	svc := newTxnFixture(t)
	user := seedUser(t, svc.DB, "Alice", 1000, nil)

	_, err := svc.RequestDeposit(user.ID, 5000, "GTB-001", "")
	require.NoError(t, err)
	_, err = svc.RequestWithdrawal(user.ID, 200, "GTB-002")
	require.NoError(t, err)

	deposits, err := svc.ListPending(models.TransactionKindDeposit)
	require.NoError(t, err)
	require.Len(t, deposits, 1)
	assert.Equal(t, int64(5000), deposits[0].Amount)

	withdrawals, err := svc.ListPending(models.TransactionKindWithdrawal)
	require.NoError(t, err)
	require.Len(t, withdrawals, 1)
	assert.Equal(t, int64(-200), withdrawals[0].Amount)
}
