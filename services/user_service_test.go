package services

import (
	"strings"
	"testing"

	"investment-reward-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserFixture(t *testing.T) *UserService {
	t.Helper()
	db := newTestDB(t)
	return NewUserService(db, testConfig(), NewNotificationService(db))
}

func TestRegisterGrantsWelcomeBonus(t *testing.T) {
	svc := newUserFixture(t)

	user, err := svc.Register(RegisterInput{
		ExternalUserID: "ext-1",
		Phone:          "08012345678",
		Name:           "Alice",
		WithdrawalPin:  "4321",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(300), user.Balance)
	assert.Equal(t, int64(300), userBalance(t, svc.DB, user.ID))
	assert.Len(t, user.ReferralCode, 8)
	assert.Equal(t, strings.ToUpper(user.ReferralCode), user.ReferralCode)
	assert.Nil(t, user.ReferredBy)
	assert.False(t, user.IsAdmin)
	assert.NotEqual(t, "4321", user.WithdrawalPin, "pin must be stored hashed")

	var entry models.Transaction
	require.NoError(t, svc.DB.Where("user_id = ? AND kind = ?", user.ID, models.TransactionKindWelcomeBonus).First(&entry).Error)
	assert.Equal(t, int64(300), entry.Amount)
	assert.Equal(t, models.TransactionStatusCompleted, entry.Status)
}

func TestRegisterWithInviteCode(t *testing.T) {
	svc := newUserFixture(t)

	inviter, err := svc.Register(RegisterInput{ExternalUserID: "ext-1", Phone: "0801", Name: "Inviter"})
	require.NoError(t, err)

	// codes are matched case-insensitively
	invited, err := svc.Register(RegisterInput{
		ExternalUserID: "ext-2",
		Phone:          "0802",
		Name:           "Invited",
		InviteCode:     strings.ToLower(inviter.ReferralCode),
	})
	require.NoError(t, err)
	require.NotNil(t, invited.ReferredBy)
	assert.Equal(t, inviter.ID, *invited.ReferredBy)

	var edge models.Referral
	require.NoError(t, svc.DB.Where("referred_id = ?", invited.ID).First(&edge).Error)
	assert.Equal(t, inviter.ID, edge.ReferrerID)
	assert.Equal(t, inviter.ReferralCode, edge.ReferralCodeUsed)
	assert.False(t, edge.BonusAwarded)

	// the inviter hears about it
	var note models.Notification
	require.NoError(t, svc.DB.Where("user_id = ?", inviter.ID).First(&note).Error)
	assert.Equal(t, "New referral", note.Title)
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	svc := newUserFixture(t)

	_, err := svc.Register(RegisterInput{ExternalUserID: "ext-1", Phone: "0801", Name: "Alice"})
	require.NoError(t, err)

	_, err = svc.Register(RegisterInput{ExternalUserID: "ext-1", Phone: "0801", Name: "Alice"})
	require.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestRegisterRejectsUnknownInviteCode(t *testing.T) {
	svc := newUserFixture(t)

	_, err := svc.Register(RegisterInput{
		ExternalUserID: "ext-1",
		Phone:          "0801",
		Name:           "Alice",
		InviteCode:     "NOPE1234",
	})
	require.ErrorIs(t, err, ErrInvalidInviteCode)

	var count int64
	require.NoError(t, svc.DB.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(0), count, "failed registration must not leave a partial account")
}

func TestSuperAdminPhoneBecomesAdmin(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()
	cfg.SuperAdminPhone = "08099999999"
	svc := NewUserService(db, cfg, NewNotificationService(db))

	admin, err := svc.Register(RegisterInput{ExternalUserID: "ext-1", Phone: "08099999999", Name: "Root"})
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)

	regular, err := svc.Register(RegisterInput{ExternalUserID: "ext-2", Phone: "08011111111", Name: "Plain"})
	require.NoError(t, err)
	assert.False(t, regular.IsAdmin)
}

func TestVerifyWithdrawalPin(t *testing.T) {
	svc := newUserFixture(t)

	user, err := svc.Register(RegisterInput{
		ExternalUserID: "ext-1",
		Phone:          "0801",
		Name:           "Alice",
		WithdrawalPin:  "9876",
	})
	require.NoError(t, err)

	require.NoError(t, svc.VerifyWithdrawalPin(user, "9876"))
	require.ErrorIs(t, svc.VerifyWithdrawalPin(user, "0000"), ErrWrongWithdrawalPin)
}

func TestSetStatusSuspendsAccount(t *testing.T) {
	svc := newUserFixture(t)

	user, err := svc.Register(RegisterInput{ExternalUserID: "ext-1", Phone: "0801", Name: "Alice"})
	require.NoError(t, err)

	require.NoError(t, svc.SetStatus(user.ID, models.UserStatusSuspended))

	reloaded, found, err := svc.GetByExternalID("ext-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.UserStatusSuspended, reloaded.Status)

	require.ErrorIs(t, svc.SetStatus("missing-id", models.UserStatusActive), ErrAccountNotFound)
}
