package models

import "time"

// Referral tracks one referred registration and its first-deposit bonus.
// The commission chain itself is walked through User.ReferredBy; this record
// exists so the referrer's dashboard and the first-deposit bookkeeping do not
// need to scan the ledger.
type Referral struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	ReferrerID string `gorm:"type:uuid;index;not null" json:"referrer_id"`
	ReferredID string `gorm:"type:uuid;uniqueIndex;not null" json:"referred_id"`

	ReferralCodeUsed string `gorm:"size:20;not null" json:"referral_code_used"`

	// Set when the referred user's first deposit is approved.
	FirstDepositID  *string    `gorm:"type:uuid;index" json:"first_deposit_id,omitempty"`
	FirstDepositAmt int64      `gorm:"not null;default:0" json:"first_deposit_amt"`
	BonusAwarded    bool       `gorm:"not null;default:false" json:"bonus_awarded"`
	AwardedAt       *time.Time `json:"awarded_at,omitempty"`

	Timestamps
}
