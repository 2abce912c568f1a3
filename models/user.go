package models

import (
	"time"

	"gorm.io/gorm"
)

// UserStatus is the account lifecycle state. Users are never hard-deleted;
// admins suspend them instead.
type UserStatus string

const (
	UserStatusActive    UserStatus = "Active"
	UserStatusSuspended UserStatus = "Suspended"
)

// User is a platform account: depositor, investor and referrer.
// Credentials live in the auth service behind the Gateway; this service owns
// the balance, referral chain and ledger.
type User struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // auth service's user UUID (from X-User-ID)
	Phone          string `gorm:"size:20;index;not null" json:"phone"`
	Name           string `gorm:"size:100" json:"name"`

	// Withdrawal PIN hash (bcrypt). Never serialized.
	WithdrawalPin string `gorm:"size:255" json:"-"`

	// Balance is held in integer currency units. Mutated only through
	// conditional atomic updates, never read-then-overwrite.
	Balance      int64 `gorm:"not null;default:0" json:"balance"`
	HasDeposited bool  `gorm:"not null;default:false" json:"has_deposited"`

	// ReferralCode is unique across all accounts; ReferredBy is set once at
	// registration and never changes afterwards.
	ReferralCode     string  `gorm:"size:20;uniqueIndex;not null" json:"referral_code"`
	ReferredBy       *string `gorm:"type:uuid;index" json:"referred_by,omitempty"`
	ReferralEarnings int64   `gorm:"not null;default:0" json:"referral_earnings"`
	ReferralCount    int64   `gorm:"not null;default:0" json:"referral_count"`

	Status  UserStatus `gorm:"size:20;not null;default:'Active'" json:"status"`
	IsAdmin bool       `gorm:"not null;default:false" json:"is_admin"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
