package models

// TransactionKind classifies a balance-affecting ledger event
type TransactionKind string

const (
	TransactionKindDeposit         TransactionKind = "deposit"
	TransactionKindWithdrawal      TransactionKind = "withdrawal"
	TransactionKindInvestment      TransactionKind = "investment"
	TransactionKindTaskReward      TransactionKind = "task_reward"
	TransactionKindReferralBonus   TransactionKind = "referral_bonus"
	TransactionKindWelcomeBonus    TransactionKind = "welcome_bonus"
	TransactionKindAdminAdjustment TransactionKind = "admin_adjustment"
)

// TransactionStatus transitions are Pending → Completed or Pending → Failed,
// never reversed.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "Pending"
	TransactionStatusCompleted TransactionStatus = "Completed"
	TransactionStatusFailed    TransactionStatus = "Failed"
)

// Transaction is an append-only ledger entry. Rows are only ever mutated to
// change Status (admin approving or rejecting a deposit/withdrawal) and the
// ProviderConfirmed flag (payment sync worker); they are never deleted.
type Transaction struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"type:uuid;index;not null" json:"user_id"`

	// Amount is signed: credits positive, debits negative.
	Amount int64             `gorm:"not null" json:"amount"`
	Kind   TransactionKind   `gorm:"size:32;not null;index;uniqueIndex:idx_tx_idempotency,where:kind = 'referral_bonus'" json:"kind"`
	Status TransactionStatus `gorm:"size:20;not null;default:'Pending'" json:"status"`

	Description string `gorm:"type:text" json:"description"`

	// Evidence for deposits/withdrawals
	ProofImageURL string `gorm:"type:text" json:"proof_image_url,omitempty"`
	BankReference string `gorm:"size:64;index" json:"bank_reference,omitempty"`

	// ReferenceID links the entry to its origin: the triggering deposit for
	// referral bonuses, the product for task rewards, the investment for
	// purchases. For referral bonuses the partial unique index makes
	// re-processing the same deposit a constraint violation instead of a
	// double payout.
	ReferenceID *string `gorm:"type:uuid;uniqueIndex:idx_tx_idempotency" json:"reference_id,omitempty"`

	// ReferralLevel is 1..3 for referral bonuses, 0 otherwise.
	ReferralLevel int `gorm:"not null;default:0;uniqueIndex:idx_tx_idempotency" json:"referral_level,omitempty"`

	// ProviderConfirmed is set by the payment sync worker once the external
	// provider reports the matching bank transfer as settled.
	ProviderConfirmed bool `gorm:"not null;default:false" json:"provider_confirmed"`

	Timestamps
}
