package models

// InvestmentStatus tracks a purchased product instance
type InvestmentStatus string

const (
	InvestmentStatusRunning   InvestmentStatus = "Running"
	InvestmentStatusCompleted InvestmentStatus = "Completed"
)

// Investment records one product purchase by one user. The daily payouts
// themselves flow through the ProductTask checklist and the ledger.
type Investment struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string `gorm:"type:uuid;index;not null" json:"user_id"`
	ProductID string `gorm:"type:uuid;index;not null" json:"product_id"`

	OrderID string `gorm:"size:64;uniqueIndex;not null" json:"order_id"`
	Amount  int64  `gorm:"not null" json:"amount"`

	Status InvestmentStatus `gorm:"size:20;not null;default:'Running'" json:"status"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`

	Timestamps
}
