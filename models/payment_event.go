// models/payment_event.go
package models

import "time"

// PaymentEvent mirrors settled bank transfers reported by the external
// payment provider. Table name: payment_events.
// Populated by the payment sync worker; matched against pending deposit
// transactions by bank reference.
type PaymentEvent struct {
	ID            string    `gorm:"primaryKey;type:uuid;not null" json:"id"`
	BankReference string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"bank_reference"` // Primary lookup key
	Amount        int64     `gorm:"not null" json:"amount"`
	Currency      string    `gorm:"type:varchar(8);not null" json:"currency"`
	SettledAt     time.Time `gorm:"not null" json:"settled_at"`
	Matched       bool      `gorm:"not null;default:false;index" json:"matched"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}
