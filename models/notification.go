package models

// Notification is a user-facing message (referral bonus credited, deposit
// approved, task reward paid). Delivery is fire-and-forget: a failed insert
// must never abort the business operation that produced it.
type Notification struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID  string `gorm:"type:uuid;index;not null" json:"user_id"`
	Title   string `gorm:"size:100" json:"title"`
	Message string `gorm:"type:text;not null" json:"message"`
	Read    bool   `gorm:"not null;default:false;index" json:"read"`

	Timestamps
}
