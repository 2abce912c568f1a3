package models

// ProductStatus controls product visibility in the catalogue
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "Active"
	ProductStatusInactive ProductStatus = "Inactive"
)

// Product is a purchasable investment offering. TotalReturn is paid out over
// CycleDays through the daily task checklist, one claim per day.
type Product struct {
	ID   string `gorm:"primaryKey;type:uuid" json:"id"`
	Name string `gorm:"size:100;not null" json:"name"`
	Slug string `gorm:"size:120;uniqueIndex;not null" json:"slug"`

	Price       int64 `gorm:"not null" json:"price"`
	CycleDays   int   `gorm:"not null" json:"cycle_days"`
	TotalReturn int64 `gorm:"not null" json:"total_return"`

	// Stock is the remaining inventory count; 0 means unlimited. A finite
	// product is flipped to Inactive when its last unit sells, so a stored 0
	// never silently turns into unlimited supply.
	Stock int64 `gorm:"not null;default:0" json:"stock"`

	Description string        `gorm:"type:text" json:"description"`
	ImageURL    string        `gorm:"type:text" json:"image_url"`
	Status      ProductStatus `gorm:"size:20;not null;default:'Active'" json:"status"`

	Timestamps
}

// DailyReward is the per-claim payout: floor(TotalReturn / CycleDays).
func (p *Product) DailyReward() int64 {
	if p.CycleDays <= 0 {
		return 0
	}
	return p.TotalReturn / int64(p.CycleDays)
}
