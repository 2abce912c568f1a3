package models

import "time"

// TaskActionOrder is the fixed daily checklist. Actions must be completed in
// this exact order; the next expected action is TaskActionOrder[CompletedActions].
var TaskActionOrder = []string{
	"daily_check_in",
	"watch_video",
	"read_article",
	"share_post",
	"rate_product",
}

// TaskActionCount is the checklist length for one daily cycle.
var TaskActionCount = len(TaskActionOrder)

// ProductTask tracks the gamified daily checklist for one purchased product
// instance of one user (denormalized: cycle parameters are copied from the
// product at purchase time so later product edits do not change running tasks).
//
// CompletedActions stays at 5 after a claim; the 24h lock is always derived
// from LastCompletedAt, never from a stored flag. NextAvailableAt is a display
// hint only and is never authoritative.
type ProductTask struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string `gorm:"type:uuid;not null;uniqueIndex:idx_task_user_product" json:"user_id"`
	ProductID string `gorm:"type:uuid;not null;uniqueIndex:idx_task_user_product" json:"product_id"`

	CompletedActions int        `gorm:"not null;default:0" json:"completed_actions"`
	LastActionAt     *time.Time `json:"last_action_at,omitempty"`
	LastCompletedAt  *time.Time `json:"last_completed_at,omitempty"`
	NextAvailableAt  *time.Time `json:"next_available_at,omitempty"`

	DailyReward        int64 `gorm:"not null" json:"daily_reward"`
	TotalReturn        int64 `gorm:"not null" json:"total_return"`
	CycleDays          int   `gorm:"not null" json:"cycle_days"`
	CycleDaysCompleted int   `gorm:"not null;default:0" json:"cycle_days_completed"`
	TotalEarned        int64 `gorm:"not null;default:0" json:"total_earned"`
	IsExpired          bool  `gorm:"not null;default:false" json:"is_expired"`

	Timestamps
}
