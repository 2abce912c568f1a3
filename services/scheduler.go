// services/scheduler.go
package services

import (
	"log"
	"time"

	"investment-reward-system/models"

	"github.com/go-co-op/gocron/v2"
)

// StartTaskScheduler runs the background sweep behind the lazy task reset.
// Effective state is always derivable from LastCompletedAt alone; the sweep
// only keeps stored rows close to their derived state so list queries stay
// honest between user visits.
func (s *TaskService) StartTaskScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every minute: restart checklists whose 24h lock has fully elapsed.
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			cutoff := time.Now().Add(-TaskLockDuration)
			res := s.DB.Model(&models.ProductTask{}).
				Where("completed_actions = ? AND is_expired = ? AND last_completed_at <= ? AND (last_action_at IS NULL OR last_action_at <= last_completed_at)",
					models.TaskActionCount, false, cutoff).
				UpdateColumns(map[string]interface{}{
					"completed_actions": 0,
					"last_action_at":    nil,
					"next_available_at": nil,
				})
			if res.Error != nil {
				log.Printf("[SCHEDULER] task reset sweep failed: %v", res.Error)
				return
			}
			if res.RowsAffected > 0 {
				log.Printf("✅ [SCHEDULER] reset %d elapsed task(s)", res.RowsAffected)
			}
		}),
	)

	// Every minute: flag tasks whose full cycle has been paid out.
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			res := s.DB.Model(&models.ProductTask{}).
				Where("is_expired = ? AND cycle_days_completed >= cycle_days", false).
				Update("is_expired", true)
			if res.Error != nil {
				log.Printf("[SCHEDULER] task expiry sweep failed: %v", res.Error)
				return
			}
			if res.RowsAffected > 0 {
				log.Printf("✅ [SCHEDULER] expired %d completed task(s)", res.RowsAffected)
			}
		}),
	)
}
