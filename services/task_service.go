package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"investment-reward-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskLockDuration is the cooldown after a reward claim before the checklist
// can restart.
const TaskLockDuration = 24 * time.Hour

// clockSkewTolerance bounds how far in the future a stored timestamp may sit
// before the record is treated as corrupt instead of "just completed".
const clockSkewTolerance = time.Minute

// ErrCorruptTask marks a task record whose timestamps cannot be trusted.
// Such records are rejected for manual repair rather than coerced: assuming
// "just completed" would silently grant an extra free cycle.
var ErrCorruptTask = errors.New("task record has a timestamp in the future; needs manual repair")

// TaskState is the derived checklist state. It is computed from stored facts
// on every read; there is no separately mutable "is locked" flag to desync.
type TaskState string

const (
	TaskStateInProgress   TaskState = "InProgress"
	TaskStateReadyToClaim TaskState = "ReadyToClaim"
	TaskStateLocked       TaskState = "Locked"
	TaskStateExpired      TaskState = "Expired"
)

// Result codes for rule violations. Handlers map these to UI behavior; in
// particular CodeNotProvisioned means "create the task first", not an error.
const (
	TaskCodeOK             = "ok"
	TaskCodeNotProvisioned = "not_provisioned"
	TaskCodeInvalidAction  = "invalid_action"
	TaskCodeAlreadyDone    = "already_completed"
	TaskCodeWrongOrder     = "wrong_order"
	TaskCodeAllDone        = "all_actions_done"
	TaskCodeIncomplete     = "actions_incomplete"
	TaskCodeLocked         = "locked"
	TaskCodeExpired        = "expired"
	TaskCodeConflict       = "conflict"
)

// TaskResult is the structured outcome of an engine operation. Business-rule
// violations are reported here, never as Go errors; the Message is written to
// be shown to the end user directly.
type TaskResult struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`

	State            TaskState `json:"state,omitempty"`
	RemainingActions int       `json:"remaining_actions,omitempty"`
	NextAction       string    `json:"next_action,omitempty"`
	Reward           int64     `json:"reward,omitempty"`

	// Lock countdown for display, derived from now - LastCompletedAt.
	LockHours   int `json:"lock_hours,omitempty"`
	LockMinutes int `json:"lock_minutes,omitempty"`
	LockSeconds int `json:"lock_seconds,omitempty"`
}

// DeriveTaskState computes the effective checklist state from stored facts.
// Both the engine and the display path go through this one function.
// The second return value is the remaining lock time (zero unless Locked).
func DeriveTaskState(task *models.ProductTask, now time.Time) (TaskState, time.Duration, error) {
	if task.LastCompletedAt != nil && task.LastCompletedAt.After(now.Add(clockSkewTolerance)) {
		return "", 0, fmt.Errorf("%w: last_completed_at=%s", ErrCorruptTask, task.LastCompletedAt.Format(time.RFC3339))
	}
	if task.LastActionAt != nil && task.LastActionAt.After(now.Add(clockSkewTolerance)) {
		return "", 0, fmt.Errorf("%w: last_action_at=%s", ErrCorruptTask, task.LastActionAt.Format(time.RFC3339))
	}

	if task.IsExpired || task.CycleDaysCompleted >= task.CycleDays {
		return TaskStateExpired, 0, nil
	}
	if task.CompletedActions < models.TaskActionCount {
		return TaskStateInProgress, 0, nil
	}
	// All five actions done. First-ever completion (no claim yet) is
	// immediately claimable; otherwise the 24h window gates the claim.
	if task.LastCompletedAt == nil {
		return TaskStateReadyToClaim, 0, nil
	}
	elapsed := now.Sub(*task.LastCompletedAt)
	if elapsed < TaskLockDuration {
		return TaskStateLocked, TaskLockDuration - elapsed, nil
	}
	return TaskStateReadyToClaim, 0, nil
}

type TaskService struct {
	DB       *gorm.DB
	Notifier *NotificationService
}

func NewTaskService(db *gorm.DB, notifier *NotificationService) *TaskService {
	return &TaskService{DB: db, Notifier: notifier}
}

// EnsureTask provisions the checklist for one purchase (idempotent: a second
// call for the same user/product returns the existing record untouched).
func (s *TaskService) EnsureTask(userID, productID string, product *models.Product) (*models.ProductTask, error) {
	var task models.ProductTask
	err := s.DB.Where("user_id = ? AND product_id = ?", userID, productID).First(&task).Error
	if err == nil {
		return &task, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	task = models.ProductTask{
		ID:          uuid.NewString(),
		UserID:      userID,
		ProductID:   productID,
		DailyReward: product.DailyReward(),
		TotalReturn: product.TotalReturn,
		CycleDays:   product.CycleDays,
	}
	if err := s.DB.Create(&task).Error; err != nil {
		// Lost a creation race: the unique (user, product) index fired.
		// Re-read and hand back the winner's record.
		var existing models.ProductTask
		if readErr := s.DB.Where("user_id = ? AND product_id = ?", userID, productID).First(&existing).Error; readErr == nil {
			return &existing, nil
		}
		return nil, err
	}
	return &task, nil
}

// GetTask returns the checklist for a user/product pair. found=false means
// "not provisioned yet", which callers must treat as a signal to create the
// task, not as a failure.
func (s *TaskService) GetTask(userID, productID string) (*models.ProductTask, bool, error) {
	var task models.ProductTask
	err := s.DB.Where("user_id = ? AND product_id = ?", userID, productID).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &task, true, nil
}

// ListTasks returns every checklist for a user, applying the lazy reset to
// each before handing it out so callers always see effective state.
func (s *TaskService) ListTasks(userID string, now time.Time) ([]models.ProductTask, error) {
	var tasks []models.ProductTask
	if err := s.DB.Where("user_id = ?", userID).Order("created_at ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	for i := range tasks {
		if _, err := s.ResetIfElapsed(&tasks[i], now); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

// CompleteAction marks the next checklist step done. Actions must follow the
// fixed order; a step behind the cursor is "already completed", a step ahead
// is rejected until its predecessors are done.
func (s *TaskService) CompleteAction(userID, productID, actionType string, now time.Time) (TaskResult, error) {
	task, found, err := s.GetTask(userID, productID)
	if err != nil {
		return TaskResult{}, err
	}
	if !found {
		return TaskResult{
			Code:    TaskCodeNotProvisioned,
			Message: "No task found for this product. Purchase the product to start earning.",
		}, nil
	}

	// Lazy reset runs before any state decision so a stale all-done
	// checklist from the previous cycle cannot block or double-pay.
	if _, err := s.ResetIfElapsed(task, now); err != nil {
		return TaskResult{}, err
	}

	state, lockLeft, err := DeriveTaskState(task, now)
	if err != nil {
		return TaskResult{}, err
	}

	switch state {
	case TaskStateExpired:
		return TaskResult{
			Code:    TaskCodeExpired,
			State:   state,
			Message: "This product has completed its full cycle. No more daily tasks are available.",
		}, nil
	case TaskStateLocked:
		return lockedResult(lockLeft), nil
	case TaskStateReadyToClaim:
		return TaskResult{
			Code:    TaskCodeAllDone,
			State:   state,
			Message: "All actions are already completed. Claim your daily reward.",
		}, nil
	}

	idx := actionIndex(actionType)
	if idx < 0 {
		return TaskResult{
			Code:    TaskCodeInvalidAction,
			State:   state,
			Message: fmt.Sprintf("Unknown action %q.", actionType),
		}, nil
	}
	if idx < task.CompletedActions {
		return TaskResult{
			Code:    TaskCodeAlreadyDone,
			State:   state,
			Message: "This action is already completed.",
		}, nil
	}
	if idx > task.CompletedActions {
		return TaskResult{
			Code:       TaskCodeWrongOrder,
			State:      state,
			NextAction: models.TaskActionOrder[task.CompletedActions],
			Message:    fmt.Sprintf("Actions must be completed in order. Next action: %s.", models.TaskActionOrder[task.CompletedActions]),
		}, nil
	}

	// Guarded increment: the cursor predicate rejects a concurrent completion
	// of the same step instead of counting it twice.
	res := s.DB.Model(&models.ProductTask{}).
		Where("id = ? AND completed_actions = ?", task.ID, task.CompletedActions).
		UpdateColumns(map[string]interface{}{
			"completed_actions": task.CompletedActions + 1,
			"last_action_at":    now,
		})
	if res.Error != nil {
		return TaskResult{}, res.Error
	}
	if res.RowsAffected == 0 {
		return TaskResult{
			Code:    TaskCodeConflict,
			Message: "The task was updated by another request. Please refresh and try again.",
		}, nil
	}

	task.CompletedActions++
	task.LastActionAt = &now

	remaining := models.TaskActionCount - task.CompletedActions
	result := TaskResult{
		Success:          true,
		Code:             TaskCodeOK,
		RemainingActions: remaining,
	}
	if remaining == 0 {
		result.State = TaskStateReadyToClaim
		result.Message = "All actions completed! Your daily reward is ready to claim."
	} else {
		result.State = TaskStateInProgress
		result.NextAction = models.TaskActionOrder[task.CompletedActions]
		result.Message = fmt.Sprintf("Action completed. %d action(s) remaining today.", remaining)
	}
	return result, nil
}

// ClaimReward pays out the daily reward once per 24-hour window. The payout,
// ledger entry and cycle bookkeeping commit atomically; an optimistic
// predicate on the cycle counter rejects a racing double claim.
func (s *TaskService) ClaimReward(userID, productID string, now time.Time) (TaskResult, error) {
	task, found, err := s.GetTask(userID, productID)
	if err != nil {
		return TaskResult{}, err
	}
	if !found {
		return TaskResult{
			Code:    TaskCodeNotProvisioned,
			Message: "No task found for this product. Purchase the product to start earning.",
		}, nil
	}

	if _, err := s.ResetIfElapsed(task, now); err != nil {
		return TaskResult{}, err
	}

	state, lockLeft, err := DeriveTaskState(task, now)
	if err != nil {
		return TaskResult{}, err
	}

	switch state {
	case TaskStateExpired:
		return TaskResult{
			Code:    TaskCodeExpired,
			State:   state,
			Message: "This product has completed its full cycle. No more rewards are available.",
		}, nil
	case TaskStateLocked:
		return lockedResult(lockLeft), nil
	case TaskStateInProgress:
		remaining := models.TaskActionCount - task.CompletedActions
		return TaskResult{
			Code:             TaskCodeIncomplete,
			State:            state,
			RemainingActions: remaining,
			NextAction:       models.TaskActionOrder[task.CompletedActions],
			Message:          fmt.Sprintf("Complete %d more action(s) before claiming your reward.", remaining),
		}, nil
	}

	reward := task.TotalReturn / int64(task.CycleDays)
	newCycleCount := task.CycleDaysCompleted + 1
	expired := newCycleCount >= task.CycleDays
	nextAvailable := now.Add(TaskLockDuration)

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		// CompletedActions is intentionally left at 5: the UI keeps showing
		// the finished checklist, and the lock is derived from elapsed time.
		res := tx.Model(&models.ProductTask{}).
			Where("id = ? AND completed_actions = ? AND cycle_days_completed = ?",
				task.ID, models.TaskActionCount, task.CycleDaysCompleted).
			UpdateColumns(map[string]interface{}{
				"last_completed_at":    now,
				"next_available_at":    nextAvailable,
				"cycle_days_completed": newCycleCount,
				"total_earned":         gorm.Expr("total_earned + ?", reward),
				"is_expired":           expired,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errTaskClaimConflict
		}

		if err := creditBalance(tx, userID, reward); err != nil {
			return err
		}

		entry := models.Transaction{
			ID:          uuid.NewString(),
			UserID:      userID,
			Amount:      reward,
			Kind:        models.TransactionKindTaskReward,
			Status:      models.TransactionStatusCompleted,
			Description: fmt.Sprintf("Daily task reward (day %d of %d)", newCycleCount, task.CycleDays),
			ReferenceID: &task.ProductID,
		}
		return tx.Create(&entry).Error
	})
	if errors.Is(err, errTaskClaimConflict) {
		return TaskResult{
			Code:    TaskCodeConflict,
			Message: "This reward was already claimed. Please refresh.",
		}, nil
	}
	if err != nil {
		return TaskResult{}, err
	}

	if expired {
		s.Notifier.Notify(userID, "Cycle completed",
			fmt.Sprintf("Your investment finished its %d-day cycle. Total earned: %d.", task.CycleDays, task.TotalEarned+reward))
		if err := s.completeInvestment(userID, productID); err != nil {
			log.Printf("[TASK] failed to complete investment for user=%s product=%s: %v", userID, productID, err)
		}
	}

	return TaskResult{
		Success: true,
		Code:    TaskCodeOK,
		State:   TaskStateLocked,
		Reward:  reward,
		Message: fmt.Sprintf("Reward of %d credited. Next cycle unlocks in 24 hours.", reward),
	}, nil
}

// errTaskClaimConflict signals a lost optimistic-update race inside the claim
// transaction; it never escapes ClaimReward.
var errTaskClaimConflict = errors.New("task claim conflict")

// ResetIfElapsed restarts the checklist once the 24-hour window has fully
// elapsed. A checklist whose actions are newer than the last claim was re-done
// for the current cycle and must not be wiped; only a stale all-done state
// left over from the claimed cycle resets. Idempotent: the predicate makes a
// repeat call a no-op. Invoked on every read path and by the minute sweep.
func (s *TaskService) ResetIfElapsed(task *models.ProductTask, now time.Time) (bool, error) {
	if task.CompletedActions < models.TaskActionCount || task.IsExpired {
		return false, nil
	}
	if task.LastCompletedAt == nil || now.Sub(*task.LastCompletedAt) < TaskLockDuration {
		return false, nil
	}
	if task.LastActionAt != nil && task.LastActionAt.After(*task.LastCompletedAt) {
		return false, nil
	}
	res := s.DB.Model(&models.ProductTask{}).
		Where("id = ? AND completed_actions = ? AND (last_action_at IS NULL OR last_action_at <= last_completed_at)",
			task.ID, models.TaskActionCount).
		UpdateColumns(map[string]interface{}{
			"completed_actions": 0,
			"last_action_at":    nil,
			"next_available_at": nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	task.CompletedActions = 0
	task.LastActionAt = nil
	task.NextAvailableAt = nil
	return true, nil
}

// completeInvestment flips the backing purchase to Completed once its task
// has paid out the full cycle.
func (s *TaskService) completeInvestment(userID, productID string) error {
	return s.DB.Model(&models.Investment{}).
		Where("user_id = ? AND product_id = ? AND status = ?", userID, productID, models.InvestmentStatusRunning).
		Update("status", models.InvestmentStatusCompleted).Error
}

func actionIndex(actionType string) int {
	for i, a := range models.TaskActionOrder {
		if a == actionType {
			return i
		}
	}
	return -1
}

func lockedResult(remaining time.Duration) TaskResult {
	h := int(remaining / time.Hour)
	m := int(remaining/time.Minute) % 60
	sec := int(remaining/time.Second) % 60
	return TaskResult{
		Code:        TaskCodeLocked,
		State:       TaskStateLocked,
		LockHours:   h,
		LockMinutes: m,
		LockSeconds: sec,
		Message:     fmt.Sprintf("Daily tasks unlock in %dh %dm.", h, m),
	}
}
