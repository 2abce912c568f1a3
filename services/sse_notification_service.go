package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"investment-reward-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// StreamUserNotificationsSSE streams new notifications for the authenticated
// user as server-sent events, polled from the store every few seconds.
func (s *NotificationService) StreamUserNotificationsSSE(c *fiber.Ctx) error {
	userID := c.Locals("account_id").(string)

	// SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	done := c.Context().Done()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		s.streamNotifications(w, done, userID, 2*time.Second)
	})

	return nil
}

// streamNotifications polls for fresh notifications and writes them as SSE
// frames until the client disconnects. The done channel ends the loop even
// when no rows ever arrive, so an idle stream does not poll forever.
func (s *NotificationService) streamNotifications(w *bufio.Writer, done <-chan struct{}, userID string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastMaxCreatedAt time.Time

	// Initialize cursor at the newest existing notification.
	var latest models.Notification
	if err := s.DB.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&latest).Error; err == nil {
		lastMaxCreatedAt = latest.CreatedAt
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("SSE init error for user %s: %v", userID, err)
	}

	// Initial keepalive (comment event)
	w.WriteString(":\n\n")
	w.Flush()

	for {
		select {
		case <-ticker.C:
			var fresh []models.Notification
			err := s.DB.
				Where("user_id = ? AND created_at > ?", userID, lastMaxCreatedAt).
				Order("created_at ASC").
				Find(&fresh).Error
			if err != nil {
				log.Printf("SSE query error for user %s: %v", userID, err)
				continue
			}
			if len(fresh) == 0 {
				continue
			}
			lastMaxCreatedAt = fresh[len(fresh)-1].CreatedAt

			for _, n := range fresh {
				payload, err := json.Marshal(n)
				if err != nil {
					continue
				}
				if _, err := w.WriteString(fmt.Sprintf("event: notification\ndata: %s\n\n", payload)); err != nil {
					return // client disconnected
				}
			}
			if err := w.Flush(); err != nil {
				return
			}

		case <-done:
			// Client closed connection
			return
		}
	}
}
