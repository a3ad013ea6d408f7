// Package session manages the lifecycle of support chat sessions and runs
// the per-message risk pipeline.
package session

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/foryou-care/foryou/internal/escalation"
	"github.com/foryou-care/foryou/internal/events"
	"github.com/foryou-care/foryou/internal/models"
)

// ErrSessionUnavailable is the shared sentinel for a missing or closed
// session.
var ErrSessionUnavailable = escalation.ErrSessionUnavailable

// Start creates a new active chat session for a client.
func Start(db *gorm.DB, userID uint, title string) (*models.ChatSession, error) {
	if userID == 0 {
		return nil, fmt.Errorf("session: userID is required")
	}
	s := models.ChatSession{
		UserID: userID,
		Title:  title,
		Status: models.SessionActive,
	}
	if err := db.Create(&s).Error; err != nil {
		return nil, fmt.Errorf("session: start: %w", err)
	}
	return &s, nil
}

// Get retrieves a session by its public UUID.
func Get(db *gorm.DB, uuid string) (*models.ChatSession, error) {
	var s models.ChatSession
	if err := db.First(&s, "uuid = ?", uuid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session: %s: %w", uuid, ErrSessionUnavailable)
		}
		return nil, fmt.Errorf("session: get %s: %w", uuid, err)
	}
	return &s, nil
}

// AppendMessage stores one conversation line and bumps the session's
// message count and activity timestamp. The passed session is updated in
// place to match.
func AppendMessage(db *gorm.DB, s *models.ChatSession, role models.MessageRole, senderID *uint, content string) (*models.ChatMessage, error) {
	if content == "" {
		return nil, fmt.Errorf("session: message content is required")
	}

	var msg models.ChatMessage
	err := db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		msg = models.ChatMessage{
			SessionID: s.ID,
			Seq:       s.MessageCount + 1,
			SenderID:  senderID,
			Role:      role,
			Content:   content,
			CreatedAt: now,
		}
		if err := tx.Create(&msg).Error; err != nil {
			return fmt.Errorf("create message: %w", err)
		}
		if err := tx.Model(&models.ChatSession{}).
			Where("id = ?", s.ID).
			Updates(map[string]interface{}{
				"message_count": s.MessageCount + 1,
				"last_activity": now,
			}).Error; err != nil {
			return fmt.Errorf("bump session: %w", err)
		}
		s.MessageCount++
		s.LastActivity = now
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("session: append to %d: %w", s.ID, err)
	}
	return &msg, nil
}

// RecentMessages returns the last n messages in chronological order.
func RecentMessages(db *gorm.DB, sessionID uint, n int) ([]models.ChatMessage, error) {
	if n <= 0 {
		n = 10
	}
	var msgs []models.ChatMessage
	if err := db.Where("session_id = ?", sessionID).
		Order("created_at DESC, seq DESC").
		Limit(n).
		Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("session: recent messages of %d: %w", sessionID, err)
	}
	// Reverse into chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// End closes a session with the given terminal status. Ending an already
// closed session fails with ErrSessionUnavailable. Existing triage records
// are untouched; they are audit history.
func End(db *gorm.DB, em *events.Emitter, uuid string, status models.SessionStatus) (*models.ChatSession, error) {
	switch status {
	case models.SessionCompleted, models.SessionAbandoned, models.SessionTransferred:
	default:
		return nil, fmt.Errorf("session: %q is not a terminal status", status)
	}

	var s models.ChatSession
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&s, "uuid = ?", uuid).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%s: %w", uuid, ErrSessionUnavailable)
			}
			return fmt.Errorf("load session: %w", err)
		}

		now := time.Now()
		duration := int(now.Sub(s.StartedAt).Minutes())
		result := tx.Model(&models.ChatSession{}).
			Where("id = ? AND status IN ?", s.ID, []models.SessionStatus{models.SessionActive, models.SessionTransferred}).
			Updates(map[string]interface{}{
				"status":           status,
				"ended_at":         now,
				"duration_minutes": duration,
			})
		if result.Error != nil {
			return fmt.Errorf("end update: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("session %s is %s: %w", uuid, s.Status, ErrSessionUnavailable)
		}
		s.Status = status
		s.EndedAt = &now
		s.DurationMinutes = &duration
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSessionUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("session: end %s: %w", uuid, err)
	}

	em.Emit(events.Event{
		Type:        events.SessionClosed,
		SessionID:   s.ID,
		SessionUUID: s.UUID,
		RiskLevel:   s.CurrentRiskLevel,
	})
	return &s, nil
}

// CloseInactive abandons active sessions with no activity for idleFor or
// longer and returns how many were closed. Invoked by the housekeeping
// sweep and the CLI.
func CloseInactive(db *gorm.DB, em *events.Emitter, idleFor time.Duration) (int, error) {
	cutoff := time.Now().Add(-idleFor)

	var stale []models.ChatSession
	if err := db.Where("status = ? AND last_activity < ?", models.SessionActive, cutoff).
		Find(&stale).Error; err != nil {
		return 0, fmt.Errorf("session: find inactive: %w", err)
	}

	closed := 0
	for _, s := range stale {
		if _, err := End(db, em, s.UUID, models.SessionAbandoned); err != nil {
			if errors.Is(err, ErrSessionUnavailable) {
				continue // raced with an explicit close
			}
			return closed, fmt.Errorf("session: close inactive %s: %w", s.UUID, err)
		}
		closed++
	}
	return closed, nil
}
