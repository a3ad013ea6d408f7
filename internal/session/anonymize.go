package session

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/foryou-care/foryou/internal/models"
)

// Anonymize scrubs personal content from a closed session while keeping
// the statistical shape (risk levels, counts, statuses) for analysis.
// Triage records are kept as audit history with their free text removed.
// Anonymizing an already anonymized session is a no-op.
func Anonymize(db *gorm.DB, uuid string) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		var s models.ChatSession
		if err := tx.First(&s, "uuid = ?", uuid).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%s: %w", uuid, ErrSessionUnavailable)
			}
			return fmt.Errorf("load session: %w", err)
		}
		if s.IsAnonymized {
			return nil
		}
		if s.IsOpen() {
			return fmt.Errorf("session %s is still active", uuid)
		}

		now := time.Now()
		if err := tx.Model(&models.ChatSession{}).
			Where("id = ?", s.ID).
			Updates(map[string]interface{}{
				"title":           "Anonymized session",
				"volunteer_notes": "",
				"is_anonymized":   true,
				"anonymized_at":   now,
			}).Error; err != nil {
			return fmt.Errorf("scrub session: %w", err)
		}

		if err := tx.Model(&models.ChatMessage{}).
			Where("session_id = ? AND role IN ?", s.ID, []models.MessageRole{models.RoleUser, models.RoleVolunteer}).
			Updates(map[string]interface{}{
				"content":       "[content removed for privacy]",
				"is_anonymized": true,
				"anonymized_at": now,
			}).Error; err != nil {
			return fmt.Errorf("scrub messages: %w", err)
		}

		if err := tx.Model(&models.TriageRecord{}).
			Where("session_id = ?", s.ID).
			Updates(map[string]interface{}{
				"decline_reason": "",
				"is_anonymized":  true,
				"anonymized_at":  now,
			}).Error; err != nil {
			return fmt.Errorf("scrub triage records: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSessionUnavailable) {
			return err
		}
		return fmt.Errorf("session: anonymize %s: %w", uuid, err)
	}
	return nil
}
