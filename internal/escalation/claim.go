package escalation

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/foryou-care/foryou/internal/events"
	"github.com/foryou-care/foryou/internal/models"
	"github.com/foryou-care/foryou/internal/volunteer"
)

// Claim atomically transitions a waiting request to active, binding the
// volunteer. The update is guarded by status = waiting, so of two
// concurrent claims exactly one wins; the loser gets ErrClaimConflict
// (or ErrAlreadyResolved when the request is already completed).
//
// On success the owning session is marked transferred to the volunteer and
// a system hand-off message is appended to it.
func Claim(db *gorm.DB, em *events.Emitter, dir volunteer.Directory, escalationID, volunteerID uint) (*models.EscalationRequest, error) {
	eligible, err := dir.IsEligible(db, volunteerID)
	if err != nil {
		return nil, fmt.Errorf("escalation: claim %d: %w", escalationID, err)
	}
	if !eligible {
		return nil, fmt.Errorf("escalation: claim %d: volunteer %d is not eligible", escalationID, volunteerID)
	}

	var (
		req     models.EscalationRequest
		session models.ChatSession
	)

	err = db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		result := tx.Model(&models.EscalationRequest{}).
			Where("id = ? AND status = ?", escalationID, models.EscalationWaiting).
			Updates(map[string]interface{}{
				"status":       models.EscalationActive,
				"volunteer_id": volunteerID,
				"claimed_at":   now,
			})
		if result.Error != nil {
			return fmt.Errorf("claim update: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			// Lost the race or wrong state; load to report which.
			var current models.EscalationRequest
			if err := tx.First(&current, "id = ?", escalationID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("request not found: %w", gorm.ErrRecordNotFound)
				}
				return fmt.Errorf("load request: %w", err)
			}
			if current.Status == models.EscalationCompleted {
				return ErrAlreadyResolved
			}
			return ErrClaimConflict
		}

		if err := tx.First(&req, "id = ?", escalationID).Error; err != nil {
			return fmt.Errorf("reload request: %w", err)
		}

		// Hand the chat session over to the volunteer.
		if err := tx.First(&session, "id = ?", req.SessionID).Error; err != nil {
			return fmt.Errorf("load session %d: %w", req.SessionID, err)
		}
		if err := tx.Model(&models.ChatSession{}).
			Where("id = ?", session.ID).
			Updates(map[string]interface{}{
				"volunteer_id":  volunteerID,
				"status":        models.SessionTransferred,
				"last_activity": now,
				"message_count": gorm.Expr("message_count + 1"),
			}).Error; err != nil {
			return fmt.Errorf("transfer session %d: %w", session.ID, err)
		}
		handoff := models.ChatMessage{
			SessionID: session.ID,
			Seq:       session.MessageCount + 1,
			Role:      models.RoleSystem,
			Content:   "Your conversation has been handed to a trained volunteer.",
		}
		if err := tx.Create(&handoff).Error; err != nil {
			return fmt.Errorf("append handoff message: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrClaimConflict) || errors.Is(err, ErrAlreadyResolved) {
			return nil, err
		}
		return nil, fmt.Errorf("escalation: claim %d: %w", escalationID, err)
	}

	em.Emit(events.Event{
		Type:         events.EscalationClaimed,
		SessionID:    req.SessionID,
		SessionUUID:  session.UUID,
		EscalationID: req.ID,
		VolunteerID:  volunteerID,
		Priority:     req.Priority,
	})
	return &req, nil
}

// Release returns an active request to waiting after a volunteer
// disconnect. The session keeps its transferred status — the client is
// still owed a human — but the volunteer binding is cleared. Compensating
// operation; invoked by an external collaborator, never automatically.
func Release(db *gorm.DB, em *events.Emitter, escalationID uint) error {
	var req models.EscalationRequest

	err := db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.EscalationRequest{}).
			Where("id = ? AND status = ?", escalationID, models.EscalationActive).
			Updates(map[string]interface{}{
				"status":       models.EscalationWaiting,
				"volunteer_id": nil,
				"claimed_at":   nil,
			})
		if result.Error != nil {
			return fmt.Errorf("release update: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("request %d is not active: %w", escalationID, ErrAlreadyResolved)
		}
		if err := tx.First(&req, "id = ?", escalationID).Error; err != nil {
			return fmt.Errorf("reload request: %w", err)
		}
		if err := tx.Model(&models.ChatSession{}).
			Where("id = ?", req.SessionID).
			Update("volunteer_id", nil).Error; err != nil {
			return fmt.Errorf("unbind session %d: %w", req.SessionID, err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyResolved) {
			return err
		}
		return fmt.Errorf("escalation: release %d: %w", escalationID, err)
	}

	em.Emit(events.Event{
		Type:         events.EscalationReleased,
		SessionID:    req.SessionID,
		EscalationID: req.ID,
		Priority:     req.Priority,
	})
	return nil
}

// Complete ends an active 1:1 interaction: the request is marked completed,
// the originating triage record is closed out, and the chat session ends.
func Complete(db *gorm.DB, em *events.Emitter, escalationID uint) error {
	var req models.EscalationRequest

	err := db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		result := tx.Model(&models.EscalationRequest{}).
			Where("id = ? AND status = ?", escalationID, models.EscalationActive).
			Updates(map[string]interface{}{
				"status":       models.EscalationCompleted,
				"completed_at": now,
			})
		if result.Error != nil {
			return fmt.Errorf("complete update: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			var current models.EscalationRequest
			if err := tx.First(&current, "id = ?", escalationID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("request not found: %w", gorm.ErrRecordNotFound)
				}
				return fmt.Errorf("load request: %w", err)
			}
			if current.Status == models.EscalationCompleted {
				return ErrAlreadyResolved
			}
			return fmt.Errorf("request %d is %s, not active", escalationID, current.Status)
		}

		if err := tx.First(&req, "id = ?", escalationID).Error; err != nil {
			return fmt.Errorf("reload request: %w", err)
		}

		if err := tx.Model(&models.TriageRecord{}).
			Where("id = ? AND status = ?", req.TriageRecordID, models.TriageAccepted).
			Update("status", models.TriageCompleted).Error; err != nil {
			return fmt.Errorf("close triage record %d: %w", req.TriageRecordID, err)
		}

		if err := tx.Model(&models.ChatSession{}).
			Where("id = ?", req.SessionID).
			Updates(map[string]interface{}{
				"status":   models.SessionCompleted,
				"ended_at": now,
			}).Error; err != nil {
			return fmt.Errorf("end session %d: %w", req.SessionID, err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyResolved) {
			return err
		}
		return fmt.Errorf("escalation: complete %d: %w", escalationID, err)
	}

	em.Emit(events.Event{
		Type:         events.EscalationCompleted,
		SessionID:    req.SessionID,
		EscalationID: req.ID,
		Priority:     req.Priority,
	})
	return nil
}
