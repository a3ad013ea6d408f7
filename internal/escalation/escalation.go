// Package escalation materializes accepted triage records into durable
// hand-off requests and mediates the volunteer queue.
package escalation

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/foryou-care/foryou/internal/events"
	"github.com/foryou-care/foryou/internal/models"
	"github.com/foryou-care/foryou/internal/risk"
)

// Sentinel errors callers branch on with errors.Is.
var (
	// ErrClaimConflict means a claim lost a race: the request is no longer
	// waiting. The caller should re-fetch the queue and pick another.
	ErrClaimConflict = errors.New("escalation: request already claimed")

	// ErrAlreadyResolved means the target record or request is in a
	// terminal state and the operation is a no-op.
	ErrAlreadyResolved = errors.New("escalation: already resolved")

	// ErrSessionUnavailable means the owning chat session is missing or
	// closed; the operation aborts with no partial state.
	ErrSessionUnavailable = errors.New("escalation: session unavailable")
)

// PriorityFor maps a risk level (and the emergency flag on the triggering
// context) to a queue priority.
func PriorityFor(level risk.Level, emergency bool) models.Priority {
	switch {
	case emergency, level == risk.LevelCritical:
		return models.PriorityCritical
	case level == risk.LevelHigh:
		return models.PriorityHigh
	default:
		return models.PriorityNormal
	}
}

// Create materializes an accepted triage record into an EscalationRequest in
// waiting status. Priority derives from the session's aggregated risk level
// at the moment of creation — the record's level is the offer-time snapshot
// and may be stale by the time the user decides. Creation is exactly-once
// per record: re-invocation returns the existing request. The whole
// operation runs in one transaction; if the owning session is missing or
// closed it fails with ErrSessionUnavailable and writes nothing.
func Create(db *gorm.DB, em *events.Emitter, record *models.TriageRecord) (*models.EscalationRequest, error) {
	if record == nil {
		return nil, fmt.Errorf("escalation: triage record is required")
	}

	var (
		req     models.EscalationRequest
		created bool
		session models.ChatSession
		level   risk.Level
	)

	err := db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("triage_record_id = ?", record.ID).Limit(1).Find(&req)
		if result.Error != nil {
			return fmt.Errorf("check existing request: %w", result.Error)
		}
		if result.RowsAffected > 0 {
			return nil // already escalated, idempotent
		}

		if err := tx.First(&session, "id = ?", record.SessionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("session %d: %w", record.SessionID, ErrSessionUnavailable)
			}
			return fmt.Errorf("load session %d: %w", record.SessionID, err)
		}
		if !session.IsOpen() && session.Status != models.SessionTransferred {
			return fmt.Errorf("session %d is %s: %w", session.ID, session.Status, ErrSessionUnavailable)
		}

		level = session.CurrentRiskLevel
		if !level.Valid() {
			level = record.RiskLevel
		}
		req = models.EscalationRequest{
			TriageRecordID: record.ID,
			SessionID:      session.ID,
			UserID:         session.UserID,
			Priority:       PriorityFor(level, record.Emergency),
			Status:         models.EscalationWaiting,
		}
		if err := tx.Create(&req).Error; err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("escalation: create for record %d: %w", record.ID, err)
	}

	if created {
		em.Emit(events.Event{
			Type:         events.EscalationWaiting,
			SessionID:    req.SessionID,
			SessionUUID:  session.UUID,
			TriageID:     record.ID,
			EscalationID: req.ID,
			RiskLevel:    level,
			Priority:     req.Priority,
			Emergency:    record.Emergency,
		})
	}
	return &req, nil
}

// queueOrder serves critical before high before normal, oldest first within
// a tier. The CASE arms mirror Priority.Rank.
var queueOrder = fmt.Sprintf(
	"CASE priority WHEN '%s' THEN %d WHEN '%s' THEN %d ELSE %d END, created_at ASC",
	models.PriorityCritical, models.PriorityCritical.Rank(),
	models.PriorityHigh, models.PriorityHigh.Rank(),
	models.PriorityNormal.Rank(),
)

// ListWaiting returns the waiting queue in serving order. It reads a
// snapshot and mutates nothing.
func ListWaiting(db *gorm.DB) ([]models.EscalationRequest, error) {
	var reqs []models.EscalationRequest
	if err := db.Where("status = ?", models.EscalationWaiting).
		Order(queueOrder).
		Find(&reqs).Error; err != nil {
		return nil, fmt.Errorf("escalation: list waiting: %w", err)
	}
	return reqs, nil
}
