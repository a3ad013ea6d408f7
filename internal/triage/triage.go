// Package triage decides when a support conversation is offered a hand-off
// to a human volunteer and manages the lifecycle of each offer.
//
// A session's triage sub-state is derived from its records: no record or
// only terminal records means a new offer may fire; a record in offered
// awaits the user's decision; acceptance creates an escalation request
// synchronously. Declined records gate future auto-offers until risk rises
// strictly above the level recorded at decline time, though an explicit
// user ask always goes through.
package triage

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/foryou-care/foryou/internal/escalation"
	"github.com/foryou-care/foryou/internal/events"
	"github.com/foryou-care/foryou/internal/models"
	"github.com/foryou-care/foryou/internal/risk"
)

// ErrInvalidTransition means the attempted decision does not match any
// transition rule; state is unchanged.
var ErrInvalidTransition = errors.New("triage: invalid transition")

// ErrAlreadyResolved aliases the escalation sentinel so callers can check
// either package's operations uniformly.
var ErrAlreadyResolved = escalation.ErrAlreadyResolved

// offersAt reports whether an aggregated session level triggers an
// automatic offer.
func offersAt(level risk.Level) bool {
	return level == risk.LevelModerate || level == risk.LevelHigh || level == risk.LevelCritical
}

// Evaluate runs the sole automatic-offer trigger for one inbound message,
// given the session's freshly aggregated risk level. It creates and returns
// a new TriageRecord in offered status, or returns nil when no offer fires:
// the level is low, an offer is already pending, this message already
// triggered a record, or a prior decline gates this level.
//
// Callers serialize invocations per session (see session.Pipeline); the
// pending-offer check re-runs inside the transaction so a stray concurrent
// caller still cannot create a second pending offer.
func Evaluate(db *gorm.DB, em *events.Emitter, session *models.ChatSession, msg *models.ChatMessage, level risk.Level) (*models.TriageRecord, error) {
	if !offersAt(level) {
		return nil, nil
	}

	var record *models.TriageRecord
	err := db.Transaction(func(tx *gorm.DB) error {
		var pending int64
		if err := tx.Model(&models.TriageRecord{}).
			Where("session_id = ? AND status = ?", session.ID, models.TriageOffered).
			Count(&pending).Error; err != nil {
			return fmt.Errorf("count pending offers: %w", err)
		}
		if pending > 0 {
			return nil
		}

		if msg != nil {
			var triggered int64
			if err := tx.Model(&models.TriageRecord{}).
				Where("session_id = ? AND trigger_message_id = ?", session.ID, msg.ID).
				Count(&triggered).Error; err != nil {
				return fmt.Errorf("count message triggers: %w", err)
			}
			if triggered > 0 {
				return nil
			}
		}

		// Decline gate: after a decline, auto-offer only on a strictly
		// higher level than the one recorded at decline time.
		var last models.TriageRecord
		result := tx.Where("session_id = ?", session.ID).
			Order("created_at DESC, id DESC").
			Limit(1).
			Find(&last)
		if result.Error != nil {
			return fmt.Errorf("load last record: %w", result.Error)
		}
		if result.RowsAffected > 0 && last.Status == models.TriageDeclined {
			gate := last.DeclinedAtLevel
			if gate == "" {
				gate = last.RiskLevel
			}
			if !level.MoreSevere(gate) {
				return nil
			}
		}

		record = &models.TriageRecord{
			SessionID: session.ID,
			RiskLevel: level,
			Status:    models.TriageOffered,
		}
		if msg != nil {
			record.TriggerMessageID = &msg.ID
		}
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("create record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("triage: evaluate session %d: %w", session.ID, err)
	}
	if record == nil {
		return nil, nil
	}

	em.Emit(events.Event{
		Type:        events.TriageOffered,
		SessionID:   session.ID,
		SessionUUID: session.UUID,
		TriageID:    record.ID,
		RiskLevel:   level,
	})
	return record, nil
}

// Accept records the user's affirmative decision on a pending offer and
// synchronously creates the escalation request in the same transaction.
//
// Accepting an already-accepted record is idempotent and returns the
// existing escalation. Declined and completed records fail with
// ErrAlreadyResolved.
func Accept(db *gorm.DB, em *events.Emitter, recordID uint) (*models.TriageRecord, *models.EscalationRequest, error) {
	var (
		record       models.TriageRecord
		req          *models.EscalationRequest
		transitioned bool
	)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&record, "id = ?", recordID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("record not found: %w", gorm.ErrRecordNotFound)
			}
			return fmt.Errorf("load record: %w", err)
		}

		switch record.Status {
		case models.TriageOffered:
			now := time.Now()
			result := tx.Model(&models.TriageRecord{}).
				Where("id = ? AND status = ?", recordID, models.TriageOffered).
				Updates(map[string]interface{}{
					"status":     models.TriageAccepted,
					"decided_at": now,
				})
			if result.Error != nil {
				return fmt.Errorf("accept update: %w", result.Error)
			}
			if result.RowsAffected == 0 {
				return ErrAlreadyResolved
			}
			record.Status = models.TriageAccepted
			record.DecidedAt = &now
			transitioned = true
		case models.TriageAccepted:
			// Idempotent: fall through to return the existing escalation.
		default:
			return fmt.Errorf("record %d is %s: %w", recordID, record.Status, ErrAlreadyResolved)
		}

		var err error
		req, err = escalation.Create(tx, nil, &record)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyResolved) || errors.Is(err, escalation.ErrSessionUnavailable) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("triage: accept %d: %w", recordID, err)
	}

	if transitioned {
		em.Emit(events.Event{
			Type:      events.TriageAccepted,
			SessionID: record.SessionID,
			TriageID:  record.ID,
			RiskLevel: record.RiskLevel,
		})
		em.Emit(events.Event{
			Type:         events.EscalationWaiting,
			SessionID:    req.SessionID,
			TriageID:     record.ID,
			EscalationID: req.ID,
			RiskLevel:    record.RiskLevel,
			Priority:     req.Priority,
			Emergency:    record.Emergency,
		})
	}
	return &record, req, nil
}

// Decline records the user's refusal of a pending offer, retaining the
// optional free-text reason and the session risk level at decline time
// (which gates re-offers). Declining a declined or completed record fails
// with ErrAlreadyResolved; declining an accepted record is
// ErrInvalidTransition.
func Decline(db *gorm.DB, em *events.Emitter, recordID uint, reason string) (*models.TriageRecord, error) {
	var record models.TriageRecord

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&record, "id = ?", recordID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("record not found: %w", gorm.ErrRecordNotFound)
			}
			return fmt.Errorf("load record: %w", err)
		}

		switch record.Status {
		case models.TriageOffered:
		case models.TriageAccepted:
			return fmt.Errorf("record %d is accepted: %w", recordID, ErrInvalidTransition)
		default:
			return fmt.Errorf("record %d is %s: %w", recordID, record.Status, ErrAlreadyResolved)
		}

		var session models.ChatSession
		if err := tx.First(&session, "id = ?", record.SessionID).Error; err != nil {
			return fmt.Errorf("load session %d: %w", record.SessionID, err)
		}

		now := time.Now()
		declinedAt := session.CurrentRiskLevel
		if declinedAt == "" {
			declinedAt = record.RiskLevel
		}
		result := tx.Model(&models.TriageRecord{}).
			Where("id = ? AND status = ?", recordID, models.TriageOffered).
			Updates(map[string]interface{}{
				"status":            models.TriageDeclined,
				"decline_reason":    reason,
				"declined_at_level": declinedAt,
				"decided_at":        now,
			})
		if result.Error != nil {
			return fmt.Errorf("decline update: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrAlreadyResolved
		}
		record.Status = models.TriageDeclined
		record.DeclineReason = reason
		record.DeclinedAtLevel = declinedAt
		record.DecidedAt = &now
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyResolved) || errors.Is(err, ErrInvalidTransition) {
			return nil, err
		}
		return nil, fmt.Errorf("triage: decline %d: %w", recordID, err)
	}

	em.Emit(events.Event{
		Type:      events.TriageDeclined,
		SessionID: record.SessionID,
		TriageID:  record.ID,
		RiskLevel: record.RiskLevel,
	})
	return &record, nil
}

// RequestEscalation handles an explicit user ask for a human. The offered
// wait is skipped: a pending offer is accepted in place; otherwise a new
// record is created already accepted — permitted even while the last record
// is declined (the changed-mind case). The escalation request is created in
// the same transaction.
func RequestEscalation(db *gorm.DB, em *events.Emitter, session *models.ChatSession, msg *models.ChatMessage, level risk.Level, emergency bool) (*models.TriageRecord, *models.EscalationRequest, error) {
	if !level.Valid() {
		level = risk.LevelModerate // an explicit ask is at least moderate
	}

	var (
		record models.TriageRecord
		req    *models.EscalationRequest
	)

	err := db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("session_id = ? AND status = ?", session.ID, models.TriageOffered).
			Order("created_at ASC").
			Limit(1).
			Find(&record)
		if result.Error != nil {
			return fmt.Errorf("load pending offer: %w", result.Error)
		}

		now := time.Now()
		if result.RowsAffected > 0 {
			updates := map[string]interface{}{
				"status":     models.TriageAccepted,
				"decided_at": now,
			}
			if emergency {
				updates["emergency"] = true
			}
			if err := tx.Model(&models.TriageRecord{}).
				Where("id = ?", record.ID).
				Updates(updates).Error; err != nil {
				return fmt.Errorf("accept pending offer: %w", err)
			}
			record.Status = models.TriageAccepted
			record.DecidedAt = &now
			record.Emergency = record.Emergency || emergency
		} else {
			record = models.TriageRecord{
				SessionID: session.ID,
				RiskLevel: level,
				Status:    models.TriageAccepted,
				Emergency: emergency,
				DecidedAt: &now,
			}
			if msg != nil {
				record.TriggerMessageID = &msg.ID
			}
			if err := tx.Create(&record).Error; err != nil {
				return fmt.Errorf("create accepted record: %w", err)
			}
		}

		var err error
		req, err = escalation.Create(tx, nil, &record)
		return err
	})
	if err != nil {
		if errors.Is(err, escalation.ErrSessionUnavailable) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("triage: request escalation for session %d: %w", session.ID, err)
	}

	em.Emit(events.Event{
		Type:        events.TriageAccepted,
		SessionID:   session.ID,
		SessionUUID: session.UUID,
		TriageID:    record.ID,
		RiskLevel:   record.RiskLevel,
	})
	em.Emit(events.Event{
		Type:         events.EscalationWaiting,
		SessionID:    session.ID,
		SessionUUID:  session.UUID,
		TriageID:     record.ID,
		EscalationID: req.ID,
		RiskLevel:    record.RiskLevel,
		Priority:     req.Priority,
		Emergency:    record.Emergency,
	})
	return &record, req, nil
}

// History returns a session's triage records oldest first — the answer to
// "how many times were you referred".
func History(db *gorm.DB, sessionID uint) ([]models.TriageRecord, error) {
	var records []models.TriageRecord
	if err := db.Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("triage: history of session %d: %w", sessionID, err)
	}
	return records, nil
}
