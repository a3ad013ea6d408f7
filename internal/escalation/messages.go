package escalation

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/foryou-care/foryou/internal/models"
)

// Send appends a line to the 1:1 volunteer-client conversation on an
// active escalation. Only the bound volunteer and the owning client may
// write, and only while the request is active.
func Send(db *gorm.DB, escalationID, senderID uint, role models.MessageRole, content string) (*models.DirectMessage, error) {
	if content == "" {
		return nil, fmt.Errorf("escalation: message content is required")
	}
	if role != models.RoleVolunteer && role != models.RoleUser {
		return nil, fmt.Errorf("escalation: role %q cannot send direct messages", role)
	}

	var msg models.DirectMessage
	err := db.Transaction(func(tx *gorm.DB) error {
		var req models.EscalationRequest
		if err := tx.First(&req, "id = ?", escalationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("request not found: %w", gorm.ErrRecordNotFound)
			}
			return fmt.Errorf("load request: %w", err)
		}
		if req.Status != models.EscalationActive {
			return fmt.Errorf("request %d is %s: %w", escalationID, req.Status, ErrAlreadyResolved)
		}

		switch role {
		case models.RoleVolunteer:
			if req.VolunteerID == nil || *req.VolunteerID != senderID {
				return fmt.Errorf("volunteer %d is not bound to request %d", senderID, escalationID)
			}
		case models.RoleUser:
			if req.UserID != senderID {
				return fmt.Errorf("user %d does not own request %d", senderID, escalationID)
			}
		}

		msg = models.DirectMessage{
			EscalationID: escalationID,
			SenderID:     senderID,
			Role:         role,
			Content:      content,
			CreatedAt:    time.Now(),
		}
		if err := tx.Create(&msg).Error; err != nil {
			return fmt.Errorf("create message: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyResolved) {
			return nil, err
		}
		return nil, fmt.Errorf("escalation: send on %d: %w", escalationID, err)
	}
	return &msg, nil
}

// History returns the 1:1 conversation in chronological order.
func History(db *gorm.DB, escalationID uint) ([]models.DirectMessage, error) {
	var msgs []models.DirectMessage
	if err := db.Where("escalation_id = ?", escalationID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("escalation: history of %d: %w", escalationID, err)
	}
	return msgs, nil
}
