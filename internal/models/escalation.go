package models

import "time"

// EscalationStatus is the lifecycle state of a queued hand-off request.
type EscalationStatus string

const (
	EscalationWaiting   EscalationStatus = "waiting"
	EscalationActive    EscalationStatus = "active"
	EscalationCompleted EscalationStatus = "completed"
)

// Priority orders waiting escalation requests. Within a tier the queue is
// strict FIFO by creation time.
type Priority string

const (
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank returns the queue ordering rank for the priority (lower serves first).
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	default:
		return 2
	}
}

// EscalationRequest is a queued request for human handling, derived from an
// accepted TriageRecord. It is created in waiting, claimed by exactly one
// volunteer (waiting → active), and completed when the 1:1 interaction ends.
type EscalationRequest struct {
	ID uint `gorm:"primaryKey;autoIncrement"`

	// TriageRecordID is unique: exactly one request per accepted record.
	TriageRecordID uint `gorm:"uniqueIndex;not null"`
	SessionID      uint `gorm:"not null;index"`
	UserID         uint `gorm:"not null;index"`

	Priority    Priority         `gorm:"size:16;default:normal;index"`
	Status      EscalationStatus `gorm:"size:16;default:waiting;index"`
	VolunteerID *uint            `gorm:"index"`

	CreatedAt   time.Time `gorm:"index"`
	ClaimedAt   *time.Time
	CompletedAt *time.Time

	Messages []DirectMessage `gorm:"foreignKey:EscalationID;constraint:OnDelete:CASCADE"`
}

// DirectMessage is a single line in the 1:1 volunteer-client conversation
// attached to an active escalation.
type DirectMessage struct {
	ID           uint        `gorm:"primaryKey;autoIncrement"`
	EscalationID uint        `gorm:"not null;index"`
	SenderID     uint        `gorm:"not null"`
	Role         MessageRole `gorm:"size:16;not null"` // volunteer or user
	Content      string      `gorm:"type:text;not null"`
	CreatedAt    time.Time   `gorm:"index"`
}
