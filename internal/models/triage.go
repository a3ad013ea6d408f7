package models

import (
	"time"

	"github.com/foryou-care/foryou/internal/risk"
)

// TriageStatus is the lifecycle state of one triage offer-and-decision
// episode. A record in offered awaits a user decision; declined and
// completed records are immutable history.
type TriageStatus string

const (
	TriageOffered   TriageStatus = "offered"
	TriageAccepted  TriageStatus = "accepted"
	TriageDeclined  TriageStatus = "declined"
	TriageCompleted TriageStatus = "completed"
)

// Pending reports whether the record still awaits a user decision.
func (s TriageStatus) Pending() bool {
	return s == TriageOffered
}

// Terminal reports whether the record can no longer change.
func (s TriageStatus) Terminal() bool {
	return s == TriageDeclined || s == TriageCompleted
}

// TriageRecord is one episode of elevated risk within a session: the offer
// to hand the client to a human volunteer and the user's decision. Records
// are never deleted; a session accumulates them over its life.
type TriageRecord struct {
	ID        uint `gorm:"primaryKey;autoIncrement"`
	SessionID uint `gorm:"not null;index"`

	RiskLevel risk.Level   `gorm:"size:20;not null"`
	Status    TriageStatus `gorm:"size:16;default:offered;index"`

	// TriggerMessageID references the chat message whose classification
	// created this record. Guards against double-offers from the same
	// message.
	TriggerMessageID *uint `gorm:"index"`

	// Emergency marks explicit immediate-danger phrasing on the trigger;
	// it forces critical priority on the resulting escalation.
	Emergency bool `gorm:"default:false"`

	// Decline bookkeeping. DeclinedAtLevel records the session risk level
	// at decline time; a later auto-offer requires a strictly higher level.
	DeclineReason   string     `gorm:"type:text"`
	DeclinedAtLevel risk.Level `gorm:"size:20"`

	CreatedAt time.Time `gorm:"index"`
	DecidedAt *time.Time

	IsAnonymized bool `gorm:"default:false"`
	AnonymizedAt *time.Time
}
