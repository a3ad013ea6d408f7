package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/foryou-care/foryou/internal/risk"
)

// SessionStatus is the lifecycle state of a support chat session.
type SessionStatus string

const (
	SessionActive      SessionStatus = "active"
	SessionCompleted   SessionStatus = "completed"
	SessionAbandoned   SessionStatus = "abandoned"
	SessionTransferred SessionStatus = "transferred" // handed off to a volunteer
)

// MessageRole identifies the author of a chat message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAI        MessageRole = "ai"
	RoleVolunteer MessageRole = "volunteer"
	RoleSystem    MessageRole = "system"
)

// ChatSession is one continuous support conversation between a client and
// the AI/volunteer system.
type ChatSession struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	UUID        string `gorm:"size:36;uniqueIndex;not null"`
	UserID      uint   `gorm:"not null;index"`
	VolunteerID *uint
	Title       string        `gorm:"size:200"`
	Status      SessionStatus `gorm:"size:16;default:active;index"`

	// Risk tracking. InitialRiskLevel is set on the first classified
	// message and never changes; CurrentRiskLevel follows the aggregation
	// rule (de-escalation from critical clamps to high).
	InitialRiskLevel risk.Level `gorm:"size:20"`
	CurrentRiskLevel risk.Level `gorm:"size:20;index"`

	MessageCount    int `gorm:"default:0"`
	DurationMinutes *int
	UserRating      *int
	VolunteerNotes  string `gorm:"type:text"`

	StartedAt    time.Time `gorm:"not null"`
	LastActivity time.Time `gorm:"index"`
	EndedAt      *time.Time

	IsAnonymized bool `gorm:"default:false"`
	AnonymizedAt *time.Time

	Messages      []ChatMessage  `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
	TriageRecords []TriageRecord `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate fills in the public UUID and start timestamps.
func (s *ChatSession) BeforeCreate(tx *gorm.DB) error {
	if s.UUID == "" {
		s.UUID = uuid.NewString()
	}
	now := time.Now()
	if s.StartedAt.IsZero() {
		s.StartedAt = now
	}
	if s.LastActivity.IsZero() {
		s.LastActivity = now
	}
	return nil
}

// IsOpen reports whether the session still accepts messages and transitions.
func (s *ChatSession) IsOpen() bool {
	return s.Status == SessionActive
}

// ChatMessage is a single line in a chat session's conversation.
type ChatMessage struct {
	ID        uint        `gorm:"primaryKey;autoIncrement"`
	SessionID uint        `gorm:"not null;index"`
	Seq       int         `gorm:"not null"` // insertion-order tiebreak within a session
	SenderID  *uint       // nil for AI and system messages
	Role      MessageRole `gorm:"size:16;not null"`
	Content   string      `gorm:"type:text;not null"`

	// Per-message classification result. RiskWarning marks messages whose
	// classification failed and defaulted to low.
	RiskTag     risk.Level `gorm:"size:20"`
	RiskWarning bool       `gorm:"default:false"`

	AIModelUsed      string `gorm:"size:100"`
	AIConfidence     *float64
	ProcessingTimeMs *int

	CreatedAt    time.Time `gorm:"index"`
	IsAnonymized bool      `gorm:"default:false"`
	AnonymizedAt *time.Time
}
