package models

import "time"

// Volunteer is a trained human responder who can claim escalation requests.
type Volunteer struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	DisplayName string `gorm:"size:100;not null"`
	Active      bool   `gorm:"default:true;index"`

	// MaxConcurrent caps simultaneously active escalations; 0 means the
	// default of one at a time.
	MaxConcurrent int    `gorm:"default:1"`
	Specialties   string `gorm:"size:200"`

	CreatedAt    time.Time
	LastActiveAt *time.Time
}
