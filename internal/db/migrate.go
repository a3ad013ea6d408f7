package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/foryou-care/foryou/internal/models"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.ChatSession{},
		&models.ChatMessage{},
		&models.TriageRecord{},
		&models.EscalationRequest{},
		&models.DirectMessage{},
		&models.Volunteer{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
