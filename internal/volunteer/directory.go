// Package volunteer provides the volunteer directory consulted on claims.
package volunteer

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/foryou-care/foryou/internal/models"
)

// Directory answers whether a volunteer may claim an escalation request.
// Availability and capacity policy lives behind this interface.
type Directory interface {
	IsEligible(db *gorm.DB, volunteerID uint) (bool, error)
}

// DBDirectory is the database-backed Directory: a volunteer is eligible when
// registered, active, and below their concurrent-escalation cap.
type DBDirectory struct{}

// IsEligible implements Directory.
func (DBDirectory) IsEligible(db *gorm.DB, volunteerID uint) (bool, error) {
	var v models.Volunteer
	if err := db.First(&v, "id = ?", volunteerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("volunteer: lookup %d: %w", volunteerID, err)
	}
	if !v.Active {
		return false, nil
	}

	limit := v.MaxConcurrent
	if limit <= 0 {
		limit = 1
	}

	var active int64
	if err := db.Model(&models.EscalationRequest{}).
		Where("volunteer_id = ? AND status = ?", volunteerID, models.EscalationActive).
		Count(&active).Error; err != nil {
		return false, fmt.Errorf("volunteer: count active escalations for %d: %w", volunteerID, err)
	}
	return active < int64(limit), nil
}

// AllowAll is a Directory that accepts every volunteer, for tests and
// single-operator deployments.
type AllowAll struct{}

// IsEligible implements Directory.
func (AllowAll) IsEligible(*gorm.DB, uint) (bool, error) { return true, nil }
