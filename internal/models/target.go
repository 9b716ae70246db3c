// internal/models/target.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Target is an admin-set goal for a user over a period. Performance is a
// read-side projection, never stored.
type Target struct {
	BaseModel
	UserID      uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	TargetType  TargetType `json:"target_type" gorm:"type:varchar(20);not null"`
	TargetValue float64    `json:"target_value" gorm:"type:decimal(14,2);not null"`
	PeriodStart time.Time  `json:"period_start" gorm:"not null"`
	PeriodEnd   time.Time  `json:"period_end" gorm:"not null"`
	IsActive    bool       `json:"is_active" gorm:"not null;default:true;index"`
	CreatedBy   uuid.UUID  `json:"created_by" gorm:"type:uuid;not null"`
}
