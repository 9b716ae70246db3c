// internal/models/violation.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// ViolationRecord accumulates infractions per user. IsBlocked is stored but
// always kept equal to ViolationCount >= the configured block threshold.
type ViolationRecord struct {
	BaseModel
	UserID         uuid.UUID  `json:"user_id" gorm:"type:uuid;uniqueIndex;not null"`
	ViolationCount int        `json:"violation_count" gorm:"not null;default:0"`
	IsBlocked      bool       `json:"is_blocked" gorm:"not null;default:false;index"`
	BlockingReason string     `json:"blocking_reason" gorm:"type:text"`
	BlockedAt      *time.Time `json:"blocked_at"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// ViolationLog is the append-only trail behind a ViolationRecord. Unlock
// actions are logged here too, carrying the MasterAdmin's unlock reason.
type ViolationLog struct {
	BaseModel
	UserID                  uuid.UUID     `json:"user_id" gorm:"type:uuid;not null;index"`
	ViolationType           ViolationType `json:"violation_type" gorm:"type:varchar(40);not null"`
	Message                 string        `json:"message" gorm:"type:text"`
	ActiveStockCount        int           `json:"active_stock_count"`
	AttemptedPickupQuantity int           `json:"attempted_pickup_quantity"`
	PerformedBy             *uuid.UUID    `json:"performed_by" gorm:"type:uuid"`
	Metadata                JSONB         `json:"metadata" gorm:"type:jsonb"`
}
