// internal/models/stock.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// StockPickup is a single line of stock a marketer has taken from a dealer.
// Terminal rows (sold, returned, transferred, expired) are never deleted.
type StockPickup struct {
	BaseModel
	MarketerID uuid.UUID    `json:"marketer_id" gorm:"type:uuid;not null;index"`
	DealerID   uuid.UUID    `json:"dealer_id" gorm:"type:uuid;not null;index"`
	ProductID  uuid.UUID    `json:"product_id" gorm:"type:uuid;not null;index"`
	Quantity   int          `json:"quantity" gorm:"not null;default:1"`
	PickupDate time.Time    `json:"pickup_date" gorm:"not null"`
	Deadline   time.Time    `json:"deadline" gorm:"not null;index"`
	Status     PickupStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`

	SoldAt              *time.Time `json:"sold_at"`
	ReturnRequestedAt   *time.Time `json:"return_requested_at"`
	ReturnedAt          *time.Time `json:"returned_at"`
	TransferTargetID    *uuid.UUID `json:"transfer_target_id" gorm:"type:uuid"`
	TransferRequestedAt *time.Time `json:"transfer_requested_at"`
	TransferredAt       *time.Time `json:"transferred_at"`

	// ExpiredAt doubles as the idempotency guard for violation counting:
	// it is set exactly once by a conditional update.
	ExpiredAt *time.Time `json:"expired_at"`

	// Relationships
	Marketer       User    `json:"marketer,omitempty" gorm:"foreignKey:MarketerID"`
	Dealer         User    `json:"dealer,omitempty" gorm:"foreignKey:DealerID"`
	Product        Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	TransferTarget *User   `json:"transfer_target,omitempty" gorm:"foreignKey:TransferTargetID"`
}

// PickupAllowance caps how many open stock lines a marketer may hold.
// The default allowance is 1; a MasterAdmin-approved request raises it to 3.
type PickupAllowance struct {
	BaseModel
	MarketerID           uuid.UUID               `json:"marketer_id" gorm:"type:uuid;uniqueIndex;not null"`
	Allowance            int                     `json:"allowance" gorm:"not null;default:1"`
	RequestStatus        *AllowanceRequestStatus `json:"request_status" gorm:"type:varchar(20)"`
	RequestedAt          *time.Time              `json:"requested_at"`
	ResolvedAt           *time.Time              `json:"resolved_at"`
	ResolvedBy           *uuid.UUID              `json:"resolved_by" gorm:"type:uuid"`
	NextRequestAllowedAt *time.Time              `json:"next_request_allowed_at"`
}
