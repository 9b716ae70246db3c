// internal/models/product.go
package models

import "github.com/google/uuid"

// Product is a phone model held in a dealer's inventory. QuantityAvailable
// is only ever changed through guarded conditional updates so concurrent
// pickups cannot oversell a device.
type Product struct {
	BaseModel
	DealerID          uuid.UUID `json:"dealer_id" gorm:"type:uuid;not null;index"`
	DeviceName        string    `json:"device_name" gorm:"size:100;not null"`
	DeviceModel       string    `json:"device_model" gorm:"size:100;not null"`
	DeviceType        string    `json:"device_type" gorm:"size:50"`
	CostPrice         float64   `json:"cost_price" gorm:"type:decimal(12,2);not null"`
	SellingPrice      float64   `json:"selling_price" gorm:"type:decimal(12,2);not null"`
	QuantityAvailable int       `json:"quantity_available" gorm:"not null;default:0"`

	// Relationships
	Dealer User `json:"dealer,omitempty" gorm:"foreignKey:DealerID"`
}
