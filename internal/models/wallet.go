// internal/models/wallet.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type Wallet struct {
	BaseModel
	UserID           uuid.UUID `json:"user_id" gorm:"type:uuid;uniqueIndex;not null"`
	AvailableBalance float64   `json:"available_balance" gorm:"type:decimal(14,2);not null;default:0"`
	WithheldBalance  float64   `json:"withheld_balance" gorm:"type:decimal(14,2);not null;default:0"`
}

type WalletTransaction struct {
	BaseModel
	WalletID         uuid.UUID             `json:"wallet_id" gorm:"type:uuid;not null;index"`
	Type             WalletTransactionType `json:"type" gorm:"type:varchar(20);not null"`
	Amount           float64               `json:"amount" gorm:"type:decimal(14,2);not null"`
	Reference        string                `json:"reference" gorm:"size:100"`
	PaymentReference string                `json:"payment_reference" gorm:"size:100"`
	ProcessedAt      *time.Time            `json:"processed_at"`
	Metadata         JSONB                 `json:"metadata" gorm:"type:jsonb"`
}
