package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is an immutable amount applied against one fee.
type Payment struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	FeeID              uuid.UUID       `gorm:"type:uuid;not null;index" json:"fee_id"`
	Amount             decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Date               time.Time       `gorm:"not null" json:"date"`
	Reference          string          `gorm:"type:varchar(300)" json:"reference,omitempty"`
	UnmatchedPaymentID *uuid.UUID      `gorm:"type:uuid;uniqueIndex" json:"unmatched_payment_id,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}
