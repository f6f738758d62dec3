package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type UnmatchedPaymentStatus string

const (
	UnmatchedStatusUnmatched           UnmatchedPaymentStatus = "unmatched"
	UnmatchedStatusPendingConfirmation UnmatchedPaymentStatus = "pending_confirmation"
	UnmatchedStatusMatched             UnmatchedPaymentStatus = "matched"
)

// UnmatchedPayment is an incoming bank credit awaiting operator reconciliation.
type UnmatchedPayment struct {
	ID                uuid.UUID              `gorm:"type:uuid;primaryKey" json:"id"`
	ImportID          *uuid.UUID             `gorm:"type:uuid;index" json:"import_id,omitempty"`
	Date              time.Time              `gorm:"column:transaction_date;not null" json:"date"`
	Amount            decimal.Decimal        `gorm:"type:numeric(12,2);not null;index" json:"amount"`
	Description       string                 `gorm:"type:varchar(300)" json:"description"`
	Reference         string                 `gorm:"type:varchar(300)" json:"reference"`
	TransactionKey    string                 `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	Status            UnmatchedPaymentStatus `gorm:"type:varchar(32);not null;index" json:"status"`
	MatchedPropertyID *uuid.UUID             `gorm:"type:uuid" json:"matched_property_id,omitempty"`
	MatchedFeeID      *uuid.UUID             `gorm:"type:uuid" json:"matched_fee_id,omitempty"`
	PaymentID         *uuid.UUID             `gorm:"type:uuid" json:"payment_id,omitempty"`
	Raw               datatypes.JSON         `json:"raw,omitempty"`
	MatchedAt         *time.Time             `json:"matched_at,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
}
