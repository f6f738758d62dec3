package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeeType classifies why a fee was raised.
type FeeType string

const (
	FeeTypeBillingPeriod  FeeType = "billing_period"
	FeeTypeOpeningBalance FeeType = "opening_balance"
	FeeTypeAdHoc          FeeType = "ad_hoc"
)

func (t FeeType) IsValid() bool {
	switch t {
	case FeeTypeBillingPeriod, FeeTypeOpeningBalance, FeeTypeAdHoc:
		return true
	}
	return false
}

// BillingPeriod is a uniform per-unit charge over a date range. FeeType is
// stamped onto every fee generated from it.
type BillingPeriod struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string          `gorm:"type:varchar(50);not null" json:"name"`
	Description string          `gorm:"type:varchar(200)" json:"description"`
	FeeType     FeeType         `gorm:"type:varchar(32);not null;default:billing_period" json:"fee_type"`
	StartDate   time.Time       `gorm:"not null" json:"start_date"`
	EndDate     time.Time       `gorm:"not null" json:"end_date"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
	UnitAmount  decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_amount"`
	CreatedAt   time.Time       `json:"created_at"`
}
