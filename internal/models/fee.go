package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Fee is a single charge owed by one property. Amount is fixed at creation;
// the fee only accretes payments afterwards.
type Fee struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	PropertyID      uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_fee_property_period,priority:1" json:"property_id"`
	BillingPeriodID *uuid.UUID      `gorm:"type:uuid;index;uniqueIndex:idx_fee_property_period,priority:2" json:"billing_period_id,omitempty"`
	FeeType         FeeType         `gorm:"type:varchar(32);not null;index" json:"fee_type"`
	Amount          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Description     string          `gorm:"type:varchar(200)" json:"description"`
	DueDate         *time.Time      `json:"due_date,omitempty"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
}
