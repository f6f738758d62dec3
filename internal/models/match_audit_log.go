package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MatchAuditLog records every operator decision on an unmatched payment.
type MatchAuditLog struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UnmatchedPaymentID uuid.UUID      `gorm:"type:uuid;index" json:"unmatched_payment_id"`
	Action             string         `gorm:"type:varchar(32)" json:"action"`
	PropertyID         uuid.UUID      `gorm:"type:uuid" json:"property_id"`
	FeeID              *uuid.UUID     `gorm:"type:uuid" json:"fee_id,omitempty"`
	PaymentID          *uuid.UUID     `gorm:"type:uuid" json:"payment_id,omitempty"`
	PerformedBy        string         `json:"performed_by,omitempty"`
	Details            datatypes.JSON `json:"details"`
	CreatedAt          time.Time      `json:"created_at"`
}
