package models

import (
	"time"

	"github.com/google/uuid"
)

type Property struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UnitNumber string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"unit_number"`
	OwnerName  string    `gorm:"type:varchar(120)" json:"owner_name"`
	CreatedAt  time.Time `json:"created_at"`
}
