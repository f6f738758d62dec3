package models

import (
	"time"

	"github.com/google/uuid"
)

type StatementImport struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Filename       string     `json:"filename"`
	TotalRows      int        `json:"total_rows"`
	ImportedCount  int        `json:"imported"`
	DuplicateCount int        `json:"duplicates"`
	SkippedCount   int        `json:"skipped"`
	Status         string     `json:"status"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
