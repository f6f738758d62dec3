package repository

import (
	"context"

	"hoa-ledger-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MatchAuditLogRepository struct {
	db *gorm.DB
}

func NewMatchAuditLogRepository(db *gorm.DB) *MatchAuditLogRepository {
	return &MatchAuditLogRepository{db: db}
}

func (r *MatchAuditLogRepository) WithTx(tx *gorm.DB) *MatchAuditLogRepository {
	return &MatchAuditLogRepository{db: tx}
}

func (r *MatchAuditLogRepository) Create(ctx context.Context, entry *models.MatchAuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *MatchAuditLogRepository) ListByUnmatchedPayment(ctx context.Context, id uuid.UUID) ([]models.MatchAuditLog, error) {
	var entries []models.MatchAuditLog
	err := r.db.WithContext(ctx).
		Where("unmatched_payment_id = ?", id).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}
