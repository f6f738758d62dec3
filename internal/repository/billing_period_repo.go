package repository

import (
	"context"

	"hoa-ledger-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BillingPeriodRepository struct {
	db *gorm.DB
}

func NewBillingPeriodRepository(db *gorm.DB) *BillingPeriodRepository {
	return &BillingPeriodRepository{db: db}
}

func (r *BillingPeriodRepository) WithTx(tx *gorm.DB) *BillingPeriodRepository {
	return &BillingPeriodRepository{db: tx}
}

func (r *BillingPeriodRepository) Create(ctx context.Context, p *models.BillingPeriod) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *BillingPeriodRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BillingPeriod, error) {
	var p models.BillingPeriod
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns periods newest first, as the fees page shows them
func (r *BillingPeriodRepository) List(ctx context.Context) ([]models.BillingPeriod, error) {
	var periods []models.BillingPeriod
	err := r.db.WithContext(ctx).Order("start_date DESC").Find(&periods).Error
	return periods, err
}
