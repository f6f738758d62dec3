package repository

import (
	"context"

	"hoa-ledger-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) WithTx(tx *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: tx}
}

func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// ListByFee returns the fee's payments in the order they were recorded
func (r *PaymentRepository) ListByFee(ctx context.Context, feeID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("fee_id = ?", feeID).
		Order("created_at ASC").Order("id ASC").
		Find(&payments).Error
	return payments, err
}

// ListByFees returns payments for all given fees, grouped by fee id
func (r *PaymentRepository) ListByFees(ctx context.Context, feeIDs []uuid.UUID) (map[uuid.UUID][]models.Payment, error) {
	grouped := make(map[uuid.UUID][]models.Payment)
	if len(feeIDs) == 0 {
		return grouped, nil
	}
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("fee_id IN ?", feeIDs).
		Order("created_at ASC").Order("id ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	for _, p := range payments {
		grouped[p.FeeID] = append(grouped[p.FeeID], p)
	}
	return grouped, nil
}

// ListAllGrouped returns every payment grouped by fee id
func (r *PaymentRepository) ListAllGrouped(ctx context.Context) (map[uuid.UUID][]models.Payment, error) {
	var payments []models.Payment
	if err := r.db.WithContext(ctx).Order("created_at ASC").Order("id ASC").Find(&payments).Error; err != nil {
		return nil, err
	}
	grouped := make(map[uuid.UUID][]models.Payment)
	for _, p := range payments {
		grouped[p.FeeID] = append(grouped[p.FeeID], p)
	}
	return grouped, nil
}

// ListRecent returns the most recent payments by payment date
func (r *PaymentRepository) ListRecent(ctx context.Context, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).Order("date DESC").Order("id DESC").Limit(limit).Find(&payments).Error
	return payments, err
}
