package repository

import (
	"context"

	"hoa-ledger-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FeeRepository struct {
	db *gorm.DB
}

func NewFeeRepository(db *gorm.DB) *FeeRepository {
	return &FeeRepository{db: db}
}

func (r *FeeRepository) WithTx(tx *gorm.DB) *FeeRepository {
	return &FeeRepository{db: tx}
}

func (r *FeeRepository) Create(ctx context.Context, fee *models.Fee) error {
	return r.db.WithContext(ctx).Create(fee).Error
}

// CreateBatch inserts all fees in one statement batch
func (r *FeeRepository) CreateBatch(ctx context.Context, fees []models.Fee) error {
	if len(fees) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(fees, 200).Error
}

// GetByID fetch a single fee by ID
func (r *FeeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Fee, error) {
	var fee models.Fee
	if err := r.db.WithContext(ctx).First(&fee, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &fee, nil
}

// GetByIDForUpdate reads the fee with a row lock held until the transaction ends.
// Must be called on a transaction-bound repository.
func (r *FeeRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Fee, error) {
	var fee models.Fee
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&fee, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &fee, nil
}

func (r *FeeRepository) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]models.Fee, error) {
	var fees []models.Fee
	err := r.db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Order("created_at ASC").Order("id ASC").
		Find(&fees).Error
	return fees, err
}

func (r *FeeRepository) ListByPeriod(ctx context.Context, periodID uuid.UUID) ([]models.Fee, error) {
	var fees []models.Fee
	err := r.db.WithContext(ctx).
		Where("billing_period_id = ?", periodID).
		Order("created_at ASC").Order("id ASC").
		Find(&fees).Error
	return fees, err
}

func (r *FeeRepository) ListAll(ctx context.Context) ([]models.Fee, error) {
	var fees []models.Fee
	err := r.db.WithContext(ctx).Order("created_at ASC").Order("id ASC").Find(&fees).Error
	return fees, err
}

// ListRecent returns the newest fees first
func (r *FeeRepository) ListRecent(ctx context.Context, limit int) ([]models.Fee, error) {
	var fees []models.Fee
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit).Find(&fees).Error
	return fees, err
}

// PropertiesWithPeriodFee returns which of propertyIDs already carry a fee for the period
func (r *FeeRepository) PropertiesWithPeriodFee(ctx context.Context, periodID uuid.UUID, propertyIDs []uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if len(propertyIDs) == 0 {
		return ids, nil
	}
	err := r.db.WithContext(ctx).
		Model(&models.Fee{}).
		Where("billing_period_id = ? AND property_id IN ?", periodID, propertyIDs).
		Pluck("property_id", &ids).Error
	return ids, err
}
