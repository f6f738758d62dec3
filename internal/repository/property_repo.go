package repository

import (
	"context"

	"hoa-ledger-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PropertyRepository struct {
	db *gorm.DB
}

func NewPropertyRepository(db *gorm.DB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

// WithTx binds the repository to a running transaction
func (r *PropertyRepository) WithTx(tx *gorm.DB) *PropertyRepository {
	return &PropertyRepository{db: tx}
}

func (r *PropertyRepository) Create(ctx context.Context, p *models.Property) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PropertyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	var p models.Property
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns every property ordered by unit number
func (r *PropertyRepository) List(ctx context.Context) ([]models.Property, error) {
	var props []models.Property
	err := r.db.WithContext(ctx).Order("unit_number ASC").Find(&props).Error
	return props, err
}

// FindByIDs returns the properties among ids that exist
func (r *PropertyRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Property, error) {
	var props []models.Property
	if len(ids) == 0 {
		return props, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&props).Error
	return props, err
}
