package repository

import (
	"context"

	"hoa-ledger-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StatementImportRepository struct {
	db *gorm.DB
}

func NewStatementImportRepository(db *gorm.DB) *StatementImportRepository {
	return &StatementImportRepository{db: db}
}

func (r *StatementImportRepository) WithTx(tx *gorm.DB) *StatementImportRepository {
	return &StatementImportRepository{db: tx}
}

func (r *StatementImportRepository) Create(ctx context.Context, imp *models.StatementImport) error {
	return r.db.WithContext(ctx).Create(imp).Error
}

func (r *StatementImportRepository) Save(ctx context.Context, imp *models.StatementImport) error {
	return r.db.WithContext(ctx).Save(imp).Error
}

func (r *StatementImportRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.StatementImport, error) {
	var imp models.StatementImport
	if err := r.db.WithContext(ctx).First(&imp, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &imp, nil
}
