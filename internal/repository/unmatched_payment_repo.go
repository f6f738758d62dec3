package repository

import (
	"context"
	"strings"
	"time"

	"hoa-ledger-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UnmatchedPaymentRepository struct {
	db *gorm.DB
}

func NewUnmatchedPaymentRepository(db *gorm.DB) *UnmatchedPaymentRepository {
	return &UnmatchedPaymentRepository{db: db}
}

func (r *UnmatchedPaymentRepository) WithTx(tx *gorm.DB) *UnmatchedPaymentRepository {
	return &UnmatchedPaymentRepository{db: tx}
}

// Insert stores the payment unless one with the same transaction key exists.
// It reports whether a row was written.
func (r *UnmatchedPaymentRepository) Insert(ctx context.Context, p *models.UnmatchedPayment) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "transaction_key"}}, DoNothing: true}).
		Create(p)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *UnmatchedPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.UnmatchedPayment, error) {
	var p models.UnmatchedPayment
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// Claim moves an unmatched payment to pending_confirmation. It reports false
// when the payment was not in the unmatched state.
func (r *UnmatchedPaymentRepository) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.UnmatchedPayment{}).
		Where("id = ? AND status = ?", id, models.UnmatchedStatusUnmatched).
		Update("status", models.UnmatchedStatusPendingConfirmation)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// MarkMatched finalises a claimed payment
func (r *UnmatchedPaymentRepository) MarkMatched(ctx context.Context, id, propertyID, feeID, paymentID uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.UnmatchedPayment{}).
		Where("id = ? AND status = ?", id, models.UnmatchedStatusPendingConfirmation).
		Updates(map[string]interface{}{
			"status":              models.UnmatchedStatusMatched,
			"matched_property_id": propertyID,
			"matched_fee_id":      feeID,
			"payment_id":          paymentID,
			"matched_at":          at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 1 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// likeEscaper makes operator input match literally inside a LIKE pattern
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// ListPending pages through unmatched payments ordered by id
func (r *UnmatchedPaymentRepository) ListPending(
	ctx context.Context,
	cursor string,
	limit int,
	search string,
) ([]models.UnmatchedPayment, string, bool, error) {

	var items []models.UnmatchedPayment
	query := r.db.WithContext(ctx).
		Where("status = ?", models.UnmatchedStatusUnmatched).
		Order("id ASC").
		Limit(limit + 1)

	if cursor != "" {
		query = query.Where("id > ?", cursor)
	}

	if search != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
		query = query.Where(`LOWER(description) LIKE ? ESCAPE '\' OR LOWER(reference) LIKE ? ESCAPE '\'`, like, like)
	}

	if err := query.Find(&items).Error; err != nil {
		return nil, "", false, err
	}

	hasMore := false
	var nextCursor string
	if len(items) > limit {
		hasMore = true
		nextCursor = items[limit-1].ID.String()
		items = items[:limit]
	}

	return items, nextCursor, hasMore, nil
}

type StatusStat struct {
	Status string
	Count  int64
	Sum    decimal.Decimal
}

// StatsByStatus returns counts and amount totals grouped by status
func (r *UnmatchedPaymentRepository) StatsByStatus(ctx context.Context) ([]StatusStat, error) {
	var rows []StatusStat
	err := r.db.WithContext(ctx).
		Model(&models.UnmatchedPayment{}).
		Select("status, COUNT(*) as count, COALESCE(SUM(amount),0) as sum").
		Group("status").
		Scan(&rows).Error
	return rows, err
}
