package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hoa-ledger-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewBillingPeriod is the input for CreateBillingPeriod.
type NewBillingPeriod struct {
	Name        string
	Description string
	FeeType     models.FeeType
	StartDate   time.Time
	EndDate     time.Time
	DueDate     *time.Time
	UnitAmount  decimal.Decimal
}

func validatePeriod(p *models.BillingPeriod) error {
	if strings.TrimSpace(p.Name) == "" {
		return Errorf(ErrInvalidPeriod, "billing period name is required")
	}
	if !p.FeeType.IsValid() {
		return Errorf(ErrInvalidPeriod, "unknown fee type %q", p.FeeType)
	}
	if p.StartDate.After(p.EndDate) {
		return Errorf(ErrInvalidPeriod, "start date %s is after end date %s",
			p.StartDate.Format("2006-01-02"), p.EndDate.Format("2006-01-02"))
	}
	if p.UnitAmount.IsNegative() {
		return Errorf(ErrInvalidPeriod, "per-unit amount %s is negative", p.UnitAmount.String())
	}
	if !p.UnitAmount.Equal(p.UnitAmount.Round(2)) {
		return Errorf(ErrInvalidPeriod, "per-unit amount %s has more than two decimal places", p.UnitAmount.String())
	}
	return nil
}

// CreateBillingPeriod validates and stores a period definition.
func (s *Service) CreateBillingPeriod(ctx context.Context, in NewBillingPeriod) (*models.BillingPeriod, error) {
	feeType := in.FeeType
	if feeType == "" {
		feeType = models.FeeTypeBillingPeriod
	}
	period := &models.BillingPeriod{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		FeeType:     feeType,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		DueDate:     in.DueDate,
		UnitAmount:  in.UnitAmount,
		CreatedAt:   s.now(),
	}
	if err := validatePeriod(period); err != nil {
		return nil, err
	}
	if err := s.periods.Create(ctx, period); err != nil {
		return nil, StorageFailure("create billing period", err)
	}

	s.log.Info("billing period created",
		zap.String("period_id", period.ID.String()),
		zap.String("name", period.Name),
		zap.String("unit_amount", period.UnitAmount.StringFixed(2)))
	return period, nil
}

// GenerateFees raises one fee per target property for the period, all or
// nothing. An empty target list means every property and is only allowed for
// billing_period periods. Any existing fee for a (property, period) pair
// fails the whole run with DuplicateGeneration and leaves the store as it was.
func (s *Service) GenerateFees(ctx context.Context, periodID uuid.UUID, targets []uuid.UUID) ([]models.Fee, error) {
	unlock := s.locks.Lock("period:" + periodID.String())
	defer unlock()

	var fees []models.Fee
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		periods := s.periods.WithTx(tx)
		properties := s.properties.WithTx(tx)
		feeRepo := s.fees.WithTx(tx)

		period, err := periods.GetByID(ctx, periodID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Errorf(ErrBillingPeriodNotFound, "billing period %s not found", periodID)
		}
		if err != nil {
			return StorageFailure("load billing period", err)
		}
		if err := validatePeriod(period); err != nil {
			return err
		}

		props, err := resolveTargets(ctx, properties, period, targets)
		if err != nil {
			return err
		}

		ids := make([]uuid.UUID, len(props))
		for i, p := range props {
			ids[i] = p.ID
		}
		existing, err := feeRepo.PropertiesWithPeriodFee(ctx, period.ID, ids)
		if err != nil {
			return StorageFailure("check existing fees", err)
		}
		if len(existing) > 0 {
			return Errorf(ErrDuplicateGeneration,
				"billing period %q already has fees for %d of %d target properties", period.Name, len(existing), len(ids))
		}

		createdAt := s.now()
		fees = make([]models.Fee, 0, len(props))
		for _, p := range props {
			pid := period.ID
			fees = append(fees, models.Fee{
				ID:              uuid.New(),
				PropertyID:      p.ID,
				BillingPeriodID: &pid,
				FeeType:         period.FeeType,
				Amount:          period.UnitAmount,
				Description:     feeDescription(period),
				DueDate:         period.DueDate,
				CreatedAt:       createdAt,
			})
		}

		if err := feeRepo.CreateBatch(ctx, fees); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return Errorf(ErrDuplicateGeneration, "billing period %q already has fees", period.Name)
			}
			return StorageFailure("create fees", err)
		}
		return nil
	})
	if err != nil {
		return nil, StorageFailure("generate fees", err)
	}

	SortFees(fees)
	s.log.Info("fees generated",
		zap.String("period_id", periodID.String()),
		zap.Int("count", len(fees)))
	return fees, nil
}

type propertyFinder interface {
	List(ctx context.Context) ([]models.Property, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Property, error)
}

func resolveTargets(ctx context.Context, repo propertyFinder, period *models.BillingPeriod, targets []uuid.UUID) ([]models.Property, error) {
	if len(targets) == 0 {
		if period.FeeType != models.FeeTypeBillingPeriod {
			return nil, Errorf(ErrInvalidInput, "%s fees need an explicit set of target properties", period.FeeType)
		}
		props, err := repo.List(ctx)
		if err != nil {
			return nil, StorageFailure("list properties", err)
		}
		return props, nil
	}

	seen := make(map[uuid.UUID]bool, len(targets))
	unique := make([]uuid.UUID, 0, len(targets))
	for _, id := range targets {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	props, err := repo.FindByIDs(ctx, unique)
	if err != nil {
		return nil, StorageFailure("load target properties", err)
	}
	if len(props) != len(unique) {
		found := make(map[uuid.UUID]bool, len(props))
		for _, p := range props {
			found[p.ID] = true
		}
		var missing []string
		for _, id := range unique {
			if !found[id] {
				missing = append(missing, id.String())
			}
		}
		return nil, Errorf(ErrPropertyNotFound, "unknown properties: %s", strings.Join(missing, ", "))
	}
	return props, nil
}

func feeDescription(p *models.BillingPeriod) string {
	switch p.FeeType {
	case models.FeeTypeOpeningBalance:
		return fmt.Sprintf("Opening balance for %s", p.Name)
	case models.FeeTypeAdHoc:
		return fmt.Sprintf("Levy for %s", p.Name)
	default:
		return fmt.Sprintf("Strata fee for %s", p.Name)
	}
}
