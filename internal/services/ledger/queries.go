package ledger

import (
	"context"
	"errors"
	"strings"

	"hoa-ledger-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PropertySummary is one row of the dashboard property table.
type PropertySummary struct {
	Property      models.Property
	Balance       decimal.Decimal
	UnpaidFees    decimal.Decimal
	TotalPayments decimal.Decimal
}

// PeriodFee is a fee of a billing period with its owning property.
type PeriodFee struct {
	FeeView
	Property models.Property
}

// Dashboard aggregates ledger-wide totals.
type Dashboard struct {
	PropertyCount    int
	TotalCharged     decimal.Decimal
	TotalPaid        decimal.Decimal
	TotalOutstanding decimal.Decimal
	FeesByStatus     map[Status]int
	RecentPayments   []models.Payment
	RecentFees       []models.Fee
}

const recentLimit = 5

// CreateProperty registers a unit. Properties are normally maintained by
// the owners register; this is the minimal write path for it.
func (s *Service) CreateProperty(ctx context.Context, unitNumber, ownerName string) (*models.Property, error) {
	unitNumber = strings.TrimSpace(unitNumber)
	if unitNumber == "" {
		return nil, Errorf(ErrInvalidInput, "unit number is required")
	}
	p := &models.Property{
		ID:         uuid.New(),
		UnitNumber: unitNumber,
		OwnerName:  strings.TrimSpace(ownerName),
		CreatedAt:  s.now(),
	}
	if err := s.properties.Create(ctx, p); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, Errorf(ErrInvalidInput, "unit %s already exists", unitNumber)
		}
		return nil, StorageFailure("create property", err)
	}
	return p, nil
}

func (s *Service) ListProperties(ctx context.Context) ([]models.Property, error) {
	props, err := s.properties.List(ctx)
	if err != nil {
		return nil, StorageFailure("list properties", err)
	}
	return props, nil
}

func (s *Service) GetProperty(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	p, err := s.properties.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, Errorf(ErrPropertyNotFound, "property %s not found", id)
	}
	if err != nil {
		return nil, StorageFailure("load property", err)
	}
	return p, nil
}

func (s *Service) ListBillingPeriods(ctx context.Context) ([]models.BillingPeriod, error) {
	periods, err := s.periods.List(ctx)
	if err != nil {
		return nil, StorageFailure("list billing periods", err)
	}
	return periods, nil
}

// PropertiesSummary returns balance figures for every property. Balance and
// UnpaidFees are the same figure: the remainder over all fee types.
func (s *Service) PropertiesSummary(ctx context.Context) ([]PropertySummary, error) {
	props, err := s.properties.List(ctx)
	if err != nil {
		return nil, StorageFailure("list properties", err)
	}
	views, err := s.allFeeViews(ctx)
	if err != nil {
		return nil, err
	}

	byProperty := make(map[uuid.UUID][]FeeView)
	for _, v := range views {
		byProperty[v.Fee.PropertyID] = append(byProperty[v.Fee.PropertyID], v)
	}

	summaries := make([]PropertySummary, 0, len(props))
	for _, p := range props {
		pv := byProperty[p.ID]
		paid := decimal.Zero
		for _, v := range pv {
			paid = paid.Add(v.Paid)
		}
		balance := PropertyBalance(pv)
		summaries = append(summaries, PropertySummary{
			Property:      p,
			Balance:       balance,
			UnpaidFees:    balance,
			TotalPayments: paid,
		})
	}
	return summaries, nil
}

// PropertyFees lists the property's fees oldest first.
func (s *Service) PropertyFees(ctx context.Context, propertyID uuid.UUID) ([]FeeView, error) {
	if _, err := s.GetProperty(ctx, propertyID); err != nil {
		return nil, err
	}
	fees, err := s.fees.ListByProperty(ctx, propertyID)
	if err != nil {
		return nil, StorageFailure("list fees", err)
	}
	return s.evaluate(ctx, fees)
}

// PropertyBalance returns the property's total outstanding remainder.
func (s *Service) PropertyBalance(ctx context.Context, propertyID uuid.UUID) (decimal.Decimal, error) {
	views, err := s.PropertyFees(ctx, propertyID)
	if err != nil {
		return decimal.Zero, err
	}
	return PropertyBalance(views), nil
}

// FeeDetail returns one fee with its payments and derived status.
func (s *Service) FeeDetail(ctx context.Context, feeID uuid.UUID) (*FeeView, error) {
	fee, err := s.lookupFee(ctx, feeID)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.ListByFee(ctx, feeID)
	if err != nil {
		return nil, StorageFailure("load payments", err)
	}
	view, err := Evaluate(*fee, payments)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// PeriodFees lists the fees generated from a billing period.
func (s *Service) PeriodFees(ctx context.Context, periodID uuid.UUID) ([]PeriodFee, error) {
	if _, err := s.periods.GetByID(ctx, periodID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Errorf(ErrBillingPeriodNotFound, "billing period %s not found", periodID)
		}
		return nil, StorageFailure("load billing period", err)
	}

	fees, err := s.fees.ListByPeriod(ctx, periodID)
	if err != nil {
		return nil, StorageFailure("list fees", err)
	}
	views, err := s.evaluate(ctx, fees)
	if err != nil {
		return nil, err
	}

	propIDs := make([]uuid.UUID, 0, len(views))
	for _, v := range views {
		propIDs = append(propIDs, v.Fee.PropertyID)
	}
	props, err := s.properties.FindByIDs(ctx, propIDs)
	if err != nil {
		return nil, StorageFailure("load properties", err)
	}
	byID := make(map[uuid.UUID]models.Property, len(props))
	for _, p := range props {
		byID[p.ID] = p
	}

	result := make([]PeriodFee, 0, len(views))
	for _, v := range views {
		result = append(result, PeriodFee{FeeView: v, Property: byID[v.Fee.PropertyID]})
	}
	return result, nil
}

// Dashboard computes the headline totals shown on the landing page.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	props, err := s.properties.List(ctx)
	if err != nil {
		return nil, StorageFailure("list properties", err)
	}
	views, err := s.allFeeViews(ctx)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		PropertyCount:    len(props),
		TotalCharged:     decimal.Zero,
		TotalPaid:        decimal.Zero,
		TotalOutstanding: decimal.Zero,
		FeesByStatus:     map[Status]int{StatusUnpaid: 0, StatusPartial: 0, StatusPaid: 0},
	}
	for _, v := range views {
		d.TotalCharged = d.TotalCharged.Add(v.Fee.Amount)
		d.TotalPaid = d.TotalPaid.Add(v.Paid)
		d.TotalOutstanding = d.TotalOutstanding.Add(v.Remaining)
		d.FeesByStatus[v.Status]++
	}

	if d.RecentPayments, err = s.payments.ListRecent(ctx, recentLimit); err != nil {
		return nil, StorageFailure("list recent payments", err)
	}
	if d.RecentFees, err = s.fees.ListRecent(ctx, recentLimit); err != nil {
		return nil, StorageFailure("list recent fees", err)
	}
	return d, nil
}

func (s *Service) allFeeViews(ctx context.Context) ([]FeeView, error) {
	fees, err := s.fees.ListAll(ctx)
	if err != nil {
		return nil, StorageFailure("list fees", err)
	}
	payments, err := s.payments.ListAllGrouped(ctx)
	if err != nil {
		return nil, StorageFailure("list payments", err)
	}
	return evaluateAll(fees, payments)
}

func (s *Service) evaluate(ctx context.Context, fees []models.Fee) ([]FeeView, error) {
	ids := make([]uuid.UUID, len(fees))
	for i, f := range fees {
		ids[i] = f.ID
	}
	payments, err := s.payments.ListByFees(ctx, ids)
	if err != nil {
		return nil, StorageFailure("load payments", err)
	}
	return evaluateAll(fees, payments)
}
