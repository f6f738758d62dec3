package ledger

import (
	"context"
	"errors"
	"time"

	"hoa-ledger-backend/internal/models"
	"hoa-ledger-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service owns the fee/payment ledger: fee generation, payment allocation and
// the derived balances read by the dashboard.
//
// Every payment-creating unit of work runs under a per-property mutex and in a
// single database transaction; the mutex is always taken before the
// transaction starts and no unit of work holds two mutexes.
type Service struct {
	db         *gorm.DB
	properties *repository.PropertyRepository
	periods    *repository.BillingPeriodRepository
	fees       *repository.FeeRepository
	payments   *repository.PaymentRepository
	locks      *keyedMutex
	now        func() time.Time
	log        *zap.Logger
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces the wall clock, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the service logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l.Named("ledger")
		}
	}
}

func NewService(db *gorm.DB, opts ...Option) *Service {
	s := &Service{
		db:         db,
		properties: repository.NewPropertyRepository(db),
		periods:    repository.NewBillingPeriodRepository(db),
		fees:       repository.NewFeeRepository(db),
		payments:   repository.NewPaymentRepository(db),
		locks:      &keyedMutex{},
		now:        func() time.Time { return time.Now().UTC() },
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service clock reading
func (s *Service) Now() time.Time {
	return s.now()
}

// Today returns the current date at midnight UTC
func (s *Service) Today() time.Time {
	return dateOnly(s.now())
}

// Tx is one ledger unit of work bound to a database transaction.
type Tx struct {
	ctx        context.Context
	db         *gorm.DB
	svc        *Service
	properties *repository.PropertyRepository
	fees       *repository.FeeRepository
	payments   *repository.PaymentRepository
}

// WithPropertyTx runs fn in one transaction while holding the property's
// mutex. Any error rolls the whole unit back; non-ledger errors are reported
// as storage failures.
func (s *Service) WithPropertyTx(ctx context.Context, propertyID uuid.UUID, fn func(tx *Tx) error) error {
	unlock := s.locks.Lock("property:" + propertyID.String())
	defer unlock()

	err := s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&Tx{
			ctx:        ctx,
			db:         db,
			svc:        s,
			properties: s.properties.WithTx(db),
			fees:       s.fees.WithTx(db),
			payments:   s.payments.WithTx(db),
		})
	})
	return StorageFailure("ledger transaction", err)
}

// DB exposes the transaction so collaborators can enlist their own writes
func (t *Tx) DB() *gorm.DB { return t.db }

func (t *Tx) Context() context.Context { return t.ctx }

func (t *Tx) Now() time.Time { return t.svc.now() }

func (t *Tx) Property(id uuid.UUID) (*models.Property, error) {
	p, err := t.properties.GetByID(t.ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, Errorf(ErrPropertyNotFound, "property %s not found", id)
	}
	if err != nil {
		return nil, StorageFailure("load property", err)
	}
	return p, nil
}

// LockFee reads the fee and holds its row lock for the rest of the transaction
func (t *Tx) LockFee(id uuid.UUID) (*models.Fee, error) {
	fee, err := t.fees.GetByIDForUpdate(t.ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, Errorf(ErrFeeNotFound, "fee %s not found", id)
	}
	if err != nil {
		return nil, StorageFailure("load fee", err)
	}
	return fee, nil
}

// FeeView evaluates a fee inside the transaction
func (t *Tx) FeeView(fee *models.Fee) (FeeView, error) {
	payments, err := t.payments.ListByFee(t.ctx, fee.ID)
	if err != nil {
		return FeeView{}, StorageFailure("load payments", err)
	}
	return Evaluate(*fee, payments)
}

// OldestFeeCovering returns the property's oldest fee whose remaining balance
// can absorb amount in full, or nil when no fee can.
func (t *Tx) OldestFeeCovering(propertyID uuid.UUID, amount decimal.Decimal) (*FeeView, error) {
	fees, err := t.fees.ListByProperty(t.ctx, propertyID)
	if err != nil {
		return nil, StorageFailure("load fees", err)
	}
	ids := make([]uuid.UUID, len(fees))
	for i, f := range fees {
		ids[i] = f.ID
	}
	payments, err := t.payments.ListByFees(t.ctx, ids)
	if err != nil {
		return nil, StorageFailure("load payments", err)
	}
	views, err := evaluateAll(fees, payments)
	if err != nil {
		return nil, err
	}
	for i := range views {
		if views[i].Remaining.IsPositive() && views[i].Remaining.GreaterThanOrEqual(amount) {
			return &views[i], nil
		}
	}
	return nil, nil
}

// CreateAdHocFee raises a one-off fee against the property
func (t *Tx) CreateAdHocFee(propertyID uuid.UUID, amount decimal.Decimal, description string) (*models.Fee, error) {
	if err := validateCharge(amount); err != nil {
		return nil, err
	}
	fee := models.Fee{
		ID:          uuid.New(),
		PropertyID:  propertyID,
		FeeType:     models.FeeTypeAdHoc,
		Amount:      amount,
		Description: description,
		CreatedAt:   t.svc.now(),
	}
	if err := t.fees.Create(t.ctx, &fee); err != nil {
		return nil, StorageFailure("create fee", err)
	}
	return &fee, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// validateCharge accepts non-negative amounts with at most two decimals
func validateCharge(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return Errorf(ErrInvalidAmount, "amount %s must not be negative", amount.String())
	}
	if !amount.Equal(amount.Round(2)) {
		return Errorf(ErrInvalidAmount, "amount %s has more than two decimal places", amount.String())
	}
	return nil
}

// ValidatePaymentAmount accepts strictly positive amounts with at most two decimals
func ValidatePaymentAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return Errorf(ErrInvalidAmount, "payment amount must be greater than zero")
	}
	return validateCharge(amount)
}
