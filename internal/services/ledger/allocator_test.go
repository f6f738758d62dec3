package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"hoa-ledger-backend/internal/models"
	"hoa-ledger-backend/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPayment_PartialThenFullThenOverpay(t *testing.T) {
	ctx := context.Background()
	s, db := newTestService(t)
	p := testutil.SeedProperty(t, db, "A-101", "Jane Doe")
	fee := seedFee(t, s, db, p.ID, models.FeeTypeBillingPeriod, "150.00")

	view, err := s.FeeDetail(ctx, fee.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusUnpaid, view.Status)
	assert.Equal(t, "150.00", view.Remaining.StringFixed(2))

	_, err = s.ApplyPayment(ctx, fee.ID, testutil.Money(t, "50.00"), s.Today(), "first")
	require.NoError(t, err)
	view, err = s.FeeDetail(ctx, fee.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, view.Status)
	assert.Equal(t, "100.00", view.Remaining.StringFixed(2))

	_, err = s.ApplyPayment(ctx, fee.ID, testutil.Money(t, "100.00"), s.Today(), "second")
	require.NoError(t, err)
	view, err = s.FeeDetail(ctx, fee.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, view.Status)
	assert.True(t, view.Remaining.IsZero())

	_, err = s.ApplyPayment(ctx, fee.ID, testutil.Money(t, "0.01"), s.Today(), "extra")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOverpaymentRejected))
	assert.Equal(t, CodeAlreadyPaid, CodeOf(err))

	view, err = s.FeeDetail(ctx, fee.ID)
	require.NoError(t, err)
	assert.Len(t, view.Payments, 2)
	assert.Equal(t, StatusPaid, view.Status)
}

func TestApplyPayment_OverpaymentLeavesPaymentsUnchanged(t *testing.T) {
	ctx := context.Background()
	s, db := newTestService(t)
	p := testutil.SeedProperty(t, db, "A-102", "John Roe")
	fee := seedFee(t, s, db, p.ID, models.FeeTypeBillingPeriod, "150.00")

	_, err := s.ApplyPayment(ctx, fee.ID, testutil.Money(t, "149.99"), s.Today(), "")
	require.NoError(t, err)

	_, err = s.ApplyPayment(ctx, fee.ID, testutil.Money(t, "0.02"), s.Today(), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOverpaymentRejected))

	view, err := s.FeeDetail(ctx, fee.ID)
	require.NoError(t, err)
	assert.Len(t, view.Payments, 1)
	assert.Equal(t, "0.01", view.Remaining.StringFixed(2))
}

func TestApplyPayment_Validation(t *testing.T) {
	ctx := context.Background()
	s, db := newTestService(t)
	p := testutil.SeedProperty(t, db, "A-103", "")
	fee := seedFee(t, s, db, p.ID, models.FeeTypeBillingPeriod, "10.00")

	tests := []struct {
		name   string
		feeID  uuid.UUID
		amount string
		want   *Error
	}{
		{"zero amount", fee.ID, "0", ErrInvalidAmount},
		{"negative amount", fee.ID, "-5.00", ErrInvalidAmount},
		{"sub-cent amount", fee.ID, "1.005", ErrInvalidAmount},
		{"unknown fee", uuid.New(), "1.00", ErrFeeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ApplyPayment(ctx, tt.feeID, testutil.Money(t, tt.amount), s.Today(), "")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestApplyPayment_ZeroAmountFeeIsAlreadyPaid(t *testing.T) {
	ctx := context.Background()
	s, db := newTestService(t)
	p := testutil.SeedProperty(t, db, "A-104", "")
	fee := seedFee(t, s, db, p.ID, models.FeeTypeAdHoc, "0")

	_, err := s.ApplyPayment(ctx, fee.ID, testutil.Money(t, "1.00"), s.Today(), "")
	assert.True(t, errors.Is(err, ErrAlreadyPaid))
}

func TestApplyPayment_ConcurrentPaymentsNeverOverpay(t *testing.T) {
	ctx := context.Background()
	s, db := newTestService(t)
	p := testutil.SeedProperty(t, db, "B-201", "")
	fee := seedFee(t, s, db, p.ID, models.FeeTypeBillingPeriod, "150.00")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		rejected int
	)
	amount := testutil.Money(t, "20.00")
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ApplyPayment(ctx, fee.ID, amount, s.Today(), "")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				accepted++
				return
			}
			if errors.Is(err, ErrOverpaymentRejected) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 7, accepted)
	assert.Equal(t, 3, rejected)

	view, err := s.FeeDetail(ctx, fee.ID)
	require.NoError(t, err)
	assert.Equal(t, "140.00", view.Paid.StringFixed(2))
	assert.Equal(t, StatusPartial, view.Status)
}

func TestMarkPaid(t *testing.T) {
	ctx := context.Background()

	t.Run("pays the remainder and keeps partial history", func(t *testing.T) {
		s, db := newTestService(t)
		p := testutil.SeedProperty(t, db, "C-301", "")
		fee := seedFee(t, s, db, p.ID, models.FeeTypeBillingPeriod, "150.00")

		_, err := s.ApplyPayment(ctx, fee.ID, testutil.Money(t, "30.00"), s.Today(), "")
		require.NoError(t, err)

		payment, err := s.MarkPaid(ctx, fee.ID)
		require.NoError(t, err)
		assert.Equal(t, "120.00", payment.Amount.StringFixed(2))
		assert.Equal(t, s.Today(), payment.Date)

		view, err := s.FeeDetail(ctx, fee.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusPaid, view.Status)
		assert.True(t, view.Remaining.IsZero())
		assert.Len(t, view.Payments, 2)
	})

	t.Run("already paid", func(t *testing.T) {
		s, db := newTestService(t)
		p := testutil.SeedProperty(t, db, "C-302", "")
		fee := seedFee(t, s, db, p.ID, models.FeeTypeBillingPeriod, "50.00")

		_, err := s.MarkPaid(ctx, fee.ID)
		require.NoError(t, err)
		_, err = s.MarkPaid(ctx, fee.ID)
		assert.True(t, errors.Is(err, ErrAlreadyPaid))
	})

	t.Run("unknown fee", func(t *testing.T) {
		s, _ := newTestService(t)
		_, err := s.MarkPaid(ctx, uuid.New())
		assert.True(t, errors.Is(err, ErrFeeNotFound))
	})
}
