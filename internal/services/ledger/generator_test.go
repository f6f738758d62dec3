package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"hoa-ledger-backend/internal/models"
	"hoa-ledger-backend/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quarter(t *testing.T, feeType models.FeeType, amount string) NewBillingPeriod {
	due := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	return NewBillingPeriod{
		Name:       "Q1 2025",
		FeeType:    feeType,
		StartDate:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		DueDate:    &due,
		UnitAmount: testutil.Money(t, amount),
	}
}

func TestCreateBillingPeriod_Validation(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	valid := quarter(t, "", "150.00")
	period, err := s.CreateBillingPeriod(ctx, valid)
	require.NoError(t, err)
	assert.Equal(t, models.FeeTypeBillingPeriod, period.FeeType)

	tests := []struct {
		name   string
		mutate func(p *NewBillingPeriod)
	}{
		{"start after end", func(p *NewBillingPeriod) { p.StartDate, p.EndDate = p.EndDate, p.StartDate }},
		{"negative amount", func(p *NewBillingPeriod) { p.UnitAmount = testutil.Money(t, "-1.00") }},
		{"sub-cent amount", func(p *NewBillingPeriod) { p.UnitAmount = testutil.Money(t, "10.001") }},
		{"missing name", func(p *NewBillingPeriod) { p.Name = "  " }},
		{"unknown fee type", func(p *NewBillingPeriod) { p.FeeType = "special" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := quarter(t, models.FeeTypeBillingPeriod, "150.00")
			tt.mutate(&in)
			_, err := s.CreateBillingPeriod(ctx, in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPeriod), "got %v", err)
		})
	}
}

func TestGenerateFees_AllProperties(t *testing.T) {
	ctx := context.Background()
	s, db := newTestService(t)
	a := testutil.SeedProperty(t, db, "A-1", "Ann")
	b := testutil.SeedProperty(t, db, "B-2", "Bob")
	c := testutil.SeedProperty(t, db, "C-3", "Cid")

	period, err := s.CreateBillingPeriod(ctx, quarter(t, models.FeeTypeBillingPeriod, "150.00"))
	require.NoError(t, err)

	fees, err := s.GenerateFees(ctx, period.ID, nil)
	require.NoError(t, err)
	require.Len(t, fees, 3)

	owners := map[uuid.UUID]bool{}
	for _, f := range fees {
		owners[f.PropertyID] = true
		assert.Equal(t, "150.00", f.Amount.StringFixed(2))
		assert.Equal(t, models.FeeTypeBillingPeriod, f.FeeType)
		assert.Equal(t, "Strata fee for Q1 2025", f.Description)
		require.NotNil(t, f.BillingPeriodID)
		assert.Equal(t, period.ID, *f.BillingPeriodID)
		require.NotNil(t, f.DueDate)
	}
	assert.Equal(t, map[uuid.UUID]bool{a.ID: true, b.ID: true, c.ID: true}, owners)

	balance, err := s.PropertyBalance(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "150.00", balance.StringFixed(2))
}

func TestGenerateFees_DuplicateRunLeavesFeesUnchanged(t *testing.T) {
	ctx := context.Background()
	s, db := newTestService(t)
	testutil.SeedProperty(t, db, "A-1", "")
	testutil.SeedProperty(t, db, "A-2", "")

	period, err := s.CreateBillingPeriod(ctx, quarter(t, models.FeeTypeBillingPeriod, "80.00"))
	require.NoError(t, err)
	first, err := s.GenerateFees(ctx, period.ID, nil)
	require.NoError(t, err)

	_, err = s.GenerateFees(ctx, period.ID, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateGeneration))

	after, err := s.PeriodFees(ctx, period.ID)
	require.NoError(t, err)
	require.Len(t, after, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, after[i].Fee.ID)
		assert.Equal(t, first[i].Amount.StringFixed(2), after[i].Fee.Amount.StringFixed(2))
	}
}

func TestGenerateFees_OverlappingTargetsAreAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s, db := newTestService(t)
	a := testutil.SeedProperty(t, db, "A-1", "")
	b := testutil.SeedProperty(t, db, "B-1", "")

	period, err := s.CreateBillingPeriod(ctx, quarter(t, models.FeeTypeOpeningBalance, "42.50"))
	require.NoError(t, err)

	fees, err := s.GenerateFees(ctx, period.ID, []uuid.UUID{a.ID, a.ID})
	require.NoError(t, err)
	require.Len(t, fees, 1)
	assert.Equal(t, models.FeeTypeOpeningBalance, fees[0].FeeType)
	assert.Equal(t, "Opening balance for Q1 2025", fees[0].Description)

	_, err = s.GenerateFees(ctx, period.ID, []uuid.UUID{a.ID, b.ID})
	assert.True(t, errors.Is(err, ErrDuplicateGeneration))

	bFees, err := s.PropertyFees(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, bFees)
}

func TestGenerateFees_Errors(t *testing.T) {
	ctx := context.Background()
	s, db := newTestService(t)
	testutil.SeedProperty(t, db, "A-1", "")

	t.Run("unknown period", func(t *testing.T) {
		_, err := s.GenerateFees(ctx, uuid.New(), nil)
		assert.True(t, errors.Is(err, ErrBillingPeriodNotFound))
	})

	t.Run("ad hoc period needs targets", func(t *testing.T) {
		period, err := s.CreateBillingPeriod(ctx, quarter(t, models.FeeTypeAdHoc, "25.00"))
		require.NoError(t, err)
		_, err = s.GenerateFees(ctx, period.ID, nil)
		assert.True(t, errors.Is(err, ErrInvalidInput))
	})

	t.Run("unknown target property", func(t *testing.T) {
		period, err := s.CreateBillingPeriod(ctx, quarter(t, models.FeeTypeAdHoc, "25.00"))
		require.NoError(t, err)
		_, err = s.GenerateFees(ctx, period.ID, []uuid.UUID{uuid.New()})
		assert.True(t, errors.Is(err, ErrPropertyNotFound))

		fees, err := s.PeriodFees(ctx, period.ID)
		require.NoError(t, err)
		assert.Empty(t, fees)
	})
}

func TestGenerateFees_ConcurrentRunsBillOnce(t *testing.T) {
	ctx := context.Background()
	s, db := newTestService(t)
	for _, unit := range []string{"A-1", "A-2", "A-3", "A-4"} {
		testutil.SeedProperty(t, db, unit, "")
	}
	period, err := s.CreateBillingPeriod(ctx, quarter(t, models.FeeTypeBillingPeriod, "10.00"))
	require.NoError(t, err)

	results := make(chan error, 5)
	for i := 0; i < 5; i++ {
		go func() {
			_, err := s.GenerateFees(ctx, period.ID, nil)
			results <- err
		}()
	}

	succeeded := 0
	for i := 0; i < 5; i++ {
		if err := <-results; err == nil {
			succeeded++
		} else {
			assert.True(t, errors.Is(err, ErrDuplicateGeneration), "got %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)

	fees, err := s.PeriodFees(ctx, period.ID)
	require.NoError(t, err)
	assert.Len(t, fees, 4)
}
