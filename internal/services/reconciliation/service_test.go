package reconciliation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"hoa-ledger-backend/internal/models"
	"hoa-ledger-backend/internal/services/ledger"
	"hoa-ledger-backend/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db     *gorm.DB
	ledger *ledger.Service
	recon  *ReconciliationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	l := ledger.NewService(db, ledger.WithClock(testutil.Clock(time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC))))
	return &fixture{db: db, ledger: l, recon: NewReconciliationService(db, l, nil)}
}

func (f *fixture) fee(t *testing.T, propertyID uuid.UUID, amount string) models.Fee {
	t.Helper()
	fee := models.Fee{
		ID:         uuid.New(),
		PropertyID: propertyID,
		FeeType:    models.FeeTypeBillingPeriod,
		Amount:     testutil.Money(t, amount),
		CreatedAt:  f.ledger.Now(),
	}
	require.NoError(t, f.db.Create(&fee).Error)
	return fee
}

func (f *fixture) unmatched(t *testing.T, amount string) *models.UnmatchedPayment {
	t.Helper()
	p, err := f.recon.AddUnmatchedPayment(context.Background(), NewUnmatchedPayment{
		Date:        time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC),
		Amount:      testutil.Money(t, amount),
		Description: "TRANSFER FROM OWNER",
		Reference:   "BANKREF",
	})
	require.NoError(t, err)
	return p
}

func TestConfirmMatch_CreatesAdHocFeeWhenNothingOutstanding(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := testutil.SeedProperty(t, f.db, "A-1", "Ann")
	up := f.unmatched(t, "75.00")

	before, err := f.ledger.PropertyBalance(ctx, p.ID)
	require.NoError(t, err)

	match, err := f.recon.ConfirmMatch(ctx, up.ID, ConfirmInput{PropertyID: &p.ID})
	require.NoError(t, err)
	assert.True(t, match.FeeCreated)
	assert.Equal(t, models.FeeTypeAdHoc, match.Fee.FeeType)
	assert.Equal(t, "75.00", match.Fee.Amount.StringFixed(2))
	assert.Equal(t, "75.00", match.Payment.Amount.StringFixed(2))
	assert.Equal(t, "BANKREF", match.Payment.Reference)

	after, err := f.ledger.PropertyBalance(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, after.Equal(before), "balance moved from %s to %s", before, after)

	view, err := f.ledger.FeeDetail(ctx, match.Fee.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPaid, view.Status)

	var stored models.UnmatchedPayment
	require.NoError(t, f.db.First(&stored, "id = ?", up.ID).Error)
	assert.Equal(t, models.UnmatchedStatusMatched, stored.Status)
	require.NotNil(t, stored.PaymentID)
	assert.Equal(t, match.Payment.ID, *stored.PaymentID)

	history, err := f.recon.History(ctx, up.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "confirmed", history[0].Action)
}

func TestConfirmMatch_UsesOldestOutstandingFee(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := testutil.SeedProperty(t, f.db, "A-1", "")
	oldest := f.fee(t, p.ID, "100.00")
	f.fee(t, p.ID, "100.00")

	_, err := f.ledger.MarkPaid(ctx, oldest.ID)
	require.NoError(t, err)
	next := f.fee(t, p.ID, "50.00")

	// the second fee is the oldest one still owing
	up := f.unmatched(t, "40.00")
	match, err := f.recon.ConfirmMatch(ctx, up.ID, ConfirmInput{PropertyID: &p.ID})
	require.NoError(t, err)
	assert.False(t, match.FeeCreated)
	assert.NotEqual(t, oldest.ID, match.Fee.ID)
	assert.NotEqual(t, next.ID, match.Fee.ID)

	view, err := f.ledger.FeeDetail(ctx, match.Fee.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPartial, view.Status)
	assert.Equal(t, "60.00", view.Remaining.StringFixed(2))
}

func TestConfirmMatch_SkipsFeesTooSmallForTheCredit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := testutil.SeedProperty(t, f.db, "A-1", "")
	small := f.fee(t, p.ID, "30.00")
	large := f.fee(t, p.ID, "80.00")

	up := f.unmatched(t, "45.00")
	match, err := f.recon.ConfirmMatch(ctx, up.ID, ConfirmInput{PropertyID: &p.ID})
	require.NoError(t, err)
	assert.False(t, match.FeeCreated)
	assert.Equal(t, large.ID, match.Fee.ID)
	assert.Equal(t, "45.00", match.Payment.Amount.StringFixed(2))

	view, err := f.ledger.FeeDetail(ctx, small.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusUnpaid, view.Status)
}

func TestConfirmMatch_CreditLargerThanEveryFee(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := testutil.SeedProperty(t, f.db, "A-1", "")
	fee := f.fee(t, p.ID, "50.00")
	up := f.unmatched(t, "75.00")

	before, err := f.ledger.PropertyBalance(ctx, p.ID)
	require.NoError(t, err)

	// naming the undersized fee is rejected and leaves the credit pending
	_, err = f.recon.ConfirmMatch(ctx, up.ID, ConfirmInput{PropertyID: &p.ID, FeeID: &fee.ID})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledger.ErrOverpaymentRejected))

	var stored models.UnmatchedPayment
	require.NoError(t, f.db.First(&stored, "id = ?", up.ID).Error)
	assert.Equal(t, models.UnmatchedStatusUnmatched, stored.Status)

	// leaving the fee out lands the full credit on a new ad-hoc fee
	match, err := f.recon.ConfirmMatch(ctx, up.ID, ConfirmInput{PropertyID: &p.ID})
	require.NoError(t, err)
	assert.True(t, match.FeeCreated)
	assert.Equal(t, models.FeeTypeAdHoc, match.Fee.FeeType)
	assert.Equal(t, "75.00", match.Payment.Amount.StringFixed(2))

	after, err := f.ledger.PropertyBalance(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, before.Equal(after), "balance moved from %s to %s", before, after)

	view, err := f.ledger.FeeDetail(ctx, fee.ID)
	require.NoError(t, err)
	assert.Equal(t, "50.00", view.Remaining.StringFixed(2))

	page, err := f.recon.ListPending(ctx, "", 10, "")
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestConfirmMatch_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := testutil.SeedProperty(t, f.db, "A-1", "")
	other := testutil.SeedProperty(t, f.db, "B-1", "")
	otherFee := f.fee(t, other.ID, "100.00")

	t.Run("property missing", func(t *testing.T) {
		up := f.unmatched(t, "10.00")
		_, err := f.recon.ConfirmMatch(ctx, up.ID, ConfirmInput{})
		assert.True(t, errors.Is(err, ledger.ErrAmbiguousMatch))
	})

	t.Run("fee of another property", func(t *testing.T) {
		up := f.unmatched(t, "10.00")
		_, err := f.recon.ConfirmMatch(ctx, up.ID, ConfirmInput{PropertyID: &owner.ID, FeeID: &otherFee.ID})
		assert.True(t, errors.Is(err, ledger.ErrFeeMismatch))

		view, err := f.ledger.FeeDetail(ctx, otherFee.ID)
		require.NoError(t, err)
		assert.Empty(t, view.Payments)
	})

	t.Run("unknown payment", func(t *testing.T) {
		_, err := f.recon.ConfirmMatch(ctx, uuid.New(), ConfirmInput{PropertyID: &owner.ID})
		assert.True(t, errors.Is(err, ledger.ErrUnmatchedPaymentNotFound))
	})

	t.Run("unknown property", func(t *testing.T) {
		up := f.unmatched(t, "10.00")
		missing := uuid.New()
		_, err := f.recon.ConfirmMatch(ctx, up.ID, ConfirmInput{PropertyID: &missing})
		assert.True(t, errors.Is(err, ledger.ErrPropertyNotFound))
	})

	t.Run("confirmed twice", func(t *testing.T) {
		up := f.unmatched(t, "10.00")
		_, err := f.recon.ConfirmMatch(ctx, up.ID, ConfirmInput{PropertyID: &owner.ID})
		require.NoError(t, err)

		_, err = f.recon.ConfirmMatch(ctx, up.ID, ConfirmInput{PropertyID: &owner.ID})
		assert.True(t, errors.Is(err, ledger.ErrAlreadyMatched))

		_, err = f.recon.Propose(ctx, up.ID)
		assert.True(t, errors.Is(err, ledger.ErrAlreadyMatched))
	})
}

func TestConfirmMatch_ConcurrentConfirmsProduceOnePayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := testutil.SeedProperty(t, f.db, "A-1", "")
	b := testutil.SeedProperty(t, f.db, "B-1", "")
	up := f.unmatched(t, "20.00")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, pid := range []uuid.UUID{a.ID, b.ID} {
		wg.Add(1)
		go func(i int, pid uuid.UUID) {
			defer wg.Done()
			_, errs[i] = f.recon.ConfirmMatch(ctx, up.ID, ConfirmInput{PropertyID: &pid})
		}(i, pid)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			failures++
			assert.True(t, errors.Is(err, ledger.ErrAlreadyMatched), "got %v", err)
		}
	}
	assert.Equal(t, 1, failures)

	var count int64
	require.NoError(t, f.db.Model(&models.Payment{}).Where("unmatched_payment_id = ?", up.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestPropose_ListsEveryProperty(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := testutil.SeedProperty(t, f.db, "A-1", "Ann")
	testutil.SeedProperty(t, f.db, "B-1", "Bob")
	f.fee(t, a.ID, "150.00")
	up := f.unmatched(t, "150.00")

	proposal, err := f.recon.Propose(ctx, up.ID)
	require.NoError(t, err)
	assert.Equal(t, up.ID, proposal.Payment.ID)
	require.Len(t, proposal.Candidates, 2)
	assert.Equal(t, "A-1", proposal.Candidates[0].Property.UnitNumber)
	assert.Equal(t, "150.00", proposal.Candidates[0].Balance.StringFixed(2))

	_, err = f.recon.Propose(ctx, uuid.New())
	assert.True(t, errors.Is(err, ledger.ErrUnmatchedPaymentNotFound))
}

func TestImportStatement_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	csv := "date,description,amount,reference\n" +
		"2025-03-01,TRANSFER A1,150.00,R1\n" +
		"2025-03-01,TRANSFER A1,150.00,R1\n" +
		"2025-03-02,BANK FEE,-5.00,R2\n" +
		"2025-03-03,TRANSFER B1,80.00,R3\n"

	first, err := f.recon.ImportStatement(ctx, "march.csv", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 4, first.TotalRows)
	assert.Equal(t, 3, first.ImportedCount)
	assert.Equal(t, 0, first.DuplicateCount)
	assert.Equal(t, 1, first.SkippedCount)
	assert.Equal(t, "completed", first.Status)
	require.NotNil(t, first.CompletedAt)

	second, err := f.recon.ImportStatement(ctx, "march.csv", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 0, second.ImportedCount)
	assert.Equal(t, 3, second.DuplicateCount)

	stored, err := f.recon.GetImport(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.ImportedCount)

	stats, err := f.recon.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(3), stats.UnmatchedCount)
	assert.Equal(t, "380.00", stats.UnmatchedSum.StringFixed(2))
	assert.Equal(t, int64(0), stats.MatchedCount)
}

func TestImportStatement_RejectsBadHeader(t *testing.T) {
	f := newFixture(t)
	_, err := f.recon.ImportStatement(context.Background(), "bad.csv", strings.NewReader("foo,bar\n1,2\n"))
	assert.True(t, errors.Is(err, ledger.ErrInvalidStatement))
}

func TestListPending_PagesAndSearches(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.unmatched(t, "10.00")
	}
	_, err := f.recon.AddUnmatchedPayment(ctx, NewUnmatchedPayment{
		Date:        time.Date(2025, 3, 30, 0, 0, 0, 0, time.UTC),
		Amount:      testutil.Money(t, "99.00"),
		Description: "Deposit Unit 7 Smith",
	})
	require.NoError(t, err)

	page, err := f.recon.ListPending(ctx, "", 4, "")
	require.NoError(t, err)
	assert.Len(t, page.Items, 4)
	assert.True(t, page.HasMore)
	require.NotEmpty(t, page.NextCursor)

	rest, err := f.recon.ListPending(ctx, page.NextCursor, 4, "")
	require.NoError(t, err)
	assert.Len(t, rest.Items, 2)
	assert.False(t, rest.HasMore)

	found, err := f.recon.ListPending(ctx, "", 10, "smith")
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "99.00", found.Items[0].Amount.StringFixed(2))

	_, err = f.recon.ListPending(ctx, "not-a-cursor", 10, "")
	assert.True(t, errors.Is(err, ledger.ErrInvalidInput))
}

func TestAddUnmatchedPayment_Validation(t *testing.T) {
	f := newFixture(t)
	_, err := f.recon.AddUnmatchedPayment(context.Background(), NewUnmatchedPayment{
		Date:   time.Date(2025, 3, 30, 0, 0, 0, 0, time.UTC),
		Amount: testutil.Money(t, "0"),
	})
	assert.True(t, errors.Is(err, ledger.ErrInvalidAmount))

	_, err = f.recon.AddUnmatchedPayment(context.Background(), NewUnmatchedPayment{
		Amount: testutil.Money(t, "5.00"),
	})
	assert.True(t, errors.Is(err, ledger.ErrInvalidInput))
}

func TestGetImport_UnknownID(t *testing.T) {
	f := newFixture(t)
	_, err := f.recon.GetImport(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledger.ErrStatementImportNotFound))
	assert.Equal(t, ledger.CodeStatementImportNotFound, ledger.CodeOf(err))
}

func TestAddUnmatchedPayment_ClipsLongText(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := testutil.SeedProperty(t, f.db, "A-1", "")

	up, err := f.recon.AddUnmatchedPayment(ctx, NewUnmatchedPayment{
		Date:        time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC),
		Amount:      testutil.Money(t, "20.00"),
		Description: strings.Repeat("ÜBERWEISUNG ", 40),
	})
	require.NoError(t, err)
	assert.Equal(t, models.TextLength, len([]rune(up.Description)))
	assert.Empty(t, up.Reference)

	// the payment reference falls back to the clipped description
	match, err := f.recon.ConfirmMatch(ctx, up.ID, ConfirmInput{PropertyID: &p.ID})
	require.NoError(t, err)
	assert.Equal(t, up.Description, match.Payment.Reference)
	assert.LessOrEqual(t, len([]rune(match.Payment.Reference)), models.TextLength)
}
