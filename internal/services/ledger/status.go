package ledger

import (
	"sort"

	"hoa-ledger-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the derived payment state of a fee; it is never stored.
type Status string

const (
	StatusUnpaid  Status = "unpaid"
	StatusPartial Status = "partial"
	StatusPaid    Status = "paid"
)

// FeeView is a fee together with its payment history and derived figures.
type FeeView struct {
	Fee       models.Fee
	Payments  []models.Payment
	Paid      decimal.Decimal
	Remaining decimal.Decimal
	Status    Status
}

func SumPayments(payments []models.Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}

// FeeStatus derives the status from the fee amount and the cumulative payments.
// A zero-amount fee owes nothing and is reported paid.
func FeeStatus(amount, paid decimal.Decimal) Status {
	switch {
	case paid.GreaterThanOrEqual(amount):
		return StatusPaid
	case paid.IsZero():
		return StatusUnpaid
	default:
		return StatusPartial
	}
}

// RemainingBalance is amount minus paid, floored at zero.
func RemainingBalance(amount, paid decimal.Decimal) decimal.Decimal {
	remaining := amount.Sub(paid)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// Evaluate builds the view for one fee. Payments above the fee amount mean the
// store is corrupted and are reported as a storage failure.
func Evaluate(fee models.Fee, payments []models.Payment) (FeeView, error) {
	paid := SumPayments(payments)
	if paid.GreaterThan(fee.Amount) {
		return FeeView{}, Errorf(ErrStorageFailure,
			"fee %s has payments %s above its amount %s", fee.ID, paid.StringFixed(2), fee.Amount.StringFixed(2))
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	return FeeView{
		Fee:       fee,
		Payments:  payments,
		Paid:      paid,
		Remaining: RemainingBalance(fee.Amount, paid),
		Status:    FeeStatus(fee.Amount, paid),
	}, nil
}

// PropertyBalance sums the remaining balance of every fee, whatever its type.
func PropertyBalance(views []FeeView) decimal.Decimal {
	total := decimal.Zero
	for _, v := range views {
		total = total.Add(v.Remaining)
	}
	return total
}

// SortFees orders fees oldest first, ties broken by id.
func SortFees(fees []models.Fee) {
	sort.SliceStable(fees, func(i, j int) bool {
		if !fees[i].CreatedAt.Equal(fees[j].CreatedAt) {
			return fees[i].CreatedAt.Before(fees[j].CreatedAt)
		}
		return fees[i].ID.String() < fees[j].ID.String()
	})
}

func evaluateAll(fees []models.Fee, payments map[uuid.UUID][]models.Payment) ([]FeeView, error) {
	SortFees(fees)
	views := make([]FeeView, 0, len(fees))
	for _, f := range fees {
		v, err := Evaluate(f, payments[f.ID])
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}
