package ledger

import (
	"context"
	"errors"
	"time"

	"hoa-ledger-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PaymentInput describes one payment against one fee.
type PaymentInput struct {
	FeeID     uuid.UUID
	Amount    decimal.Decimal
	Date      time.Time
	Reference string
	// UnmatchedPaymentID links payments created by reconciliation
	UnmatchedPaymentID *uuid.UUID
}

// ApplyPayment records a payment against the fee inside the transaction.
// The fee row is locked and the overpayment check runs against the
// committed payment set.
func (t *Tx) ApplyPayment(in PaymentInput) (*models.Payment, error) {
	if err := ValidatePaymentAmount(in.Amount); err != nil {
		return nil, err
	}
	fee, err := t.LockFee(in.FeeID)
	if err != nil {
		return nil, err
	}
	view, err := t.FeeView(fee)
	if err != nil {
		return nil, err
	}

	if view.Remaining.IsZero() {
		return nil, Errorf(ErrAlreadyPaid, "fee %s is already paid", fee.ID)
	}
	if in.Amount.GreaterThan(view.Remaining) {
		return nil, Errorf(ErrOverpaymentRejected,
			"payment %s exceeds remaining balance %s of fee %s",
			in.Amount.StringFixed(2), view.Remaining.StringFixed(2), fee.ID)
	}

	date := in.Date
	if date.IsZero() {
		date = dateOnly(t.svc.now())
	}
	payment := models.Payment{
		ID:                 uuid.New(),
		FeeID:              fee.ID,
		Amount:             in.Amount,
		Date:               date,
		Reference:          models.ClipText(in.Reference),
		UnmatchedPaymentID: in.UnmatchedPaymentID,
		CreatedAt:          t.svc.now(),
	}
	if err := t.payments.Create(t.ctx, &payment); err != nil {
		return nil, StorageFailure("create payment", err)
	}
	return &payment, nil
}

// ApplyPayment records a payment of amount against feeID. It never splits
// across fees; callers pick the fee.
func (s *Service) ApplyPayment(ctx context.Context, feeID uuid.UUID, amount decimal.Decimal, date time.Time, reference string) (*models.Payment, error) {
	if err := ValidatePaymentAmount(amount); err != nil {
		return nil, err
	}
	fee, err := s.lookupFee(ctx, feeID)
	if err != nil {
		return nil, err
	}

	var payment *models.Payment
	err = s.WithPropertyTx(ctx, fee.PropertyID, func(tx *Tx) error {
		var err error
		payment, err = tx.ApplyPayment(PaymentInput{
			FeeID:     feeID,
			Amount:    amount,
			Date:      date,
			Reference: reference,
		})
		return err
	})
	if err != nil {
		s.log.Debug("payment rejected",
			zap.String("fee_id", feeID.String()),
			zap.String("amount", amount.StringFixed(2)),
			zap.Error(err))
		return nil, err
	}

	s.log.Info("payment applied",
		zap.String("fee_id", feeID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("amount", payment.Amount.StringFixed(2)))
	return payment, nil
}

// MarkPaid settles the fee by recording one payment equal to its remaining
// balance, dated today. Earlier partial payments are kept.
func (s *Service) MarkPaid(ctx context.Context, feeID uuid.UUID) (*models.Payment, error) {
	fee, err := s.lookupFee(ctx, feeID)
	if err != nil {
		return nil, err
	}

	var payment *models.Payment
	err = s.WithPropertyTx(ctx, fee.PropertyID, func(tx *Tx) error {
		locked, err := tx.LockFee(feeID)
		if err != nil {
			return err
		}
		view, err := tx.FeeView(locked)
		if err != nil {
			return err
		}
		if view.Remaining.IsZero() {
			return Errorf(ErrAlreadyPaid, "fee %s is already paid", feeID)
		}
		payment, err = tx.ApplyPayment(PaymentInput{
			FeeID:     feeID,
			Amount:    view.Remaining,
			Date:      s.Today(),
			Reference: "marked paid",
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("fee marked paid",
		zap.String("fee_id", feeID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("amount", payment.Amount.StringFixed(2)))
	return payment, nil
}

func (s *Service) lookupFee(ctx context.Context, feeID uuid.UUID) (*models.Fee, error) {
	fee, err := s.fees.GetByID(ctx, feeID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, Errorf(ErrFeeNotFound, "fee %s not found", feeID)
	}
	if err != nil {
		return nil, StorageFailure("load fee", err)
	}
	return fee, nil
}
