package reconciliation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"hoa-ledger-backend/internal/models"
	"hoa-ledger-backend/internal/repository"
	"hoa-ledger-backend/internal/services/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// ReconciliationService turns bank credits into ledger payments. Credits are
// held as durable unmatched payments until an operator binds each one to a
// property; nothing is matched automatically.
type ReconciliationService struct {
	db        *gorm.DB
	ledger    *ledger.Service
	unmatched *repository.UnmatchedPaymentRepository
	imports   *repository.StatementImportRepository
	audit     *repository.MatchAuditLogRepository
	log       *zap.Logger
}

func NewReconciliationService(db *gorm.DB, ledgerSvc *ledger.Service, log *zap.Logger) *ReconciliationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReconciliationService{
		db:        db,
		ledger:    ledgerSvc,
		unmatched: repository.NewUnmatchedPaymentRepository(db),
		imports:   repository.NewStatementImportRepository(db),
		audit:     repository.NewMatchAuditLogRepository(db),
		log:       log.Named("reconciliation"),
	}
}

// ImportStatement parses a bank statement and stores every incoming credit
// as an unmatched payment. Lines already imported are counted as duplicates.
func (s *ReconciliationService) ImportStatement(ctx context.Context, filename string, r io.Reader) (*models.StatementImport, error) {
	parsed, err := ParseStatement(r)
	if err != nil {
		return nil, err
	}

	started := s.ledger.Now()
	imp := &models.StatementImport{
		ID:        uuid.New(),
		Filename:  filename,
		TotalRows: parsed.Total,
		Status:    "processing",
		StartedAt: started,
		CreatedAt: started,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		imports := s.imports.WithTx(tx)
		unmatched := s.unmatched.WithTx(tx)

		if err := imports.Create(ctx, imp); err != nil {
			return err
		}
		for _, row := range parsed.Rows {
			importID := imp.ID
			inserted, err := unmatched.Insert(ctx, &models.UnmatchedPayment{
				ID:             uuid.New(),
				ImportID:       &importID,
				Date:           row.Date,
				Amount:         row.Amount,
				Description:    row.Description,
				Reference:      row.Reference,
				TransactionKey: row.Key,
				Status:         models.UnmatchedStatusUnmatched,
				Raw:            datatypes.JSON(row.Raw),
				CreatedAt:      s.ledger.Now(),
			})
			if err != nil {
				return err
			}
			if inserted {
				imp.ImportedCount++
			} else {
				imp.DuplicateCount++
			}
		}

		completed := s.ledger.Now()
		imp.SkippedCount = parsed.Skipped
		imp.Status = "completed"
		imp.CompletedAt = &completed
		return imports.Save(ctx, imp)
	})
	if err != nil {
		return nil, ledger.StorageFailure("import statement", err)
	}

	s.log.Info("statement imported",
		zap.String("import_id", imp.ID.String()),
		zap.String("filename", filename),
		zap.Int("rows", imp.TotalRows),
		zap.Int("imported", imp.ImportedCount),
		zap.Int("duplicates", imp.DuplicateCount),
		zap.Int("skipped", imp.SkippedCount))
	return imp, nil
}

// NewUnmatchedPayment is a single credit entered by hand.
type NewUnmatchedPayment struct {
	Date        time.Time
	Amount      decimal.Decimal
	Description string
	Reference   string
}

// AddUnmatchedPayment stores one credit for later matching. Hand entries are
// never deduplicated.
func (s *ReconciliationService) AddUnmatchedPayment(ctx context.Context, in NewUnmatchedPayment) (*models.UnmatchedPayment, error) {
	if err := ledger.ValidatePaymentAmount(in.Amount); err != nil {
		return nil, err
	}
	if in.Date.IsZero() {
		return nil, ledger.Errorf(ledger.ErrInvalidInput, "payment date is required")
	}

	id := uuid.New()
	p := &models.UnmatchedPayment{
		ID:             id,
		Date:           in.Date,
		Amount:         in.Amount,
		Description:    models.ClipText(strings.TrimSpace(in.Description)),
		Reference:      models.ClipText(strings.TrimSpace(in.Reference)),
		TransactionKey: "manual:" + id.String(),
		Status:         models.UnmatchedStatusUnmatched,
		CreatedAt:      s.ledger.Now(),
	}
	if _, err := s.unmatched.Insert(ctx, p); err != nil {
		return nil, ledger.StorageFailure("add unmatched payment", err)
	}
	return p, nil
}

// PendingPage is one page of the operator work list.
type PendingPage struct {
	Items      []models.UnmatchedPayment
	NextCursor string
	HasMore    bool
}

// ListPending pages through credits still waiting for a match.
func (s *ReconciliationService) ListPending(ctx context.Context, cursor string, limit int, search string) (*PendingPage, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if cursor != "" {
		if _, err := uuid.Parse(cursor); err != nil {
			return nil, ledger.Errorf(ledger.ErrInvalidInput, "invalid cursor %q", cursor)
		}
	}

	items, next, more, err := s.unmatched.ListPending(ctx, cursor, limit, strings.TrimSpace(search))
	if err != nil {
		return nil, ledger.StorageFailure("list unmatched payments", err)
	}
	return &PendingPage{Items: items, NextCursor: next, HasMore: more}, nil
}

// Stats summarises unmatched payments by status.
type Stats struct {
	Total          int64
	TotalAmount    decimal.Decimal
	UnmatchedCount int64
	UnmatchedSum   decimal.Decimal
	MatchedCount   int64
	MatchedSum     decimal.Decimal
}

func (s *ReconciliationService) Stats(ctx context.Context) (*Stats, error) {
	rows, err := s.unmatched.StatsByStatus(ctx)
	if err != nil {
		return nil, ledger.StorageFailure("reconciliation stats", err)
	}

	stats := &Stats{TotalAmount: decimal.Zero, UnmatchedSum: decimal.Zero, MatchedSum: decimal.Zero}
	for _, r := range rows {
		sum := r.Sum.Round(2)
		stats.Total += r.Count
		stats.TotalAmount = stats.TotalAmount.Add(sum)

		switch models.UnmatchedPaymentStatus(r.Status) {
		case models.UnmatchedStatusUnmatched, models.UnmatchedStatusPendingConfirmation:
			stats.UnmatchedCount += r.Count
			stats.UnmatchedSum = stats.UnmatchedSum.Add(sum)
		case models.UnmatchedStatusMatched:
			stats.MatchedCount = r.Count
			stats.MatchedSum = sum
		}
	}
	return stats, nil
}

// Proposal lists the properties an operator can bind a credit to.
type Proposal struct {
	Payment    models.UnmatchedPayment
	Candidates []ledger.PropertySummary
}

// Propose returns every property with its balance. It is read-only and does
// not try to guess the payer from bank text.
func (s *ReconciliationService) Propose(ctx context.Context, id uuid.UUID) (*Proposal, error) {
	p, err := s.getUnmatched(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status == models.UnmatchedStatusMatched {
		return nil, ledger.Errorf(ledger.ErrAlreadyMatched, "payment %s is already matched", id)
	}

	candidates, err := s.ledger.PropertiesSummary(ctx)
	if err != nil {
		return nil, err
	}
	return &Proposal{Payment: *p, Candidates: candidates}, nil
}

// ConfirmInput names where an operator wants a credit applied.
type ConfirmInput struct {
	PropertyID  *uuid.UUID
	FeeID       *uuid.UUID
	PerformedBy string
}

// Match is the outcome of a confirmed reconciliation.
type Match struct {
	Payment    models.Payment
	Fee        models.Fee
	FeeCreated bool
}

// ConfirmMatch binds an unmatched payment to a property and records it as one
// ledger payment of the full amount. Without a fee the oldest fee whose
// remaining balance covers the amount is used, and when no fee does an ad-hoc
// fee of the payment amount is raised first. The unit of work commits
// entirely or not at all.
func (s *ReconciliationService) ConfirmMatch(ctx context.Context, id uuid.UUID, in ConfirmInput) (*Match, error) {
	if in.PropertyID == nil || *in.PropertyID == uuid.Nil {
		return nil, ledger.Errorf(ledger.ErrAmbiguousMatch, "payment %s needs a property to be confirmed", id)
	}
	propertyID := *in.PropertyID

	up, err := s.getUnmatched(ctx, id)
	if err != nil {
		return nil, err
	}
	if up.Status == models.UnmatchedStatusMatched {
		return nil, ledger.Errorf(ledger.ErrAlreadyMatched, "payment %s is already matched", id)
	}

	var match Match
	err = s.ledger.WithPropertyTx(ctx, propertyID, func(tx *ledger.Tx) error {
		unmatched := s.unmatched.WithTx(tx.DB())
		audit := s.audit.WithTx(tx.DB())

		if _, err := tx.Property(propertyID); err != nil {
			return err
		}

		claimed, err := unmatched.Claim(ctx, up.ID)
		if err != nil {
			return ledger.StorageFailure("claim unmatched payment", err)
		}
		if !claimed {
			return ledger.Errorf(ledger.ErrAlreadyMatched, "payment %s is already matched", id)
		}

		fee, created, err := s.targetFee(tx, up, propertyID, in.FeeID)
		if err != nil {
			return err
		}

		payment, err := tx.ApplyPayment(ledger.PaymentInput{
			FeeID:              fee.ID,
			Amount:             up.Amount,
			Date:               up.Date,
			Reference:          paymentReference(up),
			UnmatchedPaymentID: &up.ID,
		})
		if err != nil {
			return err
		}

		now := tx.Now()
		if err := unmatched.MarkMatched(ctx, up.ID, propertyID, fee.ID, payment.ID, now); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ledger.Errorf(ledger.ErrAlreadyMatched, "payment %s is already matched", id)
			}
			return ledger.StorageFailure("mark payment matched", err)
		}

		details, err := json.Marshal(map[string]any{
			"amount":        up.Amount.StringFixed(2),
			"fee_requested": in.FeeID != nil,
			"fee_created":   created,
			"fee_type":      fee.FeeType,
			"description":   up.Description,
			"reference":     up.Reference,
		})
		if err != nil {
			return err
		}
		feeID, paymentID := fee.ID, payment.ID
		if err := audit.Create(ctx, &models.MatchAuditLog{
			ID:                 uuid.New(),
			UnmatchedPaymentID: up.ID,
			Action:             "confirmed",
			PropertyID:         propertyID,
			FeeID:              &feeID,
			PaymentID:          &paymentID,
			PerformedBy:        in.PerformedBy,
			Details:            datatypes.JSON(details),
			CreatedAt:          now,
		}); err != nil {
			return ledger.StorageFailure("write match audit log", err)
		}

		match = Match{Payment: *payment, Fee: *fee, FeeCreated: created}
		return nil
	})
	if err != nil {
		s.log.Debug("match rejected",
			zap.String("unmatched_payment_id", id.String()),
			zap.String("property_id", propertyID.String()),
			zap.Error(err))
		return nil, err
	}

	s.log.Info("match confirmed",
		zap.String("unmatched_payment_id", id.String()),
		zap.String("property_id", propertyID.String()),
		zap.String("fee_id", match.Fee.ID.String()),
		zap.String("payment_id", match.Payment.ID.String()),
		zap.String("amount", match.Payment.Amount.StringFixed(2)),
		zap.Bool("fee_created", match.FeeCreated))
	return &match, nil
}

// targetFee resolves the fee a confirmed payment lands on
func (s *ReconciliationService) targetFee(tx *ledger.Tx, up *models.UnmatchedPayment, propertyID uuid.UUID, feeID *uuid.UUID) (*models.Fee, bool, error) {
	if feeID != nil {
		fee, err := tx.LockFee(*feeID)
		if err != nil {
			return nil, false, err
		}
		if fee.PropertyID != propertyID {
			return nil, false, ledger.Errorf(ledger.ErrFeeMismatch, "fee %s does not belong to property %s", fee.ID, propertyID)
		}
		return fee, false, nil
	}

	// fees too small for the whole credit are passed over; payments never split
	oldest, err := tx.OldestFeeCovering(propertyID, up.Amount)
	if err != nil {
		return nil, false, err
	}
	if oldest != nil {
		return &oldest.Fee, false, nil
	}

	fee, err := tx.CreateAdHocFee(propertyID, up.Amount, "Unallocated payment "+up.Date.Format("2006-01-02"))
	if err != nil {
		return nil, false, err
	}
	return fee, true, nil
}

// History returns the audit trail of one unmatched payment.
func (s *ReconciliationService) History(ctx context.Context, id uuid.UUID) ([]models.MatchAuditLog, error) {
	if _, err := s.getUnmatched(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.audit.ListByUnmatchedPayment(ctx, id)
	if err != nil {
		return nil, ledger.StorageFailure("load match history", err)
	}
	return entries, nil
}

func (s *ReconciliationService) getUnmatched(ctx context.Context, id uuid.UUID) (*models.UnmatchedPayment, error) {
	p, err := s.unmatched.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ledger.Errorf(ledger.ErrUnmatchedPaymentNotFound, "unmatched payment %s not found", id)
	}
	if err != nil {
		return nil, ledger.StorageFailure("load unmatched payment", err)
	}
	return p, nil
}

func paymentReference(p *models.UnmatchedPayment) string {
	if p.Reference != "" {
		return p.Reference
	}
	return p.Description
}

// GetImport returns the counters recorded for one statement upload.
func (s *ReconciliationService) GetImport(ctx context.Context, id uuid.UUID) (*models.StatementImport, error) {
	imp, err := s.imports.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ledger.Errorf(ledger.ErrStatementImportNotFound, "statement import %s not found", id)
	}
	if err != nil {
		return nil, ledger.StorageFailure("load statement import", err)
	}
	return imp, nil
}
