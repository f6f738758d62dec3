package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"hoa-ledger-backend/internal/logger"
	"hoa-ledger-backend/internal/models"
	"hoa-ledger-backend/internal/services/ledger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// httpStatus maps a ledger error code onto a response status
func httpStatus(code string) int {
	switch code {
	case ledger.CodeFeeNotFound, ledger.CodePropertyNotFound,
		ledger.CodeBillingPeriodNotFound, ledger.CodeUnmatchedPaymentNotFound,
		ledger.CodeStatementImportNotFound:
		return http.StatusNotFound
	case ledger.CodeInvalidPeriod, ledger.CodeInvalidAmount, ledger.CodeInvalidInput,
		ledger.CodeInvalidStatement, ledger.CodeAmbiguousMatch:
		return http.StatusBadRequest
	case ledger.CodeDuplicateGeneration, ledger.CodeOverpaymentRejected, ledger.CodeAlreadyPaid,
		ledger.CodeAlreadyMatched, ledger.CodeFeeMismatch:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func errorPayload(err error) errorBody {
	var le *ledger.Error
	if errors.As(err, &le) && le.Code != ledger.CodeStorageFailure {
		return errorBody{Code: le.Code, Message: le.Message}
	}
	// storage causes stay in the logs
	return errorBody{Code: ledger.CodeStorageFailure, Message: "internal storage error"}
}

func respondError(c *gin.Context, log *zap.Logger, err error) {
	code := ledger.CodeOf(err)
	status := httpStatus(code)
	if status >= http.StatusInternalServerError {
		logger.FromGin(c, log).Error("request failed", zap.String("code", code), zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"success": false, "error": errorPayload(err)})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   errorBody{Code: ledger.CodeInvalidInput, Message: message},
	})
}

func parseID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func parseOptionalID(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// money renders an amount as a JSON number with two decimals
func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

func parseMoney(s json.Number) (decimal.Decimal, error) {
	return decimal.NewFromString(s.String())
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

type paymentJSON struct {
	ID        uuid.UUID   `json:"id"`
	FeeID     uuid.UUID   `json:"fee_id"`
	Amount    json.Number `json:"amount"`
	Date      string      `json:"date"`
	Reference string      `json:"reference,omitempty"`
}

func toPaymentJSON(p models.Payment) paymentJSON {
	return paymentJSON{
		ID:        p.ID,
		FeeID:     p.FeeID,
		Amount:    money(p.Amount),
		Date:      p.Date.Format(dateLayout),
		Reference: p.Reference,
	}
}

func toPaymentsJSON(payments []models.Payment) []paymentJSON {
	out := make([]paymentJSON, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentJSON(p))
	}
	return out
}

type feeJSON struct {
	ID              uuid.UUID      `json:"id"`
	PropertyID      uuid.UUID      `json:"property_id"`
	BillingPeriodID *uuid.UUID     `json:"billing_period_id"`
	FeeType         models.FeeType `json:"fee_type"`
	Description     string         `json:"description"`
	Amount          json.Number    `json:"amount"`
	DueDate         *string        `json:"due_date"`
	CreatedAt       time.Time      `json:"created_at"`
}

func toFeeJSON(f models.Fee) feeJSON {
	return feeJSON{
		ID:              f.ID,
		PropertyID:      f.PropertyID,
		BillingPeriodID: f.BillingPeriodID,
		FeeType:         f.FeeType,
		Description:     f.Description,
		Amount:          money(f.Amount),
		DueDate:         formatDate(f.DueDate),
		CreatedAt:       f.CreatedAt,
	}
}

type feeViewJSON struct {
	feeJSON
	PaidAmount json.Number   `json:"paid_amount"`
	Remaining  json.Number   `json:"remaining"`
	Status     ledger.Status `json:"status"`
	Paid       bool          `json:"paid"`
	Payments   []paymentJSON `json:"payments"`
}

func toFeeViewJSON(v ledger.FeeView) feeViewJSON {
	return feeViewJSON{
		feeJSON:    toFeeJSON(v.Fee),
		PaidAmount: money(v.Paid),
		Remaining:  money(v.Remaining),
		Status:     v.Status,
		Paid:       v.Status == ledger.StatusPaid,
		Payments:   toPaymentsJSON(v.Payments),
	}
}

type propertySummaryJSON struct {
	ID            uuid.UUID   `json:"id"`
	UnitNumber    string      `json:"unit_number"`
	OwnerName     string      `json:"owner_name"`
	Balance       json.Number `json:"balance"`
	UnpaidFees    json.Number `json:"unpaid_fees"`
	TotalPayments json.Number `json:"total_payments"`
}

func toPropertySummaryJSON(s ledger.PropertySummary) propertySummaryJSON {
	return propertySummaryJSON{
		ID:            s.Property.ID,
		UnitNumber:    s.Property.UnitNumber,
		OwnerName:     s.Property.OwnerName,
		Balance:       money(s.Balance),
		UnpaidFees:    money(s.UnpaidFees),
		TotalPayments: money(s.TotalPayments),
	}
}

func toPropertySummariesJSON(summaries []ledger.PropertySummary) []propertySummaryJSON {
	out := make([]propertySummaryJSON, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, toPropertySummaryJSON(s))
	}
	return out
}

type billingPeriodJSON struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	FeeType     models.FeeType `json:"fee_type"`
	StartDate   string         `json:"start_date"`
	EndDate     string         `json:"end_date"`
	DueDate     *string        `json:"due_date"`
	UnitAmount  json.Number    `json:"unit_amount"`
	CreatedAt   time.Time      `json:"created_at"`
}

func toBillingPeriodJSON(p models.BillingPeriod) billingPeriodJSON {
	return billingPeriodJSON{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		FeeType:     p.FeeType,
		StartDate:   p.StartDate.Format(dateLayout),
		EndDate:     p.EndDate.Format(dateLayout),
		DueDate:     formatDate(p.DueDate),
		UnitAmount:  money(p.UnitAmount),
		CreatedAt:   p.CreatedAt,
	}
}

type unmatchedPaymentJSON struct {
	ID          uuid.UUID                     `json:"id"`
	ImportID    *uuid.UUID                    `json:"import_id,omitempty"`
	Date        string                        `json:"date"`
	Amount      json.Number                   `json:"amount"`
	Description string                        `json:"description"`
	Reference   string                        `json:"reference"`
	Status      models.UnmatchedPaymentStatus `json:"status"`
	PaymentID   *uuid.UUID                    `json:"payment_id,omitempty"`
}

func toUnmatchedJSON(p models.UnmatchedPayment) unmatchedPaymentJSON {
	return unmatchedPaymentJSON{
		ID:          p.ID,
		ImportID:    p.ImportID,
		Date:        p.Date.Format(dateLayout),
		Amount:      money(p.Amount),
		Description: p.Description,
		Reference:   p.Reference,
		Status:      p.Status,
		PaymentID:   p.PaymentID,
	}
}
