package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"hoa-ledger-backend/internal/models"
	"hoa-ledger-backend/internal/services/ledger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type LedgerHandler struct {
	service *ledger.Service
	log     *zap.Logger
}

func NewLedgerHandler(s *ledger.Service, log *zap.Logger) *LedgerHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &LedgerHandler{service: s, log: log}
}

// ListProperties answers the properties summary used by the dashboard table.
// The body is a bare array; the dashboard iterates it directly.
func (h *LedgerHandler) ListProperties(c *gin.Context) {
	summaries, err := h.service.PropertiesSummary(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toPropertySummariesJSON(summaries))
}

func (h *LedgerHandler) CreateProperty(c *gin.Context) {
	var payload struct {
		UnitNumber string `json:"unit_number"`
		OwnerName  string `json:"owner_name"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, "invalid payload")
		return
	}

	p, err := h.service.CreateProperty(c.Request.Context(), payload.UnitNumber, payload.OwnerName)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "property": p})
}

func (h *LedgerHandler) PropertyFees(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	views, err := h.service.PropertyFees(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	fees := make([]feeViewJSON, 0, len(views))
	for _, v := range views {
		fees = append(fees, toFeeViewJSON(v))
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"balance": money(ledger.PropertyBalance(views)),
		"fees":    fees,
	})
}

func (h *LedgerHandler) ListBillingPeriods(c *gin.Context) {
	periods, err := h.service.ListBillingPeriods(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	out := make([]billingPeriodJSON, 0, len(periods))
	for _, p := range periods {
		out = append(out, toBillingPeriodJSON(p))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "billing_periods": out})
}

func (h *LedgerHandler) CreateBillingPeriod(c *gin.Context) {
	var payload struct {
		Name        string      `json:"name"`
		Description string      `json:"description"`
		FeeType     string      `json:"fee_type"`
		StartDate   string      `json:"start_date"` // yyyy-mm-dd
		EndDate     string      `json:"end_date"`
		DueDate     string      `json:"due_date"`
		UnitAmount  json.Number `json:"unit_amount"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, "invalid payload")
		return
	}

	start, err := parseDate(payload.StartDate)
	if err != nil {
		badRequest(c, "invalid start_date, expected yyyy-mm-dd")
		return
	}
	end, err := parseDate(payload.EndDate)
	if err != nil {
		badRequest(c, "invalid end_date, expected yyyy-mm-dd")
		return
	}
	in := ledger.NewBillingPeriod{
		Name:        payload.Name,
		Description: payload.Description,
		FeeType:     models.FeeType(payload.FeeType),
		StartDate:   start,
		EndDate:     end,
	}
	if payload.DueDate != "" {
		due, err := parseDate(payload.DueDate)
		if err != nil {
			badRequest(c, "invalid due_date, expected yyyy-mm-dd")
			return
		}
		in.DueDate = &due
	}
	if in.UnitAmount, err = parseMoney(payload.UnitAmount); err != nil {
		badRequest(c, "invalid unit_amount")
		return
	}

	period, err := h.service.CreateBillingPeriod(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "billing_period": toBillingPeriodJSON(*period)})
}

// GenerateFees raises the period's fees. Without property_ids every property
// is billed.
func (h *LedgerHandler) GenerateFees(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var payload struct {
		PropertyIDs []string `json:"property_ids"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid payload")
		return
	}
	targets := make([]uuid.UUID, 0, len(payload.PropertyIDs))
	for _, raw := range payload.PropertyIDs {
		pid, err := uuid.Parse(raw)
		if err != nil {
			badRequest(c, "invalid property id "+raw)
			return
		}
		targets = append(targets, pid)
	}

	fees, err := h.service.GenerateFees(c.Request.Context(), id, targets)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	out := make([]feeJSON, 0, len(fees))
	for _, f := range fees {
		out = append(out, toFeeJSON(f))
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "generated": len(fees), "fees": out})
}

type periodFeeJSON struct {
	feeViewJSON
	UnitNumber string `json:"unit_number"`
	OwnerName  string `json:"owner_name"`
}

// PeriodFees answers a bare array of the period's fees with their owners
func (h *LedgerHandler) PeriodFees(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	fees, err := h.service.PeriodFees(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	out := make([]periodFeeJSON, 0, len(fees))
	for _, f := range fees {
		out = append(out, periodFeeJSON{
			feeViewJSON: toFeeViewJSON(f.FeeView),
			UnitNumber:  f.Property.UnitNumber,
			OwnerName:   f.Property.OwnerName,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *LedgerHandler) GetFee(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	view, err := h.service.FeeDetail(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "fee": toFeeViewJSON(*view)})
}

func (h *LedgerHandler) ApplyPayment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var payload struct {
		Amount    json.Number `json:"amount"`
		Date      string      `json:"date"`
		Reference string      `json:"reference"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	amount, err := parseMoney(payload.Amount)
	if err != nil {
		badRequest(c, "invalid amount")
		return
	}
	date := h.service.Today()
	if payload.Date != "" {
		if date, err = parseDate(payload.Date); err != nil {
			badRequest(c, "invalid date, expected yyyy-mm-dd")
			return
		}
	}

	payment, err := h.service.ApplyPayment(c.Request.Context(), id, amount, date, payload.Reference)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "payment": toPaymentJSON(*payment)})
}

// MarkFeePaid answers soft failures with 200 so the dashboard can show a
// banner instead of an error page.
func (h *LedgerHandler) MarkFeePaid(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	payment, err := h.service.MarkPaid(c.Request.Context(), id)
	if errors.Is(err, ledger.ErrAlreadyPaid) || errors.Is(err, ledger.ErrFeeNotFound) {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": errorPayload(err)})
		return
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"payment_id": payment.ID,
		"payment":    toPaymentJSON(*payment),
	})
}

func (h *LedgerHandler) Dashboard(c *gin.Context) {
	d, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	recentFees := make([]feeJSON, 0, len(d.RecentFees))
	for _, f := range d.RecentFees {
		recentFees = append(recentFees, toFeeJSON(f))
	}
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"property_count":  d.PropertyCount,
		"total_balance":   money(d.TotalOutstanding),
		"total_unpaid":    money(d.TotalOutstanding),
		"total_paid":      money(d.TotalPaid),
		"total_charged":   money(d.TotalCharged),
		"fees_by_status":  d.FeesByStatus,
		"recent_payments": toPaymentsJSON(d.RecentPayments),
		"recent_fees":     recentFees,
	})
}
