package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"hoa-ledger-backend/internal/logger"
	service "hoa-ledger-backend/internal/services/reconciliation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ReconciliationHandler struct {
	service        *service.ReconciliationService
	maxUploadBytes int64
	log            *zap.Logger
}

func NewReconciliationHandler(s *service.ReconciliationService, maxUploadBytes int64, log *zap.Logger) *ReconciliationHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReconciliationHandler{service: s, maxUploadBytes: maxUploadBytes, log: log}
}

// Upload imports a bank statement CSV sent as multipart field "file"
func (h *ReconciliationHandler) Upload(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		badRequest(c, "file required")
		return
	}
	defer file.Close()

	logger.FromGin(c, h.log).Info("statement received",
		zap.String("filename", header.Filename),
		zap.Int64("size", header.Size))

	imp, err := h.service.ImportStatement(c.Request.Context(), header.Filename, file)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "import": imp})
}

func (h *ReconciliationHandler) GetImport(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	imp, err := h.service.GetImport(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "import": imp})
}

func (h *ReconciliationHandler) AddUnmatched(c *gin.Context) {
	var payload struct {
		Date        string      `json:"date"` // yyyy-mm-dd
		Amount      json.Number `json:"amount"`
		Description string      `json:"description"`
		Reference   string      `json:"reference"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	date, err := parseDate(payload.Date)
	if err != nil {
		badRequest(c, "invalid date, expected yyyy-mm-dd")
		return
	}
	amount, err := parseMoney(payload.Amount)
	if err != nil {
		badRequest(c, "invalid amount")
		return
	}

	p, err := h.service.AddUnmatchedPayment(c.Request.Context(), service.NewUnmatchedPayment{
		Date:        date,
		Amount:      amount,
		Description: payload.Description,
		Reference:   payload.Reference,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "unmatched_payment": toUnmatchedJSON(*p)})
}

// ListUnmatched pages through the pending work list
func (h *ReconciliationHandler) ListUnmatched(c *gin.Context) {
	limit := service.DefaultPageSize
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(c, "invalid limit")
			return
		}
		limit = n
	}

	page, err := h.service.ListPending(c.Request.Context(), c.Query("cursor"), limit, c.Query("search"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	items := make([]unmatchedPaymentJSON, 0, len(page.Items))
	for _, p := range page.Items {
		items = append(items, toUnmatchedJSON(p))
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"items":       items,
		"next_cursor": page.NextCursor,
		"has_more":    page.HasMore,
	})
}

func (h *ReconciliationHandler) Candidates(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	proposal, err := h.service.Propose(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"unmatched_payment": toUnmatchedJSON(proposal.Payment),
		"candidates":        toPropertySummariesJSON(proposal.Candidates),
	})
}

// Confirm binds an unmatched payment to a property and optionally a fee
func (h *ReconciliationHandler) Confirm(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var payload struct {
		PropertyID  string `json:"property_id"`
		FeeID       string `json:"fee_id"`
		PerformedBy string `json:"performed_by"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	propertyID, err := parseOptionalID(payload.PropertyID)
	if err != nil {
		badRequest(c, "invalid property_id")
		return
	}
	feeID, err := parseOptionalID(payload.FeeID)
	if err != nil {
		badRequest(c, "invalid fee_id")
		return
	}

	match, err := h.service.ConfirmMatch(c.Request.Context(), id, service.ConfirmInput{
		PropertyID:  propertyID,
		FeeID:       feeID,
		PerformedBy: payload.PerformedBy,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"payment_id":  match.Payment.ID,
		"payment":     toPaymentJSON(match.Payment),
		"fee":         toFeeJSON(match.Fee),
		"fee_created": match.FeeCreated,
	})
}

func (h *ReconciliationHandler) History(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	entries, err := h.service.History(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "history": entries})
}

func (h *ReconciliationHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"total":           stats.Total,
		"total_amount":    money(stats.TotalAmount),
		"unmatched_count": stats.UnmatchedCount,
		"unmatched_sum":   money(stats.UnmatchedSum),
		"matched_count":   stats.MatchedCount,
		"matched_sum":     money(stats.MatchedSum),
	})
}
