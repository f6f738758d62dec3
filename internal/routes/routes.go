package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	handler "hoa-ledger-backend/internal/handlers"
	"hoa-ledger-backend/internal/services/ledger"
	service "hoa-ledger-backend/internal/services/reconciliation"
)

// Options tunes route wiring
type Options struct {
	MaxUploadBytes int64
	LedgerOptions  []ledger.Option
}

func RegisterRoutes(r *gin.Engine, db *gorm.DB, log *zap.Logger, opts Options) {
	if log == nil {
		log = zap.NewNop()
	}

	ledgerService := ledger.NewService(db, append([]ledger.Option{ledger.WithLogger(log)}, opts.LedgerOptions...)...)
	reconService := service.NewReconciliationService(db, ledgerService, log)

	ledgerHandler := handler.NewLedgerHandler(ledgerService, log)
	reconHandler := handler.NewReconciliationHandler(reconService, opts.MaxUploadBytes, log)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api.GET("/dashboard", ledgerHandler.Dashboard)

	properties := api.Group("/properties")
	properties.GET("", ledgerHandler.ListProperties)
	properties.POST("", ledgerHandler.CreateProperty)
	properties.GET("/:id/fees", ledgerHandler.PropertyFees)

	periods := api.Group("/billing_periods")
	periods.GET("", ledgerHandler.ListBillingPeriods)
	periods.POST("", ledgerHandler.CreateBillingPeriod)
	periods.POST("/:id/generate", ledgerHandler.GenerateFees)
	periods.GET("/:id/fees", ledgerHandler.PeriodFees)

	fees := api.Group("/fees")
	fees.GET("/:id", ledgerHandler.GetFee)
	fees.POST("/:id/payments", ledgerHandler.ApplyPayment)

	api.POST("/mark_fee_paid/:id", ledgerHandler.MarkFeePaid)

	// Reconciliation routes
	recon := api.Group("/reconciliation")
	recon.POST("/upload", reconHandler.Upload)
	recon.GET("/imports/:id", reconHandler.GetImport)
	recon.GET("/stats", reconHandler.Stats)

	unmatched := recon.Group("/unmatched")
	unmatched.GET("", reconHandler.ListUnmatched)
	unmatched.POST("", reconHandler.AddUnmatched)
	unmatched.GET("/:id/candidates", reconHandler.Candidates)
	unmatched.POST("/:id/confirm", reconHandler.Confirm)
	unmatched.GET("/:id/history", reconHandler.History)
}
