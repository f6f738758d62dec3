package ledger

import (
	"testing"
	"time"

	"hoa-ledger-backend/internal/models"
	"hoa-ledger-backend/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testStart = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	return NewService(db, WithClock(testutil.Clock(testStart))), db
}

func seedFee(t *testing.T, s *Service, db *gorm.DB, propertyID uuid.UUID, feeType models.FeeType, amount string) models.Fee {
	t.Helper()
	fee := models.Fee{
		ID:          uuid.New(),
		PropertyID:  propertyID,
		FeeType:     feeType,
		Amount:      testutil.Money(t, amount),
		Description: string(feeType),
		CreatedAt:   s.Now(),
	}
	require.NoError(t, db.Create(&fee).Error)
	return fee
}
