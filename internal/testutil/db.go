// Package testutil builds throwaway ledger stores for tests.
package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hoa-ledger-backend/internal/models"
)

// NewDB opens a migrated in-memory SQLite database. The pool is pinned to a
// single connection because every new :memory: connection is a fresh database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// Clock returns a deterministic clock that advances one minute per call.
func Clock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start.Add(-time.Minute)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Minute)
		return current
	}
}

// Money parses a decimal literal, failing the test on bad input.
func Money(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

// SeedProperty inserts a property directly into the store.
func SeedProperty(t *testing.T, db *gorm.DB, unit, owner string) models.Property {
	t.Helper()
	p := models.Property{
		ID:         uuid.New(),
		UnitNumber: unit,
		OwnerName:  owner,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}
