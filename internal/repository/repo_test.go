package repository

import (
	"testing"

	"shisha/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB 内存 SQLite，表结构与生产一致
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 内存库跟着连接走，限制单连接避免表丢失
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Restaurant{},
		&model.Package{},
		&model.PackageTimeWindow{},
		&model.UserPackage{},
		&model.ConsumptionRecord{},
		&model.PurchaseTransaction{},
		&model.OneTimeCode{},
		&model.RestaurantPayment{},
		&model.Settlement{},
		&model.SettlementLine{},
		&model.Rating{},
		&model.OutboxMessage{},
	))

	return db
}
