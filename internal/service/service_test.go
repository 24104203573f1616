package service

import (
	"fmt"
	"testing"
	"time"

	"shisha/internal/config"
	"shisha/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 测试基准时刻：2025-06-15 15:00 利雅得（UTC 12:00），落在 13:00-17:00 时段内
var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time {
	return testNow
}

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

func testConfig() *config.Config {
	return &config.Config{
		Kafka: config.KafkaConfig{
			Topic: config.KafkaTopicConfig{
				SmsNotify:       "sms_notify",
				RedemptionEvent: "redemption_event",
				SettlementEvent: "settlement_event",
			},
		},
		Auth: config.AuthConfig{
			JWTSecret:     "test-secret",
			TokenTTLHours: 72,
		},
		Business: config.BusinessConfig{
			Currency:                  "SAR",
			CommissionPercentage:      20,
			LoginCodeTTLMinutes:       5,
			ConsumeCodeTTLMinutes:     10,
			TransactionTimeoutMinutes: 30,
			GatewayBaseURL:            "https://pay.example.com",
			RedeemMaxRetries:          3,
			MaxRetryCount:             5,
		},
	}
}

func seedUser(t *testing.T, db *gorm.DB, phone string) *model.User {
	t.Helper()
	user := &model.User{Phone: phone, Role: model.RoleUser}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedRestaurant(t *testing.T, db *gorm.DB, commission *int) *model.Restaurant {
	t.Helper()
	restaurant := &model.Restaurant{
		Name:                 "测试餐厅",
		Phone:                "0500000000",
		Active:               true,
		CommissionPercentage: commission,
	}
	require.NoError(t, db.Create(restaurant).Error)
	return restaurant
}

// seedPackage 10 次 500.00（50000 分），无时段限制
func seedPackage(t *testing.T, db *gorm.DB, windows ...model.PackageTimeWindow) *model.Package {
	t.Helper()
	pkg := &model.Package{
		Name:        "豪华十次卡",
		Count:       10,
		Price:       50000,
		Enabled:     true,
		TimeWindows: windows,
	}
	require.NoError(t, db.Create(pkg).Error)
	return pkg
}

func seedActiveWallet(t *testing.T, db *gorm.DB, user *model.User, pkg *model.Package, remaining int) *model.UserPackage {
	t.Helper()
	wallet := &model.UserPackage{
		UserID:         user.ID,
		PackageID:      pkg.ID,
		TransactionNo:  fmt.Sprintf("TXN-%d-%d", user.ID, pkg.ID),
		TotalCount:     pkg.Count,
		RemainingCount: remaining,
		Status:         model.WalletStatusActive,
		PurchasedAt:    testNow.AddDate(0, 0, -1),
	}
	require.NoError(t, db.Create(wallet).Error)
	return wallet
}

func seedConsumeCode(t *testing.T, db *gorm.DB, wallet *model.UserPackage, restaurantID int64, count int, isGift bool) *model.OneTimeCode {
	t.Helper()
	code := &model.OneTimeCode{
		Purpose:      model.CodePurposeConsume,
		Code:         fmt.Sprintf("%05d", wallet.ID*100+int64(count)),
		UserID:       wallet.UserID,
		WalletID:     wallet.ID,
		RestaurantID: restaurantID,
		Count:        count,
		IsGift:       isGift,
		ExpiredAt:    testNow.Add(10 * time.Minute),
	}
	require.NoError(t, db.Create(code).Error)
	return code
}

func countOutbox(t *testing.T, db *gorm.DB, topic string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&model.OutboxMessage{}).Where("topic = ?", topic).Count(&n).Error)
	return n
}
