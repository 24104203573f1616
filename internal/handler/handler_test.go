package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shisha/internal/auth"
	"shisha/internal/config"
	"shisha/internal/infrastructure/lock"
	"shisha/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB, *config.Config) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
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

	cfg := &config.Config{
		Kafka: config.KafkaConfig{
			Topic: config.KafkaTopicConfig{
				SmsNotify:       "sms_notify",
				RedemptionEvent: "redemption_event",
				SettlementEvent: "settlement_event",
			},
		},
		Auth: config.AuthConfig{JWTSecret: "test-secret", TokenTTLHours: 72},
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

	return SetupRouter(db, lock.NewLocalFactory(), cfg), db, cfg
}

func bearerFor(t *testing.T, cfg *config.Config, p auth.Principal) string {
	t.Helper()
	token, err := auth.GenerateToken(cfg.Auth.JWTSecret, time.Hour, p, time.Now())
	require.NoError(t, err)
	return "Bearer " + token
}

func doJSON(r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _, _ := newTestRouter(t)
	w := doJSON(r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRequired(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := doJSON(r, http.MethodGet, "/api/v1/wallet/list", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/wallet/list", "Bearer garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRouteForbiddenForUser(t *testing.T) {
	r, _, cfg := newTestRouter(t)

	token := bearerFor(t, cfg, auth.Principal{Kind: auth.KindUser, UserID: 1})
	w := doJSON(r, http.MethodPost, "/api/v1/admin/settlement/run", token, gin.H{})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRedeemForbiddenForPlainUser(t *testing.T) {
	r, _, cfg := newTestRouter(t)

	token := bearerFor(t, cfg, auth.Principal{Kind: auth.KindUser, UserID: 1})
	w := doJSON(r, http.MethodPost, "/api/v1/redeem/execute", token, gin.H{
		"code": "00123", "wallet_id": 1, "restaurant_id": 1, "count": 1,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRedeemForbiddenForOtherRestaurantOperator(t *testing.T) {
	r, _, cfg := newTestRouter(t)

	// 操作员只能为本店核销
	token := bearerFor(t, cfg, auth.Principal{Kind: auth.KindOperator, UserID: 1, RestaurantID: 2})
	w := doJSON(r, http.MethodPost, "/api/v1/redeem/execute", token, gin.H{
		"code": "00123", "wallet_id": 1, "restaurant_id": 1, "count": 1,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPackageListPublic(t *testing.T) {
	r, db, _ := newTestRouter(t)

	require.NoError(t, db.Create(&model.Package{Name: "十次卡", Count: 10, Price: 50000, Enabled: true}).Error)
	require.NoError(t, db.Create(&model.Package{Name: "下架卡", Count: 5, Price: 20000, Enabled: false}).Error)

	w := doJSON(r, http.MethodGet, "/api/v1/package/list", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int             `json:"code"`
		Data []model.Package `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Zero(t, resp.Code)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "十次卡", resp.Data[0].Name)
}

func seedCodeIssueFixture(t *testing.T, db *gorm.DB) (*model.User, *model.Restaurant, *model.UserPackage) {
	t.Helper()
	user := &model.User{Phone: "0501111111", Role: model.RoleUser}
	require.NoError(t, db.Create(user).Error)
	restaurant := &model.Restaurant{Name: "测试餐厅", Active: true}
	require.NoError(t, db.Create(restaurant).Error)
	pkg := &model.Package{Name: "十次卡", Count: 10, Price: 50000, Enabled: true}
	require.NoError(t, db.Create(pkg).Error)
	wallet := &model.UserPackage{
		UserID: user.ID, PackageID: pkg.ID, TransactionNo: "TXN-1",
		TotalCount: 10, RemainingCount: 10, Status: model.WalletStatusActive,
		PurchasedAt: time.Now(),
	}
	require.NoError(t, db.Create(wallet).Error)
	return user, restaurant, wallet
}

func TestIssueGiftCodeForbiddenForUser(t *testing.T) {
	r, db, cfg := newTestRouter(t)
	user, restaurant, wallet := seedCodeIssueFixture(t, db)

	// 持卡人给自己的钱包打赠送标志会把账记反，必须拒绝
	token := bearerFor(t, cfg, auth.Principal{Kind: auth.KindUser, UserID: user.ID})
	w := doJSON(r, http.MethodPost, "/api/v1/code/issue", token, gin.H{
		"wallet_id": wallet.ID, "restaurant_id": restaurant.ID, "count": 2, "is_gift": true,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	var count int64
	require.NoError(t, db.Model(&model.OneTimeCode{}).Count(&count).Error)
	assert.Zero(t, count)

	// 非赠送路径不受影响
	w = doJSON(r, http.MethodPost, "/api/v1/code/issue", token, gin.H{
		"wallet_id": wallet.ID, "restaurant_id": restaurant.ID, "count": 2,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Code int `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Zero(t, resp.Code)
}

func TestIssueGiftCodeForbiddenForOtherRestaurantOperator(t *testing.T) {
	r, db, cfg := newTestRouter(t)
	_, restaurant, wallet := seedCodeIssueFixture(t, db)

	token := bearerFor(t, cfg, auth.Principal{
		Kind: auth.KindOperator, UserID: 99, RestaurantID: restaurant.ID + 1,
	})
	w := doJSON(r, http.MethodPost, "/api/v1/code/issue", token, gin.H{
		"wallet_id": wallet.ID, "restaurant_id": restaurant.ID, "count": 2, "is_gift": true,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestOperatorIssuesGiftCodeForCustomerWallet(t *testing.T) {
	r, db, cfg := newTestRouter(t)
	_, restaurant, wallet := seedCodeIssueFixture(t, db)

	// 本店操作员可为到店顾客的钱包签发赠送码，不受钱包归属限制
	token := bearerFor(t, cfg, auth.Principal{
		Kind: auth.KindOperator, UserID: 99, RestaurantID: restaurant.ID,
	})
	w := doJSON(r, http.MethodPost, "/api/v1/code/issue", token, gin.H{
		"wallet_id": wallet.ID, "restaurant_id": restaurant.ID, "count": 2, "is_gift": true,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int `json:"code"`
		Data struct {
			Code string `json:"code"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Zero(t, resp.Code)
	require.Len(t, resp.Data.Code, 5)

	var code model.OneTimeCode
	require.NoError(t, db.Where("code = ? AND wallet_id = ?", resp.Data.Code, wallet.ID).First(&code).Error)
	assert.True(t, code.IsGift)
	assert.Equal(t, wallet.UserID, code.UserID)
}

func TestIssueCodeInactiveRestaurant(t *testing.T) {
	r, db, cfg := newTestRouter(t)
	user, _, wallet := seedCodeIssueFixture(t, db)

	closed := &model.Restaurant{Name: "停业餐厅", Active: false}
	require.NoError(t, db.Create(closed).Error)

	token := bearerFor(t, cfg, auth.Principal{Kind: auth.KindUser, UserID: user.ID})
	w := doJSON(r, http.MethodPost, "/api/v1/code/issue", token, gin.H{
		"wallet_id": wallet.ID, "restaurant_id": closed.ID, "count": 2,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2604, resp.Code)
}

func TestRedeemEndToEnd(t *testing.T) {
	r, db, cfg := newTestRouter(t)

	user := &model.User{Phone: "0501111111", Role: model.RoleUser}
	require.NoError(t, db.Create(user).Error)
	restaurant := &model.Restaurant{Name: "测试餐厅", Active: true}
	require.NoError(t, db.Create(restaurant).Error)
	pkg := &model.Package{Name: "十次卡", Count: 10, Price: 50000, Enabled: true}
	require.NoError(t, db.Create(pkg).Error)
	wallet := &model.UserPackage{
		UserID: user.ID, PackageID: pkg.ID, TransactionNo: "TXN-1",
		TotalCount: 10, RemainingCount: 10, Status: model.WalletStatusActive,
		PurchasedAt: time.Now(),
	}
	require.NoError(t, db.Create(wallet).Error)
	code := &model.OneTimeCode{
		Purpose: model.CodePurposeConsume, Code: "00123",
		UserID: user.ID, WalletID: wallet.ID, RestaurantID: restaurant.ID,
		Count: 2, ExpiredAt: time.Now().Add(10 * time.Minute),
	}
	require.NoError(t, db.Create(code).Error)

	token := bearerFor(t, cfg, auth.Principal{
		Kind: auth.KindOperator, UserID: 99, RestaurantID: restaurant.ID,
	})

	w := doJSON(r, http.MethodPost, "/api/v1/redeem/execute", token, gin.H{
		"code": "00123", "wallet_id": wallet.ID, "restaurant_id": restaurant.ID, "count": 2,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int `json:"code"`
		Data struct {
			RedemptionNo   string `json:"redemption_no"`
			RemainingCount int    `json:"remaining_count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Zero(t, resp.Code)
	assert.Equal(t, 8, resp.Data.RemainingCount)
	assert.NotEmpty(t, resp.Data.RedemptionNo)

	// 重放拿到业务错误码
	w = doJSON(r, http.MethodPost, "/api/v1/redeem/execute", token, gin.H{
		"code": "00123", "wallet_id": wallet.ID, "restaurant_id": restaurant.ID, "count": 2,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var errResp struct {
		Code int `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, 2103, errResp.Code)
}
