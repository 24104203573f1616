package service

import (
	"context"
	"testing"
	"time"

	"shisha/internal/model"
	"shisha/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newCodeServiceForTest(t *testing.T, db *gorm.DB) *CodeService {
	t.Helper()
	s := NewCodeService(db, testConfig())
	s.now = fixedNow
	return s
}

func TestIssueLoginCodeSupersedesOld(t *testing.T) {
	db := newTestDB(t)
	s := newCodeServiceForTest(t, db)
	ctx := context.Background()

	_, err := s.IssueLoginCode(ctx, "0501234567")
	require.NoError(t, err)

	resp, err := s.IssueLoginCode(ctx, "0501234567")
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(5*time.Minute), resp.ExpiresAt)

	// 只有最新的码未使用
	var codes []model.OneTimeCode
	require.NoError(t, db.Where("purpose = ? AND phone = ?", model.CodePurposeLogin, "0501234567").
		Order("id ASC").Find(&codes).Error)
	require.Len(t, codes, 2)
	assert.True(t, codes[0].Used)
	assert.False(t, codes[1].Used)
	assert.Len(t, codes[1].Code, model.LoginCodeLength)

	// 每次签发都有一条短信进发件箱
	assert.Equal(t, int64(2), countOutbox(t, db, "sms_notify"))
}

func TestIssueConsumptionCode(t *testing.T) {
	db := newTestDB(t)
	s := newCodeServiceForTest(t, db)
	ctx := context.Background()

	user := seedUser(t, db, "0501111111")
	restaurant := seedRestaurant(t, db, nil)
	pkg := seedPackage(t, db)
	wallet := seedActiveWallet(t, db, user, pkg, 5)

	resp, err := s.IssueConsumptionCode(ctx, &IssueConsumeCodeRequest{
		WalletID:     wallet.ID,
		RestaurantID: restaurant.ID,
		Count:        2,
		OwnerUserID:  user.ID,
	})
	require.NoError(t, err)

	// 5 位零填充字符串
	assert.Len(t, resp.Code, model.ConsumeCodeLength)

	var code model.OneTimeCode
	require.NoError(t, db.Where("purpose = ? AND wallet_id = ?", model.CodePurposeConsume, wallet.ID).
		First(&code).Error)
	assert.Equal(t, resp.Code, code.Code)
	assert.Equal(t, restaurant.ID, code.RestaurantID)
	assert.Equal(t, 2, code.Count)
	assert.False(t, code.IsGift)

	// 通知发给钱包所有者
	assert.Equal(t, int64(1), countOutbox(t, db, "sms_notify"))
}

func TestIssueConsumptionCodeQuantityChecks(t *testing.T) {
	db := newTestDB(t)
	s := newCodeServiceForTest(t, db)
	ctx := context.Background()

	user := seedUser(t, db, "0501111111")
	restaurant := seedRestaurant(t, db, nil)
	pkg := seedPackage(t, db)
	wallet := seedActiveWallet(t, db, user, pkg, 2)

	// 数量必须 >= 1
	_, err := s.IssueConsumptionCode(ctx, &IssueConsumeCodeRequest{
		WalletID: wallet.ID, RestaurantID: restaurant.ID, Count: 0,
	})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	// 数量超过余额，签发阶段就拒绝
	_, err = s.IssueConsumptionCode(ctx, &IssueConsumeCodeRequest{
		WalletID: wallet.ID, RestaurantID: restaurant.ID, Count: 3,
	})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestIssueConsumptionCodeOwnership(t *testing.T) {
	db := newTestDB(t)
	s := newCodeServiceForTest(t, db)
	ctx := context.Background()

	owner := seedUser(t, db, "0501111111")
	stranger := seedUser(t, db, "0502222222")
	restaurant := seedRestaurant(t, db, nil)
	pkg := seedPackage(t, db)
	wallet := seedActiveWallet(t, db, owner, pkg, 5)

	// 非所有者按不存在处理，不暴露他人钱包
	_, err := s.IssueConsumptionCode(ctx, &IssueConsumeCodeRequest{
		WalletID: wallet.ID, RestaurantID: restaurant.ID, Count: 1, OwnerUserID: stranger.ID,
	})
	assert.ErrorIs(t, err, repository.ErrWalletNotFound)

	// OwnerUserID 为 0 是免归属路径（管理员或本店操作员为顾客签发）
	resp, err := s.IssueConsumptionCode(ctx, &IssueConsumeCodeRequest{
		WalletID: wallet.ID, RestaurantID: restaurant.ID, Count: 1, IsGift: true, OwnerUserID: 0,
	})
	require.NoError(t, err)

	code, err := s.codeRepo.GetConsumeCode(ctx, resp.Code, wallet.ID)
	require.NoError(t, err)
	assert.True(t, code.IsGift)
	assert.Equal(t, owner.ID, code.UserID)
}

func TestIssueConsumptionCodeInactiveRestaurant(t *testing.T) {
	db := newTestDB(t)
	s := newCodeServiceForTest(t, db)
	ctx := context.Background()

	user := seedUser(t, db, "0501111111")
	restaurant := seedRestaurant(t, db, nil)
	require.NoError(t, db.Model(&model.Restaurant{}).Where("id = ?", restaurant.ID).
		Update("active", false).Error)
	pkg := seedPackage(t, db)
	wallet := seedActiveWallet(t, db, user, pkg, 5)

	_, err := s.IssueConsumptionCode(ctx, &IssueConsumeCodeRequest{
		WalletID: wallet.ID, RestaurantID: restaurant.ID, Count: 1,
	})
	assert.ErrorIs(t, err, ErrRestaurantInactive)
}

func TestIssueConsumptionCodeExpiredWallet(t *testing.T) {
	db := newTestDB(t)
	s := newCodeServiceForTest(t, db)
	ctx := context.Background()

	user := seedUser(t, db, "0501111111")
	restaurant := seedRestaurant(t, db, nil)
	pkg := seedPackage(t, db)
	days1 := 1
	require.NoError(t, db.Model(&model.Package{}).Where("id = ?", pkg.ID).
		Update("duration_days", days1).Error)

	wallet := seedActiveWallet(t, db, user, pkg, 5)
	require.NoError(t, db.Model(&model.UserPackage{}).Where("id = ?", wallet.ID).
		Update("purchased_at", testNow.AddDate(0, 0, -2)).Error)

	_, err := s.IssueConsumptionCode(ctx, &IssueConsumeCodeRequest{
		WalletID: wallet.ID, RestaurantID: restaurant.ID, Count: 1,
	})
	assert.ErrorIs(t, err, ErrWalletExpired)
}
