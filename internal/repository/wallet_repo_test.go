package repository

import (
	"context"
	"testing"
	"time"

	"shisha/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedWallet(t *testing.T, db *gorm.DB, remaining int) *model.UserPackage {
	t.Helper()
	wallet := &model.UserPackage{
		UserID:         1,
		PackageID:      1,
		TransactionNo:  "TXN-test",
		TotalCount:     10,
		RemainingCount: remaining,
		Status:         model.WalletStatusActive,
		PurchasedAt:    time.Now(),
	}
	require.NoError(t, db.Create(wallet).Error)
	return wallet
}

func TestWalletDebit(t *testing.T) {
	db := newTestDB(t)
	repo := NewWalletRepository(db)
	ctx := context.Background()

	wallet := seedWallet(t, db, 5)

	err := repo.Debit(ctx, db, wallet.ID, 3, wallet.Version)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.RemainingCount)
	assert.Equal(t, wallet.Version+1, got.Version)
}

func TestWalletDebitInsufficientBalance(t *testing.T) {
	db := newTestDB(t)
	repo := NewWalletRepository(db)
	ctx := context.Background()

	wallet := seedWallet(t, db, 2)

	err := repo.Debit(ctx, db, wallet.ID, 3, wallet.Version)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	// 失败不产生任何写入
	got, err := repo.GetByID(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.RemainingCount)
	assert.Equal(t, wallet.Version, got.Version)
}

func TestWalletDebitOptimisticLock(t *testing.T) {
	db := newTestDB(t)
	repo := NewWalletRepository(db)
	ctx := context.Background()

	wallet := seedWallet(t, db, 5)

	// 拿着旧版本号扣减，模拟并发下版本已被别人推进
	err := repo.Debit(ctx, db, wallet.ID, 1, wallet.Version)
	require.NoError(t, err)

	err = repo.Debit(ctx, db, wallet.ID, 1, wallet.Version)
	assert.ErrorIs(t, err, ErrOptimisticLock)
}

func TestWalletDebitRejectsInactive(t *testing.T) {
	db := newTestDB(t)
	repo := NewWalletRepository(db)
	ctx := context.Background()

	wallet := seedWallet(t, db, 5)
	require.NoError(t, repo.UpdateStatus(ctx, nil, wallet.ID, model.WalletStatusActive, model.WalletStatusExpired))

	err := repo.Debit(ctx, db, wallet.ID, 1, wallet.Version+1)
	assert.ErrorIs(t, err, ErrWalletStatusInvalid)
}

func TestWalletUpdateStatusGuard(t *testing.T) {
	db := newTestDB(t)
	repo := NewWalletRepository(db)
	ctx := context.Background()

	wallet := seedWallet(t, db, 5)

	// 前置状态不符，迁移失败
	err := repo.UpdateStatus(ctx, nil, wallet.ID, model.WalletStatusPending, model.WalletStatusActive)
	assert.ErrorIs(t, err, ErrWalletStatusInvalid)

	require.NoError(t, repo.UpdateStatus(ctx, nil, wallet.ID, model.WalletStatusActive, model.WalletStatusExpired))

	// 重复迁移同样失败（已不在前置状态）
	err = repo.UpdateStatus(ctx, nil, wallet.ID, model.WalletStatusActive, model.WalletStatusExpired)
	assert.ErrorIs(t, err, ErrWalletStatusInvalid)
}

func TestWalletGetByIDNotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewWalletRepository(db)

	_, err := repo.GetByID(context.Background(), 999)
	assert.ErrorIs(t, err, ErrWalletNotFound)
}
