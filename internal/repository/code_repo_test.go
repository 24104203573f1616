package repository

import (
	"context"
	"testing"
	"time"

	"shisha/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeMarkUsedClaimsOnce(t *testing.T) {
	db := newTestDB(t)
	repo := NewCodeRepository(db)
	ctx := context.Background()
	now := time.Now()

	code := &model.OneTimeCode{
		Purpose:   model.CodePurposeConsume,
		Code:      "00371",
		WalletID:  1,
		Count:     2,
		ExpiredAt: now.Add(10 * time.Minute),
	}
	require.NoError(t, repo.Create(ctx, nil, code))

	require.NoError(t, repo.MarkUsed(ctx, nil, code.ID, now))

	// 第二次认领失败，单码只能用一次
	err := repo.MarkUsed(ctx, nil, code.ID, now)
	assert.ErrorIs(t, err, ErrCodeAlreadyUsed)
}

func TestCodeZeroPaddingSurvivesStorage(t *testing.T) {
	db := newTestDB(t)
	repo := NewCodeRepository(db)
	ctx := context.Background()

	code := &model.OneTimeCode{
		Purpose:   model.CodePurposeConsume,
		Code:      "00042",
		WalletID:  7,
		ExpiredAt: time.Now().Add(10 * time.Minute),
	}
	require.NoError(t, repo.Create(ctx, nil, code))

	got, err := repo.GetConsumeCode(ctx, "00042", 7)
	require.NoError(t, err)
	assert.Equal(t, "00042", got.Code)
}

func TestGetConsumeCodeScopedByWallet(t *testing.T) {
	db := newTestDB(t)
	repo := NewCodeRepository(db)
	ctx := context.Background()
	expires := time.Now().Add(10 * time.Minute)

	// 两个钱包撞出同一个 5 位码，必须各取各的
	require.NoError(t, repo.Create(ctx, nil, &model.OneTimeCode{
		Purpose: model.CodePurposeConsume, Code: "12345", WalletID: 1, Count: 1, ExpiredAt: expires,
	}))
	require.NoError(t, repo.Create(ctx, nil, &model.OneTimeCode{
		Purpose: model.CodePurposeConsume, Code: "12345", WalletID: 2, Count: 3, ExpiredAt: expires,
	}))

	got, err := repo.GetConsumeCode(ctx, "12345", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.WalletID)
	assert.Equal(t, 3, got.Count)

	_, err = repo.GetConsumeCode(ctx, "12345", 99)
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestInvalidateLoginCodes(t *testing.T) {
	db := newTestDB(t)
	repo := NewCodeRepository(db)
	ctx := context.Background()
	now := time.Now()

	old := &model.OneTimeCode{
		Purpose: model.CodePurposeLogin, Code: "111111", Phone: "0501234567",
		ExpiredAt: now.Add(5 * time.Minute),
	}
	require.NoError(t, repo.Create(ctx, nil, old))

	require.NoError(t, repo.InvalidateLoginCodes(ctx, nil, "0501234567", now))

	fresh := &model.OneTimeCode{
		Purpose: model.CodePurposeLogin, Code: "222222", Phone: "0501234567",
		ExpiredAt: now.Add(5 * time.Minute),
	}
	require.NoError(t, repo.Create(ctx, nil, fresh))

	// 旧码已作废
	got, err := repo.GetLoginCode(ctx, "0501234567", "111111")
	require.NoError(t, err)
	assert.True(t, got.Used)

	got, err = repo.GetLoginCode(ctx, "0501234567", "222222")
	require.NoError(t, err)
	assert.False(t, got.Used)
}
