package repository

import (
	"context"
	"errors"
	"time"

	"shisha/internal/model"

	"gorm.io/gorm"
)

var (
	ErrCodeNotFound    = errors.New("验证码不存在")
	ErrCodeAlreadyUsed = errors.New("验证码已使用")
)

type CodeRepository struct {
	db *gorm.DB
}

func NewCodeRepository(db *gorm.DB) *CodeRepository {
	return &CodeRepository{db: db}
}

func (r *CodeRepository) Create(ctx context.Context, tx *gorm.DB, code *model.OneTimeCode) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(code).Error
}

// GetLoginCode 按手机号 + 码值取最新的登录码
func (r *CodeRepository) GetLoginCode(ctx context.Context, phone, code string) (*model.OneTimeCode, error) {
	var otc model.OneTimeCode
	err := r.db.WithContext(ctx).
		Where("purpose = ? AND phone = ? AND code = ?", model.CodePurposeLogin, phone, code).
		Order("id DESC").
		First(&otc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}
	return &otc, nil
}

// GetConsumeCode 按码值 + 钱包取最新的核销码
// 5 位码跨钱包可能撞号，所以必须连同钱包一起定位
func (r *CodeRepository) GetConsumeCode(ctx context.Context, code string, walletID int64) (*model.OneTimeCode, error) {
	var otc model.OneTimeCode
	err := r.db.WithContext(ctx).
		Where("purpose = ? AND code = ? AND wallet_id = ?", model.CodePurposeConsume, code, walletID).
		Order("id DESC").
		First(&otc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}
	return &otc, nil
}

// MarkUsed 认领验证码
// 条件更新保证原子性：同一个码并发认领只有一个会成功，
// RowsAffected=0 即已被别人用掉
func (r *CodeRepository) MarkUsed(ctx context.Context, tx *gorm.DB, codeID int64, now time.Time) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.OneTimeCode{}).
		Where("id = ? AND used = ?", codeID, false).
		Updates(map[string]interface{}{
			"used":    true,
			"used_at": now,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrCodeAlreadyUsed
	}

	return nil
}

// InvalidateLoginCodes 作废某手机号所有未使用的登录码
// 新码签发时调用，保证同一时刻只有最新的登录码有效
func (r *CodeRepository) InvalidateLoginCodes(ctx context.Context, tx *gorm.DB, phone string, now time.Time) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.OneTimeCode{}).
		Where("purpose = ? AND phone = ? AND used = ?", model.CodePurposeLogin, phone, false).
		Updates(map[string]interface{}{
			"used":    true,
			"used_at": now,
		}).Error
}
