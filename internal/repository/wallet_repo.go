package repository

import (
	"context"
	"errors"

	"shisha/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrWalletNotFound      = errors.New("钱包不存在")
	ErrInsufficientBalance = errors.New("剩余次数不足")
	ErrOptimisticLock      = errors.New("乐观锁冲突，请重试")
	ErrWalletStatusInvalid = errors.New("钱包状态不合法")
)

type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) Create(ctx context.Context, tx *gorm.DB, wallet *model.UserPackage) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(wallet).Error
}

func (r *WalletRepository) GetByID(ctx context.Context, walletID int64) (*model.UserPackage, error) {
	var wallet model.UserPackage
	err := r.db.WithContext(ctx).Where("id = ?", walletID).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

func (r *WalletRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, walletID int64) (*model.UserPackage, error) {
	var wallet model.UserPackage
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", walletID).
		First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

// Debit 扣减剩余次数
// 条件更新：余额够且版本号没变才会命中，RowsAffected=0 时回查区分
// "余额不足"和"版本冲突"两种失败。钱包余额只允许从这里扣
func (r *WalletRepository) Debit(ctx context.Context, tx *gorm.DB, walletID int64, count int, version int) error {
	result := tx.WithContext(ctx).
		Model(&model.UserPackage{}).
		Where("id = ? AND remaining_count >= ? AND version = ? AND status = ?",
			walletID, count, version, model.WalletStatusActive).
		Updates(map[string]interface{}{
			"remaining_count": gorm.Expr("remaining_count - ?", count),
			"version":         gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		wallet, err := r.GetByID(ctx, walletID)
		if err != nil {
			return err
		}
		if wallet.Status != model.WalletStatusActive {
			return ErrWalletStatusInvalid
		}
		if wallet.RemainingCount < count {
			return ErrInsufficientBalance
		}
		return ErrOptimisticLock
	}

	return nil
}

// UpdateStatus 状态迁移，带前置状态校验
func (r *WalletRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, walletID int64, fromStatus, toStatus string) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.UserPackage{}).
		Where("id = ? AND status = ?", walletID, fromStatus).
		Updates(map[string]interface{}{
			"status":  toStatus,
			"version": gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrWalletStatusInvalid
	}

	return nil
}

func (r *WalletRepository) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.UserPackage, int64, error) {
	var wallets []*model.UserPackage
	var total int64

	query := r.db.WithContext(ctx).Model(&model.UserPackage{}).Where("user_id = ?", userID)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&wallets).Error

	return wallets, total, err
}

// ListByStatus 按状态批量取钱包，供过期扫描任务使用
func (r *WalletRepository) ListByStatus(ctx context.Context, status string, limit int) ([]*model.UserPackage, error) {
	var wallets []*model.UserPackage
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("id ASC").
		Limit(limit).
		Find(&wallets).Error
	return wallets, err
}
