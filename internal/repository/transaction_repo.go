package repository

import (
	"context"
	"errors"
	"time"

	"shisha/internal/model"

	"gorm.io/gorm"
)

var (
	ErrTransactionNotFound      = errors.New("交易不存在")
	ErrTransactionStatusInvalid = errors.New("交易状态不合法")
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *gorm.DB, trans *model.PurchaseTransaction) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(trans).Error
}

func (r *TransactionRepository) GetByTransactionNo(ctx context.Context, transactionNo string) (*model.PurchaseTransaction, error) {
	var trans model.PurchaseTransaction
	err := r.db.WithContext(ctx).Where("transaction_no = ?", transactionNo).First(&trans).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &trans, nil
}

// GetByGatewayRef 按网关关联号取交易，不存在返回 nil（回调幂等判断用）
func (r *TransactionRepository) GetByGatewayRef(ctx context.Context, gatewayRef string) (*model.PurchaseTransaction, error) {
	var trans model.PurchaseTransaction
	err := r.db.WithContext(ctx).Where("gateway_ref = ?", gatewayRef).First(&trans).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &trans, nil
}

// UpdateStatus 状态迁移，迁移合法性 + 前置状态双重校验
func (r *TransactionRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, transactionNo string, fromStatus, toStatus string, now time.Time) error {
	if !model.CanTransactionTransitionTo(fromStatus, toStatus) {
		return ErrTransactionStatusInvalid
	}

	if tx == nil {
		tx = r.db
	}

	updates := map[string]interface{}{
		"status": toStatus,
	}

	if toStatus == model.TransactionStatusCompleted {
		updates["completed_at"] = &now
	}

	result := tx.WithContext(ctx).
		Model(&model.PurchaseTransaction{}).
		Where("transaction_no = ? AND status = ?", transactionNo, fromStatus).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrTransactionStatusInvalid
	}

	return nil
}

// SetWalletID 确认成功后回填钱包ID
func (r *TransactionRepository) SetWalletID(ctx context.Context, tx *gorm.DB, transactionNo string, walletID int64) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.PurchaseTransaction{}).
		Where("transaction_no = ?", transactionNo).
		Update("wallet_id", walletID).Error
}

// GetExpiredPending 取超时未确认的交易，供超时关单任务使用
func (r *TransactionRepository) GetExpiredPending(ctx context.Context, now time.Time, limit int) ([]*model.PurchaseTransaction, error) {
	var transactions []*model.PurchaseTransaction
	err := r.db.WithContext(ctx).
		Where("status = ? AND expired_at < ?", model.TransactionStatusPending, now).
		Limit(limit).
		Find(&transactions).Error
	return transactions, err
}

func (r *TransactionRepository) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.PurchaseTransaction, int64, error) {
	var transactions []*model.PurchaseTransaction
	var total int64

	query := r.db.WithContext(ctx).Model(&model.PurchaseTransaction{}).Where("user_id = ?", userID)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&transactions).Error

	return transactions, total, err
}
