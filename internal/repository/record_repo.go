package repository

import (
	"context"
	"errors"

	"shisha/internal/model"

	"gorm.io/gorm"
)

var ErrRedemptionNotFound = errors.New("核销记录不存在")

// RecordRepository 核销流水，只追加
type RecordRepository struct {
	db *gorm.DB
}

func NewRecordRepository(db *gorm.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

func (r *RecordRepository) Create(ctx context.Context, tx *gorm.DB, record *model.ConsumptionRecord) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(record).Error
}

func (r *RecordRepository) GetByRedemptionNo(ctx context.Context, redemptionNo string) (*model.ConsumptionRecord, error) {
	var record model.ConsumptionRecord
	err := r.db.WithContext(ctx).Where("redemption_no = ?", redemptionNo).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRedemptionNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *RecordRepository) ListByWalletID(ctx context.Context, walletID int64) ([]*model.ConsumptionRecord, error) {
	var records []*model.ConsumptionRecord
	err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("id ASC").
		Find(&records).Error
	return records, err
}

// SumCountByWalletID 钱包累计核销次数，用于余额不变式对账
func (r *RecordRepository) SumCountByWalletID(ctx context.Context, walletID int64) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&model.ConsumptionRecord{}).
		Where("wallet_id = ?", walletID).
		Select("COALESCE(SUM(count), 0)").
		Scan(&total).Error
	return int(total), err
}
