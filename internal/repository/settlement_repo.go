package repository

import (
	"context"
	"errors"

	"shisha/internal/model"

	"gorm.io/gorm"
)

var ErrSettlementNotFound = errors.New("结算单不存在")

type SettlementRepository struct {
	db *gorm.DB
}

func NewSettlementRepository(db *gorm.DB) *SettlementRepository {
	return &SettlementRepository{db: db}
}

// NextNumber 分配单调递增的结算序号
// max+1 只在全局结算锁内调用，结算单飞保证了不会并发分配
func (r *SettlementRepository) NextNumber(ctx context.Context, tx *gorm.DB) (int64, error) {
	var maxNumber int64
	err := tx.WithContext(ctx).
		Model(&model.Settlement{}).
		Select("COALESCE(MAX(settlement_number), 0)").
		Scan(&maxNumber).Error
	if err != nil {
		return 0, err
	}
	return maxNumber + 1, nil
}

func (r *SettlementRepository) Create(ctx context.Context, tx *gorm.DB, settlement *model.Settlement, lines []*model.SettlementLine) error {
	if err := tx.WithContext(ctx).Create(settlement).Error; err != nil {
		return err
	}
	for _, line := range lines {
		line.SettlementNumber = settlement.SettlementNumber
	}
	return tx.WithContext(ctx).Create(&lines).Error
}

func (r *SettlementRepository) GetByNumber(ctx context.Context, settlementNumber int64) (*model.Settlement, error) {
	var settlement model.Settlement
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("settlement_number = ?", settlementNumber).
		First(&settlement).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSettlementNotFound
		}
		return nil, err
	}
	return &settlement, nil
}

func (r *SettlementRepository) List(ctx context.Context, page, pageSize int) ([]*model.Settlement, int64, error) {
	var settlements []*model.Settlement
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Settlement{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("settlement_number DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&settlements).Error

	return settlements, total, err
}
