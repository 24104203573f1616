package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shisha/internal/model"

	"gorm.io/gorm"
)

var (
	ErrPaymentNotFound = errors.New("分账记录不存在")
	ErrAlreadySettled  = errors.New("分账记录不在待结算状态")
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, tx *gorm.DB, payment *model.RestaurantPayment) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(payment).Error
}

func (r *PaymentRepository) GetByPaymentNo(ctx context.Context, paymentNo string) (*model.RestaurantPayment, error) {
	var payment model.RestaurantPayment
	err := r.db.WithContext(ctx).Where("payment_no = ?", paymentNo).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

// ListDue 取全部待结算记录，可按餐厅过滤
func (r *PaymentRepository) ListDue(ctx context.Context, restaurantIDs []int64) ([]*model.RestaurantPayment, error) {
	query := r.db.WithContext(ctx).Where("status = ?", model.PaymentStatusDue)
	if len(restaurantIDs) > 0 {
		query = query.Where("restaurant_id IN ?", restaurantIDs)
	}

	var payments []*model.RestaurantPayment
	err := query.Order("id ASC").Find(&payments).Error
	return payments, err
}

// MarkPaidBatch 批量关账
// 条件更新限定 DUE 状态，命中行数必须等于批次大小：
// 任何一条已被结算或作废，整批失败，由调用方回滚结算事务
func (r *PaymentRepository) MarkPaidBatch(ctx context.Context, tx *gorm.DB, ids []int64, settlementNumber int64, settlementNo string, paidAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	result := tx.WithContext(ctx).
		Model(&model.RestaurantPayment{}).
		Where("id IN ? AND status = ?", ids, model.PaymentStatusDue).
		Updates(map[string]interface{}{
			"status":            model.PaymentStatusPaid,
			"paid_at":           paidAt,
			"settlement_number": settlementNumber,
			"payment_reference": settlementNo,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected != int64(len(ids)) {
		return fmt.Errorf("%w: 预期关账 %d 条，实际命中 %d 条", ErrAlreadySettled, len(ids), result.RowsAffected)
	}

	return nil
}

// Cancel 作废单条分账记录（仅 DUE 可作废）
func (r *PaymentRepository) Cancel(ctx context.Context, paymentNo string) error {
	result := r.db.WithContext(ctx).
		Model(&model.RestaurantPayment{}).
		Where("payment_no = ? AND status = ?", paymentNo, model.PaymentStatusDue).
		Update("status", model.PaymentStatusCancelled)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrAlreadySettled
	}

	return nil
}

// RestaurantBalance 餐厅应收余额 = Σ(debt) - Σ(credit)，只统计 DUE
func (r *PaymentRepository) RestaurantBalance(ctx context.Context, restaurantID int64) (debt int64, credit int64, err error) {
	row := struct {
		Debt   int64
		Credit int64
	}{}

	err = r.db.WithContext(ctx).
		Model(&model.RestaurantPayment{}).
		Where("restaurant_id = ? AND status = ?", restaurantID, model.PaymentStatusDue).
		Select("COALESCE(SUM(shisha_debt), 0) AS debt, COALESCE(SUM(shisha_credit), 0) AS credit").
		Scan(&row).Error

	return row.Debt, row.Credit, err
}

func (r *PaymentRepository) ListByRestaurant(ctx context.Context, restaurantID int64, status string, page, pageSize int) ([]*model.RestaurantPayment, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.RestaurantPayment{}).Where("restaurant_id = ?", restaurantID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var payments []*model.RestaurantPayment
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&payments).Error

	return payments, total, err
}

// ListBySettlementNumber 反查某结算批次包含的分账记录
func (r *PaymentRepository) ListBySettlementNumber(ctx context.Context, settlementNumber int64) ([]*model.RestaurantPayment, error) {
	var payments []*model.RestaurantPayment
	err := r.db.WithContext(ctx).
		Where("settlement_number = ?", settlementNumber).
		Order("id ASC").
		Find(&payments).Error
	return payments, err
}
