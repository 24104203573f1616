package service

import (
	"context"
	"fmt"

	"shisha/internal/config"
	"shisha/internal/model"
	"shisha/internal/repository"
	"shisha/pkg/idgen"

	"gorm.io/gorm"
)

// AccountingEngine 餐厅会计引擎
// 每次核销成功后推导平台欠餐厅多少（debt）或餐厅欠回平台多少（credit），
// 落一条 RestaurantPayment。行的创建必须和核销同一事务，
// 写不进去就让整次核销失败——宁可拒绝核销，不能让账本缺行
type AccountingEngine struct {
	cfg         *config.Config
	paymentRepo *repository.PaymentRepository
}

func NewAccountingEngine(db *gorm.DB, cfg *config.Config) *AccountingEngine {
	return &AccountingEngine{
		cfg:         cfg,
		paymentRepo: repository.NewPaymentRepository(db),
	}
}

// CommissionFor 餐厅生效佣金比例：餐厅覆盖值优先，否则用全局默认
func (e *AccountingEngine) CommissionFor(restaurant *model.Restaurant) int {
	if restaurant.CommissionPercentage != nil {
		return *restaurant.CommissionPercentage
	}
	return e.cfg.Business.CommissionPercentage
}

// NetAmount 扣佣净额
// 单次单价 = 套餐价格 / 套餐次数；净额 = 单价 × 核销次数 × (100 - 佣金) / 100
// 整数向下取整，分以下的尾差归平台；结算汇总直接累加落库行，天然对平
func NetAmount(pkgPrice int64, pkgCount int, redeemedCount int, commissionPct int) int64 {
	gross := pkgPrice * int64(redeemedCount) / int64(pkgCount)
	return gross * int64(100-commissionPct) / 100
}

// BuildPayment 由核销记录推导分账行
// 普通核销记 debt（平台欠餐厅），赠送核销记 credit（餐厅欠回平台）
// 当前策略：核销即 DUE，不设 PENDING 缓冲期
func (e *AccountingEngine) BuildPayment(
	wallet *model.UserPackage,
	pkg *model.Package,
	restaurant *model.Restaurant,
	record *model.ConsumptionRecord,
) *model.RestaurantPayment {
	commission := e.CommissionFor(restaurant)
	net := NetAmount(pkg.Price, pkg.Count, record.Count, commission)

	payment := &model.RestaurantPayment{
		PaymentNo:            idgen.GeneratePaymentNo(),
		RestaurantID:         restaurant.ID,
		WalletID:             wallet.ID,
		RedemptionNo:         record.RedemptionNo,
		TransactionNo:        wallet.TransactionNo,
		Amount:               net,
		ShishaCount:          record.Count,
		CommissionPercentage: commission,
		Status:               model.PaymentStatusDue,
	}

	if record.IsGift {
		payment.ShishaCredit = net
	} else {
		payment.ShishaDebt = net
	}

	return payment
}

// RecordAccounting 在核销事务内写分账行
func (e *AccountingEngine) RecordAccounting(
	ctx context.Context,
	tx *gorm.DB,
	wallet *model.UserPackage,
	pkg *model.Package,
	restaurant *model.Restaurant,
	record *model.ConsumptionRecord,
) (*model.RestaurantPayment, error) {
	payment := e.BuildPayment(wallet, pkg, restaurant, record)
	if err := e.paymentRepo.Create(ctx, tx, payment); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAccountingWriteFailed, err)
	}
	return payment, nil
}

// RestaurantBalance 餐厅当前应收净额
func (e *AccountingEngine) RestaurantBalance(ctx context.Context, restaurantID int64) (debt, credit, net int64, err error) {
	debt, credit, err = e.paymentRepo.RestaurantBalance(ctx, restaurantID)
	if err != nil {
		return 0, 0, 0, err
	}
	return debt, credit, debt - credit, nil
}
