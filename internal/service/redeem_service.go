package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"shisha/internal/config"
	"shisha/internal/infrastructure/lock"
	"shisha/internal/model"
	"shisha/internal/repository"
	"shisha/pkg/idgen"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RedeemService 核销协议
//
// 核销码状态机：Issued -> Consumed（终态）/ Expired（超时终态）/ 重放一律拒绝
//
// 原子区必须同时完成四件事，缺一即整体回滚：
//  1. 认领核销码（条件更新置 used）
//  2. 扣减钱包余额（乐观锁条件更新）
//  3. 追加核销流水
//  4. 写入餐厅分账行
//
// 串行化保护分两层：钱包维度的分布式锁挡住同钱包并发，
// 码的条件更新挡住同码并发——两层都过了才可能提交
type RedeemService struct {
	db          *gorm.DB
	lockFactory lock.Factory
	cfg         *config.Config
	codeRepo    *repository.CodeRepository
	walletRepo  *repository.WalletRepository
	recordRepo  *repository.RecordRepository
	packageRepo *repository.PackageRepository
	restRepo    *repository.RestaurantRepository
	outboxRepo  *repository.OutboxRepository
	accounting  *AccountingEngine
	now         func() time.Time
}

func NewRedeemService(db *gorm.DB, lockFactory lock.Factory, cfg *config.Config) *RedeemService {
	return &RedeemService{
		db:          db,
		lockFactory: lockFactory,
		cfg:         cfg,
		codeRepo:    repository.NewCodeRepository(db),
		walletRepo:  repository.NewWalletRepository(db),
		recordRepo:  repository.NewRecordRepository(db),
		packageRepo: repository.NewPackageRepository(db),
		restRepo:    repository.NewRestaurantRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
		accounting:  NewAccountingEngine(db, cfg),
		now:         time.Now,
	}
}

type RedeemRequest struct {
	Code         string `json:"code" binding:"required"`
	WalletID     int64  `json:"wallet_id" binding:"required"`
	RestaurantID int64  `json:"restaurant_id" binding:"required"`
	Count        int    `json:"count" binding:"required,gt=0"`
	Flavor       string `json:"flavor"`
}

type RedeemResponse struct {
	RedemptionNo   string `json:"redemption_no"`
	RemainingCount int    `json:"remaining_count"`
}

// Redeem 执行核销
// 校验类失败（码不存在/过期/已用/范围不符/时段外/余额不足）不产生任何写入；
// 乐观锁冲突在锁内有限重试，耗尽后报 ErrConflict
func (s *RedeemService) Redeem(ctx context.Context, req *RedeemRequest) (*RedeemResponse, error) {
	now := s.now()

	// 预校验（锁外）：尽早拒绝明显不合法的请求
	code, err := s.codeRepo.GetConsumeCode(ctx, req.Code, req.WalletID)
	if err != nil {
		return nil, err
	}
	if code.IsExpired(now) {
		return nil, ErrCodeExpired
	}
	if code.Used {
		return nil, repository.ErrCodeAlreadyUsed
	}
	if code.RestaurantID != req.RestaurantID || code.Count != req.Count {
		return nil, ErrCodeScopeMismatch
	}

	wallet, err := s.walletRepo.GetByID(ctx, req.WalletID)
	if err != nil {
		return nil, err
	}

	pkg, err := s.packageRepo.GetByID(ctx, wallet.PackageID)
	if err != nil {
		return nil, err
	}

	restaurant, err := s.restRepo.GetByID(ctx, req.RestaurantID)
	if err != nil {
		return nil, err
	}

	// 时段校验：投影到时段配置的时区再比较
	inWindow, err := pkg.InRedemptionWindow(now)
	if err != nil {
		return nil, fmt.Errorf("时段配置错误: %w", err)
	}
	if !inWindow {
		return nil, ErrOutsideRedemptionWindow
	}

	// 钱包维度加锁：同一钱包的核销排队执行
	walletLock := s.lockFactory.NewLock(lock.WalletLockKey(wallet.ID), uuid.NewString(), 30*time.Second)
	if err := walletLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConflict, err)
	}
	defer walletLock.Unlock(ctx)

	maxRetries := s.cfg.Business.RedeemMaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var record *model.ConsumptionRecord

	for attempt := 0; attempt < maxRetries; attempt++ {
		// 拿锁后重读钱包，权威校验以最新状态为准
		wallet, err = s.walletRepo.GetByID(ctx, req.WalletID)
		if err != nil {
			return nil, err
		}

		switch wallet.EffectiveStatus(pkg.DurationDays, now) {
		case model.WalletStatusActive:
		case model.WalletStatusExpired:
			return nil, ErrWalletExpired
		default:
			return nil, ErrWalletNotActive
		}

		if req.Count > wallet.RemainingCount {
			return nil, repository.ErrInsufficientBalance
		}

		record = &model.ConsumptionRecord{
			RedemptionNo: idgen.GenerateRedemptionNo(),
			WalletID:     wallet.ID,
			UserID:       wallet.UserID,
			RestaurantID: restaurant.ID,
			Count:        req.Count,
			Flavor:       req.Flavor,
			IsGift:       code.IsGift,
			RemainBefore: wallet.RemainingCount,
			RemainAfter:  wallet.RemainingCount - req.Count,
			ConsumedAt:   now,
		}

		err = s.db.Transaction(func(tx *gorm.DB) error {
			// 认领核销码：并发重放在这里只会有一个成功
			if err := s.codeRepo.MarkUsed(ctx, tx, code.ID, now); err != nil {
				return err
			}

			if err := s.walletRepo.Debit(ctx, tx, wallet.ID, req.Count, wallet.Version); err != nil {
				return err
			}

			if err := s.recordRepo.Create(ctx, tx, record); err != nil {
				return fmt.Errorf("记录核销流水失败: %w", err)
			}

			// 会计行与核销同生共死
			payment, err := s.accounting.RecordAccounting(ctx, tx, wallet, pkg, restaurant, record)
			if err != nil {
				return err
			}

			return s.enqueueRedemptionEvent(ctx, tx, record, payment)
		})

		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrOptimisticLock) {
			continue // 版本冲突重试，事务已整体回滚
		}
		return nil, err
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConflict, err)
	}

	log.Printf("核销成功: redemptionNo=%s, walletID=%d, restaurantID=%d, count=%d",
		record.RedemptionNo, wallet.ID, restaurant.ID, req.Count)

	return &RedeemResponse{
		RedemptionNo:   record.RedemptionNo,
		RemainingCount: record.RemainAfter,
	}, nil
}

// enqueueRedemptionEvent 核销事件随事务写入发件箱，供下游（通知、报表）消费
func (s *RedeemService) enqueueRedemptionEvent(ctx context.Context, tx *gorm.DB, record *model.ConsumptionRecord, payment *model.RestaurantPayment) error {
	payload, _ := json.Marshal(map[string]interface{}{
		"redemption_no": record.RedemptionNo,
		"wallet_id":     record.WalletID,
		"restaurant_id": record.RestaurantID,
		"count":         record.Count,
		"flavor":        record.Flavor,
		"is_gift":       record.IsGift,
		"payment_no":    payment.PaymentNo,
		"consumed_at":   record.ConsumedAt.Format(time.RFC3339),
	})

	msg := &model.OutboxMessage{
		MessageKey: record.RedemptionNo,
		Topic:      s.cfg.Kafka.Topic.RedemptionEvent,
		Payload:    string(payload),
		Status:     model.OutboxStatusPending,
	}
	if err := s.outboxRepo.Create(ctx, tx, msg); err != nil {
		return fmt.Errorf("写入核销事件失败: %w", err)
	}
	return nil
}
