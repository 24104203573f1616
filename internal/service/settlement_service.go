package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"shisha/internal/config"
	"shisha/internal/infrastructure/lock"
	"shisha/internal/model"
	"shisha/internal/repository"
	"shisha/pkg/idgen"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SettlementService 结算批处理
// 把一批 DUE 分账记录原子关账成一张不可变结算单
//
// 幂等性：已 PAID 的行不会再被选中，重复触发结算最多产生空批次；
// 批次内任何一行无法迁移（比如刚被作废），整批放弃，不存在半张结算单
type SettlementService struct {
	db             *gorm.DB
	lockFactory    lock.Factory
	cfg            *config.Config
	paymentRepo    *repository.PaymentRepository
	settlementRepo *repository.SettlementRepository
	restRepo       *repository.RestaurantRepository
	outboxRepo     *repository.OutboxRepository
	now            func() time.Time
}

func NewSettlementService(db *gorm.DB, lockFactory lock.Factory, cfg *config.Config) *SettlementService {
	return &SettlementService{
		db:             db,
		lockFactory:    lockFactory,
		cfg:            cfg,
		paymentRepo:    repository.NewPaymentRepository(db),
		settlementRepo: repository.NewSettlementRepository(db),
		restRepo:       repository.NewRestaurantRepository(db),
		outboxRepo:     repository.NewOutboxRepository(db),
		now:            time.Now,
	}
}

type RunSettlementRequest struct {
	RestaurantIDs []int64 `json:"restaurant_ids"`
	GeneratedBy   int64   `json:"-"`
	Notes         string  `json:"notes"`
}

type RunSettlementResponse struct {
	SettlementNo        string `json:"settlement_no"`
	SettlementNumber    int64  `json:"settlement_number"`
	TotalAmount         int64  `json:"total_amount"`
	TotalShishaProvided int    `json:"total_shisha_provided"`
	PaymentCount        int    `json:"payment_count"`
}

// RunSettlement 执行一次结算
func (s *SettlementService) RunSettlement(ctx context.Context, req *RunSettlementRequest) (*RunSettlementResponse, error) {
	// 结算全局单飞：序号分配和批量关账不允许交错
	settleLock := s.lockFactory.NewLock(lock.SettlementLockKey(), uuid.NewString(), 60*time.Second)
	if err := settleLock.Lock(ctx, 200*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConflict, err)
	}
	defer settleLock.Unlock(ctx)

	payments, err := s.paymentRepo.ListDue(ctx, req.RestaurantIDs)
	if err != nil {
		return nil, fmt.Errorf("查询待结算记录失败: %w", err)
	}
	if len(payments) == 0 {
		return nil, ErrNothingToSettle
	}

	now := s.now()
	settlementNo := idgen.GenerateSettlementNo()

	// 按餐厅分组汇总
	type restaurantTotal struct {
		debt   int64
		credit int64
		count  int
		shisha int
	}
	totals := make(map[int64]*restaurantTotal)
	ids := make([]int64, 0, len(payments))
	restaurantIDs := make([]int64, 0)

	for _, p := range payments {
		ids = append(ids, p.ID)
		t, ok := totals[p.RestaurantID]
		if !ok {
			t = &restaurantTotal{}
			totals[p.RestaurantID] = t
			restaurantIDs = append(restaurantIDs, p.RestaurantID)
		}
		t.debt += p.ShishaDebt
		t.credit += p.ShishaCredit
		t.count++
		t.shisha += p.ShishaCount
	}
	sort.Slice(restaurantIDs, func(i, j int) bool { return restaurantIDs[i] < restaurantIDs[j] })

	restaurants, err := s.restRepo.MapByIDs(ctx, restaurantIDs)
	if err != nil {
		return nil, fmt.Errorf("查询餐厅失败: %w", err)
	}

	settlement := &model.Settlement{
		SettlementNo:   settlementNo,
		SettlementDate: now,
		GeneratedBy:    req.GeneratedBy,
		Notes:          req.Notes,
		Status:         model.SettlementStatusCompleted,
	}

	lines := make([]*model.SettlementLine, 0, len(restaurantIDs))
	for _, rid := range restaurantIDs {
		t := totals[rid]
		name := ""
		if r, ok := restaurants[rid]; ok {
			name = r.Name
		}
		lines = append(lines, &model.SettlementLine{
			RestaurantID:        rid,
			RestaurantName:      name,
			TotalAmount:         t.debt - t.credit,
			TotalDebt:           t.debt,
			TotalCredit:         t.credit,
			TotalShishaProvided: t.shisha,
			PaymentCount:        t.count,
		})
		settlement.TotalDebt += t.debt
		settlement.TotalCredit += t.credit
		settlement.TotalShishaProvided += t.shisha
		settlement.PaymentCount += t.count
	}
	settlement.TotalAmount = settlement.TotalDebt - settlement.TotalCredit

	// 原子关账：结算单落库和成员行置 PAID 同一事务，任何一行失败整批回滚
	err = s.db.Transaction(func(tx *gorm.DB) error {
		number, err := s.settlementRepo.NextNumber(ctx, tx)
		if err != nil {
			return fmt.Errorf("分配结算序号失败: %w", err)
		}
		settlement.SettlementNumber = number

		if err := s.settlementRepo.Create(ctx, tx, settlement, lines); err != nil {
			return fmt.Errorf("创建结算单失败: %w", err)
		}

		if err := s.paymentRepo.MarkPaidBatch(ctx, tx, ids, number, settlementNo, now); err != nil {
			return err
		}

		return s.enqueueSettlementEvent(ctx, tx, settlement)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("结算完成: settlementNo=%s, number=%d, amount=%d, payments=%d",
		settlementNo, settlement.SettlementNumber, settlement.TotalAmount, settlement.PaymentCount)

	return &RunSettlementResponse{
		SettlementNo:        settlement.SettlementNo,
		SettlementNumber:    settlement.SettlementNumber,
		TotalAmount:         settlement.TotalAmount,
		TotalShishaProvided: settlement.TotalShishaProvided,
		PaymentCount:        settlement.PaymentCount,
	}, nil
}

func (s *SettlementService) GetSettlement(ctx context.Context, settlementNumber int64) (*model.Settlement, []*model.RestaurantPayment, error) {
	settlement, err := s.settlementRepo.GetByNumber(ctx, settlementNumber)
	if err != nil {
		return nil, nil, err
	}
	payments, err := s.paymentRepo.ListBySettlementNumber(ctx, settlementNumber)
	if err != nil {
		return nil, nil, err
	}
	return settlement, payments, nil
}

func (s *SettlementService) ListSettlements(ctx context.Context, page, pageSize int) ([]*model.Settlement, int64, error) {
	return s.settlementRepo.List(ctx, page, pageSize)
}

// ListPayments 按餐厅查询分账记录，status 为空时不过滤
func (s *SettlementService) ListPayments(ctx context.Context, restaurantID int64, status string, page, pageSize int) ([]*model.RestaurantPayment, int64, error) {
	return s.paymentRepo.ListByRestaurant(ctx, restaurantID, status, page, pageSize)
}

// CancelPayment 作废一条待结算分账记录（管理员操作）
// 与正在进行的结算互斥由状态条件更新保证：谁先改到状态谁赢，输家整单失败
func (s *SettlementService) CancelPayment(ctx context.Context, paymentNo string) error {
	if err := s.paymentRepo.Cancel(ctx, paymentNo); err != nil {
		return err
	}
	log.Printf("分账记录已作废: paymentNo=%s", paymentNo)
	return nil
}

func (s *SettlementService) enqueueSettlementEvent(ctx context.Context, tx *gorm.DB, settlement *model.Settlement) error {
	payload, _ := json.Marshal(map[string]interface{}{
		"settlement_no":         settlement.SettlementNo,
		"settlement_number":     settlement.SettlementNumber,
		"total_amount":          settlement.TotalAmount,
		"total_shisha_provided": settlement.TotalShishaProvided,
		"payment_count":         settlement.PaymentCount,
		"settled_at":            settlement.SettlementDate.Format(time.RFC3339),
	})

	msg := &model.OutboxMessage{
		MessageKey: settlement.SettlementNo,
		Topic:      s.cfg.Kafka.Topic.SettlementEvent,
		Payload:    string(payload),
		Status:     model.OutboxStatusPending,
	}
	if err := s.outboxRepo.Create(ctx, tx, msg); err != nil {
		return fmt.Errorf("写入结算事件失败: %w", err)
	}
	return nil
}
