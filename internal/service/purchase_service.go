package service

import (
	"context"
	"encoding/json"
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

// PurchaseService 套餐购买
// 发起时创建 PENDING 交易并生成网关跳转地址；
// 网关回调确认后同一事务内完成交易落账和钱包开通。
// 回调按 gateway_ref 幂等，重复回调返回首次结果
type PurchaseService struct {
	db          *gorm.DB
	lockFactory lock.Factory
	cfg         *config.Config
	transRepo   *repository.TransactionRepository
	walletRepo  *repository.WalletRepository
	packageRepo *repository.PackageRepository
	userRepo    *repository.UserRepository
	outboxRepo  *repository.OutboxRepository
	now         func() time.Time
}

func NewPurchaseService(db *gorm.DB, lockFactory lock.Factory, cfg *config.Config) *PurchaseService {
	return &PurchaseService{
		db:          db,
		lockFactory: lockFactory,
		cfg:         cfg,
		transRepo:   repository.NewTransactionRepository(db),
		walletRepo:  repository.NewWalletRepository(db),
		packageRepo: repository.NewPackageRepository(db),
		userRepo:    repository.NewUserRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
		now:         time.Now,
	}
}

type InitiatePurchaseRequest struct {
	UserID    int64 `json:"-"`
	PackageID int64 `json:"package_id" binding:"required"`
}

type InitiatePurchaseResponse struct {
	TransactionNo string    `json:"transaction_no"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	PaymentURL    string    `json:"payment_url"`
	ExpiredAt     time.Time `json:"expired_at"`
}

// InitiatePurchase 发起购买
func (s *PurchaseService) InitiatePurchase(ctx context.Context, req *InitiatePurchaseRequest) (*InitiatePurchaseResponse, error) {
	pkg, err := s.packageRepo.GetByID(ctx, req.PackageID)
	if err != nil {
		return nil, err
	}
	if !pkg.Enabled {
		return nil, repository.ErrPackageNotFound
	}

	now := s.now()
	trans := &model.PurchaseTransaction{
		TransactionNo: idgen.GenerateTransactionNo(),
		GatewayRef:    uuid.NewString(),
		UserID:        req.UserID,
		PackageID:     pkg.ID,
		Amount:        pkg.Price,
		Currency:      s.cfg.Business.Currency,
		Status:        model.TransactionStatusPending,
		ExpiredAt:     now.Add(time.Duration(s.cfg.Business.TransactionTimeoutMinutes) * time.Minute),
	}

	if err := s.transRepo.Create(ctx, nil, trans); err != nil {
		return nil, fmt.Errorf("创建交易失败: %w", err)
	}

	log.Printf("购买交易已发起: transactionNo=%s, userID=%d, packageID=%d, amount=%d",
		trans.TransactionNo, req.UserID, pkg.ID, pkg.Price)

	return &InitiatePurchaseResponse{
		TransactionNo: trans.TransactionNo,
		Amount:        trans.Amount,
		Currency:      trans.Currency,
		PaymentURL:    fmt.Sprintf("%s/pay?ref=%s", s.cfg.Business.GatewayBaseURL, trans.GatewayRef),
		ExpiredAt:     trans.ExpiredAt,
	}, nil
}

type ConfirmPurchaseRequest struct {
	GatewayRef string `json:"gateway_ref" binding:"required"`
	Success    bool   `json:"success"`
}

type ConfirmPurchaseResponse struct {
	TransactionNo string `json:"transaction_no"`
	Status        string `json:"status"`
	WalletID      int64  `json:"wallet_id,omitempty"`
}

// ConfirmPurchase 支付网关回调
// 加交易维度锁防并发重复回调；已终态的交易按当前状态原样返回（幂等）
func (s *PurchaseService) ConfirmPurchase(ctx context.Context, req *ConfirmPurchaseRequest) (*ConfirmPurchaseResponse, error) {
	trans, err := s.transRepo.GetByGatewayRef(ctx, req.GatewayRef)
	if err != nil {
		return nil, err
	}
	if trans == nil {
		return nil, repository.ErrTransactionNotFound
	}

	txnLock := s.lockFactory.NewLock(lock.PurchaseLockKey(trans.TransactionNo), uuid.NewString(), 30*time.Second)
	if err := txnLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConflict, err)
	}
	defer txnLock.Unlock(ctx)

	// 拿锁后重读，重复回调走幂等分支
	trans, err = s.transRepo.GetByTransactionNo(ctx, trans.TransactionNo)
	if err != nil {
		return nil, err
	}
	if trans.Status != model.TransactionStatusPending {
		resp := &ConfirmPurchaseResponse{
			TransactionNo: trans.TransactionNo,
			Status:        trans.Status,
		}
		if trans.WalletID != nil {
			resp.WalletID = *trans.WalletID
		}
		return resp, nil
	}

	now := s.now()
	if now.After(trans.ExpiredAt) {
		return nil, ErrTransactionAlreadyClosed
	}

	if !req.Success {
		if err := s.transRepo.UpdateStatus(ctx, nil, trans.TransactionNo, model.TransactionStatusPending, model.TransactionStatusFailed, now); err != nil {
			return nil, err
		}
		return &ConfirmPurchaseResponse{TransactionNo: trans.TransactionNo, Status: model.TransactionStatusFailed}, nil
	}

	pkg, err := s.packageRepo.GetByID(ctx, trans.PackageID)
	if err != nil {
		return nil, err
	}

	wallet := &model.UserPackage{
		UserID:         trans.UserID,
		PackageID:      trans.PackageID,
		TransactionNo:  trans.TransactionNo,
		TotalCount:     pkg.Count,
		RemainingCount: pkg.Count,
		Status:         model.WalletStatusActive,
		PurchasedAt:    now,
	}

	// 交易落账和钱包开通同一事务：不存在付了钱没钱包的中间态
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.transRepo.UpdateStatus(ctx, tx, trans.TransactionNo, model.TransactionStatusPending, model.TransactionStatusCompleted, now); err != nil {
			return err
		}
		if err := s.walletRepo.Create(ctx, tx, wallet); err != nil {
			return fmt.Errorf("创建钱包失败: %w", err)
		}
		if err := s.transRepo.SetWalletID(ctx, tx, trans.TransactionNo, wallet.ID); err != nil {
			return fmt.Errorf("回填钱包失败: %w", err)
		}
		return s.enqueuePurchaseSms(ctx, tx, trans, pkg)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("购买确认成功: transactionNo=%s, walletID=%d, count=%d",
		trans.TransactionNo, wallet.ID, pkg.Count)

	return &ConfirmPurchaseResponse{
		TransactionNo: trans.TransactionNo,
		Status:        model.TransactionStatusCompleted,
		WalletID:      wallet.ID,
	}, nil
}

func (s *PurchaseService) ListTransactions(ctx context.Context, userID int64, page, pageSize int) ([]*model.PurchaseTransaction, int64, error) {
	return s.transRepo.ListByUserID(ctx, userID, page, pageSize)
}

func (s *PurchaseService) enqueuePurchaseSms(ctx context.Context, tx *gorm.DB, trans *model.PurchaseTransaction, pkg *model.Package) error {
	owner, err := s.userRepo.GetByID(ctx, trans.UserID)
	if err != nil {
		return err
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"phone":   owner.Phone,
		"content": fmt.Sprintf("您已成功购买「%s」，共 %d 次，欢迎使用", pkg.Name, pkg.Count),
	})

	msg := &model.OutboxMessage{
		MessageKey: trans.TransactionNo,
		Topic:      s.cfg.Kafka.Topic.SmsNotify,
		Payload:    string(payload),
		Status:     model.OutboxStatusPending,
	}
	if err := s.outboxRepo.Create(ctx, tx, msg); err != nil {
		return fmt.Errorf("写入通知消息失败: %w", err)
	}
	return nil
}
