package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"shisha/internal/config"
	"shisha/internal/model"
	"shisha/internal/repository"
	"shisha/pkg/codegen"

	"gorm.io/gorm"
)

// CodeService 一次性验证码签发
// 登录码 6 位、核销码 5 位，各自独立的有效期
// 短信通知走发件箱旁路：通知发不出去不影响码的有效性，
// 持有人仍然可以通过正常校验路径使用该码
type CodeService struct {
	db          *gorm.DB
	cfg         *config.Config
	codeRepo    *repository.CodeRepository
	walletRepo  *repository.WalletRepository
	packageRepo *repository.PackageRepository
	restRepo    *repository.RestaurantRepository
	userRepo    *repository.UserRepository
	outboxRepo  *repository.OutboxRepository
	now         func() time.Time
}

func NewCodeService(db *gorm.DB, cfg *config.Config) *CodeService {
	return &CodeService{
		db:          db,
		cfg:         cfg,
		codeRepo:    repository.NewCodeRepository(db),
		walletRepo:  repository.NewWalletRepository(db),
		packageRepo: repository.NewPackageRepository(db),
		restRepo:    repository.NewRestaurantRepository(db),
		userRepo:    repository.NewUserRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
		now:         time.Now,
	}
}

type IssueLoginCodeResponse struct {
	ExpiresAt time.Time `json:"expires_at"`
}

// IssueLoginCode 签发登录码并作废该手机号之前未用的登录码
func (s *CodeService) IssueLoginCode(ctx context.Context, phone string) (*IssueLoginCodeResponse, error) {
	codeValue, err := codegen.GenerateNumericCode(model.LoginCodeLength)
	if err != nil {
		return nil, fmt.Errorf("生成登录码失败: %w", err)
	}

	now := s.now()
	expiredAt := now.Add(time.Duration(s.cfg.Business.LoginCodeTTLMinutes) * time.Minute)

	code := &model.OneTimeCode{
		Purpose:   model.CodePurposeLogin,
		Code:      codeValue,
		Phone:     phone,
		ExpiredAt: expiredAt,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.codeRepo.InvalidateLoginCodes(ctx, tx, phone, now); err != nil {
			return fmt.Errorf("作废旧登录码失败: %w", err)
		}
		if err := s.codeRepo.Create(ctx, tx, code); err != nil {
			return fmt.Errorf("保存登录码失败: %w", err)
		}
		return s.enqueueSms(ctx, tx, phone, fmt.Sprintf("您的登录验证码是 %s，%d 分钟内有效", codeValue, s.cfg.Business.LoginCodeTTLMinutes))
	})
	if err != nil {
		return nil, err
	}

	return &IssueLoginCodeResponse{ExpiresAt: expiredAt}, nil
}

type IssueConsumeCodeRequest struct {
	WalletID     int64
	RestaurantID int64
	Count        int
	IsGift       bool
	OwnerUserID  int64 // 非 0 时校验钱包归属（普通用户路径）
}

type IssueConsumeCodeResponse struct {
	Code      string    `json:"code"` // 5 位零填充字符串
	ExpiresAt time.Time `json:"expires_at"`
}

// IssueConsumptionCode 签发核销码
// 这里只做预检（数量、钱包状态），权威校验在核销时的原子区内再做一遍
func (s *CodeService) IssueConsumptionCode(ctx context.Context, req *IssueConsumeCodeRequest) (*IssueConsumeCodeResponse, error) {
	if req.Count < 1 {
		return nil, ErrInvalidQuantity
	}

	wallet, err := s.walletRepo.GetByID(ctx, req.WalletID)
	if err != nil {
		return nil, err
	}
	if req.OwnerUserID != 0 && wallet.UserID != req.OwnerUserID {
		return nil, repository.ErrWalletNotFound
	}

	pkg, err := s.packageRepo.GetByID(ctx, wallet.PackageID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	switch wallet.EffectiveStatus(pkg.DurationDays, now) {
	case model.WalletStatusActive:
	case model.WalletStatusExpired:
		return nil, ErrWalletExpired
	default:
		return nil, ErrWalletNotActive
	}

	if req.Count > wallet.RemainingCount {
		return nil, ErrInvalidQuantity
	}

	restaurant, err := s.restRepo.GetByID(ctx, req.RestaurantID)
	if err != nil {
		return nil, err
	}
	if !restaurant.Active {
		return nil, ErrRestaurantInactive
	}

	codeValue, err := codegen.GenerateNumericCode(model.ConsumeCodeLength)
	if err != nil {
		return nil, fmt.Errorf("生成核销码失败: %w", err)
	}

	expiredAt := now.Add(time.Duration(s.cfg.Business.ConsumeCodeTTLMinutes) * time.Minute)

	code := &model.OneTimeCode{
		Purpose:      model.CodePurposeConsume,
		Code:         codeValue,
		UserID:       wallet.UserID,
		WalletID:     wallet.ID,
		RestaurantID: restaurant.ID,
		Count:        req.Count,
		IsGift:       req.IsGift,
		ExpiredAt:    expiredAt,
	}

	owner, err := s.userRepo.GetByID(ctx, wallet.UserID)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.codeRepo.Create(ctx, tx, code); err != nil {
			return fmt.Errorf("保存核销码失败: %w", err)
		}
		return s.enqueueSms(ctx, tx, owner.Phone,
			fmt.Sprintf("核销码 %s，%s x%d，%d 分钟内有效", codeValue, restaurant.Name, req.Count, s.cfg.Business.ConsumeCodeTTLMinutes))
	})
	if err != nil {
		return nil, err
	}

	log.Printf("核销码签发成功: walletID=%d, restaurantID=%d, count=%d", wallet.ID, restaurant.ID, req.Count)

	return &IssueConsumeCodeResponse{Code: codeValue, ExpiresAt: expiredAt}, nil
}

// enqueueSms 把短信写入发件箱
// 投递失败由发件箱任务重试并记日志（降级），不会让签发流程失败
func (s *CodeService) enqueueSms(ctx context.Context, tx *gorm.DB, phone, content string) error {
	payload, _ := json.Marshal(map[string]interface{}{
		"phone":   phone,
		"content": content,
	})

	msg := &model.OutboxMessage{
		MessageKey: phone,
		Topic:      s.cfg.Kafka.Topic.SmsNotify,
		Payload:    string(payload),
		Status:     model.OutboxStatusPending,
	}
	if err := s.outboxRepo.Create(ctx, tx, msg); err != nil {
		return fmt.Errorf("写入通知消息失败: %w", err)
	}
	return nil
}
