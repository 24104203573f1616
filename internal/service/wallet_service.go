package service

import (
	"context"
	"log"
	"time"

	"shisha/internal/model"
	"shisha/internal/repository"

	"gorm.io/gorm"
)

// WalletService 套餐钱包查询
// 有效期采用惰性过期：读取时发现已到期就顺手落库置 EXPIRED，
// 扣减路径还有权威校验兜底，这里落库只是让列表展示和报表一致
type WalletService struct {
	walletRepo  *repository.WalletRepository
	recordRepo  *repository.RecordRepository
	packageRepo *repository.PackageRepository
	now         func() time.Time
}

func NewWalletService(db *gorm.DB) *WalletService {
	return &WalletService{
		walletRepo:  repository.NewWalletRepository(db),
		recordRepo:  repository.NewRecordRepository(db),
		packageRepo: repository.NewPackageRepository(db),
		now:         time.Now,
	}
}

type WalletDetail struct {
	Wallet  *model.UserPackage `json:"wallet"`
	Package *model.Package     `json:"package"`
}

// GetWallet 查询钱包详情
// ownerUserID 非 0 时做归属校验（普通用户只能看自己的钱包）
func (s *WalletService) GetWallet(ctx context.Context, walletID, ownerUserID int64) (*WalletDetail, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if ownerUserID != 0 && wallet.UserID != ownerUserID {
		return nil, repository.ErrWalletNotFound
	}

	pkg, err := s.packageRepo.GetByID(ctx, wallet.PackageID)
	if err != nil {
		return nil, err
	}

	s.settleExpiry(ctx, wallet, pkg)

	return &WalletDetail{Wallet: wallet, Package: pkg}, nil
}

// ListWallets 用户钱包列表，逐条做惰性过期
func (s *WalletService) ListWallets(ctx context.Context, userID int64, page, pageSize int) ([]*model.UserPackage, int64, error) {
	wallets, total, err := s.walletRepo.ListByUserID(ctx, userID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	for _, w := range wallets {
		pkg, err := s.packageRepo.GetByID(ctx, w.PackageID)
		if err != nil {
			continue
		}
		s.settleExpiry(ctx, w, pkg)
	}

	return wallets, total, nil
}

// History 钱包核销流水（按发生顺序）
func (s *WalletService) History(ctx context.Context, walletID, ownerUserID int64) ([]*model.ConsumptionRecord, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if ownerUserID != 0 && wallet.UserID != ownerUserID {
		return nil, repository.ErrWalletNotFound
	}
	return s.recordRepo.ListByWalletID(ctx, walletID)
}

// settleExpiry 惰性过期落库
// 条件更新失败（比如并发下已被别处置为 EXPIRED）不影响读取结果，只记日志
func (s *WalletService) settleExpiry(ctx context.Context, wallet *model.UserPackage, pkg *model.Package) {
	if wallet.Status != model.WalletStatusActive {
		return
	}
	if wallet.EffectiveStatus(pkg.DurationDays, s.now()) != model.WalletStatusExpired {
		return
	}

	if err := s.walletRepo.UpdateStatus(ctx, nil, wallet.ID, model.WalletStatusActive, model.WalletStatusExpired); err != nil {
		log.Printf("钱包惰性过期落库失败: walletID=%d, err=%v", wallet.ID, err)
		return
	}
	wallet.Status = model.WalletStatusExpired
	wallet.Version++
}
