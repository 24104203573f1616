package job

import (
	"context"
	"log"
	"time"

	"shisha/internal/config"
	"shisha/internal/model"
	"shisha/internal/repository"

	"gorm.io/gorm"
)

// WalletExpiryJob 钱包过期扫描
// 过期的权威判断在读取和扣减路径上（惰性过期），本任务只做兜底落库，
// 让长期无人访问的钱包在报表里也呈现正确状态
type WalletExpiryJob struct {
	db          *gorm.DB
	walletRepo  *repository.WalletRepository
	packageRepo *repository.PackageRepository
	cfg         *config.Config
	stopCh      chan struct{}
	interval    time.Duration
	batchSize   int
	now         func() time.Time
}

func NewWalletExpiryJob(db *gorm.DB, cfg *config.Config) *WalletExpiryJob {
	return &WalletExpiryJob{
		db:          db,
		walletRepo:  repository.NewWalletRepository(db),
		packageRepo: repository.NewPackageRepository(db),
		cfg:         cfg,
		stopCh:      make(chan struct{}),
		interval:    time.Hour,
		batchSize:   500,
		now:         time.Now,
	}
}

func (j *WalletExpiryJob) Start(ctx context.Context) {
	log.Println("[WalletExpiryJob] 钱包过期扫描任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[WalletExpiryJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[WalletExpiryJob] 任务停止")
			return
		case <-ticker.C:
			j.SweepExpiredWallets(ctx)
		}
	}
}

func (j *WalletExpiryJob) Stop() {
	close(j.stopCh)
}

func (j *WalletExpiryJob) SweepExpiredWallets(ctx context.Context) {
	wallets, err := j.walletRepo.ListByStatus(ctx, model.WalletStatusActive, j.batchSize)
	if err != nil {
		log.Printf("[WalletExpiryJob] 查询钱包失败: %v", err)
		return
	}

	if len(wallets) == 0 {
		return
	}

	now := j.now()
	packages := make(map[int64]*model.Package)
	expiredCount := 0

	for _, wallet := range wallets {
		pkg, ok := packages[wallet.PackageID]
		if !ok {
			pkg, err = j.packageRepo.GetByID(ctx, wallet.PackageID)
			if err != nil {
				log.Printf("[WalletExpiryJob] 查询套餐失败: packageID=%d, err=%v", wallet.PackageID, err)
				continue
			}
			packages[wallet.PackageID] = pkg
		}

		if wallet.EffectiveStatus(pkg.DurationDays, now) != model.WalletStatusExpired {
			continue
		}

		err := j.walletRepo.UpdateStatus(ctx, nil, wallet.ID, model.WalletStatusActive, model.WalletStatusExpired)
		if err != nil {
			log.Printf("[WalletExpiryJob] 置过期失败: walletID=%d, err=%v", wallet.ID, err)
			continue
		}
		expiredCount++
		log.Printf("[WalletExpiryJob] 钱包已过期: walletID=%d, userID=%d, remaining=%d",
			wallet.ID, wallet.UserID, wallet.RemainingCount)
	}

	if expiredCount > 0 {
		log.Printf("[WalletExpiryJob] 本次置过期 %d 个钱包", expiredCount)
	}
}
