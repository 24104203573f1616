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

// TransactionTimeoutJob 购买交易超时关单
// 发起后迟迟没有网关回调的交易定期置为 FAILED，
// 条件更新带前置状态，和正在进行的回调确认天然互斥
type TransactionTimeoutJob struct {
	db        *gorm.DB
	transRepo *repository.TransactionRepository
	cfg       *config.Config
	stopCh    chan struct{}
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

func NewTransactionTimeoutJob(db *gorm.DB, cfg *config.Config) *TransactionTimeoutJob {
	return &TransactionTimeoutJob{
		db:        db,
		transRepo: repository.NewTransactionRepository(db),
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		interval:  10 * time.Second,
		batchSize: 100,
		now:       time.Now,
	}
}

func (j *TransactionTimeoutJob) Start(ctx context.Context) {
	log.Println("[TransactionTimeoutJob] 交易超时任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[TransactionTimeoutJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[TransactionTimeoutJob] 任务停止")
			return
		case <-ticker.C:
			j.CloseExpiredTransactions(ctx)
		}
	}
}

func (j *TransactionTimeoutJob) Stop() {
	close(j.stopCh)
}

func (j *TransactionTimeoutJob) CloseExpiredTransactions(ctx context.Context) {
	now := j.now()
	transactions, err := j.transRepo.GetExpiredPending(ctx, now, j.batchSize)
	if err != nil {
		log.Printf("[TransactionTimeoutJob] 查询超时交易失败: %v", err)
		return
	}

	if len(transactions) == 0 {
		return
	}

	log.Printf("[TransactionTimeoutJob] 发现 %d 笔超时交易", len(transactions))

	closedCount := 0
	for _, trans := range transactions {
		err := j.transRepo.UpdateStatus(ctx, nil, trans.TransactionNo,
			model.TransactionStatusPending, model.TransactionStatusFailed, now)
		if err != nil {
			log.Printf("[TransactionTimeoutJob] 关闭交易失败: transactionNo=%s, err=%v", trans.TransactionNo, err)
			continue
		}
		closedCount++
		log.Printf("[TransactionTimeoutJob] 交易已超时关闭: transactionNo=%s, userID=%d, amount=%d",
			trans.TransactionNo, trans.UserID, trans.Amount)
	}

	log.Printf("[TransactionTimeoutJob] 本次关闭 %d 笔超时交易", closedCount)
}
