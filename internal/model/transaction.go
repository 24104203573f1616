package model

import (
	"time"
)

const (
	TransactionStatusPending   = "PENDING"   // 已发起，等待支付网关回调
	TransactionStatusCompleted = "COMPLETED" // 支付成功，钱包已创建
	TransactionStatusFailed    = "FAILED"    // 支付失败或超时
	TransactionStatusRefunded  = "REFUNDED"  // 已退款
)

// 交易状态机：确认后不可再变更（COMPLETED 仅可退款）
var validTransactionTransitions = map[string][]string{
	TransactionStatusPending:   {TransactionStatusCompleted, TransactionStatusFailed},
	TransactionStatusCompleted: {TransactionStatusRefunded},
}

func CanTransactionTransitionTo(currentStatus, targetStatus string) bool {
	allowed, exists := validTransactionTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// PurchaseTransaction 购买交易
// 每次套餐购买写入一条，网关确认时更新一次状态，此后只读
// 会计引擎和结算通过 transaction_no 回溯资金来源
type PurchaseTransaction struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_no"`
	GatewayRef    string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"gateway_ref"` // 支付网关关联号（幂等键）
	UserID        int64      `gorm:"index;not null" json:"user_id"`
	PackageID     int64      `gorm:"not null" json:"package_id"`
	WalletID      *int64     `gorm:"index" json:"wallet_id"` // 确认成功后回填
	Amount        int64      `gorm:"not null" json:"amount"`
	Currency      string     `gorm:"type:varchar(8);not null" json:"currency"`
	Status        string     `gorm:"type:varchar(20);index;not null" json:"status"`
	ExpiredAt     time.Time  `gorm:"not null" json:"expired_at"` // 超时未确认则由后台任务置为 FAILED
	CompletedAt   *time.Time `json:"completed_at"`
	CreatedAt     time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PurchaseTransaction) TableName() string {
	return "purchase_transaction"
}
