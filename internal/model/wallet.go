package model

import (
	"time"
)

const (
	WalletStatusPending = "PENDING" // 购买交易未确认
	WalletStatusActive  = "ACTIVE"  // 可核销
	WalletStatusExpired = "EXPIRED" // 已过期（终态）
)

// UserPackage 用户套餐钱包
// 一次购买对应一个钱包，是核销协议唯一允许修改的余额载体
//
// 【不变式】任何时刻都必须满足：
//  1. 0 <= remaining_count <= total_count
//  2. remaining_count + Σ(消费记录.count) == total_count
//
// 余额扣减只走 WalletRepository.Debit（条件更新 + 版本号），
// 其余代码一律不得直接改 remaining_count
type UserPackage struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         int64     `gorm:"index;not null" json:"user_id"`
	PackageID      int64     `gorm:"index;not null" json:"package_id"`
	TransactionNo  string    `gorm:"type:varchar(64);index;not null" json:"transaction_no"` // 出资交易号
	TotalCount     int       `gorm:"not null" json:"total_count"`                           // 购买时固定 = package.count
	RemainingCount int       `gorm:"not null" json:"remaining_count"`
	Version        int       `gorm:"not null;default:0" json:"version"` // 乐观锁版本号
	Status         string    `gorm:"type:varchar(20);index;not null" json:"status"`
	PurchasedAt    time.Time `gorm:"not null" json:"purchased_at"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (UserPackage) TableName() string {
	return "user_package"
}

// EffectiveStatus 惰性计算钱包在 now 时刻的真实状态
// 已是 EXPIRED 的不会复活；ACTIVE 且配置了有效期的，超期即视为 EXPIRED
// 读取路径以该函数为准，后台扫描任务只负责把结果落库供报表使用
func (w *UserPackage) EffectiveStatus(durationDays *int, now time.Time) string {
	if w.Status == WalletStatusExpired {
		return WalletStatusExpired
	}
	if w.Status == WalletStatusActive && durationDays != nil {
		deadline := w.PurchasedAt.AddDate(0, 0, *durationDays)
		if now.After(deadline) {
			return WalletStatusExpired
		}
	}
	return w.Status
}

// ConsumptionRecord 核销流水
// 只追加，不修改，不删除；每条记录扣减前后余额，便于对账
type ConsumptionRecord struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RedemptionNo string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"redemption_no"` // 核销事件号（全局唯一）
	WalletID     int64     `gorm:"index;not null" json:"wallet_id"`
	UserID       int64     `gorm:"index;not null" json:"user_id"`
	RestaurantID int64     `gorm:"index;not null" json:"restaurant_id"`
	Count        int       `gorm:"not null" json:"count"`
	Flavor       string    `gorm:"type:varchar(64)" json:"flavor"`
	IsGift       bool      `gorm:"not null;default:false" json:"is_gift"` // 赠送/招待核销
	RemainBefore int       `gorm:"not null" json:"remain_before"`
	RemainAfter  int       `gorm:"not null" json:"remain_after"`
	ConsumedAt   time.Time `gorm:"not null;index" json:"consumed_at"`
}

func (ConsumptionRecord) TableName() string {
	return "consumption_record"
}
