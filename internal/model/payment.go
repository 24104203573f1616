package model

import (
	"time"
)

const (
	PaymentStatusPending   = "PENDING"   // 预留：暂缓入账（当前策略不使用，核销即 DUE）
	PaymentStatusDue       = "DUE"       // 待结算
	PaymentStatusPaid      = "PAID"      // 已结算（终态，不可再修改）
	PaymentStatusCancelled = "CANCELLED" // 已作废（终态）
)

var validPaymentTransitions = map[string][]string{
	PaymentStatusPending: {PaymentStatusDue, PaymentStatusCancelled},
	PaymentStatusDue:     {PaymentStatusPaid, PaymentStatusCancelled},
}

func CanPaymentTransitionTo(currentStatus, targetStatus string) bool {
	allowed, exists := validPaymentTransitions[currentStatus]
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

// RestaurantPayment 餐厅分账记录
// 每次核销成功写入一条（不是每次购买），与核销流水同一事务落库：
// 会计记录写不进去，整次核销必须回滚，否则账就对不平了
//
// shisha_debt：平台欠餐厅的金额；shisha_credit：餐厅欠回平台的金额（赠送核销）
// 餐厅应收余额 = Σ(debt) - Σ(credit)，只统计 DUE 状态的行
type RestaurantPayment struct {
	ID                   int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	PaymentNo            string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"payment_no"`
	RestaurantID         int64      `gorm:"index;not null" json:"restaurant_id"`
	WalletID             int64      `gorm:"index;not null" json:"wallet_id"`
	RedemptionNo         string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"redemption_no"` // 一次核销只产生一行
	TransactionNo        string     `gorm:"type:varchar(64);index;not null" json:"transaction_no"`      // 回溯购买交易
	Amount               int64      `gorm:"not null" json:"amount"` // 扣除佣金后的净额（分）
	ShishaCount          int        `gorm:"not null" json:"shisha_count"`
	CommissionPercentage int        `gorm:"not null" json:"commission_percentage"`
	ShishaDebt           int64      `gorm:"not null;default:0" json:"shisha_debt"`
	ShishaCredit         int64      `gorm:"not null;default:0" json:"shisha_credit"`
	Status               string     `gorm:"type:varchar(20);index;not null" json:"status"`
	PaidAt               *time.Time `json:"paid_at"`
	PaymentReference     string     `gorm:"type:varchar(64)" json:"payment_reference"` // 结算单号，结算时回填
	SettlementNumber     *int64     `gorm:"index" json:"settlement_number"`            // 所属结算批次，结算时回填
	CreatedAt            time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (RestaurantPayment) TableName() string {
	return "restaurant_payment"
}
