package model

import (
	"time"
)

const (
	SettlementStatusCompleted = "COMPLETED"
)

// Settlement 结算单
// 一次结算把一批 DUE 分账记录原子地关账：结算单落库与成员记录置 PAID
// 在同一事务内完成，成员列表此后不再变化（成员通过 settlement_number 反查）
//
// settlement_number 单调递增，在全局结算锁内按 max+1 分配
type Settlement struct {
	ID                  int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SettlementNo        string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"settlement_no"` // 展示用单号 STL...
	SettlementNumber    int64     `gorm:"uniqueIndex;not null" json:"settlement_number"`
	SettlementDate      time.Time `gorm:"not null" json:"settlement_date"`
	TotalAmount         int64     `gorm:"not null" json:"total_amount"` // Σ(debt) - Σ(credit)，应付净额
	TotalDebt           int64     `gorm:"not null" json:"total_debt"`
	TotalCredit         int64     `gorm:"not null" json:"total_credit"`
	TotalShishaProvided int       `gorm:"not null" json:"total_shisha_provided"`
	PaymentCount        int       `gorm:"not null" json:"payment_count"`
	GeneratedBy         int64     `gorm:"not null" json:"generated_by"` // 触发结算的管理员
	Notes               string    `gorm:"type:varchar(256)" json:"notes"`
	Status              string    `gorm:"type:varchar(20);not null" json:"status"`
	CreatedAt           time.Time `gorm:"autoCreateTime;index" json:"created_at"`

	Lines []SettlementLine `gorm:"foreignKey:SettlementNumber;references:SettlementNumber" json:"lines"`
}

func (Settlement) TableName() string {
	return "settlement"
}

// SettlementLine 结算单内的单餐厅汇总
type SettlementLine struct {
	ID                  int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	SettlementNumber    int64  `gorm:"index;not null" json:"settlement_number"`
	RestaurantID        int64  `gorm:"index;not null" json:"restaurant_id"`
	RestaurantName      string `gorm:"type:varchar(128)" json:"restaurant_name"`
	TotalAmount         int64  `gorm:"not null" json:"total_amount"`
	TotalDebt           int64  `gorm:"not null" json:"total_debt"`
	TotalCredit         int64  `gorm:"not null" json:"total_credit"`
	TotalShishaProvided int    `gorm:"not null" json:"total_shisha_provided"`
	PaymentCount        int    `gorm:"not null" json:"payment_count"`
}

func (SettlementLine) TableName() string {
	return "settlement_line"
}
