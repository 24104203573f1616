package model

import (
	"time"
)

// Restaurant 合作餐厅
// commission_percentage 为 NULL 时使用全局默认佣金（business.commission_percentage）
type Restaurant struct {
	ID                   int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name                 string    `gorm:"type:varchar(128);not null" json:"name"`
	Phone                string    `gorm:"type:varchar(32)" json:"phone"`
	Active               bool      `gorm:"not null;default:true" json:"active"`
	CommissionPercentage *int      `json:"commission_percentage"` // 佣金比例（百分数），可按餐厅覆盖
	CreatedAt            time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Restaurant) TableName() string {
	return "restaurant"
}
