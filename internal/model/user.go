package model

import (
	"time"
)

const (
	RoleUser     = "USER"
	RoleOperator = "OPERATOR" // 餐厅操作员，restaurant_id 限定其可操作的餐厅
	RoleAdmin    = "ADMIN"
)

// User 平台用户
// 角色在登录时解析为 Principal 一次性确定，业务代码不再做角色推断
type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Phone        string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"phone"`
	Name         string    `gorm:"type:varchar(64)" json:"name"`
	Role         string    `gorm:"type:varchar(16);not null;default:'USER'" json:"role"`
	RestaurantID *int64    `gorm:"index" json:"restaurant_id"` // 仅 OPERATOR 有值
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "user"
}

// Rating 核销评价
// (user_id, redemption_no) 唯一：一次核销只能评价一次，靠唯一索引兜底
type Rating struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       int64     `gorm:"not null;uniqueIndex:uk_user_redemption" json:"user_id"`
	RedemptionNo string    `gorm:"type:varchar(64);not null;uniqueIndex:uk_user_redemption" json:"redemption_no"`
	Stars        int       `gorm:"not null" json:"stars"` // 1-5
	Comment      string    `gorm:"type:varchar(512)" json:"comment"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Rating) TableName() string {
	return "rating"
}
