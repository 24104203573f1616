package model

import (
	"time"
)

const (
	CodePurposeLogin   = "LOGIN"   // 登录验证码，6 位
	CodePurposeConsume = "CONSUME" // 核销码，5 位
)

const (
	LoginCodeLength   = 6
	ConsumeCodeLength = 5
)

// OneTimeCode 一次性验证码
// 登录码和核销码共用一张表，按 purpose 区分，各自独立的长度和有效期
//
// 码值一律存定长零填充字符串，绝不能用整数（"00371" 的前导零会丢）
// used 标志只能由条件更新置位（见 CodeRepository.MarkUsed），
// 置位成功即"认领"成功，保证单码只能核销一次
type OneTimeCode struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Purpose      string     `gorm:"type:varchar(16);index;not null" json:"purpose"`
	Code         string     `gorm:"type:varchar(8);index;not null" json:"code"`
	Phone        string     `gorm:"type:varchar(32);index" json:"phone"`  // 登录码：接收短信的手机号
	UserID       int64      `gorm:"index" json:"user_id"`                 // 核销码：钱包所有者
	WalletID     int64      `gorm:"index" json:"wallet_id"`               // 核销码：绑定的钱包
	RestaurantID int64      `gorm:"index" json:"restaurant_id"`           // 核销码：绑定的餐厅
	Count        int        `json:"count"`                                // 核销码：申请核销的次数
	IsGift       bool       `gorm:"not null;default:false" json:"is_gift"`
	ExpiredAt    time.Time  `gorm:"not null" json:"expired_at"`
	Used         bool       `gorm:"not null;default:false;index" json:"used"`
	UsedAt       *time.Time `json:"used_at"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (OneTimeCode) TableName() string {
	return "one_time_code"
}

// IsExpired 判断码在 now 时刻是否已过期
func (c *OneTimeCode) IsExpired(now time.Time) bool {
	return now.After(c.ExpiredAt)
}
