package model

import (
	"time"
)

// Package 水烟套餐定义
// 商品目录数据，核心流程只读，仅管理员可修改
type Package struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"type:varchar(128);not null" json:"name"`    // 套餐名称
	NameEn       string    `gorm:"type:varchar(128)" json:"name_en"`          // 英文名称
	Count        int       `gorm:"not null" json:"count"`                     // 套餐包含的水烟次数
	Price        int64     `gorm:"not null" json:"price"`                     // 价格（最小货币单位，分）
	Badge        string    `gorm:"type:varchar(64)" json:"badge,omitempty"`   // 角标（如"热卖"），可选
	DurationDays *int      `json:"duration_days"`                             // 有效期天数，NULL 表示永久有效
	Enabled      bool      `gorm:"not null;default:true" json:"enabled"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	TimeWindows []PackageTimeWindow `gorm:"foreignKey:PackageID" json:"time_windows"`
}

func (Package) TableName() string {
	return "package"
}

// PackageTimeWindow 套餐可核销时段
// 一个套餐可配置零个或多个时段，零个表示全天可核销
// 时段用"当天第几分钟"表示，跨时区按 Timezone 换算
type PackageTimeWindow struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	PackageID   int64  `gorm:"index;not null" json:"package_id"`
	StartMinute int    `gorm:"not null" json:"start_minute"` // 起始分钟（含），如 13:00 = 780
	EndMinute   int    `gorm:"not null" json:"end_minute"`   // 结束分钟（不含），如 17:00 = 1020
	Timezone    string `gorm:"type:varchar(64);not null;default:'Asia/Riyadh'" json:"timezone"`
}

func (PackageTimeWindow) TableName() string {
	return "package_time_window"
}

// Contains 判断时刻 t 是否落在本时段内
// 边界规则：起始分钟含，结束分钟不含，即 [start, end)
func (w *PackageTimeWindow) Contains(t time.Time) (bool, error) {
	loc, err := time.LoadLocation(w.Timezone)
	if err != nil {
		return false, err
	}
	local := t.In(loc)
	minute := local.Hour()*60 + local.Minute()
	return minute >= w.StartMinute && minute < w.EndMinute, nil
}

// InRedemptionWindow 判断时刻 t 是否可核销
// 未配置任何时段时全天可核销；配置了时段则至少要命中一个
func (p *Package) InRedemptionWindow(t time.Time) (bool, error) {
	if len(p.TimeWindows) == 0 {
		return true, nil
	}
	for i := range p.TimeWindows {
		ok, err := p.TimeWindows[i].Contains(t)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
