package auth

import (
	"shisha/internal/model"
)

const (
	KindUser     = "user"
	KindOperator = "operator"
	KindAdmin    = "admin"
)

// Principal 已解析的调用方身份（封闭类型，三种取值）
// 在认证中间件里解析一次，之后显式传入核心调用，
// 业务代码不允许再从字符串角色字段自行推断权限
type Principal struct {
	Kind         string `json:"kind"`
	UserID       int64  `json:"user_id"`
	RestaurantID int64  `json:"restaurant_id,omitempty"` // 仅 operator 有值
}

// PrincipalFromUser 由用户记录得到 Principal
func PrincipalFromUser(u *model.User) Principal {
	p := Principal{UserID: u.ID}
	switch u.Role {
	case model.RoleAdmin:
		p.Kind = KindAdmin
	case model.RoleOperator:
		p.Kind = KindOperator
		if u.RestaurantID != nil {
			p.RestaurantID = *u.RestaurantID
		}
	default:
		p.Kind = KindUser
	}
	return p
}

func (p Principal) IsAdmin() bool {
	return p.Kind == KindAdmin
}

func (p Principal) IsOperator() bool {
	return p.Kind == KindOperator
}

// CanActForRestaurant 判断能否以餐厅身份操作（核销、查询分账）
func (p Principal) CanActForRestaurant(restaurantID int64) bool {
	if p.Kind == KindAdmin {
		return true
	}
	return p.Kind == KindOperator && p.RestaurantID == restaurantID
}
