package service

import (
	"errors"
)

// 核销/结算对外错误，处理器按 errors.Is 映射为业务错误码
// 校验类错误保证不产生任何写入；ErrConflict 是有限重试耗尽后的兜底
var (
	ErrWalletExpired            = errors.New("钱包已过期")
	ErrWalletNotActive          = errors.New("钱包不可用")
	ErrInvalidQuantity          = errors.New("核销数量不合法")
	ErrCodeExpired              = errors.New("验证码已过期")
	ErrCodeScopeMismatch        = errors.New("验证码与请求的餐厅或数量不符")
	ErrOutsideRedemptionWindow  = errors.New("不在套餐可核销时段内")
	ErrAccountingWriteFailed    = errors.New("会计记录写入失败")
	ErrConflict                 = errors.New("系统繁忙，请稍后重试")
	ErrNothingToSettle          = errors.New("没有待结算的分账记录")
	ErrForbidden                = errors.New("无权执行该操作")
	ErrRestaurantInactive       = errors.New("餐厅已停用")
	ErrTransactionAlreadyClosed = errors.New("交易已关闭")
)
