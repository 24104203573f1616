package handler

import (
	"errors"

	"shisha/internal/repository"
	"shisha/internal/service"
	"shisha/pkg/response"

	"github.com/gin-gonic/gin"
)

// writeError 业务错误到响应码的唯一映射点
// 处理器不自己挑错误码，新增错误先在这里注册
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrInsufficientBalance):
		response.BusinessError(c, response.CodeInsufficientBalance, err.Error())
	case errors.Is(err, service.ErrWalletExpired):
		response.BusinessError(c, response.CodeWalletExpired, err.Error())
	case errors.Is(err, service.ErrWalletNotActive), errors.Is(err, repository.ErrWalletStatusInvalid):
		response.BusinessError(c, response.CodeWalletNotActive, err.Error())
	case errors.Is(err, repository.ErrWalletNotFound):
		response.BusinessError(c, response.CodeWalletNotFound, err.Error())
	case errors.Is(err, repository.ErrCodeNotFound):
		response.BusinessError(c, response.CodeCodeNotFound, err.Error())
	case errors.Is(err, service.ErrCodeExpired):
		response.BusinessError(c, response.CodeCodeExpired, err.Error())
	case errors.Is(err, repository.ErrCodeAlreadyUsed):
		response.BusinessError(c, response.CodeCodeAlreadyUsed, err.Error())
	case errors.Is(err, service.ErrCodeScopeMismatch):
		response.BusinessError(c, response.CodeCodeScopeMismatch, err.Error())
	case errors.Is(err, service.ErrOutsideRedemptionWindow):
		response.BusinessError(c, response.CodeOutsideRedemptionWindow, err.Error())
	case errors.Is(err, service.ErrInvalidQuantity), errors.Is(err, service.ErrInvalidTimeWindow):
		response.BusinessError(c, response.CodeInvalidQuantity, err.Error())
	case errors.Is(err, service.ErrAccountingWriteFailed):
		response.BusinessError(c, response.CodeAccountingWriteFailed, err.Error())
	case errors.Is(err, repository.ErrAlreadySettled):
		response.BusinessError(c, response.CodeAlreadySettled, err.Error())
	case errors.Is(err, service.ErrNothingToSettle):
		response.BusinessError(c, response.CodeNothingToSettle, err.Error())
	case errors.Is(err, service.ErrConflict), errors.Is(err, repository.ErrOptimisticLock):
		response.BusinessError(c, response.CodeConflict, err.Error())
	case errors.Is(err, repository.ErrDuplicateRating):
		response.BusinessError(c, response.CodeDuplicateRating, err.Error())
	case errors.Is(err, repository.ErrRedemptionNotFound):
		response.BusinessError(c, response.CodeRedemptionNotFound, err.Error())
	case errors.Is(err, repository.ErrProtectedEntity):
		response.BusinessError(c, response.CodeProtectedEntity, err.Error())
	case errors.Is(err, repository.ErrTransactionNotFound):
		response.BusinessError(c, response.CodeTransactionNotFound, err.Error())
	case errors.Is(err, repository.ErrTransactionStatusInvalid), errors.Is(err, service.ErrTransactionAlreadyClosed):
		response.BusinessError(c, response.CodeTransactionStatusInvalid, err.Error())
	case errors.Is(err, repository.ErrPackageNotFound),
		errors.Is(err, repository.ErrRestaurantNotFound),
		errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrPaymentNotFound),
		errors.Is(err, repository.ErrSettlementNotFound):
		response.Error(c, response.CodeNotFound, err.Error())
	case errors.Is(err, service.ErrRestaurantInactive):
		response.BusinessError(c, response.CodeRestaurantInactive, err.Error())
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, err.Error())
	default:
		response.ServerError(c, err.Error())
	}
}
