package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeSuccess      = 0
	CodeParamError   = 400
	CodeUnauthorized = 401
	CodeForbidden    = 403
	CodeNotFound     = 404
	CodeServerError  = 500
)

// 业务错误码
// 钱包 20xx / 验证码 21xx / 会计 22xx / 结算 23xx / 并发 24xx / 评价 25xx / 其他 26xx
const (
	CodeInsufficientBalance      = 2001
	CodeWalletExpired            = 2002
	CodeWalletNotActive          = 2003
	CodeWalletNotFound           = 2004
	CodeCodeNotFound             = 2101
	CodeCodeExpired              = 2102
	CodeCodeAlreadyUsed          = 2103
	CodeCodeScopeMismatch        = 2104
	CodeOutsideRedemptionWindow  = 2105
	CodeInvalidQuantity          = 2106
	CodeAccountingWriteFailed    = 2201
	CodeAlreadySettled           = 2301
	CodeNothingToSettle          = 2302
	CodeConflict                 = 2401
	CodeDuplicateRating          = 2501
	CodeRedemptionNotFound       = 2502
	CodeProtectedEntity          = 2601
	CodeTransactionNotFound      = 2602
	CodeTransactionStatusInvalid = 2603
	CodeRestaurantInactive       = 2604
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

func ParamError(c *gin.Context, message string) {
	Error(c, CodeParamError, message)
}

func Unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, Response{
		Code:    CodeUnauthorized,
		Message: message,
	})
}

func Forbidden(c *gin.Context, message string) {
	c.JSON(http.StatusForbidden, Response{
		Code:    CodeForbidden,
		Message: message,
	})
}

func ServerError(c *gin.Context, message string) {
	Error(c, CodeServerError, message)
}

func BusinessError(c *gin.Context, code int, message string) {
	Error(c, code, message)
}
