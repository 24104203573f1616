package handler

import (
	"strconv"

	"shisha/internal/service"
	"shisha/pkg/response"

	"github.com/gin-gonic/gin"
)

// ============================================================
// 管理接口（AdminOnlyMiddleware 守卫）
// ============================================================

// CreatePackage 新建套餐
// POST /api/v1/admin/package/create
func (h *Handler) CreatePackage(c *gin.Context) {
	var req service.SavePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	pkg, err := h.catalogService.CreatePackage(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, pkg)
}

// UpdatePackage 编辑套餐
// POST /api/v1/admin/package/update?package_id=xxx
func (h *Handler) UpdatePackage(c *gin.Context) {
	packageID, err := strconv.ParseInt(c.Query("package_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "package_id 参数错误")
		return
	}

	var req service.SavePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	pkg, err := h.catalogService.UpdatePackage(c.Request.Context(), packageID, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, pkg)
}

// CreateRestaurant 新增合作餐厅
// POST /api/v1/admin/restaurant/create
func (h *Handler) CreateRestaurant(c *gin.Context) {
	var req service.CreateRestaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	restaurant, err := h.catalogService.CreateRestaurant(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, restaurant)
}

// ListPayments 分账记录查询
// GET /api/v1/admin/payment/list?restaurant_id=xxx&status=DUE&page=1&page_size=10
func (h *Handler) ListPayments(c *gin.Context) {
	restaurantID, err := strconv.ParseInt(c.Query("restaurant_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "restaurant_id 参数错误")
		return
	}

	status := c.Query("status")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	payments, total, err := h.settlementService.ListPayments(c.Request.Context(), restaurantID, status, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      payments,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// CancelPayment 作废待结算分账记录
// POST /api/v1/admin/payment/cancel
func (h *Handler) CancelPayment(c *gin.Context) {
	var req struct {
		PaymentNo string `json:"payment_no" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.settlementService.CancelPayment(c.Request.Context(), req.PaymentNo); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"message": "分账记录已作废",
	})
}

// RunSettlement 执行结算
// POST /api/v1/admin/settlement/run
func (h *Handler) RunSettlement(c *gin.Context) {
	var req service.RunSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	req.GeneratedBy = GetPrincipal(c).UserID

	result, err := h.settlementService.RunSettlement(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, result)
}

// GetSettlement 结算单详情
// GET /api/v1/admin/settlement/detail?number=xxx
func (h *Handler) GetSettlement(c *gin.Context) {
	number, err := strconv.ParseInt(c.Query("number"), 10, 64)
	if err != nil {
		response.ParamError(c, "number 参数错误")
		return
	}

	settlement, payments, err := h.settlementService.GetSettlement(c.Request.Context(), number)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"settlement": settlement,
		"payments":   payments,
	})
}

// ListSettlements 结算单列表
// GET /api/v1/admin/settlement/list?page=1&page_size=10
func (h *Handler) ListSettlements(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	settlements, total, err := h.settlementService.ListSettlements(c.Request.Context(), page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      settlements,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// DeleteUser 删除用户（管理员账号受保护不可删除）
// POST /api/v1/admin/user/delete
func (h *Handler) DeleteUser(c *gin.Context) {
	var req struct {
		UserID int64 `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.authService.DeleteUser(c.Request.Context(), req.UserID); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"message": "用户已删除",
	})
}
