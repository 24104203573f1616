package handler

import (
	"strconv"

	"shisha/internal/config"
	"shisha/internal/infrastructure/lock"
	"shisha/internal/service"
	"shisha/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	authService       *service.AuthService
	codeService       *service.CodeService
	catalogService    *service.CatalogService
	purchaseService   *service.PurchaseService
	walletService     *service.WalletService
	redeemService     *service.RedeemService
	ratingService     *service.RatingService
	settlementService *service.SettlementService
	accounting        *service.AccountingEngine
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, lockFactory lock.Factory, cfg *config.Config) *Handler {
	return &Handler{
		authService:       service.NewAuthService(db, cfg),
		codeService:       service.NewCodeService(db, cfg),
		catalogService:    service.NewCatalogService(db),
		purchaseService:   service.NewPurchaseService(db, lockFactory, cfg),
		walletService:     service.NewWalletService(db),
		redeemService:     service.NewRedeemService(db, lockFactory, cfg),
		ratingService:     service.NewRatingService(db),
		settlementService: service.NewSettlementService(db, lockFactory, cfg),
		accounting:        service.NewAccountingEngine(db, cfg),
	}
}

// ============================================================
// 认证相关接口
// ============================================================

// RequestLoginCode 请求登录码
// POST /api/v1/auth/code
func (h *Handler) RequestLoginCode(c *gin.Context) {
	var req struct {
		Phone string `json:"phone" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.authService.RequestLoginCode(c.Request.Context(), req.Phone)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, result)
}

// Login 登录码换令牌
// POST /api/v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Phone string `json:"phone" binding:"required"`
		Code  string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.authService.VerifyLoginCode(c.Request.Context(), req.Phone, req.Code)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, result)
}

// ============================================================
// 套餐目录接口
// ============================================================

// ListPackages 套餐列表
// GET /api/v1/package/list
func (h *Handler) ListPackages(c *gin.Context) {
	packages, err := h.catalogService.ListPackages(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, packages)
}

// GetPackage 套餐详情
// GET /api/v1/package/detail?package_id=xxx
func (h *Handler) GetPackage(c *gin.Context) {
	packageID, err := strconv.ParseInt(c.Query("package_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "package_id 参数错误")
		return
	}

	pkg, err := h.catalogService.GetPackage(c.Request.Context(), packageID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, pkg)
}

// ListRestaurants 合作餐厅列表
// GET /api/v1/restaurant/list
func (h *Handler) ListRestaurants(c *gin.Context) {
	restaurants, err := h.catalogService.ListRestaurants(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, restaurants)
}

// GetRestaurant 餐厅详情
// GET /api/v1/restaurant/detail?restaurant_id=xxx
func (h *Handler) GetRestaurant(c *gin.Context) {
	restaurantID, err := strconv.ParseInt(c.Query("restaurant_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "restaurant_id 参数错误")
		return
	}

	restaurant, err := h.catalogService.GetRestaurant(c.Request.Context(), restaurantID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, restaurant)
}

// ============================================================
// 购买相关接口
// ============================================================

// InitiatePurchase 发起套餐购买
// POST /api/v1/purchase/create
func (h *Handler) InitiatePurchase(c *gin.Context) {
	var req service.InitiatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	req.UserID = GetPrincipal(c).UserID

	result, err := h.purchaseService.InitiatePurchase(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, result)
}

// ConfirmPurchase 支付网关回调（无需登录态，按 gateway_ref 幂等）
// POST /api/v1/purchase/notify
func (h *Handler) ConfirmPurchase(c *gin.Context) {
	var req service.ConfirmPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.purchaseService.ConfirmPurchase(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, result)
}

// ListTransactions 购买记录
// GET /api/v1/purchase/list?page=1&page_size=10
func (h *Handler) ListTransactions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	transactions, total, err := h.purchaseService.ListTransactions(c.Request.Context(), GetPrincipal(c).UserID, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      transactions,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 钱包相关接口
// ============================================================

// ownerScope 普通用户只能操作自己的钱包，管理员不受限
func ownerScope(c *gin.Context) int64 {
	p := GetPrincipal(c)
	if p.IsAdmin() {
		return 0
	}
	return p.UserID
}

// ListWallets 我的钱包列表
// GET /api/v1/wallet/list?page=1&page_size=10
func (h *Handler) ListWallets(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	wallets, total, err := h.walletService.ListWallets(c.Request.Context(), GetPrincipal(c).UserID, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      wallets,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetWallet 钱包详情
// GET /api/v1/wallet/detail?wallet_id=xxx
func (h *Handler) GetWallet(c *gin.Context) {
	walletID, err := strconv.ParseInt(c.Query("wallet_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "wallet_id 参数错误")
		return
	}

	detail, err := h.walletService.GetWallet(c.Request.Context(), walletID, ownerScope(c))
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, detail)
}

// WalletHistory 钱包核销流水
// GET /api/v1/wallet/history?wallet_id=xxx
func (h *Handler) WalletHistory(c *gin.Context) {
	walletID, err := strconv.ParseInt(c.Query("wallet_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "wallet_id 参数错误")
		return
	}

	records, err := h.walletService.History(c.Request.Context(), walletID, ownerScope(c))
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, records)
}

// ============================================================
// 核销码与核销接口
// ============================================================

// IssueCodeRequest 签发核销码请求
type IssueCodeRequest struct {
	WalletID     int64 `json:"wallet_id" binding:"required"`
	RestaurantID int64 `json:"restaurant_id" binding:"required"`
	Count        int   `json:"count" binding:"required"`
	IsGift       bool  `json:"is_gift"`
}

// IssueConsumptionCode 签发核销码
// POST /api/v1/code/issue
func (h *Handler) IssueConsumptionCode(c *gin.Context) {
	var req IssueCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	p := GetPrincipal(c)

	// 赠送标志决定分账方向（credit 而非 debt），只能由本店操作员或管理员设置
	if req.IsGift && !p.CanActForRestaurant(req.RestaurantID) {
		response.Forbidden(c, "无权签发赠送核销码")
		return
	}

	// 本店操作员可为到店顾客的钱包签发，不受归属限制；普通用户只能操作自己的钱包
	ownerUserID := p.UserID
	if p.CanActForRestaurant(req.RestaurantID) {
		ownerUserID = 0
	}

	result, err := h.codeService.IssueConsumptionCode(c.Request.Context(), &service.IssueConsumeCodeRequest{
		WalletID:     req.WalletID,
		RestaurantID: req.RestaurantID,
		Count:        req.Count,
		IsGift:       req.IsGift,
		OwnerUserID:  ownerUserID,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, result)
}

// Redeem 执行核销
// POST /api/v1/redeem/execute
//
// 【关键点】核销是整个系统最核心的操作，需要保证：
// 1. 一次性：核销码只能成功使用一次，重放一律拒绝
// 2. 原子性：码认领、余额扣减、流水、分账行必须同时成功或同时失败
// 3. 并发安全：钱包维度分布式锁 + 乐观锁双层防护
func (h *Handler) Redeem(c *gin.Context) {
	var req service.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	// 核销只能由餐厅操作员（本店）或管理员发起
	if !GetPrincipal(c).CanActForRestaurant(req.RestaurantID) {
		response.Forbidden(c, "无权为该餐厅核销")
		return
	}

	result, err := h.redeemService.Redeem(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, result)
}

// ============================================================
// 评价接口
// ============================================================

// Rate 核销评价
// POST /api/v1/rating/create
func (h *Handler) Rate(c *gin.Context) {
	var req service.RateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	req.UserID = GetPrincipal(c).UserID

	rating, err := h.ratingService.Rate(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, rating)
}

// ListRestaurantRatings 餐厅评价列表
// GET /api/v1/restaurant/ratings?restaurant_id=xxx&page=1&page_size=10
func (h *Handler) ListRestaurantRatings(c *gin.Context) {
	restaurantID, err := strconv.ParseInt(c.Query("restaurant_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "restaurant_id 参数错误")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	ratings, total, err := h.ratingService.ListByRestaurant(c.Request.Context(), restaurantID, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      ratings,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 餐厅账务接口
// ============================================================

// RestaurantBalance 餐厅应收余额
// GET /api/v1/restaurant/balance?restaurant_id=xxx
func (h *Handler) RestaurantBalance(c *gin.Context) {
	restaurantID, err := strconv.ParseInt(c.Query("restaurant_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "restaurant_id 参数错误")
		return
	}

	if !GetPrincipal(c).CanActForRestaurant(restaurantID) {
		response.Forbidden(c, "无权查询该餐厅账务")
		return
	}

	debt, credit, net, err := h.accounting.RestaurantBalance(c.Request.Context(), restaurantID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"restaurant_id": restaurantID,
		"debt":          debt,
		"credit":        credit,
		"net":           net,
	})
}
