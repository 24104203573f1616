package handler

import (
	"shisha/internal/config"
	"shisha/internal/infrastructure/lock"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, lockFactory lock.Factory, cfg *config.Config) *gin.Engine {
	// 设置 gin 为发布模式（减少日志输出）
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// 注册中间件
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	// 创建处理器
	h := NewHandler(db, lockFactory, cfg)

	// API 路由组
	api := r.Group("/api/v1")
	{
		// 认证（公开）
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/code", h.RequestLoginCode)
			authGroup.POST("/login", h.Login)
		}

		// 套餐目录与餐厅（公开只读）
		api.GET("/package/list", h.ListPackages)
		api.GET("/package/detail", h.GetPackage)
		api.GET("/restaurant/list", h.ListRestaurants)
		api.GET("/restaurant/detail", h.GetRestaurant)
		api.GET("/restaurant/ratings", h.ListRestaurantRatings)

		// 支付网关回调（按 gateway_ref 幂等，不走登录态）
		api.POST("/purchase/notify", h.ConfirmPurchase)

		// 登录态接口
		authed := api.Group("")
		authed.Use(AuthMiddleware(cfg))
		{
			// 购买
			authed.POST("/purchase/create", h.InitiatePurchase)
			authed.GET("/purchase/list", h.ListTransactions)

			// 钱包
			authed.GET("/wallet/list", h.ListWallets)
			authed.GET("/wallet/detail", h.GetWallet)
			authed.GET("/wallet/history", h.WalletHistory)

			// 核销码与核销
			authed.POST("/code/issue", h.IssueConsumptionCode)
			authed.POST("/redeem/execute", h.Redeem)

			// 评价
			authed.POST("/rating/create", h.Rate)

			// 餐厅账务（操作员限本店，管理员不限）
			authed.GET("/restaurant/balance", h.RestaurantBalance)

			// 管理接口
			admin := authed.Group("/admin")
			admin.Use(AdminOnlyMiddleware())
			{
				admin.POST("/package/create", h.CreatePackage)
				admin.POST("/package/update", h.UpdatePackage)
				admin.POST("/restaurant/create", h.CreateRestaurant)
				admin.GET("/payment/list", h.ListPayments)
				admin.POST("/payment/cancel", h.CancelPayment)
				admin.POST("/settlement/run", h.RunSettlement)
				admin.GET("/settlement/detail", h.GetSettlement)
				admin.GET("/settlement/list", h.ListSettlements)
				admin.POST("/user/delete", h.DeleteUser)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
