package router

import (
	"github.com/blues/ess/internal/escrow"
	"github.com/blues/ess/internal/handler"
	"github.com/gin-gonic/gin"
)

func Setup(store *escrow.Store, engine *escrow.Engine) *gin.Engine {
	r := gin.Default()

	// 中间件
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "escrow-service",
		})
	})

	// API版本组
	v1 := r.Group("/api/v1")
	{
		// 托管相关路由
		escrowHandler := handler.NewEscrowHandler(store, engine)
		escrows := v1.Group("/escrows")
		{
			escrows.POST("", escrowHandler.CreateEscrow)
			escrows.GET("", escrowHandler.GetEscrows)
			escrows.GET("/:id", escrowHandler.GetEscrow)
			escrows.GET("/:id/progress", escrowHandler.GetProgress)
			escrows.GET("/:id/milestones/:index", escrowHandler.GetMilestone)
			escrows.POST("/:id/fund", escrowHandler.FundEscrow)
			escrows.POST("/:id/milestones/:index/complete", escrowHandler.CompleteMilestone)
			escrows.POST("/:id/release", escrowHandler.ReleaseEscrow)
			escrows.POST("/:id/refund", escrowHandler.RefundEscrow)
		}
	}

	return r
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
