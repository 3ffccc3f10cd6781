package router

import (
	"time"

	"prompt-runner/internal/handler"
	"prompt-runner/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func SetupRouter(svc *service.ServiceContext) *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(svc.Logger.Named("http")), gin.Recovery())

	// CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// 初始化handlers
	runHandler := handler.NewRunHandler(svc.Runner, svc.Logger.Named("run"))
	logHandler := handler.NewLogHandler(svc.Recorder)
	catalogHandler := handler.NewCatalogHandler(svc.Catalog)

	// API路由
	api := r.Group("/api")
	{
		api.GET("/templates", catalogHandler.ListTemplates)
		api.POST("/facts", runHandler.ExtractFacts)
		api.POST("/selections", runHandler.SelectItems)

		// 运行相关
		runs := api.Group("/runs")
		{
			runs.POST("", runHandler.Run)
			runs.POST("/stream", runHandler.RunStream)
		}

		// 执行日志
		logs := api.Group("/logs")
		{
			logs.GET("", logHandler.ListLogs)
			logs.DELETE("", logHandler.ClearLogs)
			logs.GET("/:id", logHandler.GetLog)
			logs.DELETE("/:id", logHandler.DeleteLog)
			logs.GET("/:id/export", logHandler.ExportLog)
		}

		api.GET("/stats", logHandler.GetStats)
	}

	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
