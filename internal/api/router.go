package api

import (
	"errors"
	"net/http"
	"time"

	"food-recommender/internal/api/handlers/health"
	recommendationHandler "food-recommender/internal/api/handlers/recommendation"
	"food-recommender/internal/api/middleware"
	"food-recommender/internal/core/ai/cache"
	"food-recommender/internal/infrastructure/config"
	"food-recommender/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies 路由需要的服務
type Dependencies struct {
	Recommender recommendationHandler.Recommender
	// Cache 可為 nil（快取停用）
	Cache *cache.Cache
	// Queue 可為 nil
	Queue health.QueueStatus
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if deps.Recommender == nil {
		return nil, errors.New("recommendation service is required")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(common.GenerateUUID)))
	router.Use(middleware.Logger())

	router.Use(cors.New(corsConfig(cfg.CORS.AllowOrigins)))

	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	router.Use(middleware.Deduplication(cfg.DedupWindow))
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	healthHandler := health.NewHandler(cfg.App.Version, deps.Cache, deps.Queue)
	recHandler := recommendationHandler.NewHandler(deps.Recommender, cfg.App.Debug)

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Welcome to the Food Recommendation API",
			"version": cfg.App.Version,
		})
	})

	// 健康檢查路由
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	// 舊路徑
	router.POST("/recommendations", recHandler.HandleRecommendations)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/recommendations", recHandler.HandleRecommendations)
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("cache_enabled", deps.Cache != nil),
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		zap.Duration("request_timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)

	return router, nil
}

// corsConfig 未設定來源或包含 "*" 時允許所有來源（此時不帶憑證）
func corsConfig(origins []string) cors.Config {
	conf := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		conf.AllowAllOrigins = true
		conf.AllowCredentials = false
		return conf
	}
	conf.AllowOrigins = origins
	return conf
}
