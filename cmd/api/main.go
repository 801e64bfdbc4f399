package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"food-recommender/internal/api"
	"food-recommender/internal/infrastructure/config"
	"food-recommender/internal/pkg/common"

	"go.uber.org/zap"
)

// shutdownTimeout 等待進行中請求完成的上限
const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("generative_provider", cfg.Generative.Provider),
		zap.String("generative_model", cfg.Generative.Model),
		zap.String("generative_key", common.MaskSecret(cfg.Generative.APIKey)),
		zap.String("nutrition_provider", cfg.Nutrition.Provider),
		zap.Bool("nutrition_enabled", cfg.Nutrition.Enabled),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
	)

	ctx := context.Background()
	app, err := bootstrap(ctx, cfg)
	if err != nil {
		common.LogFatal("Failed to initialize application", zap.Error(err))
	}
	defer app.Close()

	router, err := api.SetupRouter(cfg, api.Dependencies{
		Recommender: app.Service,
		Cache:       app.Cache,
		Queue:       app.Queue,
	})
	if err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		return
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		common.LogInfo("啟動應用",
			zap.String("addr", srv.Addr),
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// 等待中斷信號或伺服器錯誤
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		common.LogError("Failed to start server", zap.Error(err))
		return
	}

	common.LogInfo("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
		return
	}

	common.LogInfo("Server exited")
}
