package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"food-recommender/internal/core/ai/cache"
	"food-recommender/internal/core/ai/gemini"
	"food-recommender/internal/core/ai/openrouter"
	"food-recommender/internal/core/ai/provider"
	"food-recommender/internal/core/ai/queue"
	"food-recommender/internal/core/nutrition"
	"food-recommender/internal/core/nutrition/edamam"
	"food-recommender/internal/core/nutrition/usda"
	"food-recommender/internal/core/recommendation"
	"food-recommender/internal/infrastructure/config"
	"food-recommender/internal/infrastructure/database"
	"food-recommender/internal/infrastructure/httpclient"
	"food-recommender/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// application 啟動時建立一次的長期資源
type application struct {
	Service *recommendation.Service
	Cache   *cache.Cache
	Queue   *queue.Manager

	http *resty.Client
	db   *gorm.DB
}

// Close 依建立的相反順序釋放資源
func (a *application) Close() {
	var errs []error
	if a.Queue != nil {
		errs = append(errs, a.Queue.Close())
	}
	errs = append(errs, a.Cache.Close())
	errs = append(errs, database.Close(a.db))
	httpclient.Close(a.http)

	if err := errors.Join(errs...); err != nil {
		common.LogError("Failed to release resources", zap.Error(err))
	}
}

func bootstrap(ctx context.Context, cfg *config.Config) (*application, error) {
	app := &application{
		http: httpclient.New(cfg.App.Name, cfg.App.Version, cfg.Generative.Timeout),
	}

	c, db, err := buildCache(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Cache = c
	app.db = db

	llm, err := buildProvider(app.http, cfg.Generative)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Queue = queue.NewManager(llm, cfg.Generative.MaxConcurrent)

	var lookup nutrition.Lookup
	if cfg.Nutrition.Enabled {
		source, err := buildNutritionSource(app.http, cfg.Nutrition)
		if err != nil {
			app.Close()
			return nil, err
		}
		lookup = nutrition.NewClient(source)
		if cfg.Nutrition.CacheFoods && app.Cache != nil {
			lookup = nutrition.NewCachedLookup(lookup, app.Cache)
		}
	}

	app.Service = recommendation.NewService(
		recommendation.NewLLMGenerator(app.Queue, cfg.Generative.MaxTokens),
		lookup,
		app.Cache,
		recommendation.Options{
			Enrich:                  cfg.Nutrition.Enabled,
			MaxConcurrency:          cfg.Nutrition.MaxConcurrency,
			DegradeOnTransportError: cfg.Generative.DegradeOnTransportError,
			ServeStaleOnError:       cfg.Cache.ServeStaleOnError,
		},
	)

	common.LogInfo("服務已初始化",
		zap.String("model", app.Queue.GetModel()),
		zap.Int("max_concurrent", cfg.Generative.MaxConcurrent),
		zap.Bool("enrich", cfg.Nutrition.Enabled),
		zap.Bool("cache", app.Cache != nil),
	)
	return app, nil
}

// buildCache 依 cache.backend 建立快取；停用時返回 nil
func buildCache(ctx context.Context, cfg *config.Config) (*cache.Cache, *gorm.DB, error) {
	if !cfg.Cache.Enabled {
		common.LogWarn("快取已停用")
		return nil, nil, nil
	}

	var (
		store cache.Store
		db    *gorm.DB
	)
	switch strings.ToLower(cfg.Cache.Backend) {
	case "database":
		var err error
		db, err = database.Open(cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("open cache database: %w", err)
		}
		gs, err := cache.NewGormStore(db)
		if err != nil {
			_ = database.Close(db)
			return nil, nil, err
		}
		store = gs
	case "redis":
		rs, err := cache.NewRedisStore(ctx, cfg.Redis, cfg.Cache.TTL)
		if err != nil {
			return nil, nil, err
		}
		store = rs
	case "memory":
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}

	front := cache.NewManager(cfg.Cache.MaxSize, cfg.Cache.TTL, cfg.Cache.CleanupInterval)
	return cache.New(front, store, cfg.Cache.TTL), db, nil
}

func buildProvider(client *resty.Client, cfg config.GenerativeConfig) (provider.Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		common.LogWarn("未設定生成式模型 API key", zap.String("provider", cfg.Provider))
	}

	pc := provider.Config{
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		BaseURL:   cfg.BaseURL,
		MaxTokens: cfg.MaxTokens,
		Timeout:   cfg.Timeout,
	}
	switch strings.ToLower(cfg.Provider) {
	case "openrouter":
		return openrouter.NewClient(client, pc), nil
	case "gemini":
		return gemini.NewClient(client, pc), nil
	default:
		return nil, fmt.Errorf("unknown generative provider %q", cfg.Provider)
	}
}

func buildNutritionSource(client *resty.Client, cfg config.NutritionConfig) (nutrition.Source, error) {
	switch strings.ToLower(cfg.Provider) {
	case "usda":
		if cfg.APIKey == "" {
			common.LogWarn("未設定 USDA_API_KEY，營養資訊將為未知")
		}
		return usda.NewSource(client, cfg.APIKey, cfg.BaseURL, cfg.Timeout), nil
	case "edamam":
		if cfg.AppID == "" || cfg.AppKey == "" {
			common.LogWarn("未設定 Edamam 憑證，營養資訊將為未知")
		}
		return edamam.NewSource(client, cfg.AppID, cfg.AppKey, cfg.BaseURL, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown nutrition provider %q", cfg.Provider)
	}
}
