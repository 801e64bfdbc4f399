package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig        `mapstructure:"app"`
	Server      ServerConfig     `mapstructure:"server"`
	Generative  GenerativeConfig `mapstructure:"generative"`
	Nutrition   NutritionConfig  `mapstructure:"nutrition"`
	Cache       CacheConfig      `mapstructure:"cache"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Redis       RedisConfig      `mapstructure:"redis"`
	RateLimit   RateLimitConfig  `mapstructure:"rate_limit"`
	CORS        CORSConfig       `mapstructure:"cors"`
	Log         LogConfig        `mapstructure:"log"`
	DedupWindow time.Duration    `mapstructure:"dedup_window"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// GenerativeConfig 生成式模型設定
type GenerativeConfig struct {
	Provider  string        `mapstructure:"provider"` // openrouter | gemini
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	BaseURL   string        `mapstructure:"base_url"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
	// MaxConcurrent 同時送往模型的請求上限，超過者排隊
	MaxConcurrent int `mapstructure:"max_concurrent"`
	// DegradeOnTransportError 為 true 時連線失敗回傳空結果，否則請求失敗
	DegradeOnTransportError bool `mapstructure:"degrade_on_transport_error"`
}

// NutritionConfig 營養資料庫設定
type NutritionConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Provider       string        `mapstructure:"provider"` // usda | edamam
	APIKey         string        `mapstructure:"api_key"`
	AppID          string        `mapstructure:"app_id"`
	AppKey         string        `mapstructure:"app_key"`
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	CacheFoods     bool          `mapstructure:"cache_foods"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Backend           string        `mapstructure:"backend"` // database | redis | memory
	MaxSize           int           `mapstructure:"max_size"`
	TTL               time.Duration `mapstructure:"ttl"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
	ServeStaleOnError bool          `mapstructure:"serve_stale_on_error"`
}

// DatabaseConfig 資料庫設定
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite | postgres
	DSN    string `mapstructure:"dsn"`
	Debug  bool   `mapstructure:"debug"`
}

// RedisConfig Redis 設定
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// CORSConfig 跨域設定
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// LogConfig 日誌設定
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// TTLDays 快取存活天數
const TTLDays = 30

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 可有可無
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定常用環境變量
	bindings := map[string]string{
		"generative.provider":  "GENERATIVE_PROVIDER",
		"generative.api_key":   "GENERATIVE_API_KEY",
		"generative.model":     "GENERATIVE_MODEL",
		"nutrition.provider":   "NUTRITION_PROVIDER",
		"nutrition.api_key":    "USDA_API_KEY",
		"nutrition.app_id":     "EDAMAM_APP_ID",
		"nutrition.app_key":    "EDAMAM_APP_KEY",
		"nutrition.enabled":    "NUTRITION_ENABLED",
		"cache.enabled":        "CACHE_ENABLED",
		"cache.backend":        "CACHE_BACKEND",
		"database.dsn":         "DATABASE_URL",
		"redis.addr":           "REDIS_ADDR",
		"redis.password":       "REDIS_PASSWORD",
		"rate_limit.enabled":   "RATE_LIMIT_ENABLED",
		"rate_limit.requests":  "RATE_LIMIT_REQUESTS",
		"rate_limit.window":    "RATE_LIMIT_WINDOW",
		"dedup_window":         "DEDUP_WINDOW",
		"log.level":            "LOG_LEVEL",
		"server.port":          "PORT",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, "APP_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	// 設定檔名稱和路徑
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 供應商專屬的 API key 環境變數
	if config.Generative.APIKey == "" {
		config.Generative.APIKey = providerKey(v, config.Generative.Provider)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// providerKey 依供應商讀取 OPENROUTER_API_KEY 或 GEMINI_API_KEY
func providerKey(v *viper.Viper, provider string) string {
	switch strings.ToLower(provider) {
	case "gemini":
		_ = v.BindEnv("gemini_api_key", "GEMINI_API_KEY")
		return v.GetString("gemini_api_key")
	default:
		_ = v.BindEnv("openrouter_api_key", "OPENROUTER_API_KEY")
		return v.GetString("openrouter_api_key")
	}
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "food-recommender")

	// 伺服器設定
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "90s")
	v.SetDefault("server.max_body_bytes", 1<<20)

	// 生成式模型設定
	v.SetDefault("generative.provider", "openrouter")
	v.SetDefault("generative.model", "google/gemini-2.5-flash")
	v.SetDefault("generative.max_tokens", 2048)
	v.SetDefault("generative.timeout", "60s")
	v.SetDefault("generative.max_concurrent", 8)
	v.SetDefault("generative.degrade_on_transport_error", false)

	// 營養資料庫設定
	v.SetDefault("nutrition.enabled", true)
	v.SetDefault("nutrition.provider", "usda")
	v.SetDefault("nutrition.timeout", "12s")
	v.SetDefault("nutrition.max_concurrency", 16)
	v.SetDefault("nutrition.cache_foods", true)

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", "database")
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl", fmt.Sprintf("%dh", TTLDays*24))
	v.SetDefault("cache.cleanup_interval", "10m")
	v.SetDefault("cache.serve_stale_on_error", false)

	// 資料庫設定
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "nutrition_cache.db")

	// Redis 設定
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "food-recommender:")

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 60)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("cors.allow_origins", []string{"http://localhost:3000", "http://localhost:5173"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "logs/app.log")

	// 推薦路由本身可快取，預設不去重
	v.SetDefault("dedup_window", "0s")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 {
		return fmt.Errorf("server port is required")
	}

	switch strings.ToLower(config.Generative.Provider) {
	case "openrouter", "gemini":
	default:
		return fmt.Errorf("unknown generative provider %q", config.Generative.Provider)
	}
	if config.Generative.Timeout <= 0 {
		return fmt.Errorf("invalid generative timeout")
	}
	if config.Generative.MaxConcurrent <= 0 {
		return fmt.Errorf("invalid generative max concurrent")
	}

	if config.Nutrition.Enabled {
		switch strings.ToLower(config.Nutrition.Provider) {
		case "usda", "edamam":
		default:
			return fmt.Errorf("unknown nutrition provider %q", config.Nutrition.Provider)
		}
		if config.Nutrition.MaxConcurrency <= 0 {
			return fmt.Errorf("invalid nutrition max concurrency")
		}
	}

	if config.Cache.Enabled {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
		switch strings.ToLower(config.Cache.Backend) {
		case "memory", "redis":
		case "database":
			if config.Database.DSN == "" {
				return fmt.Errorf("database dsn is required for database cache backend")
			}
		default:
			return fmt.Errorf("unknown cache backend %q", config.Cache.Backend)
		}
	}

	if config.RateLimit.Enabled && (config.RateLimit.Requests <= 0 || config.RateLimit.Window <= 0) {
		return fmt.Errorf("invalid rate limit settings")
	}

	return nil
}
