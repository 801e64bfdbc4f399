package database

import (
	"fmt"
	"strings"
	"time"

	"food-recommender/internal/infrastructure/config"
	"food-recommender/internal/pkg/common"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open 依設定開啟資料庫連線
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql handle: %w", err)
	}
	if isSQLite(cfg.Driver) {
		// sqlite 只允許單一寫入者
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping %s database: %w", cfg.Driver, err)
	}

	common.LogInfo("資料庫已連線", zap.String("driver", cfg.Driver))
	return db, nil
}

// Close 關閉資料庫連線
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("empty database dsn")
	}
	switch {
	case isSQLite(cfg.Driver):
		return sqlite.Open(dsn), nil
	case strings.EqualFold(cfg.Driver, "postgres"), strings.EqualFold(cfg.Driver, "postgresql"):
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func isSQLite(driver string) bool {
	return strings.EqualFold(driver, "sqlite") || strings.EqualFold(driver, "sqlite3")
}
