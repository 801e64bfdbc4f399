package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Record 快取資料表，每個 key 最多一筆
type Record struct {
	Key         string         `gorm:"column:cache_key;primaryKey;size:255"`
	Payload     datatypes.JSON `gorm:"column:payload;not null"`
	LastUpdated time.Time      `gorm:"column:last_updated;not null;index"`
}

// TableName 指定表名
func (Record) TableName() string {
	return "recommendation_cache"
}

// GormStore 以 GORM 實作的持久化儲存層（postgres 或 sqlite）
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 創建儲存層並建立資料表
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, errors.New("nil database")
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate cache table: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Get 獲取條目
func (s *GormStore) Get(ctx context.Context, key string) (*Entry, error) {
	var rec Record
	err := s.db.WithContext(ctx).Where("cache_key = ?", key).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query cache entry: %w", err)
	}
	return &Entry{
		Key:       rec.Key,
		Payload:   []byte(rec.Payload),
		UpdatedAt: rec.LastUpdated,
	}, nil
}

// Put 寫入條目；key 衝突時原地更新 payload 與 last_updated
func (s *GormStore) Put(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return errors.New("nil cache entry")
	}
	rec := Record{
		Key:         entry.Key,
		Payload:     datatypes.JSON(entry.Payload),
		LastUpdated: entry.UpdatedAt.UTC(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "last_updated"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

// Ping 檢查資料庫連線
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 資料庫連線由呼叫端管理，這裡不關閉
func (s *GormStore) Close() error {
	return nil
}
