package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"food-recommender/internal/infrastructure/config"

	"github.com/go-redis/redis/v8"
)

// RedisStore Redis 儲存層；SET 本身即為 upsert
type RedisStore struct {
	client *redis.Client
	prefix string
	// retention 物理保留時間，只用於回收空間；是否新鮮仍在讀取時判斷
	retention time.Duration
}

type redisRecord struct {
	Payload   json.RawMessage `json:"payload"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewRedisStore 連線 Redis 並測試
func NewRedisStore(ctx context.Context, cfg config.RedisConfig, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreFromClient(client, cfg.Prefix, ttl), nil
}

// NewRedisStoreFromClient 以既有客戶端建立儲存層
// 過期條目保留兩倍 TTL，讓降級模式仍能讀到舊資料
func NewRedisStoreFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client:    client,
		prefix:    prefix,
		retention: 2 * ttl,
	}
}

// Get 獲取緩存
func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cache: %w", err)
	}

	var rec redisRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache: %w", err)
	}

	return &Entry{
		Key:       key,
		Payload:   []byte(rec.Payload),
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

// Put 設置緩存
func (s *RedisStore) Put(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return errors.New("nil cache entry")
	}

	data, err := json.Marshal(redisRecord{
		Payload:   json.RawMessage(entry.Payload),
		UpdatedAt: entry.UpdatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if err := s.client.Set(ctx, s.prefix+entry.Key, data, s.retention).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Ping 檢查 Redis 連線
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close 關閉 Redis 連線
func (s *RedisStore) Close() error {
	return s.client.Close()
}
