package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"food-recommender/internal/pkg/common"

	"go.uber.org/zap"
)

const (
	tierMemory = "memory"
	tierStore  = "store"
)

// Cache 兩層快取：記憶體前端 + 持久化儲存層
// 呼叫端不需要知道是哪一層命中；nil *Cache 視為停用的快取
type Cache struct {
	front *Manager
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// Option 快取選項
type Option func(*Cache)

// WithClock 注入時鐘，供測試 TTL 邊界
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New 創建兩層快取；store 可為 nil（只用記憶體）
func New(front *Manager, store Store, ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		front: front,
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.front != nil {
		c.front.setClock(c.now)
	}
	return c
}

// TTL 快取存活時間
func (c *Cache) TTL() time.Duration {
	if c == nil {
		return 0
	}
	return c.ttl
}

// Get 獲取未過期的條目；儲存層讀取失敗視為未命中
func (c *Cache) Get(ctx context.Context, key string) (*Entry, bool) {
	if c == nil {
		return nil, false
	}

	if c.front != nil {
		if e, ok := c.front.Get(key); ok {
			common.LogCacheHit(tierMemory, key)
			return e, true
		}
	}

	e, err := c.fromStore(ctx, key)
	if err != nil || e == nil {
		common.LogCacheMiss(tierStore, key)
		return nil, false
	}
	if !c.fresh(e) {
		common.LogDebug("快取已過期",
			zap.String("鍵", key),
			zap.Time("last_updated", e.UpdatedAt),
		)
		return nil, false
	}

	if c.front != nil {
		c.front.Set(e)
	}
	common.LogCacheHit(tierStore, key)
	return e, true
}

// GetStale 降級讀取：即使條目已過期也返回
func (c *Cache) GetStale(ctx context.Context, key string) (*Entry, bool) {
	if c == nil {
		return nil, false
	}
	if c.front != nil {
		if e, ok := c.front.Peek(key); ok {
			return e, true
		}
	}
	e, err := c.fromStore(ctx, key)
	if err != nil || e == nil {
		return nil, false
	}
	return e, true
}

// Put 以目前時間寫入兩層；儲存層失敗時返回 ErrCacheUnavailable
func (c *Cache) Put(ctx context.Context, key string, payload []byte) error {
	if c == nil {
		return nil
	}

	e := &Entry{
		Key:       key,
		Payload:   append([]byte(nil), payload...),
		UpdatedAt: c.now().UTC(),
	}

	if c.front != nil {
		c.front.Set(e)
	}

	if c.store == nil {
		return nil
	}
	if err := c.store.Put(ctx, e); err != nil {
		common.LogWarn("快取寫入失敗",
			zap.String("鍵", key),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %w", common.ErrCacheUnavailable, err)
	}
	return nil
}

// Stats 記憶體層統計
func (c *Cache) Stats() map[string]interface{} {
	if c == nil || c.front == nil {
		return map[string]interface{}{"enabled": c != nil}
	}
	stats := c.front.GetStats()
	stats["enabled"] = true
	stats["persistent"] = c.store != nil
	stats["ttl"] = c.ttl.String()
	return stats
}

// Ping 檢查儲存層
func (c *Cache) Ping(ctx context.Context) error {
	if c == nil || c.store == nil {
		return nil
	}
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", common.ErrCacheUnavailable, err)
	}
	return nil
}

// Close 關閉兩層
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.front != nil {
		errs = append(errs, c.front.Close())
	}
	if c.store != nil {
		errs = append(errs, c.store.Close())
	}
	return errors.Join(errs...)
}

func (c *Cache) fromStore(ctx context.Context, key string) (*Entry, error) {
	if c.store == nil {
		return nil, nil
	}
	e, err := c.store.Get(ctx, key)
	if err != nil {
		common.LogWarn("快取讀取失敗，視為未命中",
			zap.String("鍵", key),
			zap.Error(err),
		)
		return nil, err
	}
	return e, nil
}

func (c *Cache) fresh(e *Entry) bool {
	return c.now().Before(e.UpdatedAt.Add(c.ttl))
}
