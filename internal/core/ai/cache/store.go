package cache

import (
	"context"
	"time"
)

// Entry 快取條目，Payload 為不透明的 JSON
type Entry struct {
	Key       string
	Payload   []byte
	UpdatedAt time.Time
}

// Store 持久化儲存層，實作必須可安全地並行使用
type Store interface {
	// Get 取得條目，不存在時返回 nil, nil；不判斷是否過期
	Get(ctx context.Context, key string) (*Entry, error)
	// Put 以 key upsert，已存在時覆寫 payload 與時間戳
	Put(ctx context.Context, entry *Entry) error
	// Ping 檢查儲存層是否可用
	Ping(ctx context.Context) error
	// Close 釋放資源
	Close() error
}
