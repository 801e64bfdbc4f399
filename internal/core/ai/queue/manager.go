package queue

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"food-recommender/internal/core/ai/provider"
	"food-recommender/internal/pkg/common"

	"go.uber.org/zap"
)

// Status 隊列狀態
type Status struct {
	InFlight       int   `json:"in_flight"`
	Waiting        int64 `json:"waiting"`
	ProcessedCount int64 `json:"processed_count"`
	RejectedCount  int64 `json:"rejected_count"`
	Workers        int   `json:"workers"`
}

// Manager 限制同時送往模型的請求數，超過的請求排隊等待
// 實作 provider.Provider，可直接包在任何供應商外面
type Manager struct {
	next    provider.Provider
	slots   chan struct{}
	workers int

	waiting   atomic.Int64
	processed atomic.Int64
	rejected  atomic.Int64
}

// NewManager 創建隊列管理器；workers <= 0 時視為 1
func NewManager(next provider.Provider, workers int) *Manager {
	if workers <= 0 {
		workers = 1
	}
	return &Manager{
		next:    next,
		slots:   make(chan struct{}, workers),
		workers: workers,
	}
}

// Generate 取得名額後轉交給下一層；等待期間 ctx 結束則放棄
func (m *Manager) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	start := time.Now()
	m.waiting.Add(1)
	select {
	case m.slots <- struct{}{}:
		m.waiting.Add(-1)
	case <-ctx.Done():
		m.waiting.Add(-1)
		m.rejected.Add(1)
		common.LogWarn("Request dropped while queued",
			zap.Duration("waited", time.Since(start)),
			zap.Error(ctx.Err()),
		)
		return nil, fmt.Errorf("queued request abandoned: %w", ctx.Err())
	}
	defer func() { <-m.slots }()

	if waited := time.Since(start); waited > time.Second {
		common.LogDebug("Request dequeued",
			zap.Duration("waited", waited),
			zap.Int("in_flight", len(m.slots)),
		)
	}

	resp, err := m.next.Generate(ctx, req)
	m.processed.Add(1)
	return resp, err
}

// GetModel 模型名稱
func (m *Manager) GetModel() string {
	return m.next.GetModel()
}

// GetTimeout 請求超時時間
func (m *Manager) GetTimeout() time.Duration {
	return m.next.GetTimeout()
}

// Close 關閉下一層
func (m *Manager) Close() error {
	return m.next.Close()
}

// GetQueueStatus 獲取隊列狀態
func (m *Manager) GetQueueStatus() *Status {
	return &Status{
		InFlight:       len(m.slots),
		Waiting:        m.waiting.Load(),
		ProcessedCount: m.processed.Load(),
		RejectedCount:  m.rejected.Load(),
		Workers:        m.workers,
	}
}
