package cache

import (
	"sync"
	"time"

	"food-recommender/internal/pkg/common"

	"go.uber.org/zap"
)

// Manager 記憶體快取（前端層），容量有限，滿時淘汰存取次數最少者，次數相同取最久未存取者
type Manager struct {
	maxSize int
	ttl     time.Duration
	now     func() time.Time

	mu    sync.Mutex
	store map[string]cacheEntry
	stats cacheStats

	stop      chan struct{}
	closeOnce sync.Once
}

// cacheEntry 緩存條目
type cacheEntry struct {
	entry       Entry
	expiresAt   time.Time
	lastAccess  time.Time
	accessCount int
}

// cacheStats 緩存統計
type cacheStats struct {
	hits      int64
	misses    int64
	evictions int64
}

// NewManager 創建新的緩存管理器；cleanupInterval 為 0 時不啟動清理協程
func NewManager(maxSize int, ttl, cleanupInterval time.Duration) *Manager {
	if maxSize <= 0 {
		maxSize = 1
	}
	m := &Manager{
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
		store:   make(map[string]cacheEntry),
		stop:    make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go m.startCleanup(cleanupInterval)
	}

	common.LogInfo("快取管理員已初始化",
		zap.Int("最大容量", maxSize),
		zap.Duration("存活時間", ttl),
		zap.Duration("清理間隔", cleanupInterval),
	)

	return m
}

// Get 獲取未過期的條目
func (m *Manager) Get(key string) (*Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ce, ok := m.store[key]
	if !ok {
		m.stats.misses++
		return nil, false
	}

	now := m.now()
	if !now.Before(ce.expiresAt) {
		m.stats.misses++
		return nil, false
	}

	ce.lastAccess = now
	ce.accessCount++
	m.store[key] = ce
	m.stats.hits++

	e := ce.entry
	return &e, true
}

// Peek 獲取條目，包含已過期但尚未清理者，不影響統計
func (m *Manager) Peek(key string) (*Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ce, ok := m.store[key]
	if !ok {
		return nil, false
	}
	e := ce.entry
	return &e, true
}

// Set 設置緩存值，過期時間以條目的 UpdatedAt 起算
func (m *Manager) Set(entry *Entry) {
	if entry == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.store[entry.Key]; !exists && len(m.store) >= m.maxSize {
		if evicted := m.cleanup(); evicted == 0 {
			m.evictLeastUsed()
		}
	}

	now := m.now()
	m.store[entry.Key] = cacheEntry{
		entry:      *entry,
		expiresAt:  entry.UpdatedAt.Add(m.ttl),
		lastAccess: now,
	}
}

func (m *Manager) setClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Len 目前條目數
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.store)
}

// startCleanup 定期清理過期緩存
func (m *Manager) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			m.cleanup()
			m.mu.Unlock()
		case <-m.stop:
			return
		}
	}
}

// cleanup 清理過期的緩存，呼叫端需持有鎖
func (m *Manager) cleanup() int {
	now := m.now()
	count := 0

	for key, ce := range m.store {
		if !now.Before(ce.expiresAt) {
			delete(m.store, key)
			count++
			m.stats.evictions++
		}
	}

	if count > 0 {
		common.LogDebug("Cleaned up expired cache entries",
			zap.Int("count", count),
			zap.Int64("total_evictions", m.stats.evictions),
			zap.Int("remaining_size", len(m.store)),
		)
	}

	return count
}

// evictLeastUsed 淘汰存取次數最少的條目，呼叫端需持有鎖
func (m *Manager) evictLeastUsed() {
	var oldestKey string
	var oldestAccess time.Time
	var lowestAccessCount int

	for key, ce := range m.store {
		if oldestKey == "" ||
			ce.accessCount < lowestAccessCount ||
			(ce.accessCount == lowestAccessCount && ce.lastAccess.Before(oldestAccess)) {
			oldestKey = key
			oldestAccess = ce.lastAccess
			lowestAccessCount = ce.accessCount
		}
	}

	if oldestKey != "" {
		delete(m.store, oldestKey)
		m.stats.evictions++
		common.LogDebug("快取已淘汰", zap.String("鍵", oldestKey))
	}
}

// GetStats 獲取緩存統計信息
func (m *Manager) GetStats() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	ratio := 0.0
	if total := m.stats.hits + m.stats.misses; total > 0 {
		ratio = float64(m.stats.hits) / float64(total)
	}

	return map[string]interface{}{
		"size":      len(m.store),
		"max_size":  m.maxSize,
		"hits":      m.stats.hits,
		"misses":    m.stats.misses,
		"evictions": m.stats.evictions,
		"hit_ratio": ratio,
	}
}

// Close 關閉緩存管理器
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		close(m.stop)

		m.mu.Lock()
		defer m.mu.Unlock()
		m.store = make(map[string]cacheEntry)
		common.LogInfo("快取管理員已關閉",
			zap.Int64("命中次數", m.stats.hits),
			zap.Int64("未命中次數", m.stats.misses),
			zap.Int64("淘汰次數", m.stats.evictions),
		)
	})
	return nil
}
