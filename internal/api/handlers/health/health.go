package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"food-recommender/internal/core/ai/cache"
	"food-recommender/internal/core/ai/queue"
	"food-recommender/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// readyTimeout 就緒檢查 ping 儲存層的上限
const readyTimeout = 2 * time.Second

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
	Cache     map[string]interface{} `json:"cache"`
	Queue     *queue.Status          `json:"queue,omitempty"`
}

// QueueStatus 提供模型請求隊列狀態
type QueueStatus interface {
	GetQueueStatus() *queue.Status
}

// Handler 健康檢查處理器
type Handler struct {
	version string
	cache   *cache.Cache
	queue   QueueStatus
}

// NewHandler 創建健康檢查處理器；c 與 q 可為 nil
func NewHandler(version string, c *cache.Cache, q QueueStatus) *Handler {
	return &Handler{version: version, cache: c, queue: q}
}

// HealthCheck 健康檢查
func (h *Handler) HealthCheck(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	resp := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
		Cache: h.cache.Stats(),
	}
	if h.queue != nil {
		resp.Queue = h.queue.GetQueueStatus()
	}

	c.JSON(http.StatusOK, resp)
}

// ReadinessCheck 就緒檢查：快取儲存層可連線
func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	if err := h.cache.Ping(ctx); err != nil {
		common.LogWarn("Readiness check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// LivenessCheck 存活檢查
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
