package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"sync"
	"time"

	"food-recommender/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 記錄數超過此值時順便清理過期指紋
const dedupPruneThreshold = 1024

type dedupStore struct {
	mu       sync.Mutex
	window   time.Duration
	requests map[string]time.Time
}

// seen window 內是否已有成功處理過的相同指紋
func (s *dedupStore) seen(fingerprint string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok := s.requests[fingerprint]
	return ok && now.Sub(last) <= s.window
}

// record 記錄成功處理的指紋
func (s *dedupStore) record(fingerprint string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.requests) >= dedupPruneThreshold {
		for k, t := range s.requests {
			if now.Sub(t) > s.window {
				delete(s.requests, k)
			}
		}
	}
	s.requests[fingerprint] = now
}

// Deduplication 請求去重中間件：同一客戶端相同路徑與請求體的 POST，成功後 window 內不再處理
// 失敗的請求不記錄，客戶端可立即重試；window <= 0 時停用
func Deduplication(window time.Duration) gin.HandlerFunc {
	store := &dedupStore{
		window:   window,
		requests: make(map[string]time.Time),
	}

	return func(c *gin.Context) {
		if window <= 0 || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		fingerprint := c.ClientIP() + ":" + c.Request.Method + ":" + c.Request.URL.Path
		if c.Request.Body != nil {
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				common.LogError("Failed to read request body", zap.Error(err))
				c.Next()
				return
			}
			hash := sha256.Sum256(body)
			fingerprint += ":" + hex.EncodeToString(hash[:])

			// 恢復請求體
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		if store.seen(fingerprint, time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, common.ErrorResponse{
				Code:    common.ErrCodeTooManyRequests,
				Message: "request too frequent",
			})
			return
		}

		c.Next()

		if status := c.Writer.Status(); status >= 200 && status < 300 {
			store.record(fingerprint, time.Now())
		}
	}
}
