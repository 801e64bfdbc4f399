package nutrition

import (
	"context"
	"encoding/json"
	"strings"

	"food-recommender/internal/core/ai/cache"
	"food-recommender/internal/pkg/common"

	"go.uber.org/zap"
)

// Source 營養資料來源；找不到食物時返回全未知且 err 為 nil
// 傳輸層失敗返回包裝 common.ErrUpstreamUnavailable 的錯誤
type Source interface {
	Search(ctx context.Context, foodName string) (common.NutrientProfile, error)
	Name() string
}

// Lookup 查詢單一食物的營養資訊，永遠不失敗
type Lookup interface {
	Lookup(ctx context.Context, foodName string) common.NutrientProfile
}

// Client 將 Source 的錯誤轉為全未知的營養資訊
type Client struct {
	source Source
}

// NewClient 創建營養查詢客戶端
func NewClient(source Source) *Client {
	return &Client{source: source}
}

// Lookup 查詢營養資訊，任何錯誤都只記錄並返回全未知
func (c *Client) Lookup(ctx context.Context, foodName string) common.NutrientProfile {
	name := strings.TrimSpace(foodName)
	if name == "" {
		return common.UnknownProfile()
	}

	profile, err := c.source.Search(ctx, name)
	if err != nil {
		common.LogWarn("營養資料查詢失敗",
			zap.String("source", c.source.Name()),
			zap.String("food", name),
			zap.Error(err),
		)
		return common.UnknownProfile()
	}
	return profile
}

// CachedLookup 以食物名稱為鍵快取營養資訊
type CachedLookup struct {
	next  Lookup
	cache *cache.Cache
}

// NewCachedLookup 包裝 Lookup；cache 為 nil 時直接透傳
func NewCachedLookup(next Lookup, c *cache.Cache) *CachedLookup {
	return &CachedLookup{next: next, cache: c}
}

// Lookup 先查快取，未命中才調用外部服務；全未知的結果不寫入
func (l *CachedLookup) Lookup(ctx context.Context, foodName string) common.NutrientProfile {
	key := cache.FoodKey(foodName)

	if e, ok := l.cache.Get(ctx, key); ok {
		var profile common.NutrientProfile
		if err := common.ParseJSONBytes(e.Payload, &profile); err == nil {
			return profile
		}
		common.LogWarn("營養快取內容無法解析", zap.String("鍵", key))
	}

	profile := l.next.Lookup(ctx, foodName)
	if !profile.HasData() {
		return profile
	}

	data, err := json.Marshal(profile)
	if err != nil {
		return profile
	}
	// 寫入失敗已在快取層記錄
	_ = l.cache.Put(ctx, key, data)
	return profile
}
