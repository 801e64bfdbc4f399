package recommendation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"food-recommender/internal/core/ai/cache"
	"food-recommender/internal/core/nutrition"
	"food-recommender/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Generator 產生推薦內容
type Generator interface {
	Generate(ctx context.Context, req common.RecommendationRequest) (*Payload, error)
}

// Options 服務選項
type Options struct {
	// Enrich 是否查詢營養資訊
	Enrich bool
	// MaxConcurrency 營養查詢同時進行的上限，<= 0 表示不限
	MaxConcurrency int
	// DegradeOnTransportError 模型連線失敗時回傳空結果而非錯誤
	DegradeOnTransportError bool
	// ServeStaleOnError 模型失敗時改用已過期的快取
	ServeStaleOnError bool
}

// Service 推薦服務
type Service struct {
	generator Generator
	nutrients nutrition.Lookup
	cache     *cache.Cache
	opts      Options
}

// NewService 創建推薦服務；nutrients 或 c 可為 nil
func NewService(generator Generator, nutrients nutrition.Lookup, c *cache.Cache, opts Options) *Service {
	if nutrients == nil {
		opts.Enrich = false
	}
	return &Service{
		generator: generator,
		nutrients: nutrients,
		cache:     c,
		opts:      opts,
	}
}

// GetRecommendations 取得推薦結果
// 流程：驗證 -> 查快取 -> 調用模型 -> 補營養資訊 -> 組裝 -> 寫快取
func (s *Service) GetRecommendations(ctx context.Context, req common.RecommendationRequest) (*common.FoodRecommendationResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, common.ErrInvalidRequest.Wrap(err)
	}
	// 提示詞與指紋都以小寫的查詢類型為準
	req.SearchType, _ = common.ParseSearchType(string(req.SearchType))

	start := time.Now()
	key := cache.Fingerprint(req)

	if resp, ok := s.cached(ctx, key); ok {
		common.LogInfo("推薦結果命中快取",
			zap.String("search_type", string(req.SearchType)),
			zap.Duration("duration", time.Since(start)),
		)
		return resp, nil
	}

	payload, err := s.generator.Generate(ctx, req)
	if err != nil {
		common.LogError("AI 生成推薦失敗",
			zap.String("search_type", string(req.SearchType)),
			zap.Error(err),
		)
		if s.opts.ServeStaleOnError {
			if resp, ok := s.stale(ctx, key); ok {
				common.LogWarn("改用已過期的快取結果", zap.String("鍵", key))
				return resp, nil
			}
		}
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return nil, common.ErrGatewayTimeout.Wrap(err)
		case errors.Is(err, context.Canceled):
			return nil, err
		case s.opts.DegradeOnTransportError:
			payload = EmptyPayload()
		default:
			return nil, common.ErrInternalError.Wrap(fmt.Errorf("generate recommendations: %w", err))
		}
	}

	var profiles map[string]common.NutrientProfile
	if s.opts.Enrich {
		profiles = s.enrich(ctx, payload)
	}

	resp := Assemble(payload, profiles)
	s.persist(ctx, key, resp)

	common.LogInfo("推薦結果已生成",
		zap.String("search_type", string(req.SearchType)),
		zap.Int("recommended", len(resp.RecommendedFoods)),
		zap.Int("avoid", len(resp.FoodsToAvoid)),
		zap.Int("principles", len(resp.DietaryPrinciples)),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

// cached 讀取新鮮的快取；內容損壞視為未命中
func (s *Service) cached(ctx context.Context, key string) (*common.FoodRecommendationResponse, bool) {
	e, ok := s.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	return decodeResponse(key, e)
}

func (s *Service) stale(ctx context.Context, key string) (*common.FoodRecommendationResponse, bool) {
	e, ok := s.cache.GetStale(ctx, key)
	if !ok {
		return nil, false
	}
	return decodeResponse(key, e)
}

func decodeResponse(key string, e *cache.Entry) (*common.FoodRecommendationResponse, bool) {
	var resp common.FoodRecommendationResponse
	if err := common.ParseJSONBytes(e.Payload, &resp); err != nil {
		common.LogWarn("快取內容無法解析，視為未命中",
			zap.String("鍵", key),
			zap.Error(err),
		)
		return nil, false
	}
	if resp.RecommendedFoods == nil {
		resp.RecommendedFoods = []common.FoodItem{}
	}
	if resp.FoodsToAvoid == nil {
		resp.FoodsToAvoid = []common.FoodItem{}
	}
	if resp.DietaryPrinciples == nil {
		resp.DietaryPrinciples = []common.DietaryPrinciple{}
	}
	return &resp, true
}

// enrich 並行查詢所有不重複的食物名稱
// 單一查詢失敗或 panic 只會讓該食物的營養資訊為未知
func (s *Service) enrich(ctx context.Context, p *Payload) map[string]common.NutrientProfile {
	names := distinctNames(p)
	if len(names) == 0 {
		return nil
	}

	profiles := make([]common.NutrientProfile, len(names))
	var g errgroup.Group
	if s.opts.MaxConcurrency > 0 {
		g.SetLimit(s.opts.MaxConcurrency)
	}
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			profiles[i] = s.lookupOne(ctx, name)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]common.NutrientProfile, len(names))
	for i, name := range names {
		out[common.NormalizeName(name)] = profiles[i]
	}
	return out
}

func (s *Service) lookupOne(ctx context.Context, name string) (profile common.NutrientProfile) {
	defer func() {
		if r := recover(); r != nil {
			common.LogError("營養資料查詢發生 panic",
				zap.String("food", name),
				zap.Any("panic", r),
			)
			profile = common.UnknownProfile()
		}
	}()
	return s.nutrients.Lookup(ctx, name)
}

// distinctNames 推薦與避免清單中的食物名稱，不分大小寫去重
func distinctNames(p *Payload) []string {
	if p == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var names []string
	add := func(foods []FoodSuggestion) {
		for _, f := range foods {
			k := common.NormalizeName(f.Name)
			if k == "" {
				continue
			}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			names = append(names, f.Name)
		}
	}
	add(p.RecommendedFoods)
	add(p.FoodsToAvoid)
	return names
}

// Assemble 組裝最終結果；缺少名稱或理由的項目會被略過，找不到營養資訊的欄位為 null
func Assemble(p *Payload, profiles map[string]common.NutrientProfile) *common.FoodRecommendationResponse {
	resp := common.NewFoodRecommendationResponse()
	if p == nil {
		return resp
	}
	resp.RecommendedFoods = appendItems(resp.RecommendedFoods, p.RecommendedFoods, profiles)
	resp.FoodsToAvoid = appendItems(resp.FoodsToAvoid, p.FoodsToAvoid, profiles)
	for _, dp := range p.DietaryPrinciples {
		if dp.Principle == "" || dp.Explanation == "" {
			continue
		}
		resp.DietaryPrinciples = append(resp.DietaryPrinciples, dp)
	}
	return resp
}

func appendItems(dst []common.FoodItem, foods []FoodSuggestion, profiles map[string]common.NutrientProfile) []common.FoodItem {
	for _, f := range foods {
		if f.Name == "" || f.Reason == "" {
			continue
		}
		item := common.FoodItem{Name: f.Name, Reason: f.Reason}
		if profile, ok := profiles[common.NormalizeName(f.Name)]; ok {
			item.NutrientProfile = profile
		}
		dst = append(dst, item)
	}
	return dst
}

// persist 寫入快取；空結果不寫，寫入失敗不影響回應
func (s *Service) persist(ctx context.Context, key string, resp *common.FoodRecommendationResponse) {
	if resp.IsEmpty() {
		common.LogDebug("空結果不寫入快取", zap.String("鍵", key))
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		common.LogWarn("推薦結果序列化失敗", zap.Error(err))
		return
	}
	_ = s.cache.Put(ctx, key, data)
}
