package recommendation

import (
	"context"
	"errors"
	"strings"

	"food-recommender/internal/core/ai/provider"
	"food-recommender/internal/pkg/common"

	"go.uber.org/zap"
)

// LLMGenerator 調用生成式模型並解析回覆
type LLMGenerator struct {
	provider  provider.Provider
	maxTokens int
}

// NewLLMGenerator 創建生成器
func NewLLMGenerator(p provider.Provider, maxTokens int) *LLMGenerator {
	return &LLMGenerator{
		provider:  p,
		maxTokens: maxTokens,
	}
}

// Generate 每次調用只發一次請求
// 回覆為空或無法解析時返回空結果；傳輸層錯誤原樣返回，由呼叫端決定策略
func (g *LLMGenerator) Generate(ctx context.Context, req common.RecommendationRequest) (*Payload, error) {
	preq := provider.UserPrompt(BuildPrompt(req))
	preq.MaxTokens = g.maxTokens

	resp, err := g.provider.Generate(ctx, preq)
	if err != nil {
		if errors.Is(err, common.ErrUpstreamParse) {
			common.LogWarn("AI 響應解析失敗，返回空結果", zap.Error(err))
			return EmptyPayload(), nil
		}
		return nil, err
	}

	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		common.LogWarn("AI 沒有回覆內容，返回空結果",
			zap.String("model", g.provider.GetModel()),
			zap.String("search_type", string(req.SearchType)),
		)
		return EmptyPayload(), nil
	}

	payload, err := ParsePayload(resp.Content)
	if err != nil {
		common.LogWarn("AI 響應解析失敗，返回空結果",
			zap.Error(err),
			zap.Int("content_length", len(resp.Content)),
		)
	}

	common.LogDebug("AI 響應已解析",
		zap.Int("recommended", len(payload.RecommendedFoods)),
		zap.Int("avoid", len(payload.FoodsToAvoid)),
		zap.Int("principles", len(payload.DietaryPrinciples)),
	)
	return payload, nil
}
