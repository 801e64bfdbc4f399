package recommendation

import (
	"fmt"
	"strings"

	"food-recommender/internal/pkg/common"

	"github.com/tidwall/gjson"
)

// FoodSuggestion 模型建議的食物
type FoodSuggestion struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Payload 模型回覆解析後的結構
type Payload struct {
	RecommendedFoods  []FoodSuggestion          `json:"recommended_foods"`
	FoodsToAvoid      []FoodSuggestion          `json:"foods_to_avoid"`
	DietaryPrinciples []common.DietaryPrinciple `json:"dietary_principles"`
}

// EmptyPayload 空結果
func EmptyPayload() *Payload {
	return &Payload{
		RecommendedFoods:  []FoodSuggestion{},
		FoodsToAvoid:      []FoodSuggestion{},
		DietaryPrinciples: []common.DietaryPrinciple{},
	}
}

// IsEmpty 三個列表皆為空
func (p *Payload) IsEmpty() bool {
	return p == nil || (len(p.RecommendedFoods) == 0 && len(p.FoodsToAvoid) == 0 && len(p.DietaryPrinciples) == 0)
}

// ParsePayload 解析模型回覆
// 有 code fence 時取 fence 內容，否則整段視為 JSON
// 無法解析時返回空結果與 ErrUpstreamParse；缺少必要字串欄位的項目直接略過
func ParsePayload(reply string) (*Payload, error) {
	p := EmptyPayload()

	raw := common.ExtractFencedJSON(reply)
	if raw == "" {
		return p, nil
	}
	if !gjson.Valid(raw) {
		return p, fmt.Errorf("%w: reply is not valid JSON", common.ErrUpstreamParse)
	}
	root := gjson.Parse(raw)
	if !root.IsObject() {
		return p, fmt.Errorf("%w: reply is not a JSON object", common.ErrUpstreamParse)
	}

	p.RecommendedFoods = parseFoods(root.Get("recommended_foods"))
	p.FoodsToAvoid = parseFoods(root.Get("foods_to_avoid"))
	p.DietaryPrinciples = parsePrinciples(root.Get("dietary_principles"))
	return p, nil
}

func parseFoods(list gjson.Result) []FoodSuggestion {
	out := []FoodSuggestion{}
	if !list.IsArray() {
		return out
	}
	list.ForEach(func(_, item gjson.Result) bool {
		name, ok := requiredString(item, "name")
		if !ok {
			return true
		}
		reason, ok := requiredString(item, "reason")
		if !ok {
			return true
		}
		out = append(out, FoodSuggestion{Name: name, Reason: reason})
		return true
	})
	return out
}

func parsePrinciples(list gjson.Result) []common.DietaryPrinciple {
	out := []common.DietaryPrinciple{}
	if !list.IsArray() {
		return out
	}
	list.ForEach(func(_, item gjson.Result) bool {
		principle, ok := requiredString(item, "principle")
		if !ok {
			return true
		}
		explanation, ok := requiredString(item, "explanation")
		if !ok {
			return true
		}
		out = append(out, common.DietaryPrinciple{Principle: principle, Explanation: explanation})
		return true
	})
	return out
}

// requiredString 欄位必須是非空字串
func requiredString(item gjson.Result, field string) (string, bool) {
	if !item.IsObject() {
		return "", false
	}
	v := item.Get(field)
	if v.Type != gjson.String {
		return "", false
	}
	s := strings.TrimSpace(v.Str)
	return s, s != ""
}
