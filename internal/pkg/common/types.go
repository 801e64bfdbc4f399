package common

import (
	"fmt"
	"strings"
)

// SearchType 查詢類型
type SearchType string

const (
	SearchCondition SearchType = "condition"
	SearchGoal      SearchType = "goal"
	SearchCountry   SearchType = "country"
)

// ParseSearchType 解析查詢類型（不分大小寫）
func ParseSearchType(s string) (SearchType, error) {
	switch SearchType(strings.ToLower(strings.TrimSpace(s))) {
	case SearchCondition:
		return SearchCondition, nil
	case SearchGoal:
		return SearchGoal, nil
	case SearchCountry:
		return SearchCountry, nil
	default:
		return "", NewValidationError(fmt.Sprintf("unknown search_type %q", s))
	}
}

// Valid 是否為已知的查詢類型
func (t SearchType) Valid() bool {
	_, err := ParseSearchType(string(t))
	return err == nil
}

// RecommendationRequest 推薦請求；Country 為空字串代表未指定
type RecommendationRequest struct {
	SearchType SearchType `json:"search_type"`
	Value      string     `json:"value"`
	Country    string     `json:"country,omitempty"`
}

// Validate 在任何快取或外部調用前檢查請求
func (r RecommendationRequest) Validate() error {
	if strings.TrimSpace(r.Value) == "" {
		return NewValidationError("the 'value' field cannot be empty")
	}
	if !r.SearchType.Valid() {
		return NewValidationError(fmt.Sprintf("unknown search_type %q", r.SearchType))
	}
	return nil
}

// NutrientProfile 營養資訊，nil 代表未知（不是 0）
type NutrientProfile struct {
	Calories      *float64 `json:"calories"`
	Protein       *float64 `json:"protein"`
	Carbohydrates *float64 `json:"carbohydrates"`
	Fat           *float64 `json:"fat"`
	Sugar         *float64 `json:"sugar"`
	Sodium        *float64 `json:"sodium"`
}

// UnknownProfile 所有欄位皆未知
func UnknownProfile() NutrientProfile {
	return NutrientProfile{}
}

// HasData 至少有一個欄位已知
func (p NutrientProfile) HasData() bool {
	return p.Calories != nil || p.Protein != nil || p.Carbohydrates != nil ||
		p.Fat != nil || p.Sugar != nil || p.Sodium != nil
}

// Float64 取得指標
func Float64(v float64) *float64 {
	return &v
}

// FoodItem 食物項目
type FoodItem struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
	NutrientProfile
}

// DietaryPrinciple 飲食原則
type DietaryPrinciple struct {
	Principle   string `json:"principle"`
	Explanation string `json:"explanation"`
}

// FoodRecommendationResponse 推薦結果
type FoodRecommendationResponse struct {
	RecommendedFoods  []FoodItem         `json:"recommended_foods"`
	FoodsToAvoid      []FoodItem         `json:"foods_to_avoid"`
	DietaryPrinciples []DietaryPrinciple `json:"dietary_principles"`
}

// NewFoodRecommendationResponse 創建空結果（切片非 nil，序列化為 []）
func NewFoodRecommendationResponse() *FoodRecommendationResponse {
	return &FoodRecommendationResponse{
		RecommendedFoods:  []FoodItem{},
		FoodsToAvoid:      []FoodItem{},
		DietaryPrinciples: []DietaryPrinciple{},
	}
}

// IsEmpty 三個列表皆為空
func (r *FoodRecommendationResponse) IsEmpty() bool {
	return r == nil || (len(r.RecommendedFoods) == 0 && len(r.FoodsToAvoid) == 0 && len(r.DietaryPrinciples) == 0)
}
