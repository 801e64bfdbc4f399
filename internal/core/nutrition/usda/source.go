package usda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"food-recommender/internal/core/nutrition"
	"food-recommender/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const defaultBaseURL = "https://api.nal.usda.gov"

// Source USDA FoodData Central 名稱搜尋
type Source struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	http    *resty.Client
}

// NewSource 創建 USDA 來源，HTTP 客戶端由呼叫端注入
func NewSource(httpClient *resty.Client, apiKey, baseURL string, timeout time.Duration) *Source {
	return &Source{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Timeout: timeout,
		http:    httpClient,
	}
}

// Name 來源名稱
func (s *Source) Name() string {
	return "usda"
}

// Search 以名稱搜尋並取第一筆結果的營養素
func (s *Source) Search(ctx context.Context, foodName string) (common.NutrientProfile, error) {
	if strings.TrimSpace(s.APIKey) == "" {
		return common.UnknownProfile(), fmt.Errorf("missing USDA API key")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(s.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	resp, err := s.http.R().
		SetContext(ctx).
		SetQueryParam("api_key", s.APIKey).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"query":    foodName,
			"dataType": []string{"Foundation", "SR Legacy", "Survey (FNDDS)"},
			"pageSize": 5,
		}).
		Post(baseURL + "/fdc/v1/foods/search")
	if err != nil {
		return common.UnknownProfile(), fmt.Errorf("%w: execute USDA request: %w", common.ErrUpstreamUnavailable, err)
	}
	if !resp.IsSuccess() {
		return common.UnknownProfile(), fmt.Errorf("%w: USDA request failed with status %d", common.ErrUpstreamUnavailable, resp.StatusCode())
	}

	body := resp.Body()
	if !gjson.ValidBytes(body) {
		return common.UnknownProfile(), fmt.Errorf("%w: USDA response is not JSON", common.ErrUpstreamParse)
	}

	food := gjson.GetBytes(body, "foods.0")
	if !food.Exists() {
		return common.UnknownProfile(), nil
	}
	return ParseNutrients(food.Get("foodNutrients")), nil
}

// ParseNutrients 將 USDA 營養素名稱對應到六個欄位，第一個有效值優先
func ParseNutrients(nutrients gjson.Result) common.NutrientProfile {
	var p common.NutrientProfile
	nutrients.ForEach(func(_, n gjson.Result) bool {
		name := strings.ToLower(strings.TrimSpace(n.Get("nutrientName").String()))
		unit := strings.ToLower(strings.TrimSpace(n.Get("unitName").String()))
		value := nutrition.Number(n.Get("value"))
		if value == nil {
			return true
		}

		var target **float64
		switch {
		case strings.HasPrefix(name, "energy"):
			// kJ 的能量不換算
			if unit == "" || unit == "kcal" {
				target = &p.Calories
			}
		case name == "protein":
			target = &p.Protein
		case name == "carbohydrate, by difference":
			target = &p.Carbohydrates
		case name == "total lipid (fat)":
			target = &p.Fat
		case name == "sugars, total including nlea", name == "sugars, total", name == "total sugars":
			target = &p.Sugar
		case name == "sodium, na":
			target = &p.Sodium
		}
		if target != nil && *target == nil {
			*target = value
		}
		return true
	})
	return p
}
