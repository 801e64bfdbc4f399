package edamam

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

const defaultBaseURL = "https://api.edamam.com"

// Source Edamam food database parser
type Source struct {
	AppID   string
	AppKey  string
	BaseURL string
	Timeout time.Duration
	http    *resty.Client
}

// NewSource 創建 Edamam 來源
func NewSource(httpClient *resty.Client, appID, appKey, baseURL string, timeout time.Duration) *Source {
	return &Source{
		AppID:   appID,
		AppKey:  appKey,
		BaseURL: baseURL,
		Timeout: timeout,
		http:    httpClient,
	}
}

// Name 來源名稱
func (s *Source) Name() string {
	return "edamam"
}

// Search 取 parsed[0]，沒有時退回 hints[0]
func (s *Source) Search(ctx context.Context, foodName string) (common.NutrientProfile, error) {
	if strings.TrimSpace(s.AppID) == "" || strings.TrimSpace(s.AppKey) == "" {
		return common.UnknownProfile(), fmt.Errorf("missing Edamam credentials")
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
		SetQueryParams(map[string]string{
			"ingr":    foodName,
			"app_id":  s.AppID,
			"app_key": s.AppKey,
		}).
		Get(baseURL + "/api/food-database/v2/parser")
	if err != nil {
		return common.UnknownProfile(), fmt.Errorf("%w: execute Edamam request: %w", common.ErrUpstreamUnavailable, err)
	}
	if !resp.IsSuccess() {
		return common.UnknownProfile(), fmt.Errorf("%w: Edamam request failed with status %d", common.ErrUpstreamUnavailable, resp.StatusCode())
	}

	body := resp.Body()
	if !gjson.ValidBytes(body) {
		return common.UnknownProfile(), fmt.Errorf("%w: Edamam response is not JSON", common.ErrUpstreamParse)
	}

	nutrients := gjson.GetBytes(body, "parsed.0.food.nutrients")
	if !nutrients.Exists() {
		nutrients = gjson.GetBytes(body, "hints.0.food.nutrients")
	}
	if !nutrients.Exists() {
		return common.UnknownProfile(), nil
	}

	return common.NutrientProfile{
		Calories:      nutrition.Number(nutrients.Get("ENERC_KCAL")),
		Protein:       nutrition.Number(nutrients.Get("PROCNT")),
		Carbohydrates: nutrition.Number(nutrients.Get("CHOCDF")),
		Fat:           nutrition.Number(nutrients.Get("FAT")),
		Sugar:         nutrition.Number(nutrients.Get("SUGAR")),
		Sodium:        nutrition.Number(nutrients.Get("NA")),
	}, nil
}
