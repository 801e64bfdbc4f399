package gemini

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"food-recommender/internal/core/ai/provider"
	"food-recommender/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.5-flash"
	upstreamName   = "gemini"
)

// Client Google Gemini generateContent 客戶端
type Client struct {
	http   *resty.Client
	config provider.Config
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// NewClient 創建 Gemini 客戶端
func NewClient(httpClient *resty.Client, cfg provider.Config) *Client {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	// OpenRouter 風格的 "google/gemini-x" 轉為原生名稱
	cfg.Model = strings.TrimPrefix(cfg.Model, "google/")
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	return &Client{
		http:   httpClient,
		config: cfg,
	}
}

// Generate 生成回應；多個 part 的文字依序串接
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	body := generateRequest{}
	for _, m := range req.Messages {
		role := "user"
		if m.Role == "assistant" || m.Role == "model" {
			role = "model"
		}
		body.Contents = append(body.Contents, content{Role: role, Parts: []part{{Text: m.Content}}})
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.config.MaxTokens
	}
	if maxTokens > 0 || req.Temperature > 0 {
		body.GenerationConfig = &generationConfig{MaxOutputTokens: maxTokens, Temperature: req.Temperature}
	}

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.config.BaseURL, url.PathEscape(c.config.Model))

	var parsed generateResponse
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", c.config.APIKey).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&parsed).
		Post(endpoint)
	if err != nil {
		err = fmt.Errorf("%w: gemini request: %w", common.ErrUpstreamUnavailable, err)
		common.LogUpstreamCall(upstreamName, time.Since(start), err)
		return nil, err
	}
	if !resp.IsSuccess() {
		err = fmt.Errorf("%w: gemini returned status %d", common.ErrUpstreamUnavailable, resp.StatusCode())
		common.LogUpstreamCall(upstreamName, time.Since(start), err)
		return nil, err
	}
	common.LogUpstreamCall(upstreamName, time.Since(start), nil)

	out := &provider.Response{
		Usage: provider.Usage{
			PromptTokens:     parsed.UsageMetadata.PromptTokenCount,
			CompletionTokens: parsed.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      parsed.UsageMetadata.TotalTokenCount,
		},
	}
	if len(parsed.Candidates) == 0 {
		common.LogWarn("Empty candidates in Gemini response", zap.String("model", c.config.Model))
		return out, nil
	}

	var sb strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	out.Content = sb.String()
	return out, nil
}

// GetModel 模型名稱
func (c *Client) GetModel() string {
	return c.config.Model
}

// GetTimeout 請求超時
func (c *Client) GetTimeout() time.Duration {
	return c.config.Timeout
}

// Close HTTP 客戶端為共用資源，由擁有者關閉
func (c *Client) Close() error {
	return nil
}
