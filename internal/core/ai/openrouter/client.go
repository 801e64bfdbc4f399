package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"food-recommender/internal/core/ai/provider"
	"food-recommender/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	upstreamName   = "openrouter"
)

// Client OpenRouter API 客戶端
type Client struct {
	http   *resty.Client
	config provider.Config
}

// chatRequest 表示 API 請求
type chatRequest struct {
	Model       string             `json:"model"`
	Messages    []provider.Message `json:"messages"`
	MaxTokens   int                `json:"max_tokens,omitempty"`
	Temperature float64            `json:"temperature,omitempty"`
}

// chatResponse OpenRouter 響應結構
type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message provider.Message `json:"message"`
	} `json:"choices"`
	Usage provider.Usage `json:"usage"`
}

// NewClient 創建新的 OpenRouter 客戶端，HTTP 客戶端由呼叫端注入並共用
func NewClient(httpClient *resty.Client, cfg provider.Config) *Client {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		http:   httpClient,
		config: cfg,
	}
}

// Generate 生成回應
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	body := chatRequest{
		Model:       c.config.Model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if body.MaxTokens == 0 {
		body.MaxTokens = c.config.MaxTokens
	}

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	common.LogDebug("Sending request to OpenRouter",
		zap.String("model", body.Model),
		zap.Int("messages", len(body.Messages)),
	)

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.config.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Title", "Food Recommender").
		SetBody(body).
		Post(c.config.BaseURL + "/chat/completions")
	if err != nil {
		err = fmt.Errorf("%w: openrouter request: %w", common.ErrUpstreamUnavailable, err)
		common.LogUpstreamCall(upstreamName, time.Since(start), err)
		return nil, err
	}

	if !resp.IsSuccess() {
		err = fmt.Errorf("%w: openrouter returned status %d: %s",
			common.ErrUpstreamUnavailable, resp.StatusCode(), truncate(resp.String(), 512))
		common.LogUpstreamCall(upstreamName, time.Since(start), err)
		return nil, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		err = fmt.Errorf("%w: decode openrouter response: %w", common.ErrUpstreamParse, err)
		common.LogUpstreamCall(upstreamName, time.Since(start), err)
		return nil, err
	}
	common.LogUpstreamCall(upstreamName, time.Since(start), nil)

	out := &provider.Response{Usage: parsed.Usage}
	if len(parsed.Choices) > 0 {
		out.Content = parsed.Choices[0].Message.Content
	} else {
		common.LogWarn("Empty choices in OpenRouter response", zap.String("model", body.Model))
	}
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

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
