package recommendation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"food-recommender/internal/core/ai/provider"
	"food-recommender/internal/pkg/common"
)

// fakeProvider 回傳固定內容並記錄調用次數
type fakeProvider struct {
	mu      sync.Mutex
	calls   int
	content string
	err     error
	lastReq *provider.Request
}

func (p *fakeProvider) Generate(_ context.Context, req *provider.Request) (*provider.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.lastReq = req
	if p.err != nil {
		return nil, p.err
	}
	return &provider.Response{Content: p.content}, nil
}

func (p *fakeProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *fakeProvider) GetModel() string          { return "fake-model" }
func (p *fakeProvider) GetTimeout() time.Duration { return time.Second }
func (p *fakeProvider) Close() error              { return nil }

func TestGeneratorParsesReply(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{content: "```json\n" + diabetesReply + "\n```"}
	g := NewLLMGenerator(p, 1024)

	payload, err := g.Generate(context.Background(), common.RecommendationRequest{SearchType: common.SearchCondition, Value: "diabetes"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(payload.RecommendedFoods) != 4 || len(payload.FoodsToAvoid) != 4 || len(payload.DietaryPrinciples) != 3 {
		t.Fatalf("unexpected payload sizes %d/%d/%d", len(payload.RecommendedFoods), len(payload.FoodsToAvoid), len(payload.DietaryPrinciples))
	}
	if p.lastReq.MaxTokens != 1024 || len(p.lastReq.Messages) != 1 || p.lastReq.Messages[0].Role != "user" {
		t.Fatalf("unexpected provider request %+v", p.lastReq)
	}
}

func TestGeneratorDegradesOnBadReply(t *testing.T) {
	t.Parallel()

	req := common.RecommendationRequest{SearchType: common.SearchGoal, Value: "weight loss"}
	for name, p := range map[string]*fakeProvider{
		"empty":     {content: ""},
		"prose":     {content: "Sorry, I can't do that."},
		"undecoded": {err: fmt.Errorf("%w: bad body", common.ErrUpstreamParse)},
	} {
		payload, err := NewLLMGenerator(p, 0).Generate(context.Background(), req)
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", name, err)
		}
		if !payload.IsEmpty() {
			t.Fatalf("%s: expected empty payload, got %+v", name, payload)
		}
	}
}

func TestGeneratorReturnsTransportErrors(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{err: fmt.Errorf("%w: connection refused", common.ErrUpstreamUnavailable)}
	_, err := NewLLMGenerator(p, 0).Generate(context.Background(), common.RecommendationRequest{SearchType: common.SearchCountry, Value: "Peru"})
	if !errors.Is(err, common.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}
