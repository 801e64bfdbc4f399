package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"food-recommender/internal/core/ai/cache"
	"food-recommender/internal/core/recommendation"
	"food-recommender/internal/infrastructure/config"
	"food-recommender/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// countingGenerator 固定回傳一組推薦
type countingGenerator struct {
	calls atomic.Int32
	err   error
}

func (g *countingGenerator) Generate(context.Context, common.RecommendationRequest) (*recommendation.Payload, error) {
	g.calls.Add(1)
	if g.err != nil {
		return nil, g.err
	}
	p := recommendation.EmptyPayload()
	p.RecommendedFoods = append(p.RecommendedFoods, recommendation.FoodSuggestion{Name: "Oats", Reason: "Fiber"})
	p.FoodsToAvoid = append(p.FoodsToAvoid, recommendation.FoodSuggestion{Name: "Soda", Reason: "Sugar"})
	return p, nil
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (*cache.Entry, error) { return nil, errors.New("down") }
func (brokenStore) Put(context.Context, *cache.Entry) error           { return errors.New("down") }
func (brokenStore) Ping(context.Context) error                        { return errors.New("down") }
func (brokenStore) Close() error                                      { return nil }

func testConfig() *config.Config {
	return &config.Config{
		App:    config.AppConfig{Name: "food-recommender", Version: "test", Debug: true},
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second, MaxBodyBytes: 1 << 20},
		CORS:   config.CORSConfig{AllowOrigins: []string{"http://localhost:3000"}},
	}
}

func newTestRouter(t *testing.T, gen recommendation.Generator, c *cache.Cache) *gin.Engine {
	t.Helper()
	svc := recommendation.NewService(gen, nil, c, recommendation.Options{})
	r, err := SetupRouter(testConfig(), Dependencies{Recommender: svc, Cache: c})
	if err != nil {
		t.Fatalf("setup router: %v", err)
	}
	return r
}

func do(r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRecommendationRoutes(t *testing.T) {
	gen := &countingGenerator{}
	r := newTestRouter(t, gen, nil)

	for _, path := range []string{"/api/v1/recommendations", "/recommendations"} {
		w := do(r, http.MethodPost, path, `{"search_type":"CONDITION","value":"hypertension"}`, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", path, w.Code, w.Body.String())
		}
		var out common.FoodRecommendationResponse
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s: decode: %v", path, err)
		}
		if len(out.RecommendedFoods) != 1 || out.RecommendedFoods[0].Calories != nil {
			t.Fatalf("%s: unexpected body %s", path, w.Body.String())
		}
		if w.Header().Get("X-Request-ID") == "" {
			t.Fatalf("%s: expected a request id header", path)
		}
	}
}

func TestEmptyValueRejectedWithoutUpstreamCalls(t *testing.T) {
	gen := &countingGenerator{}
	r := newTestRouter(t, gen, nil)

	w := do(r, http.MethodPost, "/api/v1/recommendations", `{"search_type":"condition","value":"   "}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var out common.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Code != common.ErrCodeInvalidRequest || !strings.Contains(out.Message, "value") {
		t.Fatalf("unexpected error %+v", out)
	}
	if gen.calls.Load() != 0 {
		t.Fatalf("expected zero generative calls, got %d", gen.calls.Load())
	}
}

func TestGenerativeFailureIsInternalError(t *testing.T) {
	gen := &countingGenerator{err: common.ErrUpstreamUnavailable}
	r := newTestRouter(t, gen, nil)

	w := do(r, http.MethodPost, "/api/v1/recommendations", `{"search_type":"goal","value":"endurance"}`, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestHealthAndReadiness(t *testing.T) {
	c := cache.New(cache.NewManager(10, time.Hour, 0), nil, time.Hour)
	defer c.Close()
	r := newTestRouter(t, &countingGenerator{}, c)

	w := do(r, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var health struct {
		Status string                 `json:"status"`
		Cache  map[string]interface{} `json:"cache"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Status != "ok" || health.Cache["enabled"] != true {
		t.Fatalf("unexpected health %s", w.Body.String())
	}

	for path, want := range map[string]int{"/ready": http.StatusOK, "/live": http.StatusOK, "/": http.StatusOK} {
		if w := do(r, http.MethodGet, path, "", nil); w.Code != want {
			t.Fatalf("%s: expected %d, got %d", path, want, w.Code)
		}
	}

	broken := cache.New(nil, brokenStore{}, time.Hour)
	r = newTestRouter(t, &countingGenerator{}, broken)
	if w := do(r, http.MethodGet, "/ready", "", nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when the cache store is down, got %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(t, &countingGenerator{}, nil)

	w := do(r, http.MethodOptions, "/api/v1/recommendations", "", map[string]string{
		"Origin":                        "http://localhost:3000",
		"Access-Control-Request-Method": "POST",
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}

func TestCORSConfigAllowAll(t *testing.T) {
	conf := corsConfig([]string{"*"})
	if !conf.AllowAllOrigins || conf.AllowCredentials || len(conf.AllowOrigins) != 0 {
		t.Fatalf("unexpected cors config %+v", conf)
	}
	if conf := corsConfig(nil); !conf.AllowAllOrigins {
		t.Fatalf("empty origins should allow all")
	}
}

func TestSetupRouterRequiresService(t *testing.T) {
	if _, err := SetupRouter(testConfig(), Dependencies{}); err == nil {
		t.Fatalf("expected error without a recommendation service")
	}
}

func TestRepeatedRequestServedFromCacheWithDefaultConfig(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "test-key")
	loaded, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg := testConfig()
	cfg.DedupWindow = loaded.DedupWindow

	c := cache.New(cache.NewManager(10, time.Hour, 0), nil, time.Hour)
	defer c.Close()
	gen := &countingGenerator{}
	svc := recommendation.NewService(gen, nil, c, recommendation.Options{})
	r, err := SetupRouter(cfg, Dependencies{Recommender: svc, Cache: c})
	if err != nil {
		t.Fatalf("setup router: %v", err)
	}

	body := `{"search_type":"condition","value":"diabetes"}`
	first := do(r, http.MethodPost, "/api/v1/recommendations", body, nil)
	second := do(r, http.MethodPost, "/api/v1/recommendations", body, nil)
	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("expected both requests to succeed, got %d and %d: %s", first.Code, second.Code, second.Body.String())
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("expected identical content, got %s and %s", first.Body.String(), second.Body.String())
	}
	if gen.calls.Load() != 1 {
		t.Fatalf("expected a single generative call, got %d", gen.calls.Load())
	}
}
