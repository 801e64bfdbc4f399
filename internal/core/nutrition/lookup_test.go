package nutrition

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"food-recommender/internal/core/ai/cache"
	"food-recommender/internal/pkg/common"
)

type fakeSource struct {
	mu      sync.Mutex
	calls   int
	profile common.NutrientProfile
	err     error
}

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) Search(_ context.Context, _ string) (common.NutrientProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.profile, s.err
}

func TestClientLookupSwallowsErrors(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		profile: common.NutrientProfile{Calories: ptr(10)},
		err:     errors.New("boom"),
	}
	got := NewClient(src).Lookup(context.Background(), "oats")
	if got.HasData() {
		t.Fatalf("expected unknown profile on error, got %+v", got)
	}
}

func TestClientLookupSkipsBlankName(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	got := NewClient(src).Lookup(context.Background(), "   ")
	if got.HasData() || src.calls != 0 {
		t.Fatalf("expected no upstream call for blank name, calls=%d", src.calls)
	}
}

func TestCachedLookupServesRepeatNamesFromCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	src := &fakeSource{profile: common.NutrientProfile{Calories: ptr(389), Protein: ptr(16.9)}}
	c := cache.New(cache.NewManager(10, time.Hour, 0), nil, time.Hour)
	defer c.Close()

	lookup := NewCachedLookup(NewClient(src), c)
	first := lookup.Lookup(ctx, "Oats")
	second := lookup.Lookup(ctx, "  oats ")

	if src.calls != 1 {
		t.Fatalf("expected one upstream call, got %d", src.calls)
	}
	if second.Calories == nil || *second.Calories != 389 || *first.Protein != *second.Protein {
		t.Fatalf("cached profile differs: %+v vs %+v", first, second)
	}
	if second.Fat != nil {
		t.Fatalf("unknown fields must stay unknown after a cache round trip")
	}
}

func TestCachedLookupDoesNotCacheUnknown(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	src := &fakeSource{}
	c := cache.New(cache.NewManager(10, time.Hour, 0), nil, time.Hour)
	defer c.Close()

	lookup := NewCachedLookup(NewClient(src), c)
	lookup.Lookup(ctx, "unobtainium")
	lookup.Lookup(ctx, "unobtainium")
	if src.calls != 2 {
		t.Fatalf("expected unknown results to be retried, got %d calls", src.calls)
	}
}

func TestCachedLookupWithoutCache(t *testing.T) {
	t.Parallel()

	src := &fakeSource{profile: common.NutrientProfile{Sodium: ptr(5)}}
	got := NewCachedLookup(NewClient(src), nil).Lookup(context.Background(), "salt")
	if got.Sodium == nil || *got.Sodium != 5 {
		t.Fatalf("expected passthrough profile, got %+v", got)
	}
}
