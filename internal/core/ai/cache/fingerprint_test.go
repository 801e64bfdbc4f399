package cache

import (
	"strings"
	"testing"

	"food-recommender/internal/pkg/common"
)

func TestFingerprintIsStable(t *testing.T) {
	t.Parallel()

	req := common.RecommendationRequest{SearchType: common.SearchCondition, Value: "diabetes"}
	got := Fingerprint(req)
	want := "1ef81e2fcaa3bad1bad32e62d1fe7f10bbe65411da0ba6306259934b9ffac475"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}

	var built common.RecommendationRequest
	built.Value = "diabetes"
	built.SearchType, _ = common.ParseSearchType("CONDITION")
	if Fingerprint(built) != got {
		t.Fatalf("equal requests produced different fingerprints")
	}
}

func TestFingerprintDistinguishesEveryField(t *testing.T) {
	t.Parallel()

	base := common.RecommendationRequest{SearchType: common.SearchCondition, Value: "diabetes"}
	variants := []common.RecommendationRequest{
		{SearchType: common.SearchGoal, Value: "diabetes"},
		{SearchType: common.SearchCondition, Value: "Diabetes"},
		{SearchType: common.SearchCondition, Value: "diabetes", Country: "Japan"},
		{SearchType: common.SearchCondition, Value: "diabetes", Country: "Japan "},
	}

	seen := map[string]bool{Fingerprint(base): true}
	for _, v := range variants {
		fp := Fingerprint(v)
		if len(fp) != 64 {
			t.Fatalf("expected 64 hex chars, got %d", len(fp))
		}
		if seen[fp] {
			t.Fatalf("fingerprint collision for %+v", v)
		}
		seen[fp] = true
	}
}

func TestFoodKeyNamespace(t *testing.T) {
	t.Parallel()

	if got := FoodKey("  Brown   RICE "); got != "food:brown rice" {
		t.Fatalf("unexpected food key %q", got)
	}
	fp := Fingerprint(common.RecommendationRequest{SearchType: common.SearchCountry, Value: "food:brown rice"})
	if strings.HasPrefix(fp, foodKeyPrefix) {
		t.Fatalf("fingerprint must not share the food key namespace")
	}
}
