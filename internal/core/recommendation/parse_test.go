package recommendation

import (
	"errors"
	"testing"

	"food-recommender/internal/pkg/common"
)

func TestParsePayloadFencedAndBare(t *testing.T) {
	t.Parallel()

	body := `{"recommended_foods":[{"name":"Oats","reason":"Fiber"}],"foods_to_avoid":[{"name":"Soda","reason":"Sugar"}],"dietary_principles":[{"principle":"Balance","explanation":"Mix macros"}]}`
	replies := map[string]string{
		"json fence":  "Here you go:\n```json\n" + body + "\n```\nEnjoy!",
		"plain fence": "```\n" + body + "\n```",
		"bare":        "  " + body + "\n",
	}
	for name, reply := range replies {
		p, err := ParsePayload(reply)
		if err != nil {
			t.Fatalf("%s: parse: %v", name, err)
		}
		if len(p.RecommendedFoods) != 1 || p.RecommendedFoods[0].Name != "Oats" {
			t.Fatalf("%s: unexpected recommended foods %+v", name, p.RecommendedFoods)
		}
		if len(p.FoodsToAvoid) != 1 || p.FoodsToAvoid[0].Reason != "Sugar" {
			t.Fatalf("%s: unexpected foods to avoid %+v", name, p.FoodsToAvoid)
		}
		if len(p.DietaryPrinciples) != 1 || p.DietaryPrinciples[0].Principle != "Balance" {
			t.Fatalf("%s: unexpected principles %+v", name, p.DietaryPrinciples)
		}
	}
}

func TestParsePayloadInvalidIsEmpty(t *testing.T) {
	t.Parallel()

	for _, reply := range []string{"I cannot help with that.", "```json\n{\"recommended_foods\": [\n```", "[1,2,3]"} {
		p, err := ParsePayload(reply)
		if !errors.Is(err, common.ErrUpstreamParse) {
			t.Fatalf("%q: expected ErrUpstreamParse, got %v", reply, err)
		}
		if !p.IsEmpty() || p.RecommendedFoods == nil || p.FoodsToAvoid == nil || p.DietaryPrinciples == nil {
			t.Fatalf("%q: expected empty non-nil payload, got %+v", reply, p)
		}
	}

	p, err := ParsePayload("   ")
	if err != nil || !p.IsEmpty() {
		t.Fatalf("blank reply: expected empty payload without error, got %+v %v", p, err)
	}
}

func TestParsePayloadDropsIncompleteEntries(t *testing.T) {
	t.Parallel()

	reply := `{
  "recommended_foods": [
    {"name": "Oats", "reason": "Fiber"},
    {"name": "Beans"},
    {"name": 42, "reason": "number name"},
    {"name": "  ", "reason": "blank"},
    "just a string",
    {"name": " Salmon ", "reason": "Omega-3", "extra": true}
  ],
  "foods_to_avoid": "not a list",
  "dietary_principles": [
    {"principle": "Portion control"},
    {"principle": "Hydrate", "explanation": "Water over soda"}
  ]
}`
	p, err := ParsePayload(reply)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(p.RecommendedFoods) != 2 || p.RecommendedFoods[1].Name != "Salmon" {
		t.Fatalf("expected Oats and Salmon, got %+v", p.RecommendedFoods)
	}
	if len(p.FoodsToAvoid) != 0 || p.FoodsToAvoid == nil {
		t.Fatalf("expected empty non-nil foods to avoid, got %#v", p.FoodsToAvoid)
	}
	if len(p.DietaryPrinciples) != 1 || p.DietaryPrinciples[0].Principle != "Hydrate" {
		t.Fatalf("unexpected principles %+v", p.DietaryPrinciples)
	}
}

func TestParsePayloadMissingKeys(t *testing.T) {
	t.Parallel()

	p, err := ParsePayload(`{"recommended_foods": [{"name": "Kale", "reason": "Vitamin K"}]}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(p.RecommendedFoods) != 1 || len(p.FoodsToAvoid) != 0 || len(p.DietaryPrinciples) != 0 {
		t.Fatalf("unexpected payload %+v", p)
	}
}
