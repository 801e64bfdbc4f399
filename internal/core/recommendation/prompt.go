package recommendation

import (
	"fmt"
	"strings"

	"food-recommender/internal/pkg/common"
)

// 每份回覆要求的數量
const (
	RecommendedCount = 5
	AvoidCount       = 5
	PrincipleCount   = 3
)

const replyFormat = `Output in the following JSON format and nothing else:
{
  "recommended_foods": [
    {"name": "Food Name", "reason": "Reason"}
  ],
  "foods_to_avoid": [
    {"name": "Food Name", "reason": "Reason"}
  ],
  "dietary_principles": [
    {"principle": "Principle", "explanation": "Explanation"}
  ]
}`

// BuildPrompt 依查詢類型組出提示詞
func BuildPrompt(req common.RecommendationRequest) string {
	value := strings.TrimSpace(req.Value)
	country := strings.TrimSpace(req.Country)

	var sb strings.Builder
	switch req.SearchType {
	case common.SearchGoal:
		fmt.Fprintf(&sb, "As a nutritionist, for a person whose goal is '%s', provide a list of %d recommended foods that support this goal and %d foods to avoid because they work against it. ",
			value, RecommendedCount, AvoidCount)
		fmt.Fprintf(&sb, "For each food, give a brief reason. Also, provide %d key dietary principles for reaching this goal, with a brief explanation for each.", PrincipleCount)
	case common.SearchCountry:
		fmt.Fprintf(&sb, "As a nutritionist familiar with the food culture of '%s', provide a list of %d healthy foods that are traditional or widely eaten there and %d common local foods that are best limited or avoided. ",
			value, RecommendedCount, AvoidCount)
		fmt.Fprintf(&sb, "For each food, give a brief reason. Also, provide %d key dietary principles for eating healthily in %s, with a brief explanation for each.", PrincipleCount, value)
	default:
		fmt.Fprintf(&sb, "As a nutritionist, for a person with '%s', provide a list of %d recommended foods and %d foods to strictly avoid. ",
			value, RecommendedCount, AvoidCount)
		fmt.Fprintf(&sb, "For each food, give a brief reason. Also, provide %d key dietary principles for this condition, with a brief explanation for each.", PrincipleCount)
	}

	if country != "" && req.SearchType != common.SearchCountry {
		fmt.Fprintf(&sb, " Only suggest foods that are commonly available and culturally familiar in %s.", country)
	}

	sb.WriteString("\n")
	sb.WriteString(replyFormat)
	return sb.String()
}
