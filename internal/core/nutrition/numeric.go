package nutrition

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Number 將 JSON 數值或數字字串轉為 *float64；null、非數字、NaN/Inf 皆視為未知
func Number(r gjson.Result) *float64 {
	var v float64
	switch r.Type {
	case gjson.Number:
		v = r.Num
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil {
			return nil
		}
		v = parsed
	default:
		return nil
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
