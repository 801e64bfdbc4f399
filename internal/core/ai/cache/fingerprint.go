package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"food-recommender/internal/pkg/common"
)

const foodKeyPrefix = "food:"

// Fingerprint 計算請求指紋（SHA-256 hex）
// 以欄位名稱排序的 JSON 作為標準序列化，欄位值完全相同的請求必得相同指紋
func Fingerprint(req common.RecommendationRequest) string {
	canonical := map[string]string{
		"country":     req.Country,
		"search_type": string(req.SearchType),
		"value":       req.Value,
	}
	// map[string]string 序列化不會失敗，且 key 依字典序輸出
	data, _ := json.Marshal(canonical)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FoodKey 單一食物營養資料的快取鍵
func FoodKey(name string) string {
	return foodKeyPrefix + common.NormalizeName(name)
}
