package common

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// MaskSecret 遮罩密鑰，只顯示前後各 4 個字符
func MaskSecret(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// NormalizeName 小寫並合併多餘空白，用於食物名稱比對
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
