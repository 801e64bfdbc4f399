package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ParseJSONBytes 解析 JSON 位元組切片到結構體
func ParseJSONBytes(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := dec.Decode(v); err != nil {
		return err
	}

	// 確保沒有多餘資料
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("unexpected extra JSON data")
	}
	return nil
}

var fencedBlockPattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")

// ExtractFencedJSON 取出第一個 markdown code fence 內的內容，沒有 fence 時返回去除空白的原文
func ExtractFencedJSON(text string) string {
	if m := fencedBlockPattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}
