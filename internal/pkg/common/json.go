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
	return decodeJSON(bytes.NewReader(data), v, false)
}

// DecodeJSON 使用統一設定解析 JSON
func DecodeJSON(r io.Reader, v interface{}) error {
	return decodeJSON(r, v, false)
}

// DecodeJSONStrict 使用統一設定解析 JSON，禁止未知欄位
func DecodeJSONStrict(r io.Reader, v interface{}) error {
	return decodeJSON(r, v, true)
}

func decodeJSON(r io.Reader, v interface{}, disallowUnknown bool) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if disallowUnknown {
		dec.DisallowUnknownFields()
	}

	if err := dec.Decode(v); err != nil {
		return err
	}

	// 確保沒有多餘資料
	if _, err := dec.Token(); err != io.EOF {
		if err != nil {
			return err
		}
		return fmt.Errorf("unexpected extra JSON data")
	}
	return nil
}

var unquotedKeyPattern = regexp.MustCompile(`([{\[,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)

// QuoteJSONKeys 將未加雙引號的鍵補上雙引號
func QuoteJSONKeys(raw string) string {
	return unquotedKeyPattern.ReplaceAllString(raw, `$1"$2":`)
}

// ExtractJSON 從模型輸出中取出 JSON 主體（去除 markdown fence 與前後說明文字）
//
// 物件與陣列都支援，以先出現的開頭符號為準。
func ExtractJSON(content string) (string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	objStart := strings.Index(content, "{")
	arrStart := strings.Index(content, "[")
	open, closer := "{", "}"
	start := objStart
	if arrStart != -1 && (objStart == -1 || arrStart < objStart) {
		open, closer = "[", "]"
		start = arrStart
	}
	end := strings.LastIndex(content, closer)
	if start == -1 || end <= start {
		return "", fmt.Errorf("no JSON %s...%s found in response", open, closer)
	}
	return content[start : end+1], nil
}

// ParseModelJSON 從模型輸出取出 JSON 並解析，必要時補上鍵的引號後重試
func ParseModelJSON(content string, v interface{}) error {
	body, err := ExtractJSON(content)
	if err != nil {
		return ErrAIMalformedResponse.Wrap(err)
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		if retryErr := json.Unmarshal([]byte(QuoteJSONKeys(body)), v); retryErr != nil {
			return ErrAIMalformedResponse.Wrap(err)
		}
	}
	return nil
}
