package ingredient

import (
	"math"
	"strings"
	"unicode"
)

// Overlaps 食材比對的唯一規則：雙方轉小寫後，任一方包含另一方即視為相符
//
// 空字串永遠不相符。
func Overlaps(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// MatchesAny 是否與任一標籤相符
func MatchesAny(name string, tags []string) bool {
	for _, tag := range tags {
		if Overlaps(name, tag) {
			return true
		}
	}
	return false
}

// Clean 移除粗體標記與非英數字元，轉小寫並去除前後空白
func Clean(text string) string {
	text = strings.ToLower(strings.ReplaceAll(text, "**", ""))
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// IsAvailable 判斷一行食材描述是否已在使用者的標籤中
func IsAvailable(line string, tags []string) bool {
	return MatchesAny(Clean(line), tags)
}

// MatchPercentage 已有食材佔比（四捨五入），total 為 0 時視為 100
func MatchPercentage(available, total int) int {
	if total <= 0 {
		return 100
	}
	return int(math.Round(float64(available) / float64(total) * 100))
}

// Availability 將食材分為已有與需額外準備兩組
type Availability struct {
	Available       []string `json:"available"`
	Additional      []string `json:"additional"`
	MatchPercentage int      `json:"ingredientMatchPercentage"`
}

// Bucket 逐行判斷可用性並計算比例
func Bucket(lines []string, tags []string) Availability {
	result := Availability{Available: []string{}, Additional: []string{}}
	for _, line := range lines {
		if IsAvailable(line, tags) {
			result.Available = append(result.Available, line)
		} else {
			result.Additional = append(result.Additional, line)
		}
	}
	result.MatchPercentage = MatchPercentage(len(result.Available), len(lines))
	return result
}
