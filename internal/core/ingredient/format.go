package ingredient

// Format 合併食譜的主要與額外食材，去重、解析並標記使用者已有的項目
//
// 無法取出名稱的項目會被略過。
func Format(used, extra []string, tags []string) []ParsedIngredient {
	seen := make(map[string]bool, len(used)+len(extra))
	out := make([]ParsedIngredient, 0, len(used)+len(extra))
	for _, lists := range [][]string{used, extra} {
		for _, raw := range lists {
			if seen[raw] {
				continue
			}
			seen[raw] = true

			p := Parse(raw)
			if p.Name == "" {
				continue
			}
			p.IsFromUserInput = FromUserInput(p, tags)
			out = append(out, p)
		}
	}
	return out
}

// FromUserInput 解析後的名稱是否已在使用者的標籤中；名稱為空時一律為否
func FromUserInput(p ParsedIngredient, tags []string) bool {
	return p.Name != "" && IsAvailable(p.Name, tags)
}

// CountFromUser 已標記為使用者已有的數量
func CountFromUser(items []ParsedIngredient) int {
	n := 0
	for _, it := range items {
		if it.IsFromUserInput {
			n++
		}
	}
	return n
}
