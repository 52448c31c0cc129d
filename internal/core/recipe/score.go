package recipe

import (
	"sort"
	"strings"
	"unicode"

	"freshloop/internal/core/ingredient"
)

// TopN 每次推薦保留的食譜數
const TopN = 3

// FilterPenalty 飲食條件不符時扣的分數
const FilterPenalty = 5

// DietFilter 飲食條件
type DietFilter string

const (
	FilterVegetarian DietFilter = "Vegetarian"
	FilterVegan      DietFilter = "Vegan"
	FilterGlutenFree DietFilter = "Gluten-Free"
	FilterQuick      DietFilter = "Quick"
)

// FilterOptions 介面上提供的飲食條件
var FilterOptions = []DietFilter{FilterVegetarian, FilterVegan, FilterGlutenFree, FilterQuick}

// quickMinutes Quick 條件的時間上限（不含）
const quickMinutes = 30

// ScoredRecipe 附帶分數的食譜
type ScoredRecipe struct {
	Recipe
	Score         int  `json:"score"`
	MatchedCount  int  `json:"matchedCount"`
	IsAIGenerated bool `json:"isAIGenerated,omitempty"`
}

// leadingIntMax 過長的數字串截在此值
const leadingIntMax = 1<<31 - 1

// LeadingInt 取字串開頭的整數，例如 "22 min" -> 22
func LeadingInt(s string) (int, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	sign := 1
	if s != "" && (s[0] == '+' || s[0] == '-') {
		if s[0] == '-' {
			sign = -1
		}
		s = s[1:]
	}
	n, digits := 0, 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		d := int(r - '0')
		if n > (leadingIntMax-d)/10 {
			n = leadingIntMax
		} else {
			n = n*10 + d
		}
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	return sign * n, true
}

// Satisfies 食譜是否符合單一飲食條件
//
// Quick 看烹調時間是否小於 30 分鐘，其餘條件看標章是否包含條件名稱。
func Satisfies(r Recipe, f DietFilter) bool {
	if f == FilterQuick {
		minutes, ok := LeadingInt(r.Time)
		return ok && minutes < quickMinutes
	}
	want := strings.ToLower(string(f))
	for _, badge := range r.Badges {
		if strings.Contains(strings.ToLower(badge), want) {
			return true
		}
	}
	return false
}

// FiltersOK 沒有條件或全部條件都符合
func FiltersOK(r Recipe, filters []DietFilter) bool {
	for _, f := range filters {
		if !Satisfies(r, f) {
			return false
		}
	}
	return true
}

// MatchedIngredients 與使用者標籤相符的主要食材
func MatchedIngredients(r Recipe, tags []string) []string {
	var matched []string
	for _, ing := range r.UsedIngredients {
		if ingredient.MatchesAny(ing, tags) {
			matched = append(matched, ing)
		}
	}
	return matched
}

// Score 依使用者標籤與飲食條件為整個目錄評分，回傳前 TopN 名
//
// 分數 = 相符的主要食材數，條件不符再扣 FilterPenalty；同分保留目錄順序。
func Score(recipes []Recipe, tags []string, filters []DietFilter) []ScoredRecipe {
	scored := make([]ScoredRecipe, 0, len(recipes))
	for _, r := range recipes {
		matched := len(MatchedIngredients(r, tags))
		score := matched
		if !FiltersOK(r, filters) {
			score -= FilterPenalty
		}
		scored = append(scored, ScoredRecipe{Recipe: r.clone(), Score: score, MatchedCount: matched})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > TopN {
		scored = scored[:TopN]
	}
	return scored
}

// Pill 食譜卡片上的食材標籤
type Pill struct {
	Name    string `json:"name"`
	Matched bool   `json:"matched"`
	Extra   bool   `json:"extra"`
}

// Pills 區分主要食材中已有/未有，並附上額外食材
func Pills(r Recipe, tags []string) []Pill {
	pills := make([]Pill, 0, len(r.UsedIngredients)+len(r.ExtraIngredients))
	for _, ing := range r.UsedIngredients {
		pills = append(pills, Pill{Name: ing, Matched: ingredient.MatchesAny(ing, tags)})
	}
	for _, ing := range r.ExtraIngredients {
		pills = append(pills, Pill{Name: ing, Extra: true})
	}
	return pills
}

// ParseFilters 將字串轉為飲食條件，忽略空白項目並去重
func ParseFilters(raw []string) []DietFilter {
	seen := make(map[DietFilter]bool, len(raw))
	var out []DietFilter
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		f := DietFilter(s)
		for _, known := range FilterOptions {
			if strings.EqualFold(s, string(known)) {
				f = known
			}
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}
