package recipe

import (
	"fmt"
	"strings"

	"freshloop/internal/core/ingredient"
)

const (
	ingredientsHeader = "INGREDIENTS NEEDED"
	stepsHeader       = "COOKING STEPS"
)

// Detail 詳細食譜：原始 markdown 與拆解後的食材/步驟
type Detail struct {
	Title        string                        `json:"title"`
	Markdown     string                        `json:"recipe"`
	Ingredients  []string                      `json:"ingredients"`
	Formatted    []ingredient.ParsedIngredient `json:"formattedIngredients"`
	FromUser     int                           `json:"fromUserCount"`
	Steps        []string                      `json:"steps"`
	Availability ingredient.Availability       `json:"availability"`
	Source       string                        `json:"source"`
}

// ParseDetail 拆解 "### INGREDIENTS NEEDED:" 與 "### COOKING STEPS:" 兩段
//
// 食材段只取以 * 或 - 開頭的行；步驟段以 "1." 這類編號切分，未編號的行併入前一步。
func ParseDetail(title, markdown string, tags []string) Detail {
	d := Detail{Title: title, Markdown: markdown, Ingredients: []string{}, Steps: []string{}}

	section := ""
	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			section = headerName(line)
			continue
		}

		switch section {
		case ingredientsHeader:
			if item, ok := bulletItem(line); ok {
				d.Ingredients = append(d.Ingredients, item)
			}
		case stepsHeader:
			if step, ok := numberedItem(line); ok {
				d.Steps = append(d.Steps, step)
			} else if n := len(d.Steps); n > 0 {
				d.Steps[n-1] = d.Steps[n-1] + " " + line
			} else {
				d.Steps = append(d.Steps, line)
			}
		}
	}

	d.Availability = ingredient.Bucket(d.Ingredients, tags)
	d.Formatted = ingredient.Format(d.Ingredients, nil, tags)
	d.FromUser = ingredient.CountFromUser(d.Formatted)
	return d
}

func headerName(line string) string {
	name := strings.TrimLeft(line, "#")
	name = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(name), ":"))
	return strings.ToUpper(name)
}

func bulletItem(line string) (string, bool) {
	// "**Eggs**" 是粗體食材，保留給 Parse 處理
	if strings.HasPrefix(line, "**") {
		return line, true
	}
	if !strings.HasPrefix(line, "*") && !strings.HasPrefix(line, "-") {
		return "", false
	}
	item := strings.TrimSpace(line[1:])
	return item, item != ""
}

func numberedItem(line string) (string, bool) {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(line) || (line[i] != '.' && line[i] != ')') {
		return "", false
	}
	step := strings.TrimSpace(line[i+1:])
	return step, step != ""
}

// RenderMarkdown 將目錄食譜轉成與 AI 回應相同格式的 markdown
func RenderMarkdown(r Recipe) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n%s\n\n", r.Title, r.Description)
	fmt.Fprintf(&b, "### INGREDIENTS NEEDED:\n")
	for _, ing := range r.UsedIngredients {
		fmt.Fprintf(&b, "* %s\n", ing)
	}
	for _, ing := range r.ExtraIngredients {
		fmt.Fprintf(&b, "* %s\n", ing)
	}
	fmt.Fprintf(&b, "\n### COOKING STEPS:\n")
	for i, step := range r.Steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	return b.String()
}
