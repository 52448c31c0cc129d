package detection

import (
	"bufio"
	"strings"

	"freshloop/internal/pkg/common"
)

const (
	unknown           = "Unknown"
	defaultConfidence = 0.85
)

const noFoodMarker = "No food items detected"

type modelItem struct {
	Name       string   `json:"name"`
	Quality    string   `json:"quality"`
	Quantity   string   `json:"quantity"`
	Condition  string   `json:"condition"`
	Safe       string   `json:"safe"`
	Community  string   `json:"community"`
	Confidence *float64 `json:"confidence"`
}

type modelResponse struct {
	Items []modelItem `json:"items"`
}

// ParseResponse 解析模型回傳的偵測清單
//
// 優先使用 JSON；不是 JSON 時改讀 "ITEM: ... ---" 區塊格式。
func ParseResponse(content string) ([]Result, error) {
	if strings.Contains(content, noFoodMarker) {
		return []Result{}, nil
	}

	var resp modelResponse
	jsonErr := common.ParseModelJSON(content, &resp)
	if jsonErr == nil {
		out := make([]Result, 0, len(resp.Items))
		for _, it := range resp.Items {
			if strings.TrimSpace(it.Name) == "" {
				continue
			}
			conf := defaultConfidence
			if it.Confidence != nil {
				conf = clamp01(*it.Confidence)
			}
			out = append(out, Result{
				Name:       strings.TrimSpace(it.Name),
				Quality:    orUnknown(it.Quality),
				Quantity:   orUnknown(it.Quantity),
				Condition:  orUnknown(it.Condition),
				Safe:       orUnknown(it.Safe),
				Community:  orUnknown(it.Community),
				Confidence: conf,
			})
		}
		return out, nil
	}

	if out := parseBlocks(content); len(out) > 0 {
		return out, nil
	}
	return nil, jsonErr
}

func parseBlocks(content string) []Result {
	var out []Result
	for _, block := range strings.Split(content, "---") {
		fields := map[string]string{}
		sc := bufio.NewScanner(strings.NewReader(block))
		for sc.Scan() {
			key, value, ok := strings.Cut(sc.Text(), ":")
			if !ok {
				continue
			}
			fields[strings.ToUpper(strings.TrimSpace(key))] = strings.TrimSpace(value)
		}
		name := fields["ITEM"]
		if name == "" {
			continue
		}
		out = append(out, Result{
			Name:       name,
			Quality:    orUnknown(fields["QUALITY"]),
			Quantity:   orUnknown(fields["QUANTITY"]),
			Condition:  orUnknown(fields["CONDITION"]),
			Safe:       orUnknown(fields["SAFE"]),
			Community:  orUnknown(fields["COMMUNITY"]),
			Confidence: defaultConfidence,
		})
	}
	return out
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return unknown
	}
	return s
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		// 有些模型回傳百分比
		if f <= 100 {
			return f / 100
		}
		return 1
	}
	return f
}

// analyzePrompt 偵測提示詞
const analyzePrompt = `You are a food quality inspector with computer vision capabilities.
Analyze this image and detect ALL food items, beverages and food-related objects visible.
For each item provide: name, quality (Fresh/Average/Poor), quantity (Small/Medium/Large portion),
condition (Ripe/Raw/Cooked/Spoiled/Moldy/...), safe (Yes/No with reason),
community (Yes/No - suitable for sharing with neighbors) and confidence (0-1).
Respond with JSON only:
{"items":[{"name":"Apple","quality":"Fresh","quantity":"Medium","condition":"Ripe","safe":"Yes - looks healthy","community":"Yes - suitable for sharing","confidence":0.9}]}
If no food is visible respond with {"items":[]}.`
