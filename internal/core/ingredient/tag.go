// Package ingredient 食材標籤正規化、比對與解析
//
// 所有函式皆為純函式，不持有共享狀態，可被多個 goroutine 同時呼叫。
package ingredient

import (
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Normalize 將使用者輸入的食材名稱正規化為 Tag
//
// 去除前後空白與結尾逗號，首字大寫、其餘小寫；結果為空時回傳空字串。
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	for strings.HasSuffix(s, ",") {
		s = strings.TrimSpace(strings.TrimSuffix(s, ","))
	}
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// TagSet 去重且保留插入順序的標籤集合
//
// 零值可直接使用。方法不做同步，跨 goroutine 共用時請先 Clone。
type TagSet struct {
	tags []string
}

// NewTagSet 以原始輸入建立集合，逐一經過 Add
func NewTagSet(raw ...string) *TagSet {
	s := &TagSet{}
	s.Merge(raw...)
	return s
}

// Add 正規化後加入；空字串或已存在時不做任何事並回傳 false
func (s *TagSet) Add(raw string) bool {
	tag := Normalize(raw)
	if tag == "" || s.Contains(tag) {
		return false
	}
	s.tags = append(s.tags, tag)
	return true
}

// Merge 依序加入多個原始輸入，回傳實際新增的數量
func (s *TagSet) Merge(raw ...string) int {
	added := 0
	for _, r := range raw {
		if s.Add(r) {
			added++
		}
	}
	return added
}

// Remove 以完全相同的值移除
func (s *TagSet) Remove(tag string) bool {
	for i, t := range s.tags {
		if t == tag {
			s.tags = append(s.tags[:i:i], s.tags[i+1:]...)
			return true
		}
	}
	return false
}

// Pop 移除最後加入的標籤
func (s *TagSet) Pop() (string, bool) {
	if len(s.tags) == 0 {
		return "", false
	}
	last := s.tags[len(s.tags)-1]
	s.tags = s.tags[:len(s.tags)-1:len(s.tags)-1]
	return last, true
}

// Contains 以正規化後的值比對（大小寫敏感）
func (s *TagSet) Contains(tag string) bool {
	for _, t := range s.tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Tags 回傳副本
func (s *TagSet) Tags() []string {
	out := make([]string, len(s.tags))
	copy(out, s.tags)
	return out
}

// Len 標籤數量
func (s *TagSet) Len() int {
	return len(s.tags)
}

// Clone 深拷貝
func (s *TagSet) Clone() *TagSet {
	return &TagSet{tags: s.Tags()}
}

// MarshalJSON 序列化為字串陣列
func (s *TagSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Tags())
}

// UnmarshalJSON 反序列化時重新正規化並去重
func (s *TagSet) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.tags = nil
	s.Merge(raw...)
	return nil
}
