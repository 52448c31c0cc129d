// Package detection 相機食材偵測結果
package detection

import (
	"strings"
	"sync"
	"time"
)

// Result 單一偵測結果
type Result struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Quality    string  `json:"quality"`
	Quantity   string  `json:"quantity"`
	Condition  string  `json:"condition"`
	Safe       string  `json:"safe"`
	Community  string  `json:"community"`
	Confidence float64 `json:"confidence"`
	Timestamp  string  `json:"timestamp"`
	BBox       []int   `json:"bbox,omitempty"`
}

// Status 新鮮度
type Status string

const (
	StatusFresh   Status = "fresh"
	StatusWarning Status = "warning"
	StatusSpoiled Status = "spoiled"
)

// Freshness 依品質描述判斷新鮮度
func Freshness(quality string) Status {
	q := strings.ToLower(quality)
	switch {
	case strings.Contains(q, "fresh"):
		return StatusFresh
	case strings.Contains(q, "poor"), strings.Contains(q, "spoil"), strings.Contains(q, "mold"), strings.Contains(q, "mould"):
		return StatusSpoiled
	default:
		return StatusWarning
	}
}

// Status 結果的新鮮度
func (r Result) Status() Status {
	return Freshness(r.Quality)
}

// Usable 可以拿來做菜：品質為新鮮，或安全欄位為 yes
func (r Result) Usable() bool {
	return r.Status() == StatusFresh || strings.HasPrefix(strings.ToLower(strings.TrimSpace(r.Safe)), "yes")
}

// UsableNames 可用結果的名稱，依出現順序
func UsableNames(results []Result) []string {
	names := make([]string, 0, len(results))
	for _, r := range results {
		if r.Usable() && strings.TrimSpace(r.Name) != "" {
			names = append(names, r.Name)
		}
	}
	return names
}

// Timestamp 格式
const timestampLayout = time.RFC3339

// Store 最近的偵測結果，超過上限時丟棄最舊的
type Store struct {
	mu      sync.RWMutex
	max     int
	results []Result
}

// NewStore 建立結果暫存
func NewStore(max int) *Store {
	if max <= 0 {
		max = 50
	}
	return &Store{max: max}
}

// Add 依序加入結果
func (s *Store) Add(results ...Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, results...)
	if over := len(s.results) - s.max; over > 0 {
		s.results = append([]Result(nil), s.results[over:]...)
	}
}

// Latest 回傳所有結果（舊到新）
func (s *Store) Latest() []Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Result, len(s.results))
	copy(out, s.results)
	return out
}

// Get 依 id 取得結果
func (s *Store) Get(id string) (Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.results {
		if r.ID == id {
			return r, true
		}
	}
	return Result{}, false
}

// Clear 清空結果，回傳清除的數量
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.results)
	s.results = nil
	return n
}

// Len 結果數量
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}
