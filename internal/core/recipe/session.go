package recipe

import (
	"freshloop/internal/core/ingredient"
)

// Session 推薦頁面的狀態：食材標籤、飲食條件、收藏
type Session struct {
	Tags    []string     `json:"tags"`
	Filters []DietFilter `json:"filters"`
	Saved   []string     `json:"saved"`
}

// EventType 狀態事件種類
type EventType string

const (
	EventAddTag        EventType = "add_tag"
	EventRemoveTag     EventType = "remove_tag"
	EventPopTag        EventType = "pop_tag"
	EventToggleFilter  EventType = "toggle_filter"
	EventToggleSaved   EventType = "toggle_saved"
	EventMergeDetected EventType = "merge_detected"
	EventReset         EventType = "reset"
)

// Event 狀態事件
type Event struct {
	Type   EventType `json:"type"`
	Value  string    `json:"value,omitempty"`
	Values []string  `json:"values,omitempty"`
}

// Reduce 純函式狀態轉換，不修改傳入的 s
func Reduce(s Session, ev Event) Session {
	next := Session{
		Tags:    append([]string(nil), s.Tags...),
		Filters: append([]DietFilter(nil), s.Filters...),
		Saved:   append([]string(nil), s.Saved...),
	}

	switch ev.Type {
	case EventAddTag:
		set := ingredient.NewTagSet(next.Tags...)
		set.Add(ev.Value)
		next.Tags = set.Tags()
	case EventRemoveTag:
		set := ingredient.NewTagSet(next.Tags...)
		set.Remove(ev.Value)
		next.Tags = set.Tags()
	case EventPopTag:
		set := ingredient.NewTagSet(next.Tags...)
		set.Pop()
		next.Tags = set.Tags()
	case EventMergeDetected:
		set := ingredient.NewTagSet(next.Tags...)
		set.Merge(ev.Values...)
		next.Tags = set.Tags()
	case EventToggleFilter:
		f := ParseFilters([]string{ev.Value})
		if len(f) == 1 {
			next.Filters = toggle(next.Filters, f[0])
		}
	case EventToggleSaved:
		if ev.Value != "" {
			next.Saved = toggle(next.Saved, ev.Value)
		}
	case EventReset:
		return Session{}
	}
	return next
}

func toggle[T comparable](list []T, v T) []T {
	for i, item := range list {
		if item == v {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return append(list, v)
}

// NewSession 由原始輸入建立狀態，所有標籤都經過正規化與去重
func NewSession(tags []string, filters []string) Session {
	s := Reduce(Session{}, Event{Type: EventMergeDetected, Values: tags})
	s.Filters = ParseFilters(filters)
	return s
}
