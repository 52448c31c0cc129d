package community

import (
	"fmt"
	"strings"

	"freshloop/internal/pkg/common"
)

// EventKind 貼文板事件類型
type EventKind string

const (
	EventCreate         EventKind = "create"
	EventToggleLike     EventKind = "toggle_like"
	EventClaim          EventKind = "claim"
	EventToggleComments EventKind = "toggle_comments"
	EventSetDraft       EventKind = "set_draft"
	EventAddComment     EventKind = "add_comment"
)

// Event 一次狀態轉換
//
// Create 使用 Post（已帶 id）；其餘事件以 PostID 指定目標。
// AddComment 的作者與時間由呼叫端填入 Comment，文字取自草稿。
type Event struct {
	Kind    EventKind
	PostID  int64
	Post    Post
	Draft   string
	Comment Comment
}

// Reduce 純函式：(posts, event) -> posts，不修改輸入切片
func Reduce(posts []Post, ev Event) ([]Post, error) {
	if ev.Kind == EventCreate {
		if !ev.Post.Type.Valid() {
			return posts, common.NewValidationError(fmt.Sprintf("unknown post type %q", ev.Post.Type))
		}
		if strings.TrimSpace(ev.Post.Text) == "" {
			return posts, common.NewValidationError("post text is required")
		}
		out := make([]Post, 0, len(posts)+1)
		out = append(out, ev.Post.clone())
		return append(out, posts...), nil
	}

	idx := indexOf(posts, ev.PostID)
	if idx < 0 {
		return posts, common.ErrPostNotFound.WithMessage(fmt.Sprintf("post %d not found", ev.PostID))
	}

	out := append([]Post(nil), posts...)
	p := out[idx].clone()

	switch ev.Kind {
	case EventToggleLike:
		if p.Liked {
			p.Likes--
		} else {
			p.Likes++
		}
		p.Liked = !p.Liked
	case EventClaim:
		p.Claimed = true
	case EventToggleComments:
		p.CommentsOpen = !p.CommentsOpen
	case EventSetDraft:
		p.CommentDraft = ev.Draft
	case EventAddComment:
		text := strings.TrimSpace(p.CommentDraft)
		if text == "" {
			return posts, nil
		}
		c := ev.Comment
		c.Text = text
		if c.Author == "" {
			c.Author = DefaultAuthor
		}
		if c.Initials == "" {
			c.Initials = InitialOf(c.Author)
		}
		if c.Time == "" {
			c.Time = DefaultTime
		}
		p.Comments = append(p.Comments, c)
		p.CommentDraft = ""
	default:
		return posts, common.NewValidationError(fmt.Sprintf("unknown event %q", ev.Kind))
	}

	out[idx] = p
	return out, nil
}

func indexOf(posts []Post, id int64) int {
	for i := range posts {
		if posts[i].ID == id {
			return i
		}
	}
	return -1
}

// Filter 動態牆篩選
type Filter string

const (
	FilterAll      Filter = "all"
	FilterGiving   Filter = "giving"
	FilterWanting  Filter = "wanting"
	FilterExpiring Filter = "expiring"
	FilterNearby   Filter = "nearby"
)

// ParseFilter 空字串視為 all；未知值回傳驗證錯誤
func ParseFilter(s string) (Filter, error) {
	f := Filter(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterGiving, FilterWanting, FilterExpiring, FilterNearby:
		return f, nil
	}
	return "", common.NewValidationError(fmt.Sprintf("unknown filter %q", s))
}

// Apply 回傳符合篩選的貼文（保持原順序）
func (f Filter) Apply(posts []Post) []Post {
	out := make([]Post, 0, len(posts))
	for _, p := range posts {
		if f.keep(p) {
			out = append(out, p.clone())
		}
	}
	return out
}

func (f Filter) keep(p Post) bool {
	switch f {
	case FilterGiving:
		return p.Type == PostGiving
	case FilterWanting:
		return p.Type == PostWanting
	case FilterExpiring:
		return p.HasExpiry()
	case FilterNearby:
		return strings.Contains(p.Location, "0.")
	default:
		return true
	}
}
