// Package community 社區分享板：貼文、狀態轉換、供需配對與求助訊息
package community

import (
	"fmt"
	"strings"
	"unicode"

	"freshloop/internal/pkg/common"
)

// PostType 貼文類型
type PostType string

const (
	// PostGiving 分享食物
	PostGiving PostType = "giving"
	// PostWanting 徵求食物
	PostWanting PostType = "wanting"
)

// Valid 是否為已知類型
func (t PostType) Valid() bool {
	return t == PostGiving || t == PostWanting
}

// 新貼文的預設值
const (
	DefaultAuthor   = "You"
	DefaultLocation = "Your location"
	DefaultTime     = "Just now"
	DefaultItem     = "Food"
	DefaultQty      = "Amount TBD"

	detectionExpiry = "Check freshness"
)

var composeImages = []string{"🥬", "🥕", "🍞"}

// Comment 貼文留言
type Comment struct {
	ID       string `json:"id,omitempty"`
	Author   string `json:"author"`
	Initials string `json:"initials"`
	Text     string `json:"text"`
	Time     string `json:"time"`
}

// DetectionRef 由相機偵測分享時附帶的資訊
type DetectionRef struct {
	Quality    string  `json:"quality"`
	Quantity   string  `json:"quantity"`
	Condition  string  `json:"condition"`
	Safe       string  `json:"safe"`
	Confidence float64 `json:"confidence"`
	Timestamp  string  `json:"timestamp"`
}

// Post 社區貼文
type Post struct {
	ID            int64         `json:"id"`
	Type          PostType      `json:"type"`
	Author        string        `json:"author"`
	Initials      string        `json:"initials"`
	Location      string        `json:"location"`
	Time          string        `json:"time"`
	Text          string        `json:"text"`
	Items         []string      `json:"items"`
	Images        []string      `json:"images"`
	Qty           string        `json:"qty"`
	Expiry        *string       `json:"expiry"`
	Likes         int           `json:"likes"`
	Comments      []Comment     `json:"comments"`
	Liked         bool          `json:"liked"`
	Claimed       bool          `json:"claimed"`
	CommentsOpen  bool          `json:"commentsOpen"`
	CommentDraft  string        `json:"commentDraft"`
	DetectionData *DetectionRef `json:"detectionData,omitempty"`
}

// clone 深拷貝
func (p Post) clone() Post {
	p.Items = append([]string(nil), p.Items...)
	p.Images = append([]string(nil), p.Images...)
	p.Comments = append([]Comment(nil), p.Comments...)
	if p.Expiry != nil {
		e := *p.Expiry
		p.Expiry = &e
	}
	if p.DetectionData != nil {
		d := *p.DetectionData
		p.DetectionData = &d
	}
	return p
}

// HasExpiry 是否有到期描述
func (p Post) HasExpiry() bool {
	return p.Expiry != nil && strings.TrimSpace(*p.Expiry) != ""
}

// NewPostInput 建立貼文的輸入
type NewPostInput struct {
	Type     PostType `json:"type"`
	Author   string   `json:"author"`
	Location string   `json:"location"`
	Text     string   `json:"text"`
	Items    []string `json:"items"`
	Images   []string `json:"images"`
	Qty      string   `json:"qty"`
	Expiry   string   `json:"expiry"`

	DetectionData *DetectionRef `json:"detectionData,omitempty"`
}

// InitialOf 名字的第一個字母（大寫）
func InitialOf(name string) string {
	for _, r := range strings.TrimSpace(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return string(unicode.ToUpper(r))
		}
	}
	return "?"
}

// SplitItems 將逗號分隔的食材字串拆成清單
func SplitItems(raw string) []string {
	var items []string
	for _, part := range strings.Split(raw, ",") {
		if item := strings.TrimSpace(part); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// build 套用預設值；id 由呼叫端提供
func (in NewPostInput) build(id int64) Post {
	items := make([]string, 0, len(in.Items))
	for _, it := range in.Items {
		if it = strings.TrimSpace(it); it != "" {
			items = append(items, it)
		}
	}
	if len(items) == 0 {
		items = []string{DefaultItem}
	}

	images := in.Images
	if len(images) == 0 {
		n := len(items)
		if n > len(composeImages) {
			n = len(composeImages)
		}
		images = composeImages[:n]
	}

	author := strings.TrimSpace(in.Author)
	if author == "" {
		author = DefaultAuthor
	}
	location := strings.TrimSpace(in.Location)
	if location == "" {
		location = DefaultLocation
	}
	qty := strings.TrimSpace(in.Qty)
	if qty == "" {
		qty = DefaultQty
	}
	var expiry *string
	if e := strings.TrimSpace(in.Expiry); e != "" {
		expiry = &e
	}

	return Post{
		ID:       id,
		Type:     in.Type,
		Author:   author,
		Initials: InitialOf(author),
		Location: location,
		Time:     DefaultTime,
		Text:     strings.TrimSpace(in.Text),
		Items:    items,
		Images:   append([]string(nil), images...),
		Qty:      qty,
		Expiry:   expiry,
		Comments: []Comment{},

		DetectionData: in.DetectionData,
	}
}

// NewPost 以指定 id 建立貼文（不經過貼文板，供匯出與測試資料使用）
func NewPost(id int64, in NewPostInput) (Post, error) {
	if !in.Type.Valid() {
		return Post{}, common.NewValidationError(fmt.Sprintf("unknown post type %q", in.Type))
	}
	return in.build(id), nil
}

func strPtr(s string) *string { return &s }

// SeedPosts 初次啟動時的示範貼文
func SeedPosts() []Post {
	return []Post{
		{
			ID:       1,
			Type:     PostGiving,
			Author:   "Tom K.",
			Initials: "T",
			Location: "0.2 mi away",
			Time:     "3 min ago",
			Text:     "Fresh garden broccoli and kale. Picked this morning and free to a good home.",
			Items:    []string{"Broccoli", "Kale", "Courgettes"},
			Images:   []string{"🥦", "🥬", "🥒"},
			Qty:      "~2 kg total",
			Expiry:   strPtr("Best used today"),
			Likes:    4,
			Comments: []Comment{
				{Author: "Maria L.", Initials: "M", Text: "I can take the broccoli after 4pm if that works.", Time: "1 min ago"},
			},
		},
		{
			ID:       2,
			Type:     PostWanting,
			Author:   "Amy C.",
			Initials: "A",
			Location: "0.5 mi away",
			Time:     "9 min ago",
			Text:     "Looking for any spare eggs or milk this week. Anything helps.",
			Items:    []string{"Eggs", "Milk", "Yoghurt"},
			Images:   []string{"🥚", "🥛", "🍶"},
			Qty:      "Any amount",
			Likes:    11,
			Comments: []Comment{
				{Author: "James R.", Initials: "J", Text: "I have eggs and cheddar going spare. Happy to drop off.", Time: "5 min ago"},
			},
		},
		{
			ID:       3,
			Type:     PostGiving,
			Author:   "Maria L.",
			Initials: "M",
			Location: "0.3 mi away",
			Time:     "22 min ago",
			Text:     "Extra sourdough loaf from this weekend. Needs to go today.",
			Items:    []string{"Sourdough Bread"},
			Images:   []string{"🍞"},
			Qty:      "1 whole loaf",
			Expiry:   strPtr("Today by 7pm"),
			Likes:    7,
			Comments: []Comment{},
		},
		{
			ID:       4,
			Type:     PostGiving,
			Author:   "Priya S.",
			Initials: "P",
			Location: "0.6 mi away",
			Time:     "2h ago",
			Text:     "Cooked a large pot of vegan dal and packed extra portions.",
			Items:    []string{"Red Lentil Dal", "Basmati Rice"},
			Images:   []string{"🍲", "🍚"},
			Qty:      "4 portions",
			Expiry:   strPtr("Use by tomorrow"),
			Likes:    22,
			Comments: []Comment{},
		},
	}
}

// FromDetection 將相機偵測結果轉為分享貼文
func FromDetection(name string, d DetectionRef) NewPostInput {
	qty := strings.TrimSpace(d.Quantity)
	if qty == "" {
		qty = "See details"
	}
	return NewPostInput{
		Type:     PostGiving,
		Location: DefaultLocation,
		Text: fmt.Sprintf("Sharing %s detected by AI camera. %s quality, %s condition.",
			name, d.Quality, d.Condition),
		Items:  []string{name},
		Images: []string{"🎥"},
		Qty:    qty,
		Expiry: detectionExpiry,

		DetectionData: &d,
	}
}
