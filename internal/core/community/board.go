package community

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"freshloop/internal/infrastructure/storage"
	"freshloop/internal/pkg/common"

	"github.com/lucsky/cuid"
	"go.uber.org/zap"
)

// DefaultPostsKey 貼文清單的儲存鍵
const DefaultPostsKey = "communityPosts"

// Board 持久化的貼文板
//
// 啟動時讀取一次，之後每次變更都整份覆寫。
type Board struct {
	mu    sync.Mutex
	kv    storage.KV
	key   string
	ids   *common.IDClock
	posts []Post
}

// BoardOption Board 選項
type BoardOption func(*Board)

// WithIDClock 指定 ID 產生器（測試用）
func WithIDClock(c *common.IDClock) BoardOption {
	return func(b *Board) { b.ids = c }
}

// WithKey 指定儲存鍵
func WithKey(key string) BoardOption {
	return func(b *Board) {
		if key != "" {
			b.key = key
		}
	}
}

// LoadBoard 讀取貼文清單；沒有資料時依 seed 決定是否寫入示範貼文
func LoadBoard(ctx context.Context, kv storage.KV, seed bool, opts ...BoardOption) (*Board, error) {
	b := &Board{kv: kv, key: DefaultPostsKey, ids: common.NewIDClock(nil)}
	for _, opt := range opts {
		opt(b)
	}

	data, err := kv.Get(ctx, b.key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		b.posts = []Post{}
		if seed {
			b.posts = SeedPosts()
			if err := b.persist(ctx, b.posts); err != nil {
				return nil, err
			}
		}
	case err != nil:
		return nil, common.ErrStorage.Wrap(err)
	default:
		if err := common.ParseJSONBytes(data, &b.posts); err != nil {
			return nil, common.ErrStorage.Wrap(err)
		}
		if b.posts == nil {
			b.posts = []Post{}
		}
	}

	for _, p := range b.posts {
		b.ids.Observe(p.ID)
	}
	common.LogInfo("社區貼文已載入",
		zap.String("key", b.key),
		zap.Int("posts", len(b.posts)),
	)
	return b, nil
}

// Posts 回傳符合篩選的貼文快照
func (b *Board) Posts(f Filter) []Post {
	b.mu.Lock()
	defer b.mu.Unlock()
	return f.Apply(b.posts)
}

// Get 依 id 取得貼文
func (b *Board) Get(id int64) (Post, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := indexOf(b.posts, id); i >= 0 {
		return b.posts[i].clone(), true
	}
	return Post{}, false
}

// Create 建立貼文並置頂
func (b *Board) Create(ctx context.Context, in NewPostInput) (Post, error) {
	if in.Type == "" {
		in.Type = PostGiving
	}
	var created Post
	_, err := b.apply(ctx, func() Event {
		created = in.build(b.ids.Next())
		return Event{Kind: EventCreate, Post: created}
	})
	if err != nil {
		return Post{}, err
	}
	common.LogInfo("新增社區貼文",
		zap.Int64("id", created.ID),
		zap.String("type", string(created.Type)),
	)
	return created, nil
}

// ToggleLike 切換按讚
func (b *Board) ToggleLike(ctx context.Context, id int64) (Post, error) {
	return b.mutate(ctx, Event{Kind: EventToggleLike, PostID: id})
}

// Claim 標記為已認領
func (b *Board) Claim(ctx context.Context, id int64) (Post, error) {
	return b.mutate(ctx, Event{Kind: EventClaim, PostID: id})
}

// ToggleComments 展開或收起留言
func (b *Board) ToggleComments(ctx context.Context, id int64) (Post, error) {
	return b.mutate(ctx, Event{Kind: EventToggleComments, PostID: id})
}

// SetDraft 更新留言草稿
func (b *Board) SetDraft(ctx context.Context, id int64, draft string) (Post, error) {
	return b.mutate(ctx, Event{Kind: EventSetDraft, PostID: id, Draft: draft})
}

// AddComment 送出草稿為留言；author 為空時使用 "You"
func (b *Board) AddComment(ctx context.Context, id int64, author string) (Post, error) {
	return b.mutate(ctx, Event{
		Kind:    EventAddComment,
		PostID:  id,
		Comment: Comment{ID: cuid.New(), Author: author},
	})
}

func (b *Board) mutate(ctx context.Context, ev Event) (Post, error) {
	posts, err := b.apply(ctx, func() Event { return ev })
	if err != nil {
		return Post{}, err
	}
	return posts[indexOf(posts, ev.PostID)].clone(), nil
}

// apply 在鎖內套用事件並寫回儲存；寫入失敗時保留原狀態
func (b *Board) apply(ctx context.Context, next func() Event) ([]Post, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	updated, err := Reduce(b.posts, next())
	if err != nil {
		return nil, err
	}
	if err := b.persist(ctx, updated); err != nil {
		return nil, err
	}
	b.posts = updated
	return updated, nil
}

func (b *Board) persist(ctx context.Context, posts []Post) error {
	data, err := json.Marshal(posts)
	if err != nil {
		return common.ErrStorage.Wrap(err)
	}
	if err := b.kv.Set(ctx, b.key, data); err != nil {
		common.LogError("社區貼文寫入失敗", zap.String("key", b.key), zap.Error(err))
		return common.ErrStorage.Wrap(err)
	}
	return nil
}
