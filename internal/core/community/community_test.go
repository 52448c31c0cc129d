package community

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"freshloop/internal/infrastructure/storage"
	"freshloop/internal/pkg/common"
)

type fakeGenerator struct {
	content string
	err     error
	calls   int
}

func (f *fakeGenerator) Generate(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.content, f.err
}

func fixedClock(ms int64) *common.IDClock {
	return common.NewIDClock(func() time.Time { return time.UnixMilli(ms) })
}

func TestReduce(t *testing.T) {
	seed := SeedPosts()

	t.Run("create prepends", func(t *testing.T) {
		p := NewPostInput{Type: PostGiving, Text: "  spare lemons  ", Items: []string{"Lemons"}}.build(99)
		got, err := Reduce(seed, Event{Kind: EventCreate, Post: p})
		if err != nil {
			t.Fatalf("Reduce() error = %v", err)
		}
		if len(got) != len(seed)+1 || got[0].ID != 99 {
			t.Fatalf("new post not prepended: first id %d, len %d", got[0].ID, len(got))
		}
		if got[0].Text != "spare lemons" {
			t.Errorf("Text = %q, want trimmed", got[0].Text)
		}
	})

	t.Run("create requires text", func(t *testing.T) {
		p := NewPostInput{Type: PostGiving, Text: "   "}.build(1)
		if _, err := Reduce(seed, Event{Kind: EventCreate, Post: p}); !common.IsValidationError(err) {
			t.Errorf("Reduce() error = %v, want validation error", err)
		}
	})

	t.Run("toggle like twice restores", func(t *testing.T) {
		once, err := Reduce(seed, Event{Kind: EventToggleLike, PostID: 1})
		if err != nil {
			t.Fatalf("Reduce() error = %v", err)
		}
		if once[0].Likes != 5 || !once[0].Liked {
			t.Errorf("after like: likes=%d liked=%v", once[0].Likes, once[0].Liked)
		}
		twice, _ := Reduce(once, Event{Kind: EventToggleLike, PostID: 1})
		if twice[0].Likes != 4 || twice[0].Liked {
			t.Errorf("after unlike: likes=%d liked=%v", twice[0].Likes, twice[0].Liked)
		}
		if seed[0].Likes != 4 || seed[0].Liked {
			t.Error("input slice was mutated")
		}
	})

	t.Run("comment from draft", func(t *testing.T) {
		withDraft, _ := Reduce(seed, Event{Kind: EventSetDraft, PostID: 3, Draft: "  I'll take it  "})
		got, err := Reduce(withDraft, Event{Kind: EventAddComment, PostID: 3, Comment: Comment{Author: "Lena"}})
		if err != nil {
			t.Fatalf("Reduce() error = %v", err)
		}
		post := got[2]
		if len(post.Comments) != 1 {
			t.Fatalf("comments = %d, want 1", len(post.Comments))
		}
		c := post.Comments[0]
		if c.Text != "I'll take it" || c.Initials != "L" || c.Time != DefaultTime {
			t.Errorf("comment = %+v", c)
		}
		if post.CommentDraft != "" {
			t.Errorf("draft = %q, want cleared", post.CommentDraft)
		}
	})

	t.Run("empty draft is a no-op", func(t *testing.T) {
		got, err := Reduce(seed, Event{Kind: EventAddComment, PostID: 4})
		if err != nil {
			t.Fatalf("Reduce() error = %v", err)
		}
		if len(got[3].Comments) != 0 {
			t.Errorf("comments = %d, want 0", len(got[3].Comments))
		}
	})

	t.Run("claim and toggle comments", func(t *testing.T) {
		got, _ := Reduce(seed, Event{Kind: EventClaim, PostID: 2})
		got, _ = Reduce(got, Event{Kind: EventToggleComments, PostID: 2})
		if !got[1].Claimed || !got[1].CommentsOpen {
			t.Errorf("post 2 = claimed %v, commentsOpen %v", got[1].Claimed, got[1].CommentsOpen)
		}
	})

	t.Run("unknown post", func(t *testing.T) {
		_, err := Reduce(seed, Event{Kind: EventClaim, PostID: 42})
		if !errors.Is(err, common.ErrPostNotFound) {
			t.Errorf("Reduce() error = %v, want ErrPostNotFound", err)
		}
	})
}

func TestFilter(t *testing.T) {
	tests := []struct {
		filter string
		want   []int64
	}{
		{"", []int64{1, 2, 3, 4}},
		{"all", []int64{1, 2, 3, 4}},
		{"giving", []int64{1, 3, 4}},
		{"Wanting", []int64{2}},
		{"expiring", []int64{1, 3, 4}},
		{"nearby", []int64{1, 2, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			f, err := ParseFilter(tt.filter)
			if err != nil {
				t.Fatalf("ParseFilter() error = %v", err)
			}
			var got []int64
			for _, p := range f.Apply(SeedPosts()) {
				got = append(got, p.ID)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ids = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := ParseFilter("popular"); err == nil {
		t.Error("ParseFilter(popular) expected error")
	}

	far := Post{ID: 9, Location: "2 mi away", Type: PostGiving}
	if got := FilterNearby.Apply([]Post{far}); len(got) != 0 {
		t.Errorf("nearby kept %v", got)
	}
}

func TestNewPostDefaults(t *testing.T) {
	p := NewPostInput{Type: PostWanting, Text: "anything?", Expiry: "   "}.build(7)

	if !reflect.DeepEqual(p.Items, []string{DefaultItem}) {
		t.Errorf("Items = %v", p.Items)
	}
	if !reflect.DeepEqual(p.Images, []string{"🥬"}) {
		t.Errorf("Images = %v", p.Images)
	}
	if p.Qty != DefaultQty || p.Expiry != nil || p.Author != DefaultAuthor || p.Initials != "Y" {
		t.Errorf("defaults not applied: %+v", p)
	}

	many := NewPostInput{Type: PostGiving, Text: "x", Items: SplitItems("a, b, ,c, d")}.build(8)
	if len(many.Items) != 4 || len(many.Images) != 3 {
		t.Errorf("items=%v images=%v", many.Items, many.Images)
	}

	data, _ := json.Marshal(p)
	var raw map[string]interface{}
	_ = json.Unmarshal(data, &raw)
	if v, ok := raw["expiry"]; !ok || v != nil {
		t.Errorf("expiry json = %v (present %v), want null", v, ok)
	}
}

func TestBoard(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()

	board, err := LoadBoard(ctx, kv, true, WithIDClock(fixedClock(1000)))
	if err != nil {
		t.Fatalf("LoadBoard() error = %v", err)
	}
	if n := len(board.Posts(FilterAll)); n != 4 {
		t.Fatalf("seeded posts = %d, want 4", n)
	}

	first, err := board.Create(ctx, NewPostInput{Type: PostGiving, Text: "Two ripe avocados", Items: []string{"Avocado"}})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	second, _ := board.Create(ctx, NewPostInput{Type: PostWanting, Text: "Need rice"})
	if first.ID != 1000 || second.ID != 1001 {
		t.Errorf("ids = %d, %d; want 1000, 1001", first.ID, second.ID)
	}

	if _, err := board.ToggleLike(ctx, first.ID); err != nil {
		t.Fatalf("ToggleLike() error = %v", err)
	}
	if _, err := board.SetDraft(ctx, 2, "dropping some off"); err != nil {
		t.Fatalf("SetDraft() error = %v", err)
	}
	commented, err := board.AddComment(ctx, 2, "")
	if err != nil {
		t.Fatalf("AddComment() error = %v", err)
	}
	if len(commented.Comments) != 2 || commented.Comments[1].ID == "" {
		t.Errorf("comments = %+v", commented.Comments)
	}

	if _, err := board.Claim(ctx, 12345); !errors.Is(err, common.ErrPostNotFound) {
		t.Errorf("Claim(unknown) error = %v", err)
	}

	reloaded, err := LoadBoard(ctx, kv, true)
	if err != nil {
		t.Fatalf("reload error = %v", err)
	}
	got := reloaded.Posts(FilterAll)
	if len(got) != 6 || got[0].ID != second.ID || got[1].Likes != 1 {
		t.Errorf("reloaded posts not persisted: len=%d first=%d likes=%d", len(got), got[0].ID, got[1].Likes)
	}
}

func TestLoadBoardWithoutSeed(t *testing.T) {
	board, err := LoadBoard(context.Background(), storage.NewMemory(), false)
	if err != nil {
		t.Fatalf("LoadBoard() error = %v", err)
	}
	if n := len(board.Posts(FilterAll)); n != 0 {
		t.Errorf("posts = %d, want 0", n)
	}
}

func matchPosts() []Post {
	return []Post{
		{ID: 10, Type: PostWanting, Author: "Amy", Items: []string{"eggs", "milk"}},
		{ID: 20, Type: PostGiving, Author: "James", Items: []string{"eggs", "cheddar"}, Location: "0.4 mi away"},
		{ID: 30, Type: PostGiving, Author: "Tom", Items: []string{"kale"}},
		{ID: 11, Type: PostWanting, Author: "Ben", Items: []string{"flour"}},
	}
}

func TestLocalMatcher(t *testing.T) {
	m := NewLocalMatcher(DefaultMatchOptions())
	res, err := m.Resolve(context.Background(), Partition(matchPosts()))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	amy := res.Matches["10"]
	if len(amy) != 1 {
		t.Fatalf("matches for request 10 = %d, want 1", len(amy))
	}
	if !reflect.DeepEqual(amy[0].MatchedIngredients, []string{"eggs"}) {
		t.Errorf("matched = %v, want [eggs]", amy[0].MatchedIngredients)
	}
	if amy[0].MatchScore != 50 || amy[0].Offer.PostID != 20 {
		t.Errorf("match = %+v", amy[0])
	}

	if ben, ok := res.Matches["11"]; !ok || len(ben) != 0 {
		t.Errorf("request without overlap = %v (present %v), want empty list", ben, ok)
	}

	want := Stats{TotalRequests: 2, TotalOffers: 2, TotalMatches: 1, RequestsWithMatches: 1}
	if res.Stats != want {
		t.Errorf("Stats = %+v, want %+v", res.Stats, want)
	}
	if res.Source != SourceLocal {
		t.Errorf("Source = %q", res.Source)
	}
}

func TestLocalMatcherOptions(t *testing.T) {
	posts := []Post{
		{ID: 1, Type: PostWanting, Author: "Amy", Items: []string{"Eggs", "Milk"}},
		{ID: 2, Type: PostGiving, Author: "amy", Items: []string{"eggs"}},
		{ID: 3, Type: PostGiving, Author: "Tom", Items: []string{"eggs"}},
		{ID: 4, Type: PostGiving, Author: "Sue", Items: []string{"MILK", "eggs"}},
		{ID: 5, Type: PostGiving, Author: "Kim", Items: []string{"milk"}, Claimed: true},
	}

	tests := []struct {
		name string
		opts MatchOptions
		want []int64
	}{
		{name: "defaults", opts: DefaultMatchOptions(), want: []int64{4, 3}},
		{name: "same author allowed", opts: MatchOptions{}, want: []int64{4, 2, 3}},
		{name: "min score", opts: MatchOptions{MinScore: 60, ExcludeSameAuthor: true}, want: []int64{4}},
		{name: "cap", opts: MatchOptions{MaxPerRequest: 1}, want: []int64{4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, _ := NewLocalMatcher(tt.opts).Resolve(context.Background(), Partition(posts))
			var got []int64
			for _, m := range res.Matches["1"] {
				got = append(got, m.Offer.PostID)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("offers = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRemoteMatcher(t *testing.T) {
	gen := &fakeGenerator{content: "```json\n" + `{"matches":[
		{"request_index":1,"offer_index":1,"match_score":72,"matched_ingredients":["eggs"],"reason":"eggs on offer"},
		{"request_index":1,"offer_index":2,"match_score":40,"matched_ingredients":[],"reason":"weak"},
		{"request_index":2,"offer_index":9,"match_score":99,"matched_ingredients":["flour"],"reason":"bad index"}
	]}` + "\n```"}

	res, err := NewRemoteMatcher(gen, DefaultMatchOptions()).Resolve(context.Background(), Partition(matchPosts()))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got := res.Matches["10"]; len(got) != 1 || got[0].MatchScore != 72 || got[0].Reason != "eggs on offer" {
		t.Errorf("matches for 10 = %+v", got)
	}
	if got := res.Matches["11"]; len(got) != 0 {
		t.Errorf("matches for 11 = %+v, want none", got)
	}
	if res.Source != SourceAI || res.Stats.TotalMatches != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestRemoteMatcherRequiresSharedItems(t *testing.T) {
	gen := &fakeGenerator{content: `{"matches":[
		{"request_index":1,"offer_index":2,"match_score":85,"matched_ingredients":[],"reason":"kale is similar"},
		{"request_index":1,"offer_index":1,"match_score":90,"matched_ingredients":["eggs","milk"],"reason":"dairy"},
		{"request_index":1,"offer_index":1,"match_score":95,"matched_ingredients":["eggs"],"reason":"repeat"}
	]}`}

	res, err := NewRemoteMatcher(gen, DefaultMatchOptions()).Resolve(context.Background(), Partition(matchPosts()))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	got := res.Matches["10"]
	if len(got) != 1 {
		t.Fatalf("matches for 10 = %+v, want only the overlapping offer", got)
	}
	if got[0].Offer.PostID != 20 || got[0].MatchScore != 90 {
		t.Errorf("match = %+v, want offer 20 with score 90", got[0])
	}
	if !reflect.DeepEqual(got[0].MatchedIngredients, []string{"eggs"}) {
		t.Errorf("matched = %v, want [eggs]", got[0].MatchedIngredients)
	}
}

func TestMatchOne(t *testing.T) {
	ctx := context.Background()
	posts := append(matchPosts(),
		Post{ID: 40, Type: PostGiving, Author: "Amy", Items: []string{"milk"}},
		Post{ID: 50, Type: PostGiving, Author: "Sue", Items: []string{"milk"}, Claimed: true},
	)
	m := NewMatcher(ModeLocal, nil, DefaultMatchOptions())

	tests := []struct {
		name       string
		id         int64
		wantOffers []int64
		available  int
		wantErr    error
	}{
		{name: "own offers excluded", id: 10, wantOffers: []int64{20}, available: 2},
		{name: "no overlap", id: 11, wantOffers: nil, available: 3},
		{name: "giving post is not a request", id: 20, wantErr: common.ErrPostNotFound},
		{name: "unknown id", id: 99, wantErr: common.ErrPostNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := m.MatchOne(ctx, posts, tt.id)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("MatchOne() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("MatchOne() error = %v", err)
			}
			var got []int64
			for _, match := range res.Matches {
				got = append(got, match.Offer.PostID)
			}
			if !reflect.DeepEqual(got, tt.wantOffers) || res.AvailableOffers != tt.available {
				t.Errorf("offers = %v (available %d), want %v (available %d)", got, res.AvailableOffers, tt.wantOffers, tt.available)
			}
		})
	}

	if _, ok := m.Last(); ok {
		t.Error("MatchOne() should not replace the last full result")
	}
}

func TestMatcherStatus(t *testing.T) {
	m := NewMatcher("bogus", nil, DefaultMatchOptions())
	st := m.Status()
	if st.Mode != ModeFallback || st.AIEnabled || st.HasResult {
		t.Errorf("Status() before run = %+v", st)
	}

	if _, err := m.Match(context.Background(), matchPosts()); err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	st = m.Status()
	if !st.HasResult || st.LastStats == nil || st.LastStats.TotalMatches != 1 || st.Source != SourceLocal {
		t.Errorf("Status() after run = %+v", st)
	}
}

func TestMatcherModes(t *testing.T) {
	ctx := context.Background()

	t.Run("fallback uses local on AI failure", func(t *testing.T) {
		gen := &fakeGenerator{err: errors.New("boom")}
		res, err := NewMatcher(ModeFallback, gen, DefaultMatchOptions()).Match(ctx, matchPosts())
		if err != nil {
			t.Fatalf("Match() error = %v", err)
		}
		if res.Source != SourceLocal || gen.calls != 1 {
			t.Errorf("source = %q, calls = %d", res.Source, gen.calls)
		}
	})

	t.Run("remote failure keeps last result", func(t *testing.T) {
		gen := &fakeGenerator{content: `{"matches":[{"request_index":1,"offer_index":1,"match_score":90,"matched_ingredients":["eggs"]}]}`}
		m := NewMatcher(ModeRemote, gen, DefaultMatchOptions())
		if _, ok := m.Last(); ok {
			t.Fatal("Last() before any run should be empty")
		}
		first, err := m.Match(ctx, matchPosts())
		if err != nil {
			t.Fatalf("Match() error = %v", err)
		}

		gen.content, gen.err = "", errors.New("timeout")
		if _, err := m.Match(ctx, matchPosts()); err == nil {
			t.Fatal("Match() expected error in remote mode")
		}
		last, ok := m.Last()
		if !ok || !reflect.DeepEqual(last, first) {
			t.Errorf("Last() = %+v, want first result", last)
		}
	})

	t.Run("remote without provider", func(t *testing.T) {
		_, err := NewMatcher(ModeRemote, nil, DefaultMatchOptions()).Match(ctx, matchPosts())
		if !errors.Is(err, common.ErrAIUnavailable) {
			t.Errorf("Match() error = %v, want ErrAIUnavailable", err)
		}
	})
}

func TestHelpService(t *testing.T) {
	ctx := context.Background()
	board, _ := LoadBoard(ctx, storage.NewMemory(), false, WithIDClock(fixedClock(5000)))

	t.Run("template fallback", func(t *testing.T) {
		svc := NewHelpService(&fakeGenerator{err: errors.New("down")}, board)
		msg, err := svc.Generate(ctx, HelpRequest{RecipeName: "**Pancakes**", NeedIngredient: "2 eggs", HaveIngredients: []string{"Flour", "Milk"}})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		want := "Hi! I'm making Pancakes and I need 2 eggs. I already have Flour, Milk. Could anyone help me out? Thanks!"
		if msg.Message != want || msg.Source != SourceLocal {
			t.Errorf("message = %q (%s)", msg.Message, msg.Source)
		}
	})

	t.Run("ai message is unquoted", func(t *testing.T) {
		svc := NewHelpService(&fakeGenerator{content: `"Could a neighbor spare two eggs tonight?"`}, board)
		msg, _ := svc.Generate(ctx, HelpRequest{NeedIngredient: "eggs"})
		if msg.Message != "Could a neighbor spare two eggs tonight?" || msg.Source != SourceAI {
			t.Errorf("message = %q (%s)", msg.Message, msg.Source)
		}
	})

	t.Run("need ingredient required", func(t *testing.T) {
		svc := NewHelpService(nil, board)
		if _, err := svc.Generate(ctx, HelpRequest{}); !common.IsValidationError(err) {
			t.Errorf("Generate() error = %v", err)
		}
	})

	t.Run("post creates wanting post", func(t *testing.T) {
		svc := NewHelpService(nil, board)
		p, err := svc.Post(ctx, PostHelpInput{Message: "Anyone have cream?", NeedIngredient: "heavy cream", Quantity: "2", Unit: "cups"})
		if err != nil {
			t.Fatalf("Post() error = %v", err)
		}
		if p.Type != PostWanting || p.Author != "You" || p.Initials != "Y" || p.Qty != "2" {
			t.Errorf("post = %+v", p)
		}
		if !reflect.DeepEqual(p.Items, []string{"2 cups heavy cream"}) || !reflect.DeepEqual(p.Images, []string{"🔍"}) {
			t.Errorf("items = %v images = %v", p.Items, p.Images)
		}
	})
}

func TestFromDetection(t *testing.T) {
	in := FromDetection("Apple", DetectionRef{Quality: "Fresh", Condition: "Ripe", Safe: "Yes", Confidence: 0.95})
	if in.Text != "Sharing Apple detected by AI camera. Fresh quality, Ripe condition." {
		t.Errorf("Text = %q", in.Text)
	}
	if in.Qty != "See details" || in.Type != PostGiving || in.DetectionData == nil {
		t.Errorf("input = %+v", in)
	}
	p := in.build(1)
	if p.Expiry == nil || *p.Expiry != "Check freshness" || p.Images[0] != "🎥" {
		t.Errorf("post = %+v", p)
	}
}
