package community

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"freshloop/internal/core/strategy"
	"freshloop/internal/infrastructure/metrics"
	"freshloop/internal/pkg/common"

	"go.uber.org/zap"
)

// 配對模式
const (
	ModeLocal    = "local"
	ModeRemote   = "remote"
	ModeFallback = "fallback"
)

// 配對結果來源
const (
	SourceAI    = "ai"
	SourceLocal = "local"
)

// remoteMinScore AI 配對的最低分數
const remoteMinScore = 60

// Generator AI 文字生成
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// MatchRequest 由 wanting 貼文轉出的需求
type MatchRequest struct {
	PostID   int64    `json:"post_id"`
	Author   string   `json:"author"`
	Items    []string `json:"ingredients"`
	Location string   `json:"location,omitempty"`
}

// MatchOffer 由 giving 貼文轉出的供給
type MatchOffer struct {
	PostID   int64    `json:"post_id"`
	Author   string   `json:"author"`
	Items    []string `json:"ingredients"`
	Location string   `json:"location,omitempty"`
}

// Match 一組需求與供給的配對
type Match struct {
	Request            MatchRequest `json:"request"`
	Offer              MatchOffer   `json:"offer"`
	MatchScore         int          `json:"match_score"`
	MatchedIngredients []string     `json:"matched_ingredients"`
	Reason             string       `json:"reason"`
	MatchedAt          time.Time    `json:"matched_at"`
}

// Stats 配對統計
type Stats struct {
	TotalRequests       int `json:"total_requests"`
	TotalOffers         int `json:"total_offers"`
	TotalMatches        int `json:"total_matches"`
	RequestsWithMatches int `json:"requests_with_matches"`
}

// Result 依需求 id 分組的配對結果
type Result struct {
	Matches map[string][]Match `json:"matches"`
	Stats   Stats              `json:"stats"`
	Source  string             `json:"source"`
}

// MatchInput 配對輸入
type MatchInput struct {
	Requests []MatchRequest
	Offers   []MatchOffer
}

// Partition 將貼文分成需求與供給；已認領的貼文不參與
func Partition(posts []Post) MatchInput {
	var in MatchInput
	for _, p := range posts {
		if p.Claimed {
			continue
		}
		switch p.Type {
		case PostWanting:
			in.Requests = append(in.Requests, MatchRequest{PostID: p.ID, Author: p.Author, Items: p.Items, Location: p.Location})
		case PostGiving:
			in.Offers = append(in.Offers, MatchOffer{PostID: p.ID, Author: p.Author, Items: p.Items, Location: p.Location})
		}
	}
	return in
}

// MatchOptions 配對選項
type MatchOptions struct {
	MinScore          int
	MaxPerRequest     int
	ExcludeSameAuthor bool
}

// DefaultMatchOptions 預設選項
func DefaultMatchOptions() MatchOptions {
	return MatchOptions{MaxPerRequest: 5, ExcludeSameAuthor: true}
}

func sameAuthor(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}

func requestKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// newResult 每個需求 id 都列出，即使沒有配對
func newResult(in MatchInput, source string) Result {
	r := Result{
		Matches: make(map[string][]Match, len(in.Requests)),
		Source:  source,
	}
	for _, req := range in.Requests {
		r.Matches[requestKey(req.PostID)] = []Match{}
	}
	return r
}

// finish 排序、套用上限並計算統計
func (r *Result) finish(in MatchInput, opts MatchOptions) {
	r.Stats = Stats{TotalRequests: len(in.Requests), TotalOffers: len(in.Offers)}
	for key, ms := range r.Matches {
		sort.SliceStable(ms, func(i, j int) bool { return ms[i].MatchScore > ms[j].MatchScore })
		if opts.MaxPerRequest > 0 && len(ms) > opts.MaxPerRequest {
			ms = ms[:opts.MaxPerRequest]
		}
		r.Matches[key] = ms
		r.Stats.TotalMatches += len(ms)
		if len(ms) > 0 {
			r.Stats.RequestsWithMatches++
		}
	}
}

// Intersect 不分大小寫的名稱交集，保留需求端的寫法與順序
func Intersect(request, offer []string) []string {
	have := make(map[string]bool, len(offer))
	for _, o := range offer {
		have[strings.ToLower(strings.TrimSpace(o))] = true
	}
	var out []string
	seen := make(map[string]bool)
	for _, r := range request {
		key := strings.ToLower(strings.TrimSpace(r))
		if key == "" || seen[key] || !have[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(r))
	}
	return out
}

func distinctCount(items []string) int {
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if key := strings.ToLower(strings.TrimSpace(it)); key != "" {
			seen[key] = true
		}
	}
	return len(seen)
}

// LocalScore 本地分數：符合的需求品項比例 × 100
func LocalScore(matched, request []string) int {
	total := distinctCount(request)
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(len(matched)) / float64(total)))
}

// LocalMatcher 行程內名稱交集配對
type LocalMatcher struct {
	opts MatchOptions
	now  func() time.Time
}

// NewLocalMatcher 建立本地配對器
func NewLocalMatcher(opts MatchOptions) *LocalMatcher {
	return &LocalMatcher{opts: opts, now: time.Now}
}

// Resolve 實作 strategy.Resolver
func (l *LocalMatcher) Resolve(_ context.Context, in MatchInput) (Result, error) {
	res := newResult(in, SourceLocal)
	at := l.now()
	for _, req := range in.Requests {
		key := requestKey(req.PostID)
		for _, off := range in.Offers {
			if l.opts.ExcludeSameAuthor && sameAuthor(req.Author, off.Author) {
				continue
			}
			matched := Intersect(req.Items, off.Items)
			if len(matched) == 0 {
				continue
			}
			score := LocalScore(matched, req.Items)
			if score < l.opts.MinScore {
				continue
			}
			res.Matches[key] = append(res.Matches[key], Match{
				Request:            req,
				Offer:              off,
				MatchScore:         score,
				MatchedIngredients: matched,
				Reason:             localReason(matched, score),
				MatchedAt:          at,
			})
		}
	}
	res.finish(in, l.opts)
	return res, nil
}

func localReason(matched []string, score int) string {
	if score >= 100 {
		return "Has everything requested: " + strings.Join(matched, ", ")
	}
	return "Has " + strings.Join(matched, ", ")
}

// RemoteMatcher 請 AI 一次評估所有需求與供給，分數視為不透明的排序依據
type RemoteMatcher struct {
	gen  Generator
	opts MatchOptions
	now  func() time.Time
}

// NewRemoteMatcher 建立 AI 配對器
func NewRemoteMatcher(gen Generator, opts MatchOptions) *RemoteMatcher {
	return &RemoteMatcher{gen: gen, opts: opts, now: time.Now}
}

type remoteMatches struct {
	Matches []struct {
		RequestIndex       int      `json:"request_index"`
		OfferIndex         int      `json:"offer_index"`
		MatchScore         float64  `json:"match_score"`
		MatchedIngredients []string `json:"matched_ingredients"`
		Reason             string   `json:"reason"`
	} `json:"matches"`
}

// Resolve 實作 strategy.Resolver
func (r *RemoteMatcher) Resolve(ctx context.Context, in MatchInput) (Result, error) {
	res := newResult(in, SourceAI)
	if len(in.Requests) == 0 || len(in.Offers) == 0 {
		res.finish(in, r.opts)
		return res, nil
	}

	content, err := r.gen.Generate(ctx, matchPrompt(in))
	if err != nil {
		return Result{}, err
	}
	var parsed remoteMatches
	if err := common.ParseModelJSON(content, &parsed); err != nil {
		return Result{}, err
	}

	minScore := r.opts.MinScore
	if minScore < remoteMinScore {
		minScore = remoteMinScore
	}
	at := r.now()
	seen := make(map[[2]int]bool, len(parsed.Matches))
	for _, m := range parsed.Matches {
		ri, oi := m.RequestIndex-1, m.OfferIndex-1
		if ri < 0 || ri >= len(in.Requests) || oi < 0 || oi >= len(in.Offers) || seen[[2]int{ri, oi}] {
			continue
		}
		seen[[2]int{ri, oi}] = true
		req, off := in.Requests[ri], in.Offers[oi]
		if r.opts.ExcludeSameAuthor && sameAuthor(req.Author, off.Author) {
			continue
		}
		// 配對品項一律以名稱交集為準，AI 的分數只用於排序與門檻
		matched := Intersect(req.Items, off.Items)
		if len(matched) == 0 {
			continue
		}
		score := int(math.Round(math.Max(0, math.Min(100, m.MatchScore))))
		if score < minScore {
			continue
		}
		key := requestKey(req.PostID)
		res.Matches[key] = append(res.Matches[key], Match{
			Request:            req,
			Offer:              off,
			MatchScore:         score,
			MatchedIngredients: matched,
			Reason:             strings.TrimSpace(m.Reason),
			MatchedAt:          at,
		})
	}
	res.finish(in, r.opts)
	return res, nil
}

func matchPrompt(in MatchInput) string {
	var b strings.Builder
	b.WriteString("You are an ingredient matching system for a neighborhood food-sharing community.\n\n")
	b.WriteString("REQUESTS (people looking for ingredients):\n")
	for i, req := range in.Requests {
		fmt.Fprintf(&b, "%d. User: %s, Needs: %s\n", i+1, req.Author, strings.Join(req.Items, ", "))
	}
	b.WriteString("\nOFFERS (people giving ingredients):\n")
	for i, off := range in.Offers {
		fmt.Fprintf(&b, "%d. User: %s, Has: %s, Location: %s\n", i+1, off.Author, strings.Join(off.Items, ", "), off.Location)
	}
	fmt.Fprintf(&b, "\nMatch requests with offers that share at least one ingredient by name. "+
		"Never match a user with themselves. Only include matches with match_score %d-100.\n", remoteMinScore)
	b.WriteString(`Respond with JSON only: {"matches":[{"request_index":1,"offer_index":2,"match_score":85,"matched_ingredients":["eggs"],"reason":"short reason"}]}`)
	return b.String()
}

// Matcher 配對入口，保留最後一次成功的結果
type Matcher struct {
	resolver  strategy.Resolver[MatchInput, Result]
	mode      string
	aiEnabled bool
	opts      MatchOptions

	mu   sync.RWMutex
	last *Result
}

// NewMatcher 依模式組合配對器；gen 為 nil 時 remote 模式一律失敗，未知模式視為 fallback
func NewMatcher(mode string, gen Generator, opts MatchOptions) *Matcher {
	local := NewLocalMatcher(opts)
	var remote strategy.Resolver[MatchInput, Result]
	if gen != nil {
		remote = NewRemoteMatcher(gen, opts)
	}

	var resolver strategy.Resolver[MatchInput, Result]
	switch mode {
	case ModeLocal:
		resolver = local
	case ModeRemote:
		if remote == nil {
			remote = strategy.Func[MatchInput, Result](func(context.Context, MatchInput) (Result, error) {
				return Result{}, common.ErrAIUnavailable
			})
		}
		resolver = strategy.NewTwoTier[MatchInput, Result]("community_match", remote, nil)
	default:
		mode = ModeFallback
		resolver = strategy.NewTwoTier[MatchInput, Result]("community_match", remote, local)
	}
	return &Matcher{resolver: resolver, mode: mode, aiEnabled: gen != nil, opts: opts}
}

// Match 對貼文執行配對；失敗時不動上一份結果
func (m *Matcher) Match(ctx context.Context, posts []Post) (Result, error) {
	in := Partition(posts)
	res, err := m.resolver.Resolve(ctx, in)
	if err != nil {
		common.LogWarn("社區配對失敗，保留上一次結果", zap.Error(err))
		return Result{}, err
	}

	m.mu.Lock()
	m.last = &res
	m.mu.Unlock()

	metrics.CommunityMatches.Add(float64(res.Stats.TotalMatches))
	common.LogInfo("社區配對完成",
		zap.String("source", res.Source),
		zap.Int("requests", res.Stats.TotalRequests),
		zap.Int("offers", res.Stats.TotalOffers),
		zap.Int("matches", res.Stats.TotalMatches),
	)
	return res, nil
}

// SingleResult 單一需求的配對結果
type SingleResult struct {
	RequestPostID   int64   `json:"request_post_id"`
	Matches         []Match `json:"matches"`
	AvailableOffers int     `json:"available_offers"`
	Source          string  `json:"source"`
}

// MatchOne 只替一篇 wanting 貼文找供給；不更新最後一次的整體結果
func (m *Matcher) MatchOne(ctx context.Context, posts []Post, requestID int64) (SingleResult, error) {
	all := Partition(posts)
	var in MatchInput
	for _, req := range all.Requests {
		if req.PostID == requestID {
			in.Requests = []MatchRequest{req}
			break
		}
	}
	if len(in.Requests) == 0 {
		return SingleResult{}, common.ErrPostNotFound.WithMessage(fmt.Sprintf("request post %d not found", requestID))
	}
	for _, off := range all.Offers {
		if m.opts.ExcludeSameAuthor && sameAuthor(in.Requests[0].Author, off.Author) {
			continue
		}
		in.Offers = append(in.Offers, off)
	}

	out := SingleResult{RequestPostID: requestID, Matches: []Match{}, AvailableOffers: len(in.Offers), Source: SourceLocal}
	if len(in.Offers) == 0 {
		return out, nil
	}
	res, err := m.resolver.Resolve(ctx, in)
	if err != nil {
		common.LogWarn("單一需求配對失敗", zap.Int64("request_post_id", requestID), zap.Error(err))
		return SingleResult{}, err
	}
	out.Matches = res.Matches[requestKey(requestID)]
	out.Source = res.Source
	metrics.CommunityMatches.Add(float64(len(out.Matches)))
	return out, nil
}

// Status 配對器狀態
type Status struct {
	Mode      string `json:"mode"`
	AIEnabled bool   `json:"ai_enabled"`
	HasResult bool   `json:"has_result"`
	LastStats *Stats `json:"last_stats,omitempty"`
	Source    string `json:"last_source,omitempty"`
}

// Status 目前的模式與最後一次結果摘要
func (m *Matcher) Status() Status {
	st := Status{Mode: m.mode, AIEnabled: m.aiEnabled}
	if last, ok := m.Last(); ok {
		stats := last.Stats
		st.HasResult = true
		st.LastStats = &stats
		st.Source = last.Source
	}
	return st
}

// Last 最後一次成功的配對結果
func (m *Matcher) Last() (Result, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.last == nil {
		return Result{}, false
	}
	return *m.last, true
}
