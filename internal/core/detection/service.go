package detection

import (
	"context"
	"time"

	"freshloop/internal/infrastructure/metrics"
	"freshloop/internal/pkg/common"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Vision 圖片分析
type Vision interface {
	Analyze(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}

// Archive 偵測結果封存
type Archive interface {
	Save(ctx context.Context, results []Result) error
}

// Service 偵測服務
type Service struct {
	vision  Vision
	store   *Store
	archive Archive
	now     func() time.Time
}

// Option Service 選項
type Option func(*Service)

// WithArchive 設定封存；nil 表示不封存
func WithArchive(a Archive) Option {
	return func(s *Service) { s.archive = a }
}

// WithClock 指定時間來源（測試用）
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService vision 為 nil 時圖片分析回傳 AI_UNAVAILABLE
func NewService(vision Vision, store *Store, opts ...Option) *Service {
	s := &Service{vision: vision, store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze 分析圖片並保存結果
func (s *Service) Analyze(ctx context.Context, image []byte, mimeType string) ([]Result, error) {
	if s.vision == nil {
		return nil, common.ErrAIUnavailable.WithMessage("vision detector not available")
	}

	start := time.Now()
	content, err := s.vision.Analyze(ctx, analyzePrompt, image, mimeType)
	if err != nil {
		return nil, err
	}
	results, err := ParseResponse(content)
	if err != nil {
		return nil, err
	}

	ts := s.now().Format(timestampLayout)
	for i := range results {
		results[i].ID = "upload_" + uuid.NewString()
		results[i].Timestamp = ts
	}
	s.record(ctx, results)

	common.LogInfo("圖片分析完成",
		zap.Int("count", len(results)),
		zap.Duration("耗時", time.Since(start)),
	)
	return results, nil
}

// TestDetection 加入一筆固定的示範結果
func (s *Service) TestDetection(ctx context.Context) Result {
	r := Result{
		ID:         "test_" + uuid.NewString(),
		Name:       "Test Apple",
		Quality:    "Fresh",
		Quantity:   "Medium",
		Condition:  "Ripe",
		Safe:       "Yes - looks fresh and healthy",
		Community:  "Yes - suitable for sharing",
		Confidence: 0.95,
		Timestamp:  s.now().Format(timestampLayout),
		BBox:       []int{100, 100, 200, 200},
	}
	s.record(ctx, []Result{r})
	return r
}

// Latest 最近的結果
func (s *Service) Latest() []Result {
	return s.store.Latest()
}

// Get 依 id 取得結果
func (s *Service) Get(id string) (Result, bool) {
	return s.store.Get(id)
}

// Clear 清空結果
func (s *Service) Clear() int {
	n := s.store.Clear()
	common.LogInfo("偵測結果已清除", zap.Int("count", n))
	return n
}

// record 存入暫存並封存；封存失敗只記錄
func (s *Service) record(ctx context.Context, results []Result) {
	if len(results) == 0 {
		return
	}
	s.store.Add(results...)
	metrics.DetectionsRecorded.Add(float64(len(results)))

	if s.archive == nil {
		return
	}
	if err := s.archive.Save(ctx, results); err != nil {
		common.LogWarn("偵測結果封存失敗", zap.Int("count", len(results)), zap.Error(err))
	}
}
