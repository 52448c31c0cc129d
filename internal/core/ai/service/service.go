// Package service AI 服務：快取、隊列與重試包裝在提供者之外
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"freshloop/internal/core/ai/cache"
	"freshloop/internal/core/ai/gemini"
	"freshloop/internal/core/ai/openrouter"
	"freshloop/internal/core/ai/provider"
	"freshloop/internal/core/ai/queue"
	"freshloop/internal/infrastructure/config"
	"freshloop/internal/infrastructure/metrics"
	"freshloop/internal/pkg/common"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// Service AI 服務
type Service struct {
	provider   provider.Provider
	cache      cache.Store
	queue      *queue.Manager
	timeout    time.Duration
	maxRetries int
	maxTokens  int
	newBackOff func() backoff.BackOff
}

// Option Service 選項
type Option func(*Service)

// WithCache 設定回應快取
func WithCache(store cache.Store) Option {
	return func(s *Service) { s.cache = store }
}

// WithQueue 設定請求隊列
func WithQueue(q *queue.Manager) Option {
	return func(s *Service) { s.queue = q }
}

// WithRetry 設定重試次數與退避策略
func WithRetry(maxRetries int, newBackOff func() backoff.BackOff) Option {
	return func(s *Service) {
		s.maxRetries = maxRetries
		if newBackOff != nil {
			s.newBackOff = newBackOff
		}
	}
}

// WithTimeout 單次呼叫逾時
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithMaxTokens 回應 token 上限
func WithMaxTokens(n int) Option {
	return func(s *Service) { s.maxTokens = n }
}

// NewService 創建 AI 服務
func NewService(p provider.Provider, opts ...Option) *Service {
	s := &Service{
		provider: p,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// New 依設定建立 AI 服務；提供者為 none 或缺少金鑰時回傳 nil
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	var p provider.Provider
	maxTokens := 0
	switch cfg.AI.Provider {
	case config.ProviderOpenRouter:
		if cfg.OpenRouter.APIKey == "" {
			common.LogWarn("未設定 OpenRouter API 金鑰，AI 功能停用")
			return nil, nil
		}
		p = openrouter.NewClient(cfg.OpenRouter, cfg.AI.Timeout)
		maxTokens = cfg.OpenRouter.MaxTokens
	case config.ProviderGemini:
		if cfg.Gemini.APIKey == "" {
			common.LogWarn("未設定 Gemini API 金鑰，AI 功能停用")
			return nil, nil
		}
		g, err := gemini.NewClient(ctx, cfg.Gemini)
		if err != nil {
			return nil, err
		}
		p = g
	default:
		common.LogInfo("AI 提供者未啟用，使用本地邏輯")
		return nil, nil
	}

	opts := []Option{
		WithTimeout(cfg.AI.Timeout),
		WithRetry(cfg.AI.MaxRetries, nil),
		WithMaxTokens(maxTokens),
		WithQueue(queue.NewManager(cfg.Queue)),
	}
	if cfg.AI.EnableCache && cfg.Cache.Enabled {
		opts = append(opts, WithCache(newCache(ctx, cfg)))
	}

	common.LogInfo("AI 服務已初始化",
		zap.String("provider", p.Name()),
		zap.String("model", p.Model()),
	)
	return NewService(p, opts...), nil
}

// newCache Redis 連線失敗時退回記憶體快取
func newCache(ctx context.Context, cfg *config.Config) cache.Store {
	if cfg.Cache.Backend == config.BackendRedis {
		svc, err := cache.NewService(ctx, cfg.Redis, cfg.Cache.TTL)
		if err == nil {
			return svc
		}
		common.LogWarn("Redis 快取不可用，改用記憶體快取", zap.Error(err))
	}
	return cache.NewManager(cfg.Cache)
}

// Name 提供者名稱
func (s *Service) Name() string { return s.provider.Name() }

// Generate 文字生成
func (s *Service) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := s.process(ctx, &provider.Request{Prompt: prompt, MaxTokens: s.maxTokens})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Analyze 圖片分析
func (s *Service) Analyze(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	resp, err := s.process(ctx, &provider.Request{
		Prompt:    prompt,
		Image:     &provider.Image{Data: image, MIMEType: mimeType},
		MaxTokens: s.maxTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// process 統一處理流程：快取 → 隊列 → 重試
func (s *Service) process(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	var image []byte
	if req.Image != nil {
		image = req.Image.Data
	}
	// 統一 prompt 空白，確保快取 key 一致
	key := cache.Key(s.provider.Model(), strings.Join(strings.Fields(req.Prompt), " "), image)

	if s.cache != nil {
		val, err := s.cache.Get(ctx, key)
		switch {
		case err == nil && val != "":
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return &provider.Response{Content: val, Model: s.provider.Model(), CacheHit: true}, nil
		case err != nil && !errors.Is(err, common.ErrCacheMiss):
			common.LogWarn("讀取快取失敗", zap.Error(err))
		}
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	var resp *provider.Response
	var err error
	if s.queue != nil {
		resp, err = s.queue.Do(ctx, func(ctx context.Context) (*provider.Response, error) {
			return s.call(ctx, req)
		})
	} else {
		resp, err = s.call(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, resp.Content); err != nil {
			common.LogWarn("寫入快取失敗", zap.Error(err))
		}
	}
	return resp, nil
}

// call 呼叫提供者；暫時性錯誤以指數退避重試
func (s *Service) call(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	name := s.provider.Name()
	start := time.Now()
	attempt := 0

	resp, err := backoff.Retry(ctx, func() (*provider.Response, error) {
		attempt++
		callCtx := ctx
		if s.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		resp, err := s.provider.Generate(callCtx, req)
		if err == nil {
			return resp, nil
		}
		if !provider.IsTransient(err) {
			return nil, backoff.Permanent(err)
		}
		common.LogDebug("AI 請求暫時失敗", zap.String("provider", name), zap.Int("attempt", attempt), zap.Error(err))
		return nil, err
	},
		backoff.WithBackOff(s.newBackOff()),
		backoff.WithMaxTries(uint(s.maxRetries+1)),
	)

	common.LogAICall(name, time.Since(start), err)
	if err != nil {
		metrics.AIRequests.WithLabelValues(name, "error").Inc()
		if provider.IsTransient(err) || errors.Is(err, context.DeadlineExceeded) {
			return nil, common.ErrAIUnavailable.Wrap(fmt.Errorf("%s after %d attempts: %w", name, attempt, err))
		}
		return nil, err
	}
	metrics.AIRequests.WithLabelValues(name, "ok").Inc()
	return resp, nil
}

// Status 隊列狀態（健康檢查用）
func (s *Service) Status() *queue.Status {
	if s.queue == nil {
		return nil
	}
	return s.queue.GetQueueStatus()
}

// Close 關閉隊列、快取與提供者
func (s *Service) Close() error {
	if s.queue != nil {
		s.queue.Close()
	}
	var errs []error
	if s.cache != nil {
		errs = append(errs, s.cache.Close())
	}
	errs = append(errs, s.provider.Close())
	return errors.Join(errs...)
}
