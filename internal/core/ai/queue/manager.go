// Package queue AI 請求隊列與工作池
package queue

import (
	"context"
	"sync"
	"sync/atomic"

	"freshloop/internal/core/ai/provider"
	"freshloop/internal/infrastructure/config"
	"freshloop/internal/infrastructure/metrics"
	"freshloop/internal/pkg/common"

	"go.uber.org/zap"
)

// Job 在工作者上執行的 AI 呼叫
type Job func(ctx context.Context) (*provider.Response, error)

// request 隊列請求
type request struct {
	ctx    context.Context
	job    Job
	result chan result
}

// result 處理結果
type result struct {
	response *provider.Response
	err      error
}

// Status 隊列狀態
type Status struct {
	QueueLength    int   `json:"queue_length"`
	ProcessedCount int64 `json:"processed_count"`
	MaxQueueSize   int   `json:"max_queue_size"`
	Workers        int   `json:"workers"`
}

// Manager 隊列管理器
type Manager struct {
	workers   int
	maxSize   int
	queue     chan *request
	done      chan struct{}
	processed int64
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewManager 創建新的隊列管理器並啟動工作者
func NewManager(cfg config.QueueConfig) *Manager {
	m := &Manager{
		workers: cfg.Workers,
		maxSize: cfg.MaxSize,
		queue:   make(chan *request, cfg.MaxSize),
		done:    make(chan struct{}),
	}
	for i := 0; i < m.workers; i++ {
		m.wg.Add(1)
		go m.work(i)
	}
	common.LogInfo("AI 請求隊列已啟動",
		zap.Int("workers", m.workers),
		zap.Int("max_queue_size", m.maxSize),
	)
	return m
}

// Do 將工作加入隊列並等待結果；隊列已滿時立即回傳 ErrServiceUnavailable
func (m *Manager) Do(ctx context.Context, job Job) (*provider.Response, error) {
	req := &request{ctx: ctx, job: job, result: make(chan result, 1)}

	select {
	case <-m.done:
		return nil, common.ErrServiceUnavailable.WithMessage("queue manager is closed")
	default:
	}

	select {
	case m.queue <- req:
		metrics.QueueDepth.Set(float64(len(m.queue)))
		common.LogDebug("Request enqueued",
			zap.Int("queue_length", len(m.queue)),
			zap.Int("max_queue_size", m.maxSize),
		)
	default:
		common.LogWarn("AI 請求隊列已滿", zap.Int("max_queue_size", m.maxSize))
		return nil, common.ErrServiceUnavailable.WithMessage("queue is full")
	}

	select {
	case res := <-req.result:
		return res.response, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// work 工作者迴圈
func (m *Manager) work(id int) {
	defer m.wg.Done()
	for {
		select {
		case req := <-m.queue:
			metrics.QueueDepth.Set(float64(len(m.queue)))
			if err := req.ctx.Err(); err != nil {
				req.result <- result{err: err}
				continue
			}
			resp, err := req.job(req.ctx)
			atomic.AddInt64(&m.processed, 1)
			req.result <- result{response: resp, err: err}
		case <-m.done:
			common.LogDebug("AI 工作者已停止", zap.Int("worker", id))
			return
		}
	}
}

// GetQueueStatus 獲取隊列狀態
func (m *Manager) GetQueueStatus() *Status {
	return &Status{
		QueueLength:    len(m.queue),
		ProcessedCount: atomic.LoadInt64(&m.processed),
		MaxQueueSize:   m.maxSize,
		Workers:        m.workers,
	}
}

// Close 關閉隊列管理器並等待工作者結束
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
		m.wg.Wait()
	})
}
