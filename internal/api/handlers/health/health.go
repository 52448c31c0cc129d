// Package health 健康、就緒與存活檢查
package health

import (
	"context"
	"net/http"
	"runtime"
	"sync"
	"time"

	"freshloop/internal/core/ai/queue"
	"freshloop/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Check 就緒檢查項目
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	AI        string                 `json:"ai_provider"`
	Runtime   map[string]interface{} `json:"runtime"`
	Queue     *queue.Status          `json:"queue,omitempty"`
}

// Handler 健康檢查處理器
type Handler struct {
	version string
	ai      string
	queue   func() *queue.Status
	checks  []Check
	timeout time.Duration
}

// NewHandler ai 為空字串表示未啟用 AI；queueStatus 可為 nil
func NewHandler(version, ai string, queueStatus func() *queue.Status, checks ...Check) *Handler {
	if ai == "" {
		ai = "none"
	}
	return &Handler{
		version: version,
		ai:      ai,
		queue:   queueStatus,
		checks:  checks,
		timeout: 3 * time.Second,
	}
}

// HealthCheck 健康檢查處理器
func (h *Handler) HealthCheck(c *gin.Context) {
	// 獲取運行時信息
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.version,
		AI:        h.ai,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}
	if h.queue != nil {
		response.Queue = h.queue()
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 並行檢查所有依賴
func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	var mu sync.Mutex
	results := make(map[string]string, len(h.checks))
	g, gctx := errgroup.WithContext(ctx)
	for _, check := range h.checks {
		g.Go(func() error {
			err := check.Ping(gctx)
			status := "ok"
			if err != nil {
				status = err.Error()
			}
			mu.Lock()
			results[check.Name] = status
			mu.Unlock()
			return err
		})
	}

	if err := g.Wait(); err != nil {
		common.LogWarn("就緒檢查失敗", zap.Error(err), zap.Any("checks", results))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"checks": results,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"checks": results,
	})
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
