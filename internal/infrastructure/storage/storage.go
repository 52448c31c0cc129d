// Package storage 不透明的鍵值儲存：貼文清單以單一 JSON 值存放
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"freshloop/internal/infrastructure/config"
	"freshloop/internal/pkg/common"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// ErrNotFound 鍵不存在
var ErrNotFound = errors.New("storage: key not found")

// KV 鍵值儲存
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Ping(ctx context.Context) error
	Close() error
}

// Memory 行程內儲存，重啟後資料消失
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory 建立記憶體儲存
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Get 實作 KV
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set 實作 KV
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// Ping 實作 KV
func (m *Memory) Ping(context.Context) error { return nil }

// Close 實作 KV
func (m *Memory) Close() error { return nil }

// Open 依設定建立儲存後端；遠端後端連線失敗時以指數退避重試
func Open(ctx context.Context, cfg *config.Config) (KV, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory, "":
		return NewMemory(), nil
	case config.BackendRedis:
		return connect(ctx, "redis", func() (KV, error) {
			return NewRedis(ctx, cfg.Redis)
		})
	case config.BackendSQLite:
		return connect(ctx, "sqlite", func() (KV, error) {
			return NewSQLite(cfg.Storage.SQLitePath)
		})
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

func connect(ctx context.Context, name string, open func() (KV, error)) (KV, error) {
	start := time.Now()
	kv, err := backoff.Retry(ctx, func() (KV, error) {
		kv, err := open()
		if err != nil {
			common.LogWarn("儲存後端連線失敗，稍後重試",
				zap.String("backend", name),
				zap.Error(err),
			)
			return nil, err
		}
		return kv, nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(15*time.Second),
	)
	if err != nil {
		return nil, common.ErrStorage.Wrap(err)
	}
	common.LogInfo("儲存後端已連線",
		zap.String("backend", name),
		zap.Duration("耗時", time.Since(start)),
	)
	return kv, nil
}
