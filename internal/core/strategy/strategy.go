// Package strategy 遠端優先、本地備援的二段式解析
//
// 呼叫端只透過 TwoTier 決定要用哪一層，不在各處散落 try/fallback。
package strategy

import (
	"context"
	"errors"

	"freshloop/internal/infrastructure/metrics"
	"freshloop/internal/pkg/common"

	"go.uber.org/zap"
)

// ErrNoResolver 兩層都沒有設定
var ErrNoResolver = errors.New("strategy: no resolver configured")

// Resolver 由輸入產生結果
type Resolver[In, Out any] interface {
	Resolve(ctx context.Context, in In) (Out, error)
}

// Func 將函式轉為 Resolver
type Func[In, Out any] func(ctx context.Context, in In) (Out, error)

// Resolve 實作 Resolver
func (f Func[In, Out]) Resolve(ctx context.Context, in In) (Out, error) {
	return f(ctx, in)
}

// TwoTier 先呼叫 primary，失敗時改用 fallback
type TwoTier[In, Out any] struct {
	name     string
	primary  Resolver[In, Out]
	fallback Resolver[In, Out]
}

// NewTwoTier 建立二段式解析器；primary 為 nil 時直接使用 fallback
func NewTwoTier[In, Out any](name string, primary, fallback Resolver[In, Out]) *TwoTier[In, Out] {
	return &TwoTier[In, Out]{name: name, primary: primary, fallback: fallback}
}

// Resolve 實作 Resolver
func (t *TwoTier[In, Out]) Resolve(ctx context.Context, in In) (Out, error) {
	if t.primary != nil {
		out, err := t.primary.Resolve(ctx, in)
		if err == nil {
			return out, nil
		}
		if t.fallback == nil {
			return out, err
		}
		common.LogWarn("遠端解析失敗，改用本地備援",
			zap.String("component", t.name),
			zap.Error(err),
		)
		metrics.FallbackTotal.WithLabelValues(t.name).Inc()
	}
	if t.fallback == nil {
		var zero Out
		return zero, ErrNoResolver
	}
	return t.fallback.Resolve(ctx, in)
}
