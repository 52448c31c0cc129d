package provider

import (
	"context"
	"errors"
)

// Image 隨請求送出的圖片
type Image struct {
	Data     []byte
	MIMEType string
}

// Request 表示發送到 AI 提供者的請求
type Request struct {
	Prompt    string
	Image     *Image
	MaxTokens int
}

// Usage 使用量
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response 表示從 AI 提供者收到的響應
type Response struct {
	Content  string `json:"content"`
	Model    string `json:"model"`
	Usage    Usage  `json:"usage"`
	CacheHit bool   `json:"cache_hit"`
}

// Provider 定義 AI 提供者介面
type Provider interface {
	// Name 提供者名稱（日誌與指標用）
	Name() string

	// Generate 生成 AI 響應
	Generate(ctx context.Context, req *Request) (*Response, error)

	// Model 當前使用的模型名稱
	Model() string

	// Close 關閉提供者連接
	Close() error
}

// TransientError 可重試的錯誤（逾時、5xx、429）
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }

// Unwrap 回傳原始錯誤
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient 是否值得重試
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}
