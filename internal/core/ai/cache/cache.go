// Package cache AI 回應快取
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Store 快取後端
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Key 由 prompt 與圖片內容生成緩存鍵
func Key(model, prompt string, image []byte) string {
	if len(image) == 0 {
		return fmt.Sprintf("ai:text:%s:%s", model, hashBytes([]byte(prompt)))
	}
	return fmt.Sprintf("ai:multimodal:%s:%s:%s", model, hashBytes([]byte(prompt)), hashBytes(image))
}

// hashBytes 計算 SHA-256 哈希值
func hashBytes(b []byte) string {
	hash := sha256.Sum256(b)
	return hex.EncodeToString(hash[:])
}
