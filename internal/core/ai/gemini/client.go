// Package gemini Google Gemini 提供者
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"freshloop/internal/core/ai/provider"
	"freshloop/internal/infrastructure/config"
	"freshloop/internal/pkg/common"

	"google.golang.org/genai"
)

// Client Gemini 客戶端
type Client struct {
	genAI *genai.Client
	model string
}

// NewClient 建立 Gemini 客戶端
func NewClient(ctx context.Context, cfg config.GeminiConfig) (*Client, error) {
	genAI, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &Client{genAI: genAI, model: cfg.Model}, nil
}

// Name 實作 provider.Provider
func (c *Client) Name() string { return "gemini" }

// Model 實作 provider.Provider
func (c *Client) Model() string { return c.model }

// Close 實作 provider.Provider
func (c *Client) Close() error { return nil }

// Generate 實作 provider.Provider
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if req.Image != nil && len(req.Image.Data) > 0 {
		mime := req.Image.MIMEType
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts, genai.NewPartFromBytes(req.Image.Data, mime))
	}

	var cfg *genai.GenerateContentConfig
	if req.MaxTokens > 0 {
		cfg = &genai.GenerateContentConfig{MaxOutputTokens: int32(req.MaxTokens)}
	}

	res, err := c.genAI.Models.GenerateContent(ctx, c.model, []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}, cfg)
	if err != nil {
		return nil, classify(err)
	}

	text := res.Text()
	if text == "" {
		return nil, common.ErrAIMalformedResponse.WithMessage(fmt.Sprintf("gemini: unexpected empty response from model %s", c.model))
	}

	out := &provider.Response{Content: text, Model: c.model}
	if u := res.UsageMetadata; u != nil {
		out.Usage = provider.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}

// classify 429 與 5xx 視為可重試
func classify(err error) error {
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	default:
		return &provider.TransientError{Err: fmt.Errorf("gemini: generating content: %w", err)}
	}
	if code == http.StatusTooManyRequests || code >= 500 {
		return &provider.TransientError{Err: fmt.Errorf("gemini: generating content: %w", err)}
	}
	return common.ErrAIUnavailable.Wrap(fmt.Errorf("gemini: generating content: %w", err))
}
