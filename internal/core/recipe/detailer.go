package recipe

import (
	"context"
	"fmt"
	"strings"

	"freshloop/internal/core/strategy"
	"freshloop/internal/pkg/common"
)

// DetailRequest 詳細食譜請求
type DetailRequest struct {
	DishName string
	Tags     []string
}

// RemoteDetailer 請 AI 產生 markdown 詳細食譜
type RemoteDetailer struct {
	gen Generator
}

// Resolve 實作 strategy.Resolver
func (r *RemoteDetailer) Resolve(ctx context.Context, req DetailRequest) (Detail, error) {
	content, err := r.gen.Generate(ctx, detailPrompt(req))
	if err != nil {
		return Detail{}, err
	}
	if !strings.Contains(strings.ToUpper(content), ingredientsHeader) {
		return Detail{}, common.ErrAIMalformedResponse.WithMessage("recipe is missing the ingredients section")
	}
	d := ParseDetail(req.DishName, content, req.Tags)
	d.Source = SourceAI
	return d, nil
}

func detailPrompt(req DetailRequest) string {
	return fmt.Sprintf(`Write a recipe for "%s" for a home cook who has: %s.
Use exactly this markdown layout:
### INGREDIENTS NEEDED:
* quantity unit ingredient (preparation)
### COOKING STEPS:
1. step
Keep it under 10 steps.`, req.DishName, strings.Join(req.Tags, ", "))
}

// LocalDetailer 以內建目錄產生詳細食譜
type LocalDetailer struct{}

// Resolve 實作 strategy.Resolver
func (LocalDetailer) Resolve(_ context.Context, req DetailRequest) (Detail, error) {
	r, ok := FindByTitle(req.DishName)
	if !ok {
		return Detail{}, common.ErrNotFound.WithMessage(fmt.Sprintf("recipe %q not found", req.DishName))
	}
	d := ParseDetail(r.Title, RenderMarkdown(r), req.Tags)
	d.Source = SourceLocal
	return d, nil
}

// Detailer 詳細食譜入口：AI 優先，失敗改用內建目錄
type Detailer struct {
	tier *strategy.TwoTier[DetailRequest, Detail]
}

// NewDetailer gen 為 nil 時只使用內建目錄
func NewDetailer(gen Generator) *Detailer {
	var primary strategy.Resolver[DetailRequest, Detail]
	if gen != nil {
		primary = &RemoteDetailer{gen: gen}
	}
	return &Detailer{tier: strategy.NewTwoTier[DetailRequest, Detail]("recipe_detail", primary, LocalDetailer{})}
}

// Detail 取得詳細食譜
func (d *Detailer) Detail(ctx context.Context, req DetailRequest) (Detail, error) {
	if strings.TrimSpace(req.DishName) == "" {
		return Detail{}, common.NewValidationError("dish_name is required")
	}
	return d.tier.Resolve(ctx, req)
}
