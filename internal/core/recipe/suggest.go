package recipe

import (
	"context"
	"fmt"
	"strings"

	"freshloop/internal/core/strategy"
	"freshloop/internal/pkg/common"

	"go.uber.org/zap"
)

// 結果來源
const (
	SourceAI    = "ai"
	SourceLocal = "local"
)

// AI 推薦食譜的固定欄位
const (
	aiRecipeTime       = "25-30 min"
	aiRecipeServings   = "2-4"
	aiRecipeDifficulty = "Medium"
	aiRecipeCalories   = "350"
	aiRecipeScore      = 10
)

var aiRecipeBadges = []string{"AI-Generated", "Fresh Ingredients"}

// Generator AI 文字生成
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// SuggestRequest 推薦請求
type SuggestRequest struct {
	Tags    []string
	Filters []DietFilter
}

// Suggestion 推薦結果
type Suggestion struct {
	Recipes         []ScoredRecipe `json:"recipes"`
	SuggestedDishes []string       `json:"suggested_dishes"`
	RawResponse     string         `json:"raw_response,omitempty"`
	Source          string         `json:"source"`
}

// LocalSuggester 以內建目錄評分
type LocalSuggester struct {
	recipes []Recipe
}

// NewLocalSuggester 建立本地推薦器
func NewLocalSuggester(recipes []Recipe) *LocalSuggester {
	return &LocalSuggester{recipes: recipes}
}

// Resolve 實作 strategy.Resolver
func (l *LocalSuggester) Resolve(_ context.Context, req SuggestRequest) (Suggestion, error) {
	scored := Score(l.recipes, req.Tags, req.Filters)
	dishes := make([]string, 0, len(scored))
	for _, r := range scored {
		dishes = append(dishes, r.Title)
	}
	return Suggestion{Recipes: scored, SuggestedDishes: dishes, Source: SourceLocal}, nil
}

// RemoteSuggester 請 AI 推薦菜名
type RemoteSuggester struct {
	gen Generator
}

// NewRemoteSuggester 建立 AI 推薦器
func NewRemoteSuggester(gen Generator) *RemoteSuggester {
	return &RemoteSuggester{gen: gen}
}

type dishList struct {
	Dishes []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"dishes"`
}

// Resolve 實作 strategy.Resolver
func (r *RemoteSuggester) Resolve(ctx context.Context, req SuggestRequest) (Suggestion, error) {
	content, err := r.gen.Generate(ctx, suggestPrompt(req))
	if err != nil {
		return Suggestion{}, err
	}

	var list dishList
	if err := common.ParseModelJSON(content, &list); err != nil {
		return Suggestion{}, err
	}

	out := Suggestion{Recipes: []ScoredRecipe{}, RawResponse: content, Source: SourceAI}
	for _, d := range list.Dishes {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			continue
		}
		out.SuggestedDishes = append(out.SuggestedDishes, name)

		sr := aiRecipe(name, d.Description, req.Tags)
		if !FiltersOK(sr.Recipe, req.Filters) {
			continue
		}
		if len(out.Recipes) < TopN {
			out.Recipes = append(out.Recipes, sr)
		}
	}
	if len(out.SuggestedDishes) == 0 {
		return Suggestion{}, common.ErrAIMalformedResponse.WithMessage("AI returned no dishes")
	}
	return out, nil
}

func aiRecipe(name, description string, tags []string) ScoredRecipe {
	if strings.TrimSpace(description) == "" {
		description = "AI-suggested recipe using your ingredients."
	}
	return ScoredRecipe{
		Recipe: Recipe{
			ID:              "ai-" + slug(name),
			Title:           name,
			Description:     strings.TrimSpace(description),
			Time:            aiRecipeTime,
			Servings:        aiRecipeServings,
			Difficulty:      aiRecipeDifficulty,
			Calories:        aiRecipeCalories,
			Badges:          append([]string(nil), aiRecipeBadges...),
			UsedIngredients: append([]string(nil), tags...),
		},
		Score:         aiRecipeScore,
		MatchedCount:  len(tags),
		IsAIGenerated: true,
	}
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
		} else if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func suggestPrompt(req SuggestRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I have these ingredients: %s.\n", strings.Join(req.Tags, ", "))
	if len(req.Filters) > 0 {
		names := make([]string, len(req.Filters))
		for i, f := range req.Filters {
			names[i] = string(f)
		}
		fmt.Fprintf(&b, "Dietary preferences: %s.\n", strings.Join(names, ", "))
	}
	b.WriteString("Suggest 3 to 5 simple home-cooked dishes that use mostly these ingredients. ")
	b.WriteString(`Respond with JSON only, no markdown: {"dishes":[{"name":"Dish name","description":"one sentence"}]}`)
	return b.String()
}

// Suggester 推薦入口：AI 優先，失敗改用內建目錄
type Suggester struct {
	tier *strategy.TwoTier[SuggestRequest, Suggestion]
}

// NewSuggester gen 為 nil 時只使用內建目錄
func NewSuggester(gen Generator, recipes []Recipe) *Suggester {
	var primary strategy.Resolver[SuggestRequest, Suggestion]
	if gen != nil {
		primary = NewRemoteSuggester(gen)
	}
	return &Suggester{
		tier: strategy.NewTwoTier[SuggestRequest, Suggestion]("recipe_suggest", primary, NewLocalSuggester(recipes)),
	}
}

// Suggest 沒有任何食材時不做事，回傳空結果
func (s *Suggester) Suggest(ctx context.Context, req SuggestRequest) (Suggestion, error) {
	if len(req.Tags) == 0 {
		common.LogDebug("沒有食材，略過推薦")
		return Suggestion{Recipes: []ScoredRecipe{}, SuggestedDishes: []string{}, Source: SourceLocal}, nil
	}
	out, err := s.tier.Resolve(ctx, req)
	if err != nil {
		return Suggestion{}, err
	}
	common.LogInfo("食譜推薦完成",
		zap.String("source", out.Source),
		zap.Int("tags", len(req.Tags)),
		zap.Int("results", len(out.Recipes)),
	)
	return out, nil
}
