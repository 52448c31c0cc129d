package community

import (
	"context"
	"fmt"
	"strings"
	"time"

	"freshloop/internal/core/strategy"
	"freshloop/internal/pkg/common"
)

const (
	defaultRecipeName = "my recipe"
	helpImage         = "🔍"
	helpQty           = "Any amount"
)

// HelpRequest 向鄰居求助缺少的食材
type HelpRequest struct {
	RecipeName      string   `json:"recipe_name"`
	NeedIngredient  string   `json:"need_ingredient"`
	HaveIngredients []string `json:"have_ingredients"`
}

// Validate 檢查必要欄位
func (r HelpRequest) Validate() error {
	if strings.TrimSpace(r.NeedIngredient) == "" {
		return common.NewValidationError("need_ingredient is required")
	}
	return nil
}

func (r HelpRequest) recipeName() string {
	if name := strings.TrimSpace(strings.ReplaceAll(r.RecipeName, "**", "")); name != "" {
		return name
	}
	return defaultRecipeName
}

// HelpMessage 產生的求助訊息
type HelpMessage struct {
	Message     string      `json:"message"`
	RequestData HelpRequest `json:"request_data"`
	GeneratedAt time.Time   `json:"generated_at"`
	Source      string      `json:"source"`
}

// TemplateMessage 不經 AI 的求助訊息
func TemplateMessage(r HelpRequest) string {
	need := strings.TrimSpace(r.NeedIngredient)
	if len(r.HaveIngredients) == 0 {
		return fmt.Sprintf("Hi! I need %s for my recipe. Can anyone help?", need)
	}
	return fmt.Sprintf("Hi! I'm making %s and I need %s. I already have %s. Could anyone help me out? Thanks!",
		r.recipeName(), need, strings.Join(r.HaveIngredients, ", "))
}

func helpPrompt(r HelpRequest) string {
	have := "no ingredients yet"
	if len(r.HaveIngredients) > 0 {
		have = strings.Join(r.HaveIngredients, ", ")
	}
	return fmt.Sprintf(`You are a friendly community cooking assistant.
Generate a short, warm and polite help message for a neighborhood food-sharing app.
Keep it under 15 words. Sound human. No emojis. Only return the message text.

Recipe I'm making: %s
Ingredient I need: %s
What I already have: %s`, r.recipeName(), strings.TrimSpace(r.NeedIngredient), have)
}

// cleanMessage 去除模型常加的引號
func cleanMessage(s string) string {
	s = strings.TrimSpace(s)
	for _, q := range []string{`"`, `'`} {
		if len(s) >= 2 && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}

// PostHelpInput 將求助訊息發佈為 wanting 貼文
type PostHelpInput struct {
	Message        string `json:"message"`
	NeedIngredient string `json:"need_ingredient"`
	Quantity       string `json:"quantity"`
	Unit           string `json:"unit"`
	Author         string `json:"author"`
}

// FromHelpRequest 求助貼文的內容
func FromHelpRequest(in PostHelpInput) NewPostInput {
	item := strings.Join(strings.Fields(strings.Join([]string{in.Quantity, in.Unit, in.NeedIngredient}, " ")), " ")
	qty := strings.TrimSpace(in.Quantity)
	if qty == "" {
		qty = helpQty
	}
	return NewPostInput{
		Type:     PostWanting,
		Author:   in.Author,
		Location: DefaultLocation,
		Text:     strings.TrimSpace(in.Message),
		Items:    []string{item},
		Images:   []string{helpImage},
		Qty:      qty,
	}
}

// HelpService 求助訊息：AI 產生，失敗時使用範本
type HelpService struct {
	tier  *strategy.TwoTier[HelpRequest, HelpMessage]
	board *Board
}

// NewHelpService gen 為 nil 時只用範本
func NewHelpService(gen Generator, board *Board) *HelpService {
	var primary strategy.Resolver[HelpRequest, HelpMessage]
	if gen != nil {
		primary = strategy.Func[HelpRequest, HelpMessage](func(ctx context.Context, r HelpRequest) (HelpMessage, error) {
			content, err := gen.Generate(ctx, helpPrompt(r))
			if err != nil {
				return HelpMessage{}, err
			}
			msg := cleanMessage(content)
			if msg == "" {
				return HelpMessage{}, common.ErrAIMalformedResponse.WithMessage("AI returned an empty message")
			}
			return HelpMessage{Message: msg, RequestData: r, GeneratedAt: time.Now(), Source: SourceAI}, nil
		})
	}
	fallback := strategy.Func[HelpRequest, HelpMessage](func(_ context.Context, r HelpRequest) (HelpMessage, error) {
		return HelpMessage{Message: TemplateMessage(r), RequestData: r, GeneratedAt: time.Now(), Source: SourceLocal}, nil
	})
	return &HelpService{
		tier:  strategy.NewTwoTier[HelpRequest, HelpMessage]("help_message", primary, fallback),
		board: board,
	}
}

// Generate 產生求助訊息
func (s *HelpService) Generate(ctx context.Context, r HelpRequest) (HelpMessage, error) {
	if err := r.Validate(); err != nil {
		return HelpMessage{}, err
	}
	return s.tier.Resolve(ctx, r)
}

// Post 將求助訊息發佈到貼文板
func (s *HelpService) Post(ctx context.Context, in PostHelpInput) (Post, error) {
	if strings.TrimSpace(in.Message) == "" {
		return Post{}, common.NewValidationError("message is required")
	}
	if strings.TrimSpace(in.NeedIngredient) == "" {
		return Post{}, common.NewValidationError("need_ingredient is required")
	}
	return s.board.Create(ctx, FromHelpRequest(in))
}
