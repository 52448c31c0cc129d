// Package recipe 食譜推薦、詳細食譜與食材解析的 HTTP 處理器
package recipe

import (
	"net/http"
	"strings"

	"freshloop/internal/api/handlers"
	"freshloop/internal/core/ingredient"
	recipeService "freshloop/internal/core/recipe"
	"freshloop/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SuggestRequest 依現有食材推薦食譜
type SuggestRequest struct {
	Ingredients []string `json:"ingredients"`
	Filters     []string `json:"filters"`
}

// SuggestResponse 推薦結果
type SuggestResponse struct {
	Success bool `json:"success"`
	recipeService.Suggestion
}

// GetRecipeRequest 取得詳細食譜
type GetRecipeRequest struct {
	DishName    string   `json:"dish_name"`
	Ingredients []string `json:"ingredients"`
}

// GetRecipeResponse 詳細食譜；recipe 欄位為 markdown
type GetRecipeResponse struct {
	Success bool `json:"success"`
	recipeService.Detail
}

// ParseRequest 解析單行食材
type ParseRequest struct {
	Text string   `json:"text"`
	Tags []string `json:"tags"`
}

// AvailabilityRequest 檢查食材清單的可用性
type AvailabilityRequest struct {
	Ingredients []string `json:"ingredients"`
	Tags        []string `json:"tags"`
}

// Handler 食譜處理程序
type Handler struct {
	suggester *recipeService.Suggester
	detailer  *recipeService.Detailer
	debug     bool
}

// NewHandler 創建新的食譜處理程序
func NewHandler(suggester *recipeService.Suggester, detailer *recipeService.Detailer, debug bool) *Handler {
	return &Handler{suggester: suggester, detailer: detailer, debug: debug}
}

// ListRecipes 內建食譜目錄
func (h *Handler) ListRecipes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"recipes":           recipeService.Catalog(),
		"filters":           recipeService.FilterOptions,
		"quick_ingredients": recipeService.QuickAddIngredients,
	})
}

// SuggestRecipes 推薦食譜（AI 優先，失敗時使用內建目錄）
func (h *Handler) SuggestRecipes(c *gin.Context) {
	var req SuggestRequest
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}

	// 標籤經過正規化與去重
	session := recipeService.NewSession(req.Ingredients, req.Filters)
	if len(session.Tags) == 0 {
		handlers.RespondError(c, common.ErrNoIngredients, h.debug)
		return
	}

	common.LogInfo("開始處理食譜推薦請求",
		zap.String("request_id", requestid.Get(c)),
		zap.Strings("ingredients", session.Tags),
		zap.Int("filters", len(session.Filters)),
	)

	out, err := h.suggester.Suggest(c.Request.Context(), recipeService.SuggestRequest{
		Tags:    session.Tags,
		Filters: session.Filters,
	})
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	c.JSON(http.StatusOK, SuggestResponse{Success: true, Suggestion: out})
}

// GetRecipe 取得詳細食譜
func (h *Handler) GetRecipe(c *gin.Context) {
	var req GetRecipeRequest
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}

	tags := ingredient.NewTagSet(req.Ingredients...).Tags()
	detail, err := h.detailer.Detail(c.Request.Context(), recipeService.DetailRequest{
		DishName: strings.TrimSpace(req.DishName),
		Tags:     tags,
	})
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	c.JSON(http.StatusOK, GetRecipeResponse{Success: true, Detail: detail})
}

// ParseIngredient 解析一行食材描述
func (h *Handler) ParseIngredient(c *gin.Context) {
	var req ParseRequest
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		handlers.RespondError(c, common.NewValidationError("text is required"), h.debug)
		return
	}

	parsed := ingredient.Parse(req.Text)
	parsed.IsFromUserInput = ingredient.FromUserInput(parsed, req.Tags)
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"ingredient": parsed,
		"valid":      parsed.Name != "",
		"available":  ingredient.IsAvailable(req.Text, req.Tags),
	})
}

// CheckAvailability 將食材分為已有與需額外準備
func (h *Handler) CheckAvailability(c *gin.Context) {
	var req AvailabilityRequest
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"availability": ingredient.Bucket(req.Ingredients, req.Tags),
	})
}
