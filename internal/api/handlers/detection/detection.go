// Package detection 相機偵測結果的 HTTP 處理器
package detection

import (
	"errors"
	"io"
	"net/http"

	"freshloop/internal/api/handlers"
	"freshloop/internal/core/community"
	detectionService "freshloop/internal/core/detection"
	"freshloop/internal/core/image"
	"freshloop/internal/core/recipe"
	"freshloop/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// imageField 上傳表單欄位
const imageField = "image"

// Handler 偵測處理程序
type Handler struct {
	detections *detectionService.Service
	images     *image.Service
	board      *community.Board
	suggester  *recipe.Suggester
	debug      bool
}

// NewHandler 創建偵測處理程序
func NewHandler(detections *detectionService.Service, images *image.Service, board *community.Board, suggester *recipe.Suggester, debug bool) *Handler {
	return &Handler{detections: detections, images: images, board: board, suggester: suggester, debug: debug}
}

// AnalyzeImage 分析上傳的圖片
func (h *Handler) AnalyzeImage(c *gin.Context) {
	results, err := h.analyze(c)
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(results),
		"results": results,
	})
}

// AnalyzeAndSuggest 分析圖片後以可用的食材推薦食譜
func (h *Handler) AnalyzeAndSuggest(c *gin.Context) {
	results, err := h.analyze(c)
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}

	session := recipe.NewSession(detectionService.UsableNames(results), c.QueryArray("filter"))
	if len(session.Tags) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"success":           true,
			"message":           "No suitable ingredients found for cooking",
			"detections":        results,
			"fresh_ingredients": []string{},
			"recipes":           []recipe.ScoredRecipe{},
			"suggested_dishes":  []string{},
		})
		return
	}

	out, err := h.suggester.Suggest(c.Request.Context(), recipe.SuggestRequest{
		Tags:    session.Tags,
		Filters: session.Filters,
	})
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"detections":        results,
		"fresh_ingredients": session.Tags,
		"recipes":           out.Recipes,
		"suggested_dishes":  out.SuggestedDishes,
		"source":            out.Source,
	})
}

// analyze 讀取、轉檔並送交 AI 分析
func (h *Handler) analyze(c *gin.Context) ([]detectionService.Result, error) {
	data, err := h.readImage(c)
	if err != nil {
		return nil, err
	}

	common.LogInfo("開始分析圖片",
		zap.String("request_id", requestid.Get(c)),
		zap.Int("size", len(data)),
	)

	processed, err := h.images.Process(data)
	if err != nil {
		return nil, err
	}
	return h.detections.Analyze(c.Request.Context(), processed, image.JPEGMIMEType)
}

// readImage 支援 multipart 檔案或 JSON {"image": "data:image/..."}
func (h *Handler) readImage(c *gin.Context) ([]byte, error) {
	if file, err := c.FormFile(imageField); err == nil {
		f, err := file.Open()
		if err != nil {
			return nil, common.ErrInvalidImageFormat.Wrap(err)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, common.ErrInvalidImageFormat.Wrap(err)
		}
		return data, nil
	} else if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		return nil, common.NewValidationError("invalid multipart form: " + err.Error())
	}

	var body struct {
		Image string `json:"image"`
	}
	if err := handlers.BindJSON(c, &body); err != nil {
		return nil, err
	}
	if body.Image == "" {
		return nil, common.NewValidationError("no image provided")
	}
	data, err := h.images.DecodeDataURI(body.Image)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Results 最近的偵測結果
func (h *Handler) Results(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"results": h.detections.Latest(),
	})
}

// TestDetection 加入一筆示範結果
func (h *Handler) TestDetection(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  h.detections.TestDetection(c.Request.Context()),
	})
}

// Clear 清空偵測結果
func (h *Handler) Clear(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"cleared": h.detections.Clear(),
	})
}

// Share 將偵測結果分享到社區
func (h *Handler) Share(c *gin.Context) {
	r, ok := h.detections.Get(c.Param("id"))
	if !ok {
		handlers.RespondError(c, common.ErrNotFound.WithMessage("detection not found"), h.debug)
		return
	}

	post, err := h.board.Create(c.Request.Context(), community.FromDetection(r.Name, community.DetectionRef{
		Quality:    r.Quality,
		Quantity:   r.Quantity,
		Condition:  r.Condition,
		Safe:       r.Safe,
		Confidence: r.Confidence,
		Timestamp:  r.Timestamp,
	}))
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "post": post})
}

// TextToSpeech 語音合成不在服務範圍
func (h *Handler) TextToSpeech(c *gin.Context) {
	handlers.RespondError(c, common.ErrNotImplemented.WithMessage("text-to-speech is not supported"), h.debug)
}
