// Package community 社區貼文、配對與求助訊息的 HTTP 處理器
package community

import (
	"context"
	"net/http"
	"strconv"

	"freshloop/internal/api/handlers"
	communityService "freshloop/internal/core/community"
	"freshloop/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DraftRequest 留言草稿
type DraftRequest struct {
	Draft string `json:"draft"`
}

// CommentRequest 送出留言；author 可省略
type CommentRequest struct {
	Author string `json:"author"`
}

// MatchRequest 配對請求；posts 省略時使用貼文板
type MatchRequest struct {
	Posts []communityService.Post `json:"posts"`
}

// SingleMatchRequest 單一需求配對
type SingleMatchRequest struct {
	RequestPostID int64 `json:"request_post_id"`
}

// Handler 社區處理程序
type Handler struct {
	board   *communityService.Board
	matcher *communityService.Matcher
	help    *communityService.HelpService
	debug   bool
}

// NewHandler 創建社區處理程序
func NewHandler(board *communityService.Board, matcher *communityService.Matcher, help *communityService.HelpService, debug bool) *Handler {
	return &Handler{board: board, matcher: matcher, help: help, debug: debug}
}

// ListPosts 依篩選列出貼文
func (h *Handler) ListPosts(c *gin.Context) {
	filter, err := communityService.ParseFilter(c.Query("filter"))
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	posts := h.board.Posts(filter)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"filter":  filter,
		"count":   len(posts),
		"posts":   posts,
	})
}

// CreatePost 發佈貼文
func (h *Handler) CreatePost(c *gin.Context) {
	var in communityService.NewPostInput
	if err := handlers.BindJSON(c, &in); err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	post, err := h.board.Create(c.Request.Context(), in)
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	common.LogInfo("貼文已建立",
		zap.Int64("id", post.ID),
		zap.String("type", string(post.Type)),
		zap.String("request_id", requestid.Get(c)),
	)
	c.JSON(http.StatusCreated, gin.H{"success": true, "post": post})
}

// ToggleLike 按讚 / 取消
func (h *Handler) ToggleLike(c *gin.Context) {
	h.mutate(c, h.board.ToggleLike)
}

// Claim 認領
func (h *Handler) Claim(c *gin.Context) {
	h.mutate(c, h.board.Claim)
}

// ToggleComments 展開 / 收合留言
func (h *Handler) ToggleComments(c *gin.Context) {
	h.mutate(c, h.board.ToggleComments)
}

// SetDraft 更新留言草稿
func (h *Handler) SetDraft(c *gin.Context) {
	var req DraftRequest
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	h.mutate(c, func(ctx context.Context, id int64) (communityService.Post, error) {
		return h.board.SetDraft(ctx, id, req.Draft)
	})
}

// AddComment 送出草稿成為留言
func (h *Handler) AddComment(c *gin.Context) {
	var req CommentRequest
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	h.mutate(c, func(ctx context.Context, id int64) (communityService.Post, error) {
		return h.board.AddComment(ctx, id, req.Author)
	})
}

// mutate 解析路徑 id 並套用貼文變更
func (h *Handler) mutate(c *gin.Context, fn func(ctx context.Context, id int64) (communityService.Post, error)) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		handlers.RespondError(c, common.NewValidationError("invalid post id"), h.debug)
		return
	}
	post, err := fn(c.Request.Context(), id)
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "post": post})
}

// MatchIngredients 配對供需貼文
func (h *Handler) MatchIngredients(c *gin.Context) {
	var req MatchRequest
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	posts := req.Posts
	if posts == nil {
		posts = h.board.Posts(communityService.FilterAll)
	}

	res, err := h.matcher.Match(c.Request.Context(), posts)
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"matches": res.Matches,
		"stats":   res.Stats,
		"source":  res.Source,
	})
}

// LastMatches 最後一次成功的配對
func (h *Handler) LastMatches(c *gin.Context) {
	res, ok := h.matcher.Last()
	if !ok {
		handlers.RespondError(c, common.ErrNotFound.WithMessage("no matches computed yet"), h.debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"matches": res.Matches,
		"stats":   res.Stats,
		"source":  res.Source,
	})
}

// MatchSingleRequest 替一篇 wanting 貼文找供給
func (h *Handler) MatchSingleRequest(c *gin.Context) {
	var req SingleMatchRequest
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	if req.RequestPostID == 0 {
		handlers.RespondError(c, common.NewValidationError("request_post_id is required"), h.debug)
		return
	}

	res, err := h.matcher.MatchOne(c.Request.Context(), h.board.Posts(communityService.FilterAll), req.RequestPostID)
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"request_post_id": res.RequestPostID,
		"matches":         res.Matches,
		"source":          res.Source,
		"stats": gin.H{
			"total_matches":    len(res.Matches),
			"available_offers": res.AvailableOffers,
		},
	})
}

// MatcherStatus 配對器狀態與貼文統計
func (h *Handler) MatcherStatus(c *gin.Context) {
	posts := h.board.Posts(communityService.FilterAll)
	requests, offers := 0, 0
	for _, p := range posts {
		switch p.Type {
		case communityService.PostWanting:
			requests++
		case communityService.PostGiving:
			offers++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"initialized": true,
		"matcher":     h.matcher.Status(),
		"stats": gin.H{
			"total_posts":   len(posts),
			"request_posts": requests,
			"offer_posts":   offers,
		},
	})
}

// GenerateHelpMessage 產生求助訊息
func (h *Handler) GenerateHelpMessage(c *gin.Context) {
	var req communityService.HelpRequest
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	msg, err := h.help.Generate(c.Request.Context(), req)
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      msg.Message,
		"request_data": msg.RequestData,
		"generated_at": msg.GeneratedAt,
		"source":       msg.Source,
	})
}

// PostHelpMessage 將求助訊息發佈為貼文
func (h *Handler) PostHelpMessage(c *gin.Context) {
	var req communityService.PostHelpInput
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	post, err := h.help.Post(c.Request.Context(), req)
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "post": post})
}
