// Package api HTTP 路由
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	communityHandler "freshloop/internal/api/handlers/community"
	detectionHandler "freshloop/internal/api/handlers/detection"
	"freshloop/internal/api/handlers/health"
	recipeHandler "freshloop/internal/api/handlers/recipe"
	"freshloop/internal/api/middleware"
	"freshloop/internal/core/community"
	"freshloop/internal/core/detection"
	"freshloop/internal/core/image"
	"freshloop/internal/core/recipe"
	"freshloop/internal/infrastructure/config"
	"freshloop/internal/infrastructure/metrics"
	"freshloop/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 請求體大小限制 (10MB)
const maxBodySize = 10 << 20

// Services 路由需要的服務
type Services struct {
	Suggester  *recipe.Suggester
	Detailer   *recipe.Detailer
	Board      *community.Board
	Matcher    *community.Matcher
	Help       *community.HelpService
	Detections *detection.Service
	Images     *image.Service
	Health     *health.Handler
}

// Validate 檢查必要服務
func (s *Services) Validate() error {
	switch {
	case s == nil:
		return errors.New("services are required")
	case s.Suggester == nil || s.Detailer == nil:
		return errors.New("recipe services are required")
	case s.Board == nil || s.Matcher == nil || s.Help == nil:
		return errors.New("community services are required")
	case s.Detections == nil || s.Images == nil:
		return errors.New("detection services are required")
	case s.Health == nil:
		return errors.New("health handler is required")
	}
	return nil
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, svc *Services) (*gin.Engine, error) {
	if err := svc.Validate(); err != nil {
		return nil, err
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New()) // 自動生成請求 ID
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())

	// CORS 設置
	origins := cfg.Server.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: !allowsAnyOrigin(origins),
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(maxBodySize))
	router.Use(requestTimeout(cfg.Server.RequestTimeout))

	// 健康檢查路由
	router.GET("/health", svc.Health.HealthCheck)
	router.GET("/ready", svc.Health.ReadinessCheck)
	router.GET("/live", svc.Health.LivenessCheck)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api")
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.Burst)))
	}
	// 切換類操作連點是合法的，不去重
	api.Use(middleware.NewDeduplicator(cfg.DedupWindow,
		"/api/posts/:id/like",
		"/api/posts/:id/toggle-comments",
		"/api/posts/:id/draft",
	).Handler())

	recipes := recipeHandler.NewHandler(svc.Suggester, svc.Detailer, cfg.App.Debug)
	api.GET("/recipes", recipes.ListRecipes)
	api.POST("/suggest-recipes", recipes.SuggestRecipes)
	api.POST("/get-recipe", recipes.GetRecipe)
	api.POST("/parse-ingredient", recipes.ParseIngredient)
	api.POST("/check-availability", recipes.CheckAvailability)

	detections := detectionHandler.NewHandler(svc.Detections, svc.Images, svc.Board, svc.Suggester, cfg.App.Debug)
	api.POST("/analyze-image", detections.AnalyzeImage)
	api.POST("/analyze-and-suggest", detections.AnalyzeAndSuggest)
	api.GET("/gemini-results", detections.Results)
	api.POST("/test-detection", detections.TestDetection)
	api.POST("/clear-results", detections.Clear)
	api.POST("/share-detection/:id", detections.Share)
	api.POST("/text-to-speech", detections.TextToSpeech)

	posts := communityHandler.NewHandler(svc.Board, svc.Matcher, svc.Help, cfg.App.Debug)
	api.GET("/posts", posts.ListPosts)
	api.POST("/posts", posts.CreatePost)
	api.POST("/posts/:id/like", posts.ToggleLike)
	api.POST("/posts/:id/claim", posts.Claim)
	api.POST("/posts/:id/toggle-comments", posts.ToggleComments)
	api.POST("/posts/:id/draft", posts.SetDraft)
	api.POST("/posts/:id/comments", posts.AddComment)
	api.POST("/match-ingredients", posts.MatchIngredients)
	api.GET("/matches", posts.LastMatches)
	api.POST("/match-single-request", posts.MatchSingleRequest)
	api.GET("/matcher-status", posts.MatcherStatus)
	api.POST("/generate-help-message", posts.GenerateHelpMessage)
	api.POST("/post-help-message", posts.PostHelpMessage)

	common.LogInfo("Router setup completed successfully",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Duration("timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", maxBodySize),
	)
	return router, nil
}

// requestTimeout 為每個請求設置超時
func requestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		// 處理器尚未回應時補上超時錯誤
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", requestid.Get(c)),
				zap.Duration("timeout", timeout),
			)
			c.AbortWithStatusJSON(http.StatusGatewayTimeout, common.ErrorResponse{
				Success: false,
				Code:    common.ErrCodeRequestTimeout,
				Error:   "Request timeout",
			})
		}
	}
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
