package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"freshloop/internal/api"
	"freshloop/internal/api/handlers/health"
	"freshloop/internal/core/ai/queue"
	"freshloop/internal/core/ai/service"
	"freshloop/internal/core/community"
	"freshloop/internal/core/detection"
	"freshloop/internal/core/image"
	"freshloop/internal/core/recipe"
	"freshloop/internal/infrastructure/config"
	"freshloop/internal/infrastructure/storage"
	"freshloop/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	// 載入設定（含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("openrouter_api_key", config.MaskAPIKey(cfg.OpenRouter.APIKey)),
		zap.String("openrouter_model", cfg.OpenRouter.Model),
		zap.String("gemini_model", cfg.Gemini.Model),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("matcher", cfg.Matcher.Mode),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, cleanup, err := buildServices(ctx, cfg)
	if err != nil {
		common.LogError("Failed to initialize services", zap.Error(err))
		os.Exit(1)
	}
	defer cleanup()

	// 設置路由
	router, err := api.SetupRouter(cfg, svc)
	if err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		os.Exit(1)
	}

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	serveErr := make(chan error, 1)
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// 等待中斷信號
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			common.LogError("Failed to start server", zap.Error(err))
			cleanup()
			os.Exit(1)
		}
	}

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
	}

	common.LogInfo("Server exited")
}

// buildServices 建立所有服務；AI 提供者未設定時各元件改用本地邏輯
func buildServices(ctx context.Context, cfg *config.Config) (*api.Services, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		closers = nil
	}

	// 貼文儲存
	kv, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, func() { _ = kv.Close() })
	checks := []health.Check{{Name: "storage", Ping: kv.Ping}}

	board, err := community.LoadBoard(ctx, kv, cfg.Storage.SeedDemo, community.WithKey(cfg.Storage.PostsKey))
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	// AI 服務；nil 時保持介面為 nil
	aiSvc, err := service.New(ctx, cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	var (
		gen         recipe.Generator
		vision      detection.Vision
		aiName      string
		queueStatus func() *queue.Status
	)
	if aiSvc != nil {
		gen, vision = aiSvc, aiSvc
		aiName = aiSvc.Name()
		queueStatus = aiSvc.Status
		closers = append(closers, func() { _ = aiSvc.Close() })
	}

	// 偵測結果封存
	detectionOpts := []detection.Option{}
	if cfg.Mongo.Enabled {
		archive, err := detection.NewMongoArchive(ctx, cfg.Mongo)
		if err != nil {
			common.LogWarn("MongoDB 不可用，偵測結果不封存", zap.Error(err))
		} else {
			detectionOpts = append(detectionOpts, detection.WithArchive(archive))
			checks = append(checks, health.Check{Name: "mongo", Ping: archive.Ping})
			closers = append(closers, func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = archive.Close(closeCtx)
			})
		}
	}

	matcher := community.NewMatcher(cfg.Matcher.Mode, gen, community.MatchOptions{
		MinScore:          cfg.Matcher.MinScore,
		MaxPerRequest:     cfg.Matcher.MaxPerRequest,
		ExcludeSameAuthor: cfg.Matcher.ExcludeSameAuthor,
	})

	svc := &api.Services{
		Suggester:  recipe.NewSuggester(gen, recipe.Catalog()),
		Detailer:   recipe.NewDetailer(gen),
		Board:      board,
		Matcher:    matcher,
		Help:       community.NewHelpService(gen, board),
		Detections: detection.NewService(vision, detection.NewStore(cfg.Detection.MaxResults), detectionOpts...),
		Images:     image.NewService(cfg.Image.MaxSizeBytes, cfg.Image.MaxDimension, cfg.Image.JPEGQuality),
		Health:     health.NewHandler(cfg.App.Version, aiName, queueStatus, checks...),
	}
	return svc, cleanup, nil
}
