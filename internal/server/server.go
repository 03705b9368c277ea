package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fullscreencamera/internal/config"
	"fullscreencamera/internal/library"
	"fullscreencamera/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Server はHTTPサーバーを管理する構造体
type Server struct {
	config     *config.Config
	httpServer *http.Server
	engine     *gin.Engine
	handler    *CameraHandler
	metrics    *metrics.Metrics
}

// New は新しいServerインスタンスを作成する
// m がnilの場合は/metricsを公開しない
func New(cfg *config.Config, pipeline Pipeline, lib library.Library, m *metrics.Metrics) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	s := &Server{
		config:  cfg,
		engine:  engine,
		metrics: m,
		handler: &CameraHandler{
			config:   cfg,
			pipeline: pipeline,
			library:  lib,
		},
		httpServer: &http.Server{
			Addr:         cfg.ServerAddress(),
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
	s.setupRoutes()
	return s
}

// setupRoutes はHTTPルートを設定する
func (s *Server) setupRoutes() {
	h := s.handler

	// ヘルスチェックエンドポイント
	s.engine.GET("/health", h.HealthCheck)

	// APIエンドポイント
	api := s.engine.Group("/api")
	{
		api.GET("/status", h.GetStatus)
		api.GET("/cameras", h.GetCameras)
		api.POST("/camera/switch", h.SwitchCamera)
		api.POST("/capture", h.Capture)
		api.GET("/preview", h.GetPreview)
		api.GET("/library", h.ListAssets)
		api.GET("/library/latest", h.GetLatestAsset)
		api.GET("/library/assets/:id", h.GetAsset)
	}

	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	// 撮影画面
	s.engine.GET("/", h.Index)
}

// Handler はルーティング済みのhttp.Handlerを返す
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start はサーバーを起動する
// ctx のキャンセルかシグナル受信でグレースフルにシャットダウンする
func (s *Server) Start(ctx context.Context) error {
	// シャットダウン用のチャンネル
	shutdownCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	go func() {
		slog.Info("HTTPサーバーを起動しています", "addr", s.config.ServerAddress())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			shutdownCh <- fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
	}()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		slog.Info("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		slog.Info("シグナルを受信しました", "signal", sig)
	case err := <-shutdownCh:
		return err
	}

	// グレースフルシャットダウン
	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
func (s *Server) Shutdown() error {
	slog.Info("サーバーをシャットダウンしています")

	// 5秒のタイムアウトを設定
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("サーバーのシャットダウンに失敗: %w", err)
	}

	slog.Info("サーバーが正常にシャットダウンされました")
	return nil
}

// requestLogger はリクエストをslogに記録するミドルウェア
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		// プレビュー配信は接続が長いのでデバッグレベルにする
		level := slog.LevelInfo
		if c.FullPath() == "/api/preview" {
			level = slog.LevelDebug
		}
		slog.Log(c.Request.Context(), level, "HTTPリクエスト",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start))
	}
}
