package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"fullscreencamera/internal/camera"
	"fullscreencamera/internal/config"
	"fullscreencamera/internal/library"
	"fullscreencamera/internal/metrics"
	"fullscreencamera/internal/session"
)

// app は設定から組み立てたコンポーネント一式
type app struct {
	config     *config.Config
	discovery  *camera.LinuxDiscovery
	store      *library.Store
	exporter   *library.Exporter
	metrics    *metrics.Metrics
	controller *session.Controller
}

// newApp は設定からコンポーネントを組み立てる
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	opts := []library.StoreOption{}
	if cfg.GrantsAuthorization() {
		opts = append(opts, library.WithPrompt(library.GrantPrompt))
	} else {
		opts = append(opts, library.WithPrompt(library.DenyPrompt))
	}

	if cfg.Library.S3.Bucket != "" {
		mirror, err := library.NewS3Mirror(ctx, cfg.Library.S3.Bucket, cfg.Library.S3.Region, cfg.Library.S3.Prefix)
		if err != nil {
			return nil, fmt.Errorf("S3ミラーの初期化に失敗: %w", err)
		}
		opts = append(opts, library.WithMirror(mirror))
		slog.Info("S3への複製を有効にしました", "bucket", cfg.Library.S3.Bucket)
	}

	store, err := library.NewStore(cfg.Library.Root, cfg.Library.DBPath, opts...)
	if err != nil {
		return nil, err
	}

	discovery := camera.NewLinuxDiscovery(cfg.DeviceHints(), cfg.DefaultPosition())
	exporter := library.NewExporter(store)
	m := metrics.New()

	controller := session.NewController(
		camera.NewV4L2Session(discovery, cfg.Camera.FPS),
		discovery,
		session.WithExporter(exporter),
		session.WithMetrics(m),
		session.WithPreset(cfg.Preset()),
		session.WithQuality(cfg.Camera.Quality),
	)

	return &app{
		config:     cfg,
		discovery:  discovery,
		store:      store,
		exporter:   exporter,
		metrics:    m,
		controller: controller,
	}, nil
}

// run は構成してからパイプラインを開始する
func (a *app) run(ctx context.Context) error {
	if err := a.controller.Configure(ctx); err != nil {
		return err
	}
	return a.controller.Start(ctx)
}

// close はパイプラインを停止してライブラリを閉じる
func (a *app) close(ctx context.Context) {
	if err := a.controller.Teardown(ctx); err != nil {
		slog.Warn("パイプラインの停止に失敗", "error", err)
	}
	if err := a.store.Close(); err != nil {
		slog.Warn("ライブラリのクローズに失敗", "error", err)
	}
}
