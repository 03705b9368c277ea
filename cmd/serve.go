package cmd

import (
	"context"
	"log/slog"
	"os"

	"fullscreencamera/internal/server"
	"fullscreencamera/internal/session"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "HTTPで撮影画面とAPIを提供する",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("host", "", "サーバーのホスト (デフォルト: 0.0.0.0)")
	serveCmd.Flags().Int("port", 0, "サーバーのポート (デフォルト: 8080)")
	viper.BindPFlag("host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogger(os.Stdout, cfg.LogLevel())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	// カメラが無くてもサーバーは起動し、状態はAPIで確認できるようにする
	if err := a.run(ctx); err != nil {
		slog.Error("パイプラインを開始できませんでした", "kind", session.Kind(err), "error", err)
	}

	srv := server.New(cfg, a.controller, a.store, a.metrics)
	slog.Info("fullscreencamera サーバーを起動します", "addr", cfg.ServerAddress())
	return srv.Start(ctx)
}
