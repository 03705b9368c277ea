// Package cmd はfullscreencameraのコマンドラインを実装する
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"fullscreencamera/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "fullscreencamera",
	Short: "全画面プレビューの撮影ツール",
	Long:  `カメラのプレビューを全画面で表示し、シャッターで撮影した静止画をフォトライブラリへ保存します。`,
	// サブコマンドなしの場合はターミナルUIを起動する
	RunE: runShell,
}

// Execute はルートコマンドを実行する
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "エラー: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "設定ファイル (YAML)")
	rootCmd.PersistentFlags().String("library-root", "", "画像の保存先")
	rootCmd.PersistentFlags().String("library-db", "", "ライブラリのインデックス")
	rootCmd.PersistentFlags().String("default-position", "", "向きを推定できないカメラの向き (front/back)")
	rootCmd.PersistentFlags().String("preset", "", "品質プリセット (photo/high/medium/low)")
	rootCmd.PersistentFlags().String("log-level", "", "ログレベル (debug/info/warn/error)")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("library-root", rootCmd.PersistentFlags().Lookup("library-root"))
	viper.BindPFlag("library-db", rootCmd.PersistentFlags().Lookup("library-db"))
	viper.BindPFlag("default-position", rootCmd.PersistentFlags().Lookup("default-position"))
	viper.BindPFlag("preset", rootCmd.PersistentFlags().Lookup("preset"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// loadConfig は設定ファイルと環境変数を読み、指定されたフラグで上書きする
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return nil, err
	}

	overrideString(&cfg.Library.Root, "library-root")
	overrideString(&cfg.Library.DBPath, "library-db")
	overrideString(&cfg.Camera.DefaultPosition, "default-position")
	overrideString(&cfg.Camera.Preset, "preset")
	overrideString(&cfg.Log.Level, "log-level")
	overrideString(&cfg.Server.Host, "host")
	if viper.IsSet("port") {
		cfg.Server.Port = viper.GetInt("port")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}
	return cfg, nil
}

func overrideString(dst *string, key string) {
	if viper.IsSet(key) {
		*dst = viper.GetString(key)
	}
}

// setupLogger はslogの出力先とレベルを設定する
func setupLogger(w io.Writer, level slog.Level) {
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}
