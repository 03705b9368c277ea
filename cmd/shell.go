package cmd

import (
	"context"
	"fmt"
	"os"

	"fullscreencamera/internal/shell"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "ターミナルUIで撮影する",
	RunE:  runShell,
}

func init() {
	shellCmd.Flags().String("log-file", "fullscreencamera.log", "ログの出力先")
	viper.BindPFlag("log-file", shellCmd.Flags().Lookup("log-file"))

	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// UIを崩さないようにログはファイルへ出す
	logPath := viper.GetString("log-file")
	if logPath == "" {
		logPath = "fullscreencamera.log"
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("ログファイルのオープンに失敗: %w", err)
	}
	defer logFile.Close()
	setupLogger(logFile, cfg.LogLevel())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	return shell.Run(ctx, a.controller, a.exporter)
}
