package main

import (
	"log/slog"
	"os"

	"fullscreencamera/cmd"
)

func main() {
	// サブコマンドが設定を読むまでのロガー
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cmd.Execute()
}
