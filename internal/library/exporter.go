package library

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"fullscreencamera/internal/camera"
)

// SavedHandler は保存成功時に呼ばれる
// 任意のゴルーチンから呼ばれるため、UI更新は呼び出し側でUIスレッドへ戻すこと
type SavedHandler func(asset *Asset)

// Exporter は撮影画像をフォトライブラリへ書き出す
type Exporter struct {
	library Library

	mu      sync.RWMutex
	onSaved SavedHandler
}

// NewExporter は新しいExporterを作成する
func NewExporter(library Library) *Exporter {
	return &Exporter{library: library}
}

// OnSaved は保存成功時のハンドラを設定する
func (e *Exporter) OnSaved(handler SavedHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onSaved = handler
}

// Export は認可を確認してから画像を新しいアセットとして保存する
// 再試行はしない
func (e *Exporter) Export(ctx context.Context, img *camera.StillImage) (*Asset, error) {
	status, err := e.library.RequestAuthorization(ctx)
	if err != nil {
		return nil, fmt.Errorf("認可の要求に失敗: %w", err)
	}
	if status != AuthorizationAuthorized {
		slog.Warn("フォトライブラリへの書き込みが許可されていないため画像を破棄します",
			"kind", "authorization_denied", "status", status)
		return nil, ErrAuthorizationDenied
	}

	asset, err := e.library.CreateAsset(ctx, img)
	if err != nil {
		slog.Error("アセットの保存に失敗", "error", err)
		return nil, fmt.Errorf("アセットの保存に失敗: %w", err)
	}

	e.mu.RLock()
	handler := e.onSaved
	e.mu.RUnlock()
	if handler != nil {
		handler(asset)
	}

	return asset, nil
}
