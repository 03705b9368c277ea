// Package library は撮影した静止画を保存するフォトライブラリを扱う
//
// JPEGファイルをディレクトリに保存し、SQLiteでインデックスする。
// 書き込みには事前の認可が必要で、最初の認可要求の結果は永続化される。
// S3ミラーが設定されている場合は保存後にアップロードする。
package library

import (
	"context"
	"errors"
	"time"

	"fullscreencamera/internal/camera"
)

var (
	// ErrAuthorizationDenied はフォトライブラリへの書き込みが許可されていないことを表す
	ErrAuthorizationDenied = errors.New("フォトライブラリへの書き込みが許可されていません")

	// ErrNotFound はアセットが存在しないことを表す
	ErrNotFound = errors.New("アセットが見つかりません")
)

// AuthorizationStatus はフォトライブラリの書き込み認可状態
type AuthorizationStatus string

const (
	AuthorizationNotDetermined AuthorizationStatus = "not_determined" // 未確認
	AuthorizationAuthorized    AuthorizationStatus = "authorized"     // 許可
	AuthorizationDenied        AuthorizationStatus = "denied"         // 拒否
)

// ParseAuthorizationStatus は文字列をAuthorizationStatusに変換する
func ParseAuthorizationStatus(s string) (AuthorizationStatus, bool) {
	switch AuthorizationStatus(s) {
	case AuthorizationNotDetermined, AuthorizationAuthorized, AuthorizationDenied:
		return AuthorizationStatus(s), true
	}
	return AuthorizationNotDetermined, false
}

// Asset はフォトライブラリに保存された画像
type Asset struct {
	ID          string             `json:"id"`
	Path        string             `json:"path"`
	DeviceID    string             `json:"device_id"`
	Orientation camera.Orientation `json:"orientation"`
	Width       int                `json:"width"`
	Height      int                `json:"height"`
	Size        int64              `json:"size"`
	CapturedAt  time.Time          `json:"captured_at"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Library はフォトライブラリサービス
type Library interface {
	// RequestAuthorization は書き込み認可を要求する
	RequestAuthorization(ctx context.Context) (AuthorizationStatus, error)

	// CreateAsset は画像を新しいアセットとして保存する
	CreateAsset(ctx context.Context, img *camera.StillImage) (*Asset, error)

	// Latest は最後に保存されたアセットを返す
	Latest(ctx context.Context) (*Asset, error)

	// List は新しい順にアセットを返す
	List(ctx context.Context, limit int) ([]*Asset, error)

	// Get はIDでアセットを取得する
	Get(ctx context.Context, id string) (*Asset, error)

	// ReadAsset はアセットの画像データを返す
	ReadAsset(ctx context.Context, asset *Asset) ([]byte, error)
}

// Prompt は未確認状態の認可要求に答える
type Prompt func(ctx context.Context) (bool, error)

// GrantPrompt は常に許可する
func GrantPrompt(context.Context) (bool, error) { return true, nil }

// DenyPrompt は常に拒否する
func DenyPrompt(context.Context) (bool, error) { return false, nil }

// Mirror は保存済みアセットを外部ストレージへ複製する
type Mirror interface {
	Upload(ctx context.Context, key string, data []byte) error
}
