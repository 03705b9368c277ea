package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fullscreencamera/internal/camera"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store はSQLiteとファイルシステムによるLibrary実装
type Store struct {
	db     *sql.DB
	root   string
	prompt Prompt
	mirror Mirror

	// 認可の確認と決定を直列化する
	authMu sync.Mutex
}

// StoreOption はStoreの任意設定
type StoreOption func(*Store)

// WithPrompt は未確認状態の認可要求に答える関数を設定する
func WithPrompt(prompt Prompt) StoreOption {
	return func(s *Store) {
		s.prompt = prompt
	}
}

// WithMirror は保存後の複製先を設定する
func WithMirror(mirror Mirror) StoreOption {
	return func(s *Store) {
		s.mirror = mirror
	}
}

// NewStore は新しいStoreを作成する
// root は画像の保存先、dbPath はインデックスのパス
func NewStore(root, dbPath string, opts ...StoreOption) (*Store, error) {
	slog.Info("フォトライブラリを開きます", "root", root, "db_path", dbPath)

	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("保存ディレクトリの作成に失敗: %w", err)
	}
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("データベースディレクトリの作成に失敗: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("データベースのオープンに失敗: %w", err)
	}
	// SQLiteへの書き込みは1接続に限定する
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("スキーマの作成に失敗: %w", err)
	}

	s := &Store{
		db:     db,
		root:   root,
		prompt: DenyPrompt,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close はデータベース接続を閉じる
func (s *Store) Close() error {
	return s.db.Close()
}

// AuthorizationStatus は現在の認可状態を返す
func (s *Store) AuthorizationStatus(ctx context.Context) (AuthorizationStatus, error) {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM library_authorization WHERE id = 1`).Scan(&status)
	if err != nil {
		return AuthorizationNotDetermined, fmt.Errorf("認可状態の取得に失敗: %w", err)
	}
	parsed, _ := ParseAuthorizationStatus(status)
	return parsed, nil
}

// SetAuthorization は認可状態を上書きする
func (s *Store) SetAuthorization(ctx context.Context, status AuthorizationStatus) error {
	if _, ok := ParseAuthorizationStatus(string(status)); !ok {
		return fmt.Errorf("無効な認可状態: %s", status)
	}
	_, err := s.db.ExecContext(ctx, `UPDATE library_authorization SET status = ? WHERE id = 1`, string(status))
	if err != nil {
		return fmt.Errorf("認可状態の更新に失敗: %w", err)
	}
	slog.Info("フォトライブラリの認可状態を更新しました", "status", status)
	return nil
}

// RequestAuthorization は書き込み認可を要求する
// 未確認の場合はpromptに問い合わせ、その結果を保存する
func (s *Store) RequestAuthorization(ctx context.Context) (AuthorizationStatus, error) {
	s.authMu.Lock()
	defer s.authMu.Unlock()

	status, err := s.AuthorizationStatus(ctx)
	if err != nil {
		return status, err
	}
	if status != AuthorizationNotDetermined {
		return status, nil
	}

	granted, err := s.prompt(ctx)
	if err != nil {
		return AuthorizationNotDetermined, fmt.Errorf("認可の問い合わせに失敗: %w", err)
	}

	status = AuthorizationDenied
	if granted {
		status = AuthorizationAuthorized
	}
	if err := s.SetAuthorization(ctx, status); err != nil {
		return AuthorizationNotDetermined, err
	}
	return status, nil
}

// CreateAsset は画像をファイルに保存してインデックスに登録する
func (s *Store) CreateAsset(ctx context.Context, img *camera.StillImage) (*Asset, error) {
	if img == nil || len(img.Data) == 0 {
		return nil, fmt.Errorf("保存する画像がありません")
	}

	status, err := s.AuthorizationStatus(ctx)
	if err != nil {
		return nil, err
	}
	if status != AuthorizationAuthorized {
		return nil, ErrAuthorizationDenied
	}

	now := time.Now()
	capturedAt := img.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = now
	}

	asset := &Asset{
		ID:          uuid.New().String(),
		DeviceID:    img.DeviceID,
		Orientation: img.Orientation,
		Width:       img.Width,
		Height:      img.Height,
		Size:        int64(len(img.Data)),
		CapturedAt:  capturedAt,
		CreatedAt:   now,
	}
	asset.Path = filepath.Join(s.root, capturedAt.Format("2006"), capturedAt.Format("01"), asset.ID+".jpg")

	if err := writeFileAtomic(asset.Path, img.Data); err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO assets (id, path, device_id, orientation, width, height, size, captured_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, asset.ID, asset.Path, asset.DeviceID, string(asset.Orientation),
		asset.Width, asset.Height, asset.Size,
		asset.CapturedAt.Format(time.RFC3339Nano), asset.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		_ = os.Remove(asset.Path)
		return nil, fmt.Errorf("アセットの登録に失敗: %w", err)
	}

	slog.Info("アセットを保存しました", "asset_id", asset.ID, "path", asset.Path, "size", asset.Size)

	if s.mirror != nil {
		key := filepath.ToSlash(filepath.Join(capturedAt.Format("2006/01"), asset.ID+".jpg"))
		if err := s.mirror.Upload(ctx, key, img.Data); err != nil {
			// 複製の失敗は保存結果に影響させない
			slog.Error("アセットの複製に失敗", "asset_id", asset.ID, "key", key, "error", err)
		}
	}

	return asset, nil
}

// Latest は最後に保存されたアセットを返す
func (s *Store) Latest(ctx context.Context) (*Asset, error) {
	assets, err := s.List(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(assets) == 0 {
		return nil, ErrNotFound
	}
	return assets[0], nil
}

// List は新しい順にアセットを返す
// limit が0以下の場合は全件を返す
func (s *Store) List(ctx context.Context, limit int) ([]*Asset, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, device_id, orientation, width, height, size, captured_at, created_at
		FROM assets ORDER BY seq DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("アセット一覧の取得に失敗: %w", err)
	}
	defer rows.Close()

	var assets []*Asset
	for rows.Next() {
		var a Asset
		var orientation, capturedAt, createdAt string
		if err := rows.Scan(&a.ID, &a.Path, &a.DeviceID, &orientation,
			&a.Width, &a.Height, &a.Size, &capturedAt, &createdAt); err != nil {
			return nil, fmt.Errorf("アセットの読み込みに失敗: %w", err)
		}
		a.Orientation = camera.Orientation(orientation)
		a.CapturedAt, _ = time.Parse(time.RFC3339Nano, capturedAt)
		a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		assets = append(assets, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("アセット一覧の取得に失敗: %w", err)
	}
	return assets, nil
}

// Get はIDでアセットを取得する
func (s *Store) Get(ctx context.Context, id string) (*Asset, error) {
	var a Asset
	var orientation, capturedAt, createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, path, device_id, orientation, width, height, size, captured_at, created_at
		FROM assets WHERE id = ?
	`, id).Scan(&a.ID, &a.Path, &a.DeviceID, &orientation,
		&a.Width, &a.Height, &a.Size, &capturedAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("アセットの取得に失敗: %w", err)
	}
	a.Orientation = camera.Orientation(orientation)
	a.CapturedAt, _ = time.Parse(time.RFC3339Nano, capturedAt)
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &a, nil
}

// ReadAsset はアセットの画像データを返す
func (s *Store) ReadAsset(_ context.Context, asset *Asset) ([]byte, error) {
	data, err := os.ReadFile(asset.Path)
	if err != nil {
		return nil, fmt.Errorf("アセットの読み込みに失敗: %w", err)
	}
	return data, nil
}

// writeFileAtomic は一時ファイルに書いてからリネームする
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("保存ディレクトリの作成に失敗: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".asset-*")
	if err != nil {
		return fmt.Errorf("一時ファイルの作成に失敗: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("画像の書き込みに失敗: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("画像の書き込みに失敗: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("画像の保存に失敗: %w", err)
	}
	return nil
}
