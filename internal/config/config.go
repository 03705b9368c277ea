package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fullscreencamera/internal/camera"

	"gopkg.in/yaml.v3"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Camera  CameraConfig  `yaml:"camera"`
	Library LibraryConfig `yaml:"library"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `yaml:"host"` // リッスンするホスト
	Port int    `yaml:"port"` // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // 読み込みタイムアウト
	WriteTimeout time.Duration `yaml:"write_timeout"` // 書き込みタイムアウト
}

// CameraConfig はカメラ関連の設定
type CameraConfig struct {
	// デバイスごとの向き・種類の指定
	Devices []CameraDevice `yaml:"devices"`

	// 推定できないデバイスの向き (front/back/unspecified)
	DefaultPosition string `yaml:"default_position"`

	FPS     int    `yaml:"fps"`     // プレビューのフレームレート
	Preset  string `yaml:"preset"`  // 品質プリセット (photo/high/medium/low)
	Quality int    `yaml:"quality"` // JPEG品質 (ffmpeg -q:v, 2-31)
}

// CameraDevice は個別カメラの設定
type CameraDevice struct {
	Device   string `yaml:"device"`   // デバイスパス (例: /dev/video0)
	Name     string `yaml:"name"`     // 表示名（省略時はカード名）
	Position string `yaml:"position"` // 向き (front/back)
	Type     string `yaml:"type"`     // 能力区分 (wide_angle/dual/true_depth)
}

// LibraryConfig はフォトライブラリの設定
type LibraryConfig struct {
	Root   string `yaml:"root"`    // 画像の保存先
	DBPath string `yaml:"db_path"` // インデックスのパス

	// 未確認状態の認可要求への応答 (grant/deny)
	Authorization string `yaml:"authorization"`

	S3 S3Config `yaml:"s3"`
}

// S3Config は保存したアセットの複製先
// Bucketが空の場合は複製しない
type S3Config struct {
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`
	Prefix string `yaml:"prefix"`
}

// LogConfig はログ出力の設定
type LogConfig struct {
	Level string `yaml:"level"` // debug/info/warn/error
}

// Default はデフォルト設定を返す
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 0, // ストリーミング用にタイムアウト無効化
		},
		Camera: CameraConfig{
			Devices:         []CameraDevice{},
			DefaultPosition: string(camera.PositionBack),
			FPS:             15,
			Preset:          string(camera.PresetPhoto),
			Quality:         2,
		},
		Library: LibraryConfig{
			Root:          "photos",
			DBPath:        filepath.Join("photos", "library.db"),
			Authorization: "grant",
			S3: S3Config{
				Region: "us-east-1",
			},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load は設定を読み込む
// デフォルト値、設定ファイル（pathが空なら読まない）、環境変数の順に上書きする
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// loadFile はYAMLファイルの値で上書きする
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("設定ファイルの解析に失敗: %w", err)
	}
	slog.Debug("設定ファイルを読み込みました", "path", path)
	return nil
}

// applyEnv は環境変数の値で上書きする
func (c *Config) applyEnv() {
	c.Server.Host = getEnvOrDefault("FSCAM_SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvAsIntOrDefault("FSCAM_SERVER_PORT", c.Server.Port)

	c.Camera.DefaultPosition = getEnvOrDefault("FSCAM_DEFAULT_POSITION", c.Camera.DefaultPosition)
	c.Camera.FPS = getEnvAsIntOrDefault("FSCAM_FPS", c.Camera.FPS)
	c.Camera.Preset = getEnvOrDefault("FSCAM_PRESET", c.Camera.Preset)
	c.Camera.Quality = getEnvAsIntOrDefault("FSCAM_QUALITY", c.Camera.Quality)

	c.Library.Root = getEnvOrDefault("FSCAM_LIBRARY_ROOT", c.Library.Root)
	c.Library.DBPath = getEnvOrDefault("FSCAM_LIBRARY_DB", c.Library.DBPath)
	c.Library.Authorization = getEnvOrDefault("FSCAM_LIBRARY_AUTHORIZATION", c.Library.Authorization)
	c.Library.S3.Bucket = getEnvOrDefault("FSCAM_S3_BUCKET", c.Library.S3.Bucket)
	c.Library.S3.Region = getEnvOrDefault("FSCAM_S3_REGION", c.Library.S3.Region)
	c.Library.S3.Prefix = getEnvOrDefault("FSCAM_S3_PREFIX", c.Library.S3.Prefix)

	c.Log.Level = getEnvOrDefault("FSCAM_LOG_LEVEL", c.Log.Level)
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	var errs []error

	// サーバー設定の検証
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("無効なポート番号: %d", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		errs = append(errs, fmt.Errorf("タイムアウトに負の値は指定できません"))
	}

	// カメラ設定の検証
	if _, ok := camera.ParsePosition(c.Camera.DefaultPosition); !ok {
		errs = append(errs, fmt.Errorf("無効なデフォルトの向き: %s", c.Camera.DefaultPosition))
	}
	if c.Camera.FPS < 1 || c.Camera.FPS > 60 {
		errs = append(errs, fmt.Errorf("無効なフレームレート: %d", c.Camera.FPS))
	}
	if _, ok := parsePreset(c.Camera.Preset); !ok {
		errs = append(errs, fmt.Errorf("無効なプリセット: %s", c.Camera.Preset))
	}
	if c.Camera.Quality < 2 || c.Camera.Quality > 31 {
		errs = append(errs, fmt.Errorf("無効なJPEG品質: %d", c.Camera.Quality))
	}
	seen := make(map[string]bool)
	for i, d := range c.Camera.Devices {
		if d.Device == "" {
			errs = append(errs, fmt.Errorf("カメラ%dのデバイスパスが空です", i))
			continue
		}
		if seen[d.Device] {
			errs = append(errs, fmt.Errorf("デバイスパスが重複しています: %s", d.Device))
		}
		seen[d.Device] = true
		if _, ok := camera.ParsePosition(d.Position); !ok {
			errs = append(errs, fmt.Errorf("%s の向きが無効です: %s", d.Device, d.Position))
		}
		if _, ok := camera.ParseDeviceType(d.Type); !ok {
			errs = append(errs, fmt.Errorf("%s の種類が無効です: %s", d.Device, d.Type))
		}
	}

	// ライブラリ設定の検証
	if c.Library.Root == "" {
		errs = append(errs, fmt.Errorf("保存先が設定されていません"))
	}
	if c.Library.DBPath == "" {
		errs = append(errs, fmt.Errorf("インデックスのパスが設定されていません"))
	}
	if c.Library.Authorization != "grant" && c.Library.Authorization != "deny" {
		errs = append(errs, fmt.Errorf("無効な認可設定: %s", c.Library.Authorization))
	}
	if c.Library.S3.Bucket != "" && c.Library.S3.Region == "" {
		errs = append(errs, fmt.Errorf("S3のリージョンが設定されていません"))
	}

	if _, ok := parseLevel(c.Log.Level); !ok {
		errs = append(errs, fmt.Errorf("無効なログレベル: %s", c.Log.Level))
	}

	return errors.Join(errs...)
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// DeviceHints はデバイス検出用のヒントを返す
func (c *Config) DeviceHints() []camera.DeviceHint {
	hints := make([]camera.DeviceHint, 0, len(c.Camera.Devices))
	for _, d := range c.Camera.Devices {
		position, _ := camera.ParsePosition(d.Position)
		deviceType, _ := camera.ParseDeviceType(d.Type)
		hints = append(hints, camera.DeviceHint{
			Path:     d.Device,
			Name:     d.Name,
			Position: position,
			Type:     deviceType,
		})
	}
	return hints
}

// DefaultPosition は推定できないデバイスの向きを返す
func (c *Config) DefaultPosition() camera.Position {
	position, _ := camera.ParsePosition(c.Camera.DefaultPosition)
	return position
}

// Preset は品質プリセットを返す
func (c *Config) Preset() camera.Preset {
	preset, _ := parsePreset(c.Camera.Preset)
	return preset
}

// GrantsAuthorization は未確認の認可要求を許可するかを返す
func (c *Config) GrantsAuthorization() bool {
	return c.Library.Authorization == "grant"
}

// LogLevel はslogのレベルを返す
func (c *Config) LogLevel() slog.Level {
	level, _ := parseLevel(c.Log.Level)
	return level
}

func parsePreset(s string) (camera.Preset, bool) {
	switch camera.Preset(s) {
	case camera.PresetPhoto, camera.PresetHigh, camera.PresetMedium, camera.PresetLow:
		return camera.Preset(s), true
	}
	return camera.PresetPhoto, false
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
