package server

import (
	"time"

	"fullscreencamera/internal/camera"
	"fullscreencamera/internal/library"
)

// HealthResponse はヘルスチェックのレスポンス
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ServerInfo はサーバー情報
type ServerInfo struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// StatusResponse はパイプライン状態のレスポンス
type StatusResponse struct {
	Phase     string      `json:"phase"`
	Preset    string      `json:"preset"`
	Ready     bool        `json:"ready"`
	Device    *CameraInfo `json:"device,omitempty"`
	Server    ServerInfo  `json:"server"`
	Timestamp time.Time   `json:"timestamp"`
}

// CameraInfo はカメラデバイスの情報
type CameraInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Device   string `json:"device"`
	Position string `json:"position"`
	Type     string `json:"type"`
	Active   bool   `json:"active"`
}

// CamerasResponse はカメラ一覧のレスポンス
type CamerasResponse struct {
	Cameras []CameraInfo `json:"cameras"`
}

// SwitchResponse はカメラ切り替えのレスポンス
type SwitchResponse struct {
	Switched bool       `json:"switched"`
	Position string     `json:"position"`
	Device   CameraInfo `json:"device"`
}

// CaptureResponse は撮影のレスポンス
type CaptureResponse struct {
	Width       int            `json:"width"`
	Height      int            `json:"height"`
	Orientation string         `json:"orientation"`
	Asset       *library.Asset `json:"asset,omitempty"`
}

// LibraryResponse はアセット一覧のレスポンス
type LibraryResponse struct {
	Assets []*library.Asset `json:"assets"`
}

// ErrorResponse はエラーのレスポンス
type ErrorResponse struct {
	Error     string    `json:"error"` // エラー種別
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// newCameraInfo はデバイスをレスポンス用に変換する
func newCameraInfo(d camera.Device, active bool) CameraInfo {
	return CameraInfo{
		ID:       d.ID,
		Name:     d.Name,
		Device:   d.Path,
		Position: string(d.Position),
		Type:     string(d.Type),
		Active:   active,
	}
}
