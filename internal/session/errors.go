package session

import (
	"errors"

	"fullscreencamera/internal/camera"
	"fullscreencamera/internal/library"
)

var (
	// ErrAttachInput は入力をパイプラインに追加できなかったことを表す
	ErrAttachInput = errors.New("入力をパイプラインに追加できません")

	// ErrAttachOutput は静止画出力をパイプラインに追加できなかったことを表す
	ErrAttachOutput = errors.New("静止画出力をパイプラインに追加できません")

	// ErrNotConfigured はパイプラインが未構成であることを表す
	ErrNotConfigured = errors.New("パイプラインが構成されていません")

	// ErrNotRunning はパイプラインが実行中でないことを表す
	ErrNotRunning = errors.New("パイプラインが実行されていません")

	// ErrCaptureFailed は撮影がエラーで完了したことを表す
	ErrCaptureFailed = errors.New("撮影に失敗しました")

	// ErrPipelineStopped は構成変更の後にセッションが止まったことを表す
	ErrPipelineStopped = errors.New("構成変更の後にパイプラインが停止しました")

	// ErrUndecodable は撮影データを画像としてデコードできなかったことを表す
	ErrUndecodable = errors.New("撮影データを画像としてデコードできません")
)

// エラー種別
const (
	KindDeviceUnavailable   = "device_unavailable"
	KindAttachFailure       = "attach_failure"
	KindCaptureFailure      = "capture_failure"
	KindAuthorizationDenied = "authorization_denied"
	KindNotRunning          = "not_running"
	KindNotConfigured       = "not_configured"
	KindInternal            = "internal"
)

// Kind はエラーを種別に分類する
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, camera.ErrNoDevice), errors.Is(err, ErrPipelineStopped):
		return KindDeviceUnavailable
	case errors.Is(err, ErrAttachInput), errors.Is(err, ErrAttachOutput):
		return KindAttachFailure
	case errors.Is(err, ErrCaptureFailed), errors.Is(err, ErrUndecodable):
		return KindCaptureFailure
	case errors.Is(err, library.ErrAuthorizationDenied):
		return KindAuthorizationDenied
	case errors.Is(err, ErrNotRunning):
		return KindNotRunning
	case errors.Is(err, ErrNotConfigured):
		return KindNotConfigured
	default:
		return KindInternal
	}
}
