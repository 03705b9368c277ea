package camera

import (
	"context"
	"errors"
	"time"
)

// ErrNoDevice は選択ポリシーに合致するカメラが存在しないことを表す
var ErrNoDevice = errors.New("利用可能なカメラデバイスがありません")

// Position はホスト機器に対するカメラの向き
type Position string

const (
	PositionUnspecified Position = "unspecified" // 向き不明
	PositionFront       Position = "front"       // 前面
	PositionBack        Position = "back"        // 背面
)

// Opposite は切り替え先の向きを返す
// 前面以外は背面扱いとし、前面へ切り替える
func (p Position) Opposite() Position {
	if p == PositionFront {
		return PositionBack
	}
	return PositionFront
}

// ParsePosition は設定値の文字列をPositionに変換する
func ParsePosition(s string) (Position, bool) {
	switch Position(s) {
	case PositionFront, PositionBack, PositionUnspecified:
		return Position(s), true
	case "rear":
		return PositionBack, true
	case "":
		return PositionUnspecified, true
	}
	return PositionUnspecified, false
}

// DeviceType はカメラの能力区分
type DeviceType string

const (
	DeviceTypeWideAngle DeviceType = "wide_angle" // 広角
	DeviceTypeDual      DeviceType = "dual"       // デュアル（複数レンズ）
	DeviceTypeTrueDepth DeviceType = "true_depth" // 深度
)

// ParseDeviceType は設定値の文字列をDeviceTypeに変換する
func ParseDeviceType(s string) (DeviceType, bool) {
	switch DeviceType(s) {
	case DeviceTypeWideAngle, DeviceTypeDual, DeviceTypeTrueDepth:
		return DeviceType(s), true
	case "":
		return DeviceTypeWideAngle, true
	}
	return DeviceTypeWideAngle, false
}

// Device は列挙されたカメラデバイス
// 列挙後に変更されることはない
type Device struct {
	ID       string     // カメラの一意識別子
	Name     string     // カメラの表示名
	Path     string     // デバイスパス（例: /dev/video0）
	Position Position   // 向き
	Type     DeviceType // 能力区分
}

// Input はパイプラインに接続されるデバイス入力
type Input struct {
	Device Device
}

// NewInput はデバイスから入力を作成する
func NewInput(device Device) *Input {
	return &Input{Device: device}
}

// Format は静止画の出力フォーマット
type Format string

// FormatJPEG は非可逆圧縮のJPEG
const FormatJPEG Format = "jpeg"

// PhotoOutput は静止画出力
type PhotoOutput struct {
	Format  Format
	Quality int // ffmpeg の -q:v 値 (2-31, 小さいほど高品質)
}

// NewPhotoOutput はJPEG固定の静止画出力を作成する
func NewPhotoOutput(quality int) *PhotoOutput {
	if quality <= 0 {
		quality = 2
	}
	return &PhotoOutput{Format: FormatJPEG, Quality: quality}
}

// Orientation はプレビューの表示向き
type Orientation string

const (
	OrientationPortrait           Orientation = "portrait"
	OrientationPortraitUpsideDown Orientation = "portrait_upside_down"
	OrientationLandscapeRight     Orientation = "landscape_right"
	OrientationLandscapeLeft      Orientation = "landscape_left"
)

// orientations は回転順
var orientations = []Orientation{
	OrientationPortrait,
	OrientationLandscapeRight,
	OrientationPortraitUpsideDown,
	OrientationLandscapeLeft,
}

// ParseOrientation は文字列をOrientationに変換する
func ParseOrientation(s string) (Orientation, bool) {
	if s == "" {
		return OrientationPortrait, true
	}
	for _, o := range orientations {
		if string(o) == s {
			return o, true
		}
	}
	return OrientationPortrait, false
}

// Next は時計回りに90度回転した向きを返す
func (o Orientation) Next() Orientation {
	for i, v := range orientations {
		if v == o {
			return orientations[(i+1)%len(orientations)]
		}
	}
	return OrientationPortrait
}

// PhotoSettings は1回の撮影リクエストの設定
type PhotoSettings struct {
	Format      Format
	Orientation Orientation
}

// StillImage はデコード済みの撮影結果
type StillImage struct {
	Data        []byte      // エンコード済みJPEGデータ
	Width       int         // 画像幅
	Height      int         // 画像高さ
	Format      Format      // フォーマット
	Orientation Orientation // 撮影時の向き
	DeviceID    string      // 撮影したデバイス
	CapturedAt  time.Time   // 撮影時刻
}

// Preset はセッションの品質プリセット
type Preset string

const (
	PresetPhoto  Preset = "photo"
	PresetHigh   Preset = "high"
	PresetMedium Preset = "medium"
	PresetLow    Preset = "low"
)

// Resolution はカメラの解像度を表す
type Resolution struct {
	Width  int // 幅
	Height int // 高さ
}

// Resolution はプリセットに対応する解像度を返す
func (p Preset) Resolution() Resolution {
	switch p {
	case PresetHigh:
		return Resolution{Width: 1920, Height: 1080}
	case PresetMedium:
		return Resolution{Width: 1280, Height: 720}
	case PresetLow:
		return Resolution{Width: 640, Height: 480}
	default:
		return Resolution{Width: 1920, Height: 1080}
	}
}

// Discovery はカメラデバイスの列挙機能を提供する
type Discovery interface {
	// ScanDevices はシステム内の利用可能なカメラデバイスを順序付きで返す
	ScanDevices(ctx context.Context) ([]Device, error)

	// IsDeviceAvailable は指定されたデバイスが利用可能かチェックする
	IsDeviceAvailable(ctx context.Context, path string) bool
}

// PhotoHandler は撮影完了時に呼ばれる
// 任意のゴルーチンから呼ばれる可能性がある
type PhotoHandler func(data []byte, err error)

// Session はキャプチャパイプラインの入出力グラフと実行状態を扱う
// 同時に複数ゴルーチンから操作してはならない
type Session interface {
	// BeginConfiguration は構成トランザクションを開始する
	BeginConfiguration()

	// CommitConfiguration は構成トランザクションを確定する
	CommitConfiguration()

	// CanAddInput は入力を追加できるか判定する
	CanAddInput(in *Input) bool

	// AddInput は入力を追加する
	AddInput(in *Input)

	// RemoveInput は入力を取り除く
	RemoveInput(in *Input)

	// CanAddOutput は出力を追加できるか判定する
	CanAddOutput(out *PhotoOutput) bool

	// AddOutput は出力を追加する
	AddOutput(out *PhotoOutput)

	// SetPreset は品質プリセットを設定する
	SetPreset(preset Preset)

	// StartRunning はハードウェアを起動する（ブロッキング）
	StartRunning(ctx context.Context) error

	// StopRunning はハードウェアを停止する（ブロッキング）
	StopRunning(ctx context.Context) error

	// IsRunning は実行中かどうかを返す
	IsRunning() bool

	// CapturePhoto は静止画を1枚撮影し、完了時にhandlerを呼ぶ
	CapturePhoto(settings PhotoSettings, handler PhotoHandler)

	// SubscribeFrames はプレビュー用のMJPEGフレームを購読する
	// 返された関数で購読を解除する
	SubscribeFrames() (<-chan []byte, func())
}
