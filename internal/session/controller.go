package session

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"log/slog"
	"sync"
	"time"

	"fullscreencamera/internal/camera"
	"fullscreencamera/internal/library"
	"fullscreencamera/internal/metrics"
	"fullscreencamera/internal/queue"

	"github.com/prometheus/client_golang/prometheus"
)

// Phase はパイプラインのフェーズ
type Phase string

// フェーズ一覧
const (
	PhaseUnconfigured Phase = "unconfigured"
	PhaseConfiguring  Phase = "configuring"
	PhaseIdle         Phase = "idle"
	PhaseRunning      Phase = "running"
)

// Phases はすべてのフェーズ
var Phases = []Phase{PhaseUnconfigured, PhaseConfiguring, PhaseIdle, PhaseRunning}

// Exporter は撮影画像の保存先
type Exporter interface {
	Export(ctx context.Context, img *camera.StillImage) (*library.Asset, error)
}

// SwitchResult はカメラ切り替えの結果
type SwitchResult struct {
	Switched bool            // 切り替えが行われたか
	Device   camera.Device   // 操作後に接続されているデバイス
	Position camera.Position // 操作後の向き（アイコン表示用）
}

// CaptureResult は撮影の結果
type CaptureResult struct {
	Image *camera.StillImage
	Asset *library.Asset
	Err   error
}

// State はパイプライン状態のスナップショット
type State struct {
	Phase  Phase
	Preset camera.Preset
	Device *camera.Device
	Ready  bool
}

// Controller はパイプラインを所有し、すべての操作を直列キューで実行する
type Controller struct {
	queue     *queue.Serial
	session   camera.Session
	discovery camera.Discovery
	exporter  Exporter
	metrics   *metrics.Metrics
	preset    camera.Preset
	quality   int

	// 以下はキュー上のタスクからのみ触る
	phase  Phase
	input  *camera.Input
	output *camera.PhotoOutput
}

// Option はControllerの任意設定
type Option func(*Controller)

// WithExporter は撮影画像の保存先を設定する
func WithExporter(exporter Exporter) Option {
	return func(c *Controller) {
		c.exporter = exporter
	}
}

// WithMetrics はメトリクスを設定する
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithPreset は品質プリセットを設定する
func WithPreset(preset camera.Preset) Option {
	return func(c *Controller) {
		c.preset = preset
	}
}

// WithQuality はJPEG品質（ffmpegの-q:v値）を設定する
func WithQuality(quality int) Option {
	return func(c *Controller) {
		c.quality = quality
	}
}

// NewController は新しいControllerを作成する
func NewController(sess camera.Session, discovery camera.Discovery, opts ...Option) *Controller {
	c := &Controller{
		queue:     queue.NewSerial("session"),
		session:   sess,
		discovery: discovery,
		preset:    camera.PresetPhoto,
		quality:   2,
		phase:     PhaseUnconfigured,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.setPhase(PhaseUnconfigured)
	return c
}

// Configure は初期デバイスを選んでパイプラインを構成する
// 構成済みの場合は何もしない
func (c *Controller) Configure(ctx context.Context) error {
	var result error
	if err := c.queue.Sync(ctx, func() {
		result = c.configure(ctx)
	}); err != nil {
		return err
	}
	return result
}

func (c *Controller) configure(ctx context.Context) error {
	if c.phase == PhaseIdle || c.phase == PhaseRunning {
		return nil
	}

	c.setPhase(PhaseConfiguring)
	c.session.SetPreset(c.preset)

	c.session.BeginConfiguration()
	err := c.attach(ctx)
	// 失敗時もトランザクションは閉じる
	c.session.CommitConfiguration()

	if err != nil {
		c.setPhase(PhaseUnconfigured)
		c.count(c.configuresVec(), err)
		slog.Error("パイプラインの構成に失敗", "kind", Kind(err), "error", err)
		return err
	}

	c.setPhase(PhaseIdle)
	c.count(c.configuresVec(), nil)
	slog.Info("パイプラインを構成しました",
		"device", c.input.Device.Path,
		"position", c.input.Device.Position,
		"preset", c.preset)
	return nil
}

// attach は入力と出力を接続する（トランザクション内で呼ぶ）
// 前回の構成で接続済みのものはそのまま使う
func (c *Controller) attach(ctx context.Context) error {
	if c.input == nil {
		devices, err := c.discovery.ScanDevices(ctx)
		if err != nil {
			return fmt.Errorf("デバイスの列挙に失敗: %w", err)
		}
		device, err := camera.SelectInitial(devices)
		if err != nil {
			return err
		}

		in := camera.NewInput(device)
		if !c.session.CanAddInput(in) {
			return fmt.Errorf("%w: %s", ErrAttachInput, device.Path)
		}
		c.session.AddInput(in)
		c.input = in
	}

	if c.output == nil {
		out := camera.NewPhotoOutput(c.quality)
		if !c.session.CanAddOutput(out) {
			return ErrAttachOutput
		}
		c.session.AddOutput(out)
		c.output = out
	}
	return nil
}

// Start はパイプラインを開始する
// 開始処理はブロッキングなのでキュー上で実行する
func (c *Controller) Start(ctx context.Context) error {
	var result error
	if err := c.queue.Sync(ctx, func() {
		result = c.start(ctx)
	}); err != nil {
		return err
	}
	return result
}

func (c *Controller) start(ctx context.Context) error {
	switch c.phase {
	case PhaseRunning:
		return nil
	case PhaseUnconfigured, PhaseConfiguring:
		slog.Warn("未構成のパイプラインは開始できません", "kind", KindNotConfigured)
		return ErrNotConfigured
	}

	if err := c.session.StartRunning(ctx); err != nil {
		slog.Error("パイプラインの開始に失敗", "kind", KindInternal, "error", err)
		return fmt.Errorf("パイプラインの開始に失敗: %w", err)
	}

	c.setPhase(PhaseRunning)
	slog.Info("パイプラインを開始しました", "device", c.input.Device.Path)
	return nil
}

// Stop はパイプラインを停止する
func (c *Controller) Stop(ctx context.Context) error {
	var result error
	if err := c.queue.Sync(ctx, func() {
		result = c.stop(ctx)
	}); err != nil {
		return err
	}
	return result
}

func (c *Controller) stop(ctx context.Context) error {
	if c.phase != PhaseRunning {
		return nil
	}

	if err := c.session.StopRunning(ctx); err != nil {
		slog.Error("パイプラインの停止に失敗", "kind", KindInternal, "error", err)
		return fmt.Errorf("パイプラインの停止に失敗: %w", err)
	}

	c.setPhase(PhaseIdle)
	slog.Info("パイプラインを停止しました")
	return nil
}

// SwitchCamera は反対側のカメラに切り替える
// デバイスが2台未満の場合はキューに投入せずに戻る
func (c *Controller) SwitchCamera(ctx context.Context) (SwitchResult, error) {
	devices, err := c.discovery.ScanDevices(ctx)
	if err != nil {
		return SwitchResult{}, fmt.Errorf("デバイスの列挙に失敗: %w", err)
	}
	if len(devices) < 2 {
		slog.Debug("切り替え可能なカメラがありません", "devices", len(devices))
		c.count(c.switchesVec(), nil, "skipped")
		device, _ := c.ActiveDevice(ctx)
		return SwitchResult{Device: device, Position: device.Position}, nil
	}

	var (
		result SwitchResult
		resErr error
	)
	if err := c.queue.Sync(ctx, func() {
		result, resErr = c.switchCamera(ctx)
	}); err != nil {
		return SwitchResult{}, err
	}
	return result, resErr
}

func (c *Controller) switchCamera(ctx context.Context) (SwitchResult, error) {
	if c.input == nil {
		return SwitchResult{}, ErrNotConfigured
	}

	current := c.input
	unchanged := SwitchResult{Device: current.Device, Position: current.Device.Position}

	// キュー上で最新のデバイス一覧を取り直す
	devices, err := c.discovery.ScanDevices(ctx)
	if err != nil {
		return unchanged, fmt.Errorf("デバイスの列挙に失敗: %w", err)
	}
	target, ok := camera.SelectOpposite(devices, current.Device)
	if !ok {
		slog.Info("反対側のカメラが見つかりません", "position", current.Device.Position.Opposite())
		c.count(c.switchesVec(), nil, "skipped")
		return unchanged, nil
	}

	next := camera.NewInput(target)
	wasRunning := c.phase == PhaseRunning

	c.session.BeginConfiguration()
	c.session.RemoveInput(current)
	if !c.session.CanAddInput(next) {
		// 入力が空にならないよう元の入力を戻す
		c.session.AddInput(current)
		c.session.CommitConfiguration()
		if err := c.syncRunning(wasRunning, current.Device); err != nil {
			c.count(c.switchesVec(), err)
			return unchanged, err
		}

		err := fmt.Errorf("%w: %s", ErrAttachInput, target.Path)
		slog.Warn("カメラの切り替えに失敗したため元の入力に戻しました",
			"kind", KindAttachFailure, "device", target.Path, "error", err)
		c.count(c.switchesVec(), err)
		return unchanged, err
	}
	c.session.AddInput(next)
	c.session.CommitConfiguration()

	c.input = next
	switched := SwitchResult{Switched: true, Device: target, Position: target.Position}
	if err := c.syncRunning(wasRunning, target); err != nil {
		c.count(c.switchesVec(), err)
		return switched, err
	}

	c.count(c.switchesVec(), nil)
	slog.Info("カメラを切り替えました",
		"from", current.Device.Path,
		"to", target.Path,
		"position", target.Position)
	return switched, nil
}

// syncRunning は構成変更でセッションが止まった場合にフェーズをidleに戻す
// 入力はそのまま残すので、Startで再開できる
func (c *Controller) syncRunning(wasRunning bool, device camera.Device) error {
	if !wasRunning || c.session.IsRunning() {
		return nil
	}
	c.setPhase(PhaseIdle)
	err := fmt.Errorf("%w: %s", ErrPipelineStopped, device.Path)
	slog.Error("入力の切り替え後にパイプラインが停止しました",
		"kind", Kind(err), "device", device.Path, "error", err)
	return err
}

// Capture は静止画を1枚撮影する
// orientation は呼び出し側が投入前に読み取った値を渡す
// 結果はチャンネルに1件だけ送られ、その後クローズされる
func (c *Controller) Capture(ctx context.Context, orientation camera.Orientation) <-chan CaptureResult {
	results := make(chan CaptureResult, 1)

	var once sync.Once
	deliver := func(r CaptureResult) {
		once.Do(func() {
			results <- r
			close(results)
		})
	}

	// 完了は呼び出し元のリクエストより後になることがある
	exportCtx := context.WithoutCancel(ctx)

	if err := c.queue.Async(func() {
		if c.phase != PhaseRunning {
			slog.Warn("実行中でないため撮影を拒否しました", "kind", KindNotRunning, "phase", c.phase)
			c.count(c.capturesVec(), ErrNotRunning)
			deliver(CaptureResult{Err: ErrNotRunning})
			return
		}

		device := c.input.Device
		settings := camera.PhotoSettings{Format: c.output.Format, Orientation: orientation}
		c.session.CapturePhoto(settings, func(data []byte, err error) {
			deliver(c.completeCapture(exportCtx, device, settings, data, err))
		})
	}); err != nil {
		deliver(CaptureResult{Err: err})
	}

	return results
}

// completeCapture は撮影完了時に呼ばれる（任意のゴルーチン）
func (c *Controller) completeCapture(ctx context.Context, device camera.Device, settings camera.PhotoSettings, data []byte, captureErr error) CaptureResult {
	if captureErr != nil {
		err := fmt.Errorf("%w: %v", ErrCaptureFailed, captureErr)
		slog.Error("撮影に失敗", "kind", KindCaptureFailure, "device", device.Path, "error", captureErr)
		c.count(c.capturesVec(), err)
		return CaptureResult{Err: err}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || len(data) == 0 {
		slog.Error("撮影データをデコードできません", "kind", KindCaptureFailure, "device", device.Path, "size", len(data), "error", err)
		c.count(c.capturesVec(), ErrUndecodable)
		return CaptureResult{Err: ErrUndecodable}
	}

	img := &camera.StillImage{
		Data:        data,
		Width:       cfg.Width,
		Height:      cfg.Height,
		Format:      settings.Format,
		Orientation: settings.Orientation,
		DeviceID:    device.ID,
		CapturedAt:  time.Now(),
	}

	if c.exporter == nil {
		c.count(c.capturesVec(), nil)
		return CaptureResult{Image: img}
	}

	asset, err := c.exporter.Export(ctx, img)
	if err != nil {
		c.count(c.capturesVec(), err)
		return CaptureResult{Image: img, Err: err}
	}

	c.count(c.capturesVec(), nil)
	if c.metrics != nil {
		c.metrics.AssetsSaved.Inc()
	}
	return CaptureResult{Image: img, Asset: asset}
}

// Phase は現在のフェーズを返す
func (c *Controller) Phase(ctx context.Context) (Phase, error) {
	state, err := c.State(ctx)
	return state.Phase, err
}

// Ready は構成済みで撮影準備ができているかを返す
func (c *Controller) Ready(ctx context.Context) bool {
	state, err := c.State(ctx)
	return err == nil && state.Ready
}

// ActiveDevice は接続中のデバイスを返す
func (c *Controller) ActiveDevice(ctx context.Context) (camera.Device, bool) {
	state, err := c.State(ctx)
	if err != nil || state.Device == nil {
		return camera.Device{}, false
	}
	return *state.Device, true
}

// State はパイプライン状態のスナップショットを返す
func (c *Controller) State(ctx context.Context) (State, error) {
	var state State
	err := c.queue.Sync(ctx, func() {
		state = State{
			Phase:  c.phase,
			Preset: c.preset,
			Ready:  (c.phase == PhaseIdle || c.phase == PhaseRunning) && c.input != nil && c.output != nil,
		}
		if c.input != nil {
			device := c.input.Device
			state.Device = &device
		}
	})
	return state, err
}

// Devices は現在利用可能なデバイスを列挙する
func (c *Controller) Devices(ctx context.Context) ([]camera.Device, error) {
	return c.discovery.ScanDevices(ctx)
}

// Preview はプレビューフレームを購読する
// 返された関数で購読を解除する
func (c *Controller) Preview() (<-chan []byte, func()) {
	return c.session.SubscribeFrames()
}

// Teardown はパイプラインを停止してキューを閉じる
func (c *Controller) Teardown(ctx context.Context) error {
	stopErr := c.Stop(ctx)
	if err := c.queue.Close(ctx); err != nil {
		return err
	}
	return stopErr
}

// setPhase はフェーズを更新してメトリクスに反映する
func (c *Controller) setPhase(phase Phase) {
	c.phase = phase
	if c.metrics == nil {
		return
	}
	all := make([]string, len(Phases))
	for i, p := range Phases {
		all[i] = string(p)
	}
	c.metrics.SetPhase(string(phase), all)
}

func (c *Controller) capturesVec() *prometheus.CounterVec {
	if c.metrics == nil {
		return nil
	}
	return c.metrics.Captures
}

func (c *Controller) switchesVec() *prometheus.CounterVec {
	if c.metrics == nil {
		return nil
	}
	return c.metrics.Switches
}

func (c *Controller) configuresVec() *prometheus.CounterVec {
	if c.metrics == nil {
		return nil
	}
	return c.metrics.Configures
}

// count は結果ラベル付きでカウンタを増やす
// label を指定しない場合はエラー種別（成功時は"ok"）を使う
func (c *Controller) count(vec *prometheus.CounterVec, err error, label ...string) {
	if vec == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = Kind(err)
	}
	if len(label) > 0 {
		result = label[0]
	}
	vec.WithLabelValues(result).Inc()
}
