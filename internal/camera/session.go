package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrSessionNotRunning は停止中のセッションで撮影しようとしたことを表す
var ErrSessionNotRunning = errors.New("セッションが実行されていません")

// latestFrameWait は起動直後に最初のフレームを待つ時間
const latestFrameWait = 2 * time.Second

// frameSource はデバイスからフレームを取り出す
type frameSource interface {
	TestCapture(ctx context.Context) error
	StartStream(ctx context.Context, frameChan chan<- []byte, errorChan chan<- error) (<-chan struct{}, error)
}

// V4L2Session はV4L2デバイスを使うSession実装
type V4L2Session struct {
	discovery Discovery
	fps       int
	newSource func(in *Input, preset Preset, fps int, output *PhotoOutput) frameSource

	mu          sync.Mutex
	configuring bool
	inputs      []*Input
	output      *PhotoOutput
	preset      Preset
	running     bool
	streamFrom  *Input // ストリーム中の入力

	// ストリーム制御用
	cancel     context.CancelFunc
	streamDone <-chan struct{}
	stopCh     chan struct{}
	wg         sync.WaitGroup

	// ストリーミング用のチャンネル
	internalFrameChan chan []byte
	internalErrorChan chan error

	// 最新フレームは静止画撮影にも使う
	hub *FrameHub
}

// NewV4L2Session は新しいV4L2Sessionを作成する
func NewV4L2Session(discovery Discovery, fps int) *V4L2Session {
	if fps <= 0 {
		fps = 15
	}
	return &V4L2Session{
		discovery:         discovery,
		fps:               fps,
		newSource:         newV4L2Source,
		preset:            PresetPhoto,
		internalFrameChan: make(chan []byte, 10),
		internalErrorChan: make(chan error, 5),
		hub:               NewFrameHub(10),
	}
}

func newV4L2Source(in *Input, preset Preset, fps int, output *PhotoOutput) frameSource {
	return NewV4L2Capturer(in.Device.Path, preset.Resolution(), fps, output.Quality)
}

// BeginConfiguration は構成トランザクションを開始する
func (s *V4L2Session) BeginConfiguration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configuring = true
}

// CommitConfiguration は構成トランザクションを確定する
// 実行中に入力が変わった場合は新しいデバイスでストリームを張り直す
func (s *V4L2Session) CommitConfiguration() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.configuring = false
	if !s.running {
		return
	}

	current := s.currentInputLocked()
	if current == s.streamFrom {
		return
	}

	s.stopStreamLocked()
	if current == nil || s.output == nil {
		slog.Warn("入力が無いためプレビューを停止しました")
		s.running = false
		return
	}
	if err := s.startStreamLocked(current); err != nil {
		slog.Error("入力切り替え後のストリーム再開に失敗", "device", current.Device.Path, "error", err)
		s.running = false
	}
}

// CanAddInput は入力を追加できるか判定する
// 構成トランザクション中かつ入力が未接続で、デバイスが利用可能な場合のみ追加できる
func (s *V4L2Session) CanAddInput(in *Input) bool {
	if in == nil {
		return false
	}

	s.mu.Lock()
	ok := s.configuring && len(s.inputs) == 0
	s.mu.Unlock()
	if !ok {
		return false
	}

	return s.discovery.IsDeviceAvailable(context.Background(), in.Device.Path)
}

// AddInput は入力を追加する
func (s *V4L2Session) AddInput(in *Input) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.configuring {
		slog.Warn("構成トランザクション外での入力追加を無視しました", "device", in.Device.Path)
		return
	}
	s.inputs = append(s.inputs, in)
}

// RemoveInput は入力を取り除く
func (s *V4L2Session) RemoveInput(in *Input) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.configuring {
		slog.Warn("構成トランザクション外での入力削除を無視しました")
		return
	}
	for i, existing := range s.inputs {
		if existing == in {
			s.inputs = append(s.inputs[:i], s.inputs[i+1:]...)
			return
		}
	}
}

// CanAddOutput は出力を追加できるか判定する
func (s *V4L2Session) CanAddOutput(out *PhotoOutput) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return out != nil && out.Format == FormatJPEG && s.configuring && s.output == nil
}

// AddOutput は出力を追加する
func (s *V4L2Session) AddOutput(out *PhotoOutput) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.configuring {
		slog.Warn("構成トランザクション外での出力追加を無視しました")
		return
	}
	s.output = out
}

// SetPreset は品質プリセットを設定する
func (s *V4L2Session) SetPreset(preset Preset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preset = preset
}

// StartRunning はテストキャプチャを行ってからプレビューストリームを開始する
func (s *V4L2Session) StartRunning(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil // 既に開始済み
	}

	in := s.currentInputLocked()
	if in == nil || s.output == nil {
		return fmt.Errorf("入力または出力が接続されていません")
	}

	if err := s.sourceLocked(in).TestCapture(ctx); err != nil {
		return fmt.Errorf("カメラのテストキャプチャに失敗: %w", err)
	}

	if err := s.startStreamLocked(in); err != nil {
		return err
	}

	s.running = true
	return nil
}

// StopRunning はプレビューストリームを停止する
func (s *V4L2Session) StopRunning(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil // 既に停止済み
	}

	s.stopStreamLocked()
	s.running = false
	return nil
}

// IsRunning は実行中かどうかを返す
func (s *V4L2Session) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// CapturePhoto はプレビューストリームの最新フレームを静止画として返す
func (s *V4L2Session) CapturePhoto(_ PhotoSettings, handler PhotoHandler) {
	go func() {
		if !s.IsRunning() {
			handler(nil, ErrSessionNotRunning)
			return
		}

		deadline := time.Now().Add(latestFrameWait)
		for {
			if frame := s.hub.Latest(); frame != nil {
				data := make([]byte, len(frame))
				copy(data, frame)
				handler(data, nil)
				return
			}
			if time.Now().After(deadline) {
				handler(nil, fmt.Errorf("フレームがまだ取得されていません"))
				return
			}
			time.Sleep(50 * time.Millisecond)
		}
	}()
}

// SubscribeFrames はプレビュー用のMJPEGフレームを購読する
func (s *V4L2Session) SubscribeFrames() (<-chan []byte, func()) {
	return s.hub.Subscribe()
}

// currentInputLocked は接続中の入力を返す（ロック済み前提）
func (s *V4L2Session) currentInputLocked() *Input {
	if len(s.inputs) == 0 {
		return nil
	}
	return s.inputs[0]
}

// sourceLocked は現在の設定でフレーム取得元を作成する（ロック済み前提）
func (s *V4L2Session) sourceLocked(in *Input) frameSource {
	return s.newSource(in, s.preset, s.fps, s.output)
}

// startStreamLocked はストリームとフレーム転送ゴルーチンを開始する（ロック済み前提）
func (s *V4L2Session) startStreamLocked(in *Input) error {
	streamCtx, cancel := context.WithCancel(context.Background())
	done, err := s.sourceLocked(in).StartStream(streamCtx, s.internalFrameChan, s.internalErrorChan)
	if err != nil {
		cancel()
		return err
	}

	s.cancel = cancel
	s.streamDone = done
	s.streamFrom = in
	s.stopCh = make(chan struct{})

	s.wg.Add(1)
	go s.forwardFrames(s.stopCh)
	return nil
}

// stopStreamLocked はストリームを停止して終了を待つ（ロック済み前提）
// 停止したデバイスのフレームは残さない
func (s *V4L2Session) stopStreamLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.streamDone
	close(s.stopCh)
	s.wg.Wait()

	s.cancel = nil
	s.streamDone = nil
	s.streamFrom = nil

	s.drainLocked()
	s.hub.Reset()
}

// drainLocked は転送されずに残ったフレームとエラーを捨てる（ロック済み前提）
func (s *V4L2Session) drainLocked() {
	for {
		select {
		case <-s.internalFrameChan:
		case <-s.internalErrorChan:
		default:
			return
		}
	}
}

// forwardFrames はキャプチャからフレームを転送する
func (s *V4L2Session) forwardFrames(stopCh <-chan struct{}) {
	defer s.wg.Done()

	for {
		select {
		case <-stopCh:
			return

		case frame := <-s.internalFrameChan:
			s.hub.Publish(frame)

		case err := <-s.internalErrorChan:
			slog.Error("キャプチャエラー", "error", err)
		}
	}
}
