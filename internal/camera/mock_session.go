package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
)

// MockSession はテスト用のSession実装
// 操作履歴を記録し、各操作の失敗を注入できる
type MockSession struct {
	mu sync.Mutex

	configuring bool
	depth       int
	inputs      []*Input
	streamFrom  *Input // 実行中にストリームしている入力
	output      *PhotoOutput
	preset      Preset
	running     bool

	ops          []string
	startCount   int
	stopCount    int
	captureCount int

	// テスト制御用
	rejectInputs    map[string]bool
	rejectOutput    bool
	shouldFailStart bool
	captureData     []byte
	captureErr      error
	holdCapture     bool
	failRestart     bool
	hub             *FrameHub
}

// NewMockSession は新しいMockSessionを作成する
func NewMockSession() *MockSession {
	return &MockSession{
		preset:       PresetPhoto,
		rejectInputs: make(map[string]bool),
		captureData:  SampleJPEG(4, 3),
		hub:          NewFrameHub(1),
	}
}

// BeginConfiguration は構成トランザクションを開始する
func (m *MockSession) BeginConfiguration() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.depth++
	m.configuring = true
	m.ops = append(m.ops, "begin")
}

// CommitConfiguration は構成トランザクションを確定する
// 実行中に入力が変わった場合はストリームを張り直したものとして扱う
func (m *MockSession) CommitConfiguration() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.depth > 0 {
		m.depth--
	}
	m.configuring = m.depth > 0
	m.ops = append(m.ops, "commit")

	if !m.running || m.configuring {
		return
	}
	current := m.currentInputLocked()
	if current == m.streamFrom {
		return
	}
	m.hub.Reset()
	if current == nil || m.failRestart {
		m.running = false
		m.streamFrom = nil
		return
	}
	m.streamFrom = current
}

// CanAddInput は入力を追加できるか判定する
func (m *MockSession) CanAddInput(in *Input) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return in != nil && len(m.inputs) == 0 && !m.rejectInputs[in.Device.ID]
}

// AddInput は入力を追加する
func (m *MockSession) AddInput(in *Input) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, in)
	m.ops = append(m.ops, "add_input:"+in.Device.ID)
}

// RemoveInput は入力を取り除く
func (m *MockSession) RemoveInput(in *Input) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.inputs {
		if existing == in {
			m.inputs = append(m.inputs[:i], m.inputs[i+1:]...)
			break
		}
	}
	m.ops = append(m.ops, "remove_input:"+in.Device.ID)
}

// CanAddOutput は出力を追加できるか判定する
func (m *MockSession) CanAddOutput(out *PhotoOutput) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return out != nil && m.output == nil && !m.rejectOutput
}

// AddOutput は出力を追加する
func (m *MockSession) AddOutput(out *PhotoOutput) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.output = out
	m.ops = append(m.ops, "add_output")
}

// SetPreset は品質プリセットを設定する
func (m *MockSession) SetPreset(preset Preset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.preset = preset
}

// StartRunning はモックセッションを開始する
func (m *MockSession) StartRunning(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFailStart {
		return fmt.Errorf("モック: セッション開始に失敗")
	}
	m.running = true
	m.streamFrom = m.currentInputLocked()
	m.startCount++
	m.ops = append(m.ops, "start")
	return nil
}

// StopRunning はモックセッションを停止する
func (m *MockSession) StopRunning(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.running = false
	m.streamFrom = nil
	m.stopCount++
	m.ops = append(m.ops, "stop")
	return nil
}

// IsRunning は実行中かどうかを返す
func (m *MockSession) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// CapturePhoto は設定された結果で別ゴルーチンからhandlerを呼ぶ
func (m *MockSession) CapturePhoto(_ PhotoSettings, handler PhotoHandler) {
	m.mu.Lock()
	m.captureCount++
	m.ops = append(m.ops, "capture")
	hold := m.holdCapture
	data := append([]byte(nil), m.captureData...)
	err := m.captureErr
	m.mu.Unlock()

	if hold {
		return
	}
	go handler(data, err)
}

// SubscribeFrames はプレビューフレームを購読する
func (m *MockSession) SubscribeFrames() (<-chan []byte, func()) {
	return m.hub.Subscribe()
}

// PushFrame はテスト用にプレビューフレームを流す
func (m *MockSession) PushFrame(frame []byte) {
	m.hub.Publish(frame)
}

// LatestFrame は最後に流したプレビューフレームを返す
func (m *MockSession) LatestFrame() []byte {
	return m.hub.Latest()
}

// Subscribers はプレビューの購読者数を返す
func (m *MockSession) Subscribers() int {
	return m.hub.Subscribers()
}

func (m *MockSession) currentInputLocked() *Input {
	if len(m.inputs) == 0 {
		return nil
	}
	return m.inputs[0]
}

// Inputs は接続中の入力のコピーを返す
func (m *MockSession) Inputs() []*Input {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Input(nil), m.inputs...)
}

// HasOutput は出力が接続されているかを返す
func (m *MockSession) HasOutput() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.output != nil
}

// Configuring は構成トランザクション中かを返す
func (m *MockSession) Configuring() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.configuring
}

// Ops は操作履歴のコピーを返す
func (m *MockSession) Ops() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ops...)
}

// ResetOps は操作履歴を消去する
func (m *MockSession) ResetOps() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = nil
}

// StartCount はハードウェア起動回数を返す
func (m *MockSession) StartCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startCount
}

// StopCount はハードウェア停止回数を返す
func (m *MockSession) StopCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopCount
}

// CaptureCount は撮影リクエスト回数を返す
func (m *MockSession) CaptureCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.captureCount
}

// SetRejectInput はテスト用に指定デバイスの入力追加を拒否させる
func (m *MockSession) SetRejectInput(deviceID string, reject bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejectInputs[deviceID] = reject
}

// SetRejectOutput はテスト用に出力追加を拒否させる
func (m *MockSession) SetRejectOutput(reject bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejectOutput = reject
}

// SetShouldFailStart はテスト用にStart失敗を設定する
func (m *MockSession) SetShouldFailStart(shouldFail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailStart = shouldFail
}

// SetFailRestart はテスト用に実行中の入力切り替えでストリームの再開を失敗させる
func (m *MockSession) SetFailRestart(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failRestart = fail
}

// SetCaptureResult はテスト用に撮影結果を設定する
func (m *MockSession) SetCaptureResult(data []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captureData = data
	m.captureErr = err
}

// SetHoldCapture はテスト用に撮影完了を呼ばないようにする
func (m *MockSession) SetHoldCapture(hold bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holdCapture = hold
}

// SampleJPEG はテスト用に単色のJPEG画像を生成する
func SampleJPEG(width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 0x20, G: 0x80, B: 0xC0, A: 0xFF})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		panic(fmt.Sprintf("テスト用JPEGの生成に失敗: %v", err))
	}
	return buf.Bytes()
}
