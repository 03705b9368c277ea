// Package shell は全画面撮影のターミナルUIを提供する
package shell

import (
	"context"
	"fmt"
	"time"

	"fullscreencamera/internal/camera"
	"fullscreencamera/internal/library"
	"fullscreencamera/internal/session"

	tea "github.com/charmbracelet/bubbletea"
)

// Pipeline はUIから操作する撮影パイプライン
type Pipeline interface {
	Configure(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	State(ctx context.Context) (session.State, error)
	SwitchCamera(ctx context.Context) (session.SwitchResult, error)
	Capture(ctx context.Context, orientation camera.Orientation) <-chan session.CaptureResult
	Preview() (<-chan []byte, func())
}

// メッセージ型
type (
	tickMsg    time.Time
	startedMsg struct{ err error }
	stoppedMsg struct{ err error }
	stateMsg   struct {
		state session.State
		err   error
	}
	switchedMsg struct {
		result session.SwitchResult
		err    error
	}
	capturedMsg struct{ result session.CaptureResult }
	savedMsg    struct{ asset *library.Asset }
	frameMsg    struct{ size int }
)

type logMessage struct {
	text      string
	timestamp time.Time
	isError   bool
}

// maxMessages は画面に残すメッセージ数
const maxMessages = 8

// Model はUIの状態を保持する
// パイプラインの状態はキューから受け取ったスナップショットで、UIからは書き換えない
type Model struct {
	pipeline    Pipeline
	ctx         context.Context
	preview     <-chan []byte
	unsubscribe func()

	width       int
	height      int
	currentTime time.Time
	status      string

	state       session.State
	orientation camera.Orientation
	capturing   int
	frames      int
	frameSize   int
	lastAsset   *library.Asset
	messages    []logMessage
	quitting    bool
}

// New は初期状態のModelを返す
// プレビューの購読はここで開始し、Closeで解除する
func New(ctx context.Context, pipeline Pipeline) Model {
	preview, unsubscribe := pipeline.Preview()
	return Model{
		pipeline:    pipeline,
		ctx:         ctx,
		preview:     preview,
		unsubscribe: unsubscribe,
		currentTime: time.Now(),
		status:      "起動中...",
		state:       session.State{Phase: session.PhaseUnconfigured},
		orientation: camera.OrientationPortrait,
	}
}

// Close はプレビューの購読を解除する
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Init はパイプラインの構成と開始を行う
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.startCmd(), timeTickCmd())
}

// addMessage はメッセージを追加する
func (m *Model) addMessage(text string, isError bool) {
	if isError {
		m.status = "エラー: " + text
	}
	m.messages = append(m.messages, logMessage{
		text:      text,
		timestamp: time.Now(),
		isError:   isError,
	})
	if len(m.messages) > maxMessages {
		m.messages = m.messages[1:]
	}
}

// startCmd は構成してから開始する
func (m Model) startCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.pipeline.Configure(m.ctx); err != nil {
			return startedMsg{err: fmt.Errorf("構成に失敗: %w", err)}
		}
		if err := m.pipeline.Start(m.ctx); err != nil {
			return startedMsg{err: err}
		}
		return startedMsg{}
	}
}

func (m Model) stopCmd() tea.Cmd {
	return func() tea.Msg {
		return stoppedMsg{err: m.pipeline.Stop(m.ctx)}
	}
}

func (m Model) stateCmd() tea.Cmd {
	return func() tea.Msg {
		state, err := m.pipeline.State(m.ctx)
		return stateMsg{state: state, err: err}
	}
}

func (m Model) switchCmd() tea.Cmd {
	return func() tea.Msg {
		result, err := m.pipeline.SwitchCamera(m.ctx)
		return switchedMsg{result: result, err: err}
	}
}

// captureCmd は投入時点の向きで撮影する
func (m Model) captureCmd(orientation camera.Orientation) tea.Cmd {
	results := m.pipeline.Capture(m.ctx, orientation)
	return func() tea.Msg {
		return capturedMsg{result: <-results}
	}
}

// frameCmd は次のプレビューフレームを待つ
func (m Model) frameCmd() tea.Cmd {
	frames := m.preview
	return func() tea.Msg {
		select {
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			return frameMsg{size: len(frame)}
		case <-m.ctx.Done():
			return nil
		}
	}
}

// timeTickCmd は1秒ごとに時刻を更新する
func timeTickCmd() tea.Cmd {
	return tea.Every(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Run はUIを起動し、終了まで待つ
// 保存通知はexporterから別ゴルーチンで届くのでProgram.Sendで戻す
func Run(ctx context.Context, pipeline Pipeline, exporter *library.Exporter) error {
	m := New(ctx, pipeline)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if exporter != nil {
		exporter.OnSaved(func(asset *library.Asset) {
			p.Send(savedMsg{asset: asset})
		})
	}

	_, err := p.Run()
	return err
}
