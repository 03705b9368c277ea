package shell

import (
	"context"
	"errors"
	"strings"
	"testing"

	"fullscreencamera/internal/camera"
	"fullscreencamera/internal/library"
	"fullscreencamera/internal/session"

	tea "github.com/charmbracelet/bubbletea"
)

var (
	backWide  = camera.Device{ID: "back-wide", Name: "背面カメラ", Path: "/dev/video0", Position: camera.PositionBack, Type: camera.DeviceTypeWideAngle}
	frontWide = camera.Device{ID: "front-wide", Name: "前面カメラ", Path: "/dev/video2", Position: camera.PositionFront, Type: camera.DeviceTypeWideAngle}
)

func newTestModel(t *testing.T, devices ...camera.Device) (Model, *camera.MockSession) {
	t.Helper()
	sess := camera.NewMockSession()
	ctrl := session.NewController(sess, camera.NewMockDiscovery(devices...))
	t.Cleanup(func() { _ = ctrl.Teardown(context.Background()) })
	return New(context.Background(), ctrl), sess
}

// apply はメッセージを渡して更新後のModelとコマンドを返す
func apply(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Updateが想定外の型を返しました: %T", next)
	}
	return model, cmd
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// started はパイプラインを開始した状態のModelを返す
func started(t *testing.T, m Model) Model {
	t.Helper()
	msg := m.startCmd()()
	if sm, ok := msg.(startedMsg); !ok || sm.err != nil {
		t.Fatalf("開始に失敗しました: %#v", msg)
	}
	m, _ = apply(t, m, msg)
	m, _ = apply(t, m, m.stateCmd()())
	return m
}

func TestStart(t *testing.T) {
	m, sess := newTestModel(t, backWide)
	m = started(t, m)

	if m.state.Phase != session.PhaseRunning {
		t.Errorf("phase = %s, want running", m.state.Phase)
	}
	if m.state.Device == nil || m.state.Device.ID != "back-wide" {
		t.Errorf("device = %v", m.state.Device)
	}
	if sess.StartCount() != 1 {
		t.Errorf("start count = %d", sess.StartCount())
	}
	if !strings.Contains(m.View(), "背面カメラ") {
		t.Error("画面にカメラ名が表示されていません")
	}
}

func TestStart_NoDevice(t *testing.T) {
	m, _ := newTestModel(t)

	msg := m.startCmd()()
	m, _ = apply(t, m, msg)
	if len(m.messages) != 1 || !m.messages[0].isError {
		t.Fatalf("messages = %+v", m.messages)
	}
	if m.messages[0].text != "カメラが見つかりません" {
		t.Errorf("message = %s", m.messages[0].text)
	}
}

func TestCapture_UsesOrientationAtDispatch(t *testing.T) {
	m, _ := newTestModel(t, backWide)
	m = started(t, m)

	m, _ = apply(t, m, key("r"))
	if m.orientation != camera.OrientationLandscapeRight {
		t.Fatalf("orientation = %s", m.orientation)
	}

	m, cmd := apply(t, m, key(" "))
	if cmd == nil {
		t.Fatal("撮影コマンドが返されませんでした")
	}
	if m.capturing != 1 {
		t.Errorf("capturing = %d, want 1", m.capturing)
	}

	// 投入後に向きを変えても結果には影響しない
	m, _ = apply(t, m, key("r"))

	msg := cmd()
	captured, ok := msg.(capturedMsg)
	if !ok {
		t.Fatalf("msg = %#v", msg)
	}
	if captured.result.Err != nil {
		t.Fatalf("capture failed: %v", captured.result.Err)
	}
	if captured.result.Image.Orientation != camera.OrientationLandscapeRight {
		t.Errorf("orientation = %s, want landscape_right", captured.result.Image.Orientation)
	}

	m, _ = apply(t, m, msg)
	if m.capturing != 0 {
		t.Errorf("capturing = %d, want 0", m.capturing)
	}
}

func TestCapture_NotRunning(t *testing.T) {
	m, _ := newTestModel(t, backWide)

	m, cmd := apply(t, m, key("enter"))
	m, _ = apply(t, m, cmd())

	if len(m.messages) != 1 || m.messages[0].text != "カメラが起動していません" {
		t.Errorf("messages = %+v", m.messages)
	}
}

func TestSwitchCamera(t *testing.T) {
	m, _ := newTestModel(t, backWide, frontWide)
	m = started(t, m)

	m, cmd := apply(t, m, key("c"))
	msg := cmd()
	switched, ok := msg.(switchedMsg)
	if !ok || switched.err != nil || !switched.result.Switched {
		t.Fatalf("msg = %#v", msg)
	}

	m, cmd = apply(t, m, msg)
	m, _ = apply(t, m, cmd())
	if m.state.Device == nil || m.state.Device.Position != camera.PositionFront {
		t.Errorf("device = %v", m.state.Device)
	}
	if !strings.Contains(m.View(), "前面") {
		t.Error("切り替えボタンに前面アイコンが表示されていません")
	}
}

func TestSwitchCamera_PipelineStopped(t *testing.T) {
	m, sess := newTestModel(t, backWide, frontWide)
	m = started(t, m)
	sess.SetFailRestart(true)

	m, cmd := apply(t, m, key("c"))
	msg := cmd()
	switched, ok := msg.(switchedMsg)
	if !ok || !errors.Is(switched.err, session.ErrPipelineStopped) {
		t.Fatalf("msg = %#v", msg)
	}

	m, cmd = apply(t, m, msg)
	if cmd == nil {
		t.Fatal("状態の再取得が行われません")
	}
	m, _ = apply(t, m, cmd())
	if m.state.Phase != session.PhaseIdle {
		t.Errorf("phase = %s, want idle", m.state.Phase)
	}
	if len(m.messages) == 0 || !m.messages[len(m.messages)-1].isError {
		t.Errorf("エラーメッセージが表示されていません: %v", m.messages)
	}
}

func TestSavedMsg(t *testing.T) {
	m, _ := newTestModel(t, backWide)

	m, _ = apply(t, m, savedMsg{asset: &library.Asset{ID: "0123456789abcdef", Width: 4, Height: 3}})
	if m.lastAsset == nil || m.lastAsset.ID != "0123456789abcdef" {
		t.Fatalf("lastAsset = %v", m.lastAsset)
	}
	if !strings.Contains(m.View(), "01234567") {
		t.Error("サムネイルが表示されていません")
	}
}

func TestQuit(t *testing.T) {
	m, sess := newTestModel(t, backWide)
	m = started(t, m)

	m, cmd := apply(t, m, key("q"))
	if !m.quitting {
		t.Error("終了中になっていません")
	}

	// 終了中のキー入力は無視する
	if _, c := apply(t, m, key(" ")); c != nil {
		t.Error("終了中に撮影コマンドが返されました")
	}

	msg := cmd()
	if _, ok := msg.(stoppedMsg); !ok {
		t.Fatalf("msg = %#v", msg)
	}
	if sess.StopCount() != 1 {
		t.Errorf("stop count = %d, want 1", sess.StopCount())
	}

	_, cmd = apply(t, m, msg)
	if cmd == nil {
		t.Fatal("終了コマンドが返されませんでした")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("tea.Quitが返されませんでした")
	}
}

func TestMessagesAreCapped(t *testing.T) {
	m, _ := newTestModel(t, backWide)
	for i := 0; i < maxMessages+5; i++ {
		m.addMessage("msg", false)
	}
	if len(m.messages) != maxMessages {
		t.Errorf("messages = %d, want %d", len(m.messages), maxMessages)
	}
}

func TestDescribeError(t *testing.T) {
	testCases := []struct {
		err  error
		want string
	}{
		{camera.ErrNoDevice, "カメラが見つかりません"},
		{library.ErrAuthorizationDenied, "フォトライブラリへの保存が許可されていません"},
		{session.ErrNotConfigured, "カメラが構成されていません"},
		{errors.New("boom"), "boom"},
	}
	for _, tc := range testCases {
		if got := describeError(tc.err); got != tc.want {
			t.Errorf("describeError(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}
