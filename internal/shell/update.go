package shell

import (
	"errors"
	"fmt"
	"time"

	"fullscreencamera/internal/library"
	"fullscreencamera/internal/session"

	tea "github.com/charmbracelet/bubbletea"
)

// Update はメッセージに応じてModelを更新する
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.currentTime = time.Time(msg)
		return m, timeTickCmd()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case startedMsg:
		if msg.err != nil {
			m.addMessage(describeError(msg.err), true)
			return m, m.stateCmd()
		}
		m.status = "撮影できます"
		return m, tea.Batch(m.stateCmd(), m.frameCmd())

	case stateMsg:
		if msg.err != nil {
			m.addMessage(describeError(msg.err), true)
			return m, nil
		}
		m.state = msg.state

	case switchedMsg:
		if msg.err != nil {
			// 失敗でパイプラインが止まることがあるので状態を取り直す
			m.addMessage(describeError(msg.err), true)
			return m, m.stateCmd()
		}
		if msg.result.Switched {
			m.addMessage(fmt.Sprintf("%s に切り替えました", deviceLabel(msg.result.Device)), false)
		} else {
			m.addMessage("切り替え可能なカメラがありません", false)
		}
		return m, m.stateCmd()

	case capturedMsg:
		if m.capturing > 0 {
			m.capturing--
		}
		if msg.result.Err != nil {
			m.addMessage(describeError(msg.result.Err), true)
			return m, nil
		}
		if msg.result.Asset != nil {
			m.lastAsset = msg.result.Asset
		}
		m.status = "撮影しました"

	case savedMsg:
		m.lastAsset = msg.asset
		m.addMessage(fmt.Sprintf("保存しました: %s", msg.asset.ID), false)

	case frameMsg:
		m.frames++
		m.frameSize = msg.size
		if m.quitting {
			return m, nil
		}
		return m, m.frameCmd()

	case stoppedMsg:
		if msg.err != nil {
			m.addMessage(describeError(msg.err), true)
		}
		return m, tea.Quit
	}

	return m, nil
}

// handleKey はキー入力を処理する
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.quitting {
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		m.status = "終了しています..."
		return m, m.stopCmd()

	case " ", "space", "enter":
		// 向きはここで確定させてから投入する
		m.capturing++
		return m, m.captureCmd(m.orientation)

	case "c":
		return m, m.switchCmd()

	case "r":
		m.orientation = m.orientation.Next()
	}

	return m, nil
}

// describeError はエラー種別ごとの表示文言を返す
func describeError(err error) string {
	switch session.Kind(err) {
	case session.KindDeviceUnavailable:
		return "カメラが見つかりません"
	case session.KindAttachFailure:
		return fmt.Sprintf("カメラを接続できません (%v)", err)
	case session.KindCaptureFailure:
		return fmt.Sprintf("撮影に失敗しました (%v)", err)
	case session.KindAuthorizationDenied:
		return "フォトライブラリへの保存が許可されていません"
	case session.KindNotRunning:
		return "カメラが起動していません"
	case session.KindNotConfigured:
		return "カメラが構成されていません"
	}
	if errors.Is(err, library.ErrNotFound) {
		return "アセットが見つかりません"
	}
	return err.Error()
}
