package shell

import (
	"fmt"
	"strings"

	"fullscreencamera/internal/camera"
	"fullscreencamera/internal/session"

	"github.com/charmbracelet/lipgloss"
)

// スタイル定義
var (
	headerStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("0")).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("237")).
			Foreground(lipgloss.Color("250")).
			Padding(0, 1)

	mainContentStyle = lipgloss.NewStyle().
				Padding(1, 2)

	liveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	thumbnailStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("250")).
			Padding(0, 1)

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))
)

// View は画面全体を描画する
func (m Model) View() string {
	timeStr := m.currentTime.Format("2006-01-02 15:04:05")

	headerContent := lipgloss.JoinHorizontal(
		lipgloss.Center,
		"📷 Full Screen Camera",
		lipgloss.NewStyle().
			Width(max(m.width-24, 0)).
			Align(lipgloss.Right).
			Render(timeStr),
	)
	header := headerStyle.Width(m.width).Render(headerContent)

	mainContent := mainContentStyle.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderPreview(),
		"",
		m.renderControls(),
		"",
		m.renderMessages(),
	))

	statusBar := statusBarStyle.Width(m.width).Render(
		fmt.Sprintf("%s | space:撮影 c:切替 r:回転 q:終了", m.status),
	)

	return fmt.Sprintf("%s\n%s\n%s", header, mainContent, statusBar)
}

// renderPreview はプレビュー領域を描画する
func (m Model) renderPreview() string {
	var b strings.Builder

	if m.state.Phase == session.PhaseRunning {
		b.WriteString(liveStyle.Render("● LIVE"))
	} else {
		b.WriteString(string(m.state.Phase))
	}
	b.WriteString(fmt.Sprintf("  フレーム: %d", m.frames))
	if m.frameSize > 0 {
		b.WriteString(fmt.Sprintf(" (%d KB)", m.frameSize/1024))
	}
	b.WriteString("\n")

	if m.state.Device != nil {
		b.WriteString(fmt.Sprintf("カメラ: %s\n", deviceLabel(*m.state.Device)))
	} else {
		b.WriteString("カメラ: なし\n")
	}
	b.WriteString(fmt.Sprintf("向き: %s %s", orientationIcon(m.orientation), m.orientation))

	return b.String()
}

// renderControls はサムネイル・シャッター・切り替えボタンを描画する
func (m Model) renderControls() string {
	thumbnail := "サムネイルなし"
	if m.lastAsset != nil {
		thumbnail = fmt.Sprintf("▣ %dx%d\n%s", m.lastAsset.Width, m.lastAsset.Height, shortID(m.lastAsset.ID))
	}

	shutter := "( ○ )"
	if m.capturing > 0 {
		shutter = "( ● )"
	}

	position := camera.PositionUnspecified
	if m.state.Device != nil {
		position = m.state.Device.Position
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Center,
		thumbnailStyle.Render(thumbnail),
		"    ",
		shutter,
		"    ",
		thumbnailStyle.Render(positionIcon(position)),
	)
}

// renderMessages は最近のメッセージを描画する
func (m Model) renderMessages() string {
	lines := make([]string, 0, len(m.messages))
	for _, msg := range m.messages {
		style := messageStyle
		if msg.isError {
			style = errorStyle
		}
		lines = append(lines, style.Render(fmt.Sprintf("%s %s", msg.timestamp.Format("15:04:05"), msg.text)))
	}
	return strings.Join(lines, "\n")
}

func deviceLabel(d camera.Device) string {
	name := d.Name
	if name == "" {
		name = d.ID
	}
	return fmt.Sprintf("%s (%s)", name, d.Position)
}

// positionIcon は切り替えボタンに表示する向きのアイコン
func positionIcon(p camera.Position) string {
	switch p {
	case camera.PositionFront:
		return "⟲ 前面"
	case camera.PositionBack:
		return "⟲ 背面"
	default:
		return "⟲ ---"
	}
}

func orientationIcon(o camera.Orientation) string {
	switch o {
	case camera.OrientationLandscapeRight:
		return "→"
	case camera.OrientationPortraitUpsideDown:
		return "↓"
	case camera.OrientationLandscapeLeft:
		return "←"
	default:
		return "↑"
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
