package camera

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DeviceHint は設定ファイルで与えるデバイスの向き・種類
type DeviceHint struct {
	Path     string
	Name     string
	Position Position
	Type     DeviceType
}

// LinuxDiscovery はLinux環境でのカメラデバイス検出を実装する
type LinuxDiscovery struct {
	hints           map[string]DeviceHint
	defaultPosition Position
	pattern         string
}

// NewLinuxDiscovery は新しいLinuxDiscoveryを作成する
// hintsに無いデバイスはカード名から向きを推定し、推定できなければdefaultPositionを使う
func NewLinuxDiscovery(hints []DeviceHint, defaultPosition Position) *LinuxDiscovery {
	m := make(map[string]DeviceHint, len(hints))
	for _, h := range hints {
		m[h.Path] = h
	}
	return &LinuxDiscovery{
		hints:           m,
		defaultPosition: defaultPosition,
		pattern:         "/dev/video*",
	}
}

// ScanDevices はシステム内の利用可能なカメラデバイスをスキャンする
func (d *LinuxDiscovery) ScanDevices(ctx context.Context) ([]Device, error) {
	matches, err := filepath.Glob(d.pattern)
	if err != nil {
		return nil, fmt.Errorf("デバイスのスキャンに失敗: %w", err)
	}

	// デバイス番号でソート
	sort.Slice(matches, func(i, j int) bool {
		return extractDeviceNumber(matches[i]) < extractDeviceNumber(matches[j])
	})

	var devices []Device
	for _, match := range matches {
		select {
		case <-ctx.Done():
			return devices, ctx.Err()
		default:
		}

		if !d.IsDeviceAvailable(ctx, match) {
			continue
		}
		// 設定済みのデバイスはチャンネル判定を省略する
		if _, ok := d.hints[match]; !ok && !d.isMainCamera(ctx, match) {
			continue
		}
		devices = append(devices, d.describe(match))
	}

	return devices, nil
}

// IsDeviceAvailable は指定されたデバイスが利用可能かチェックする
func (d *LinuxDiscovery) IsDeviceAvailable(_ context.Context, path string) bool {
	if !isV4L2Path(path) {
		return false
	}

	file, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return false
	}
	_ = file.Close()
	return true
}

// describe はデバイスパスからDeviceを組み立てる
func (d *LinuxDiscovery) describe(path string) Device {
	name := getV4L2DeviceName(path)
	if name == "" {
		name = fmt.Sprintf("カメラ %d", extractDeviceNumber(path))
	}

	device := Device{
		ID:       fmt.Sprintf("video%d", extractDeviceNumber(path)),
		Name:     name,
		Path:     path,
		Position: d.defaultPosition,
		Type:     DeviceTypeWideAngle,
	}

	if pos, ok := guessPosition(name); ok {
		device.Position = pos
	}
	if t, ok := guessType(name); ok {
		device.Type = t
	}

	// 設定ファイルの指定を最優先
	if hint, ok := d.hints[path]; ok {
		if hint.Name != "" {
			device.Name = hint.Name
		}
		if hint.Position != "" {
			device.Position = hint.Position
		}
		if hint.Type != "" {
			device.Type = hint.Type
		}
	}

	return device
}

// guessPosition はカード名のキーワードから向きを推定する
func guessPosition(name string) (Position, bool) {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "front"), strings.Contains(lower, "user-facing"):
		return PositionFront, true
	case strings.Contains(lower, "back"), strings.Contains(lower, "rear"), strings.Contains(lower, "world-facing"):
		return PositionBack, true
	}
	return PositionUnspecified, false
}

// guessType はカード名のキーワードから種類を推定する
func guessType(name string) (DeviceType, bool) {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "dual"), strings.Contains(lower, "stereo"):
		return DeviceTypeDual, true
	case strings.Contains(lower, "depth"), strings.Contains(lower, "realsense"):
		return DeviceTypeTrueDepth, true
	}
	return DeviceTypeWideAngle, false
}

var videoPathPattern = regexp.MustCompile(`^/dev/video(\d+)$`)

// isV4L2Path は /dev/videoXX 形式かチェックする
func isV4L2Path(path string) bool {
	return videoPathPattern.MatchString(path)
}

// extractDeviceNumber はデバイスパスから番号を抽出する
func extractDeviceNumber(path string) int {
	matches := videoPathPattern.FindStringSubmatch(path)
	if len(matches) < 2 {
		return 0
	}

	num, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0
	}
	return num
}

// getV4L2DeviceName はv4l2-ctlを使って実際のデバイス名を取得する
func getV4L2DeviceName(path string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, "v4l2-ctl", "--device", path, "--info").Output()
	if err != nil {
		return ""
	}

	// "Card type" の行からカメラ名を抽出
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "Card type") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) == 2 {
			if cardType := strings.TrimSpace(parts[1]); cardType != "" {
				return cardType
			}
		}
	}
	return ""
}

// listFormats はv4l2-ctlでサポートフォーマットを取得する
func listFormats(ctx context.Context, path string) (string, bool) {
	output, err := exec.CommandContext(ctx, "v4l2-ctl", "--device", path, "--list-formats-ext").Output()
	if err != nil {
		return "", false
	}
	return string(output), true
}

// hasColorFormat はカラーフォーマット(YUYV/MJPG)を含むか判定する
func hasColorFormat(formats string) bool {
	return strings.Contains(formats, "YUYV") || strings.Contains(formats, "MJPG")
}

// isMainCamera はデバイスがメインカメラ（カラー）かどうかを判定する
// 同じ物理カメラの複数チャンネルは最も小さい番号のみを採用する
func (d *LinuxDiscovery) isMainCamera(ctx context.Context, path string) bool {
	formats, ok := listFormats(ctx, path)
	if !ok || !hasColorFormat(formats) {
		return false
	}

	name := getV4L2DeviceName(path)
	num := extractDeviceNumber(path)
	for i := 0; i < num; i++ {
		sibling := fmt.Sprintf("/dev/video%d", i)
		if !d.IsDeviceAvailable(ctx, sibling) {
			continue
		}
		siblingFormats, ok := listFormats(ctx, sibling)
		if !ok || !hasColorFormat(siblingFormats) {
			continue
		}
		if name != "" && name == getV4L2DeviceName(sibling) {
			return false
		}
	}
	return true
}

// MockDiscovery はテスト用のモックDiscovery実装
type MockDiscovery struct {
	mu      sync.RWMutex
	devices []Device
	scanErr error
}

// NewMockDiscovery は新しいMockDiscoveryを作成する
func NewMockDiscovery(devices ...Device) *MockDiscovery {
	return &MockDiscovery{devices: append([]Device(nil), devices...)}
}

// ScanDevices はモックデバイス一覧のコピーを返す
func (m *MockDiscovery) ScanDevices(_ context.Context) ([]Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.scanErr != nil {
		return nil, m.scanErr
	}
	return append([]Device(nil), m.devices...), nil
}

// IsDeviceAvailable はモックデバイスが利用可能かチェックする
func (m *MockDiscovery) IsDeviceAvailable(_ context.Context, path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, d := range m.devices {
		if d.Path == path {
			return true
		}
	}
	return false
}

// AddDevice はテスト用にデバイスを追加する
func (m *MockDiscovery) AddDevice(device Device) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range m.devices {
		if d.ID == device.ID {
			return
		}
	}
	m.devices = append(m.devices, device)
}

// RemoveDevice はテスト用にデバイスを削除する
func (m *MockDiscovery) RemoveDevice(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, d := range m.devices {
		if d.ID == id {
			m.devices = append(m.devices[:i], m.devices[i+1:]...)
			return
		}
	}
}

// SetScanError はテスト用にスキャン失敗を設定する
func (m *MockDiscovery) SetScanError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanErr = err
}
