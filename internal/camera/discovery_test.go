package camera

import (
	"context"
	"errors"
	"testing"
)

func TestLinuxDiscovery_ScanDevices(t *testing.T) {
	ctx := context.Background()
	discovery := NewLinuxDiscovery(nil, PositionBack)

	devices, err := discovery.ScanDevices(ctx)
	if err != nil {
		t.Fatalf("ScanDevices failed: %v", err)
	}

	// デバイスが見つからない場合もあるため、エラーがないことを確認
	t.Logf("Found %d video devices", len(devices))
	for _, device := range devices {
		t.Logf("Device: %s (%s, %s)", device.Path, device.Position, device.Type)
	}
}

func TestLinuxDiscovery_IsDeviceAvailable(t *testing.T) {
	ctx := context.Background()
	discovery := NewLinuxDiscovery(nil, PositionBack)

	// 存在しないデバイスをテスト
	if discovery.IsDeviceAvailable(ctx, "/dev/video999") {
		t.Error("Expected non-existent device to be unavailable")
	}

	// 無効なパスをテスト
	if discovery.IsDeviceAvailable(ctx, "/invalid/path") {
		t.Error("Expected invalid path to be unavailable")
	}
}

func TestLinuxDiscovery_DescribeHints(t *testing.T) {
	discovery := NewLinuxDiscovery([]DeviceHint{
		{Path: "/dev/video2", Name: "インカメラ", Position: PositionFront},
	}, PositionBack)

	d := discovery.describe("/dev/video2")
	if d.Position != PositionFront {
		t.Errorf("設定の向きが反映されていません: got %s", d.Position)
	}
	if d.Name != "インカメラ" {
		t.Errorf("設定の名前が反映されていません: got %s", d.Name)
	}
	if d.Type != DeviceTypeWideAngle {
		t.Errorf("種類のデフォルトは広角であるべきです: got %s", d.Type)
	}
	if d.ID != "video2" {
		t.Errorf("IDが一致しません: got %s", d.ID)
	}

	other := discovery.describe("/dev/video7")
	if other.Position != PositionBack {
		t.Errorf("未設定デバイスはデフォルトの向きになるべきです: got %s", other.Position)
	}
}

func TestGuessFromCardName(t *testing.T) {
	testCases := []struct {
		name     string
		position Position
		posOK    bool
		dtype    DeviceType
		typeOK   bool
	}{
		{"Integrated Front Camera", PositionFront, true, DeviceTypeWideAngle, false},
		{"Rear Dual Camera", PositionBack, true, DeviceTypeDual, true},
		{"Intel RealSense Depth", PositionUnspecified, false, DeviceTypeTrueDepth, true},
		{"HD Pro Webcam C920", PositionUnspecified, false, DeviceTypeWideAngle, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pos, ok := guessPosition(tc.name)
			if ok != tc.posOK || pos != tc.position {
				t.Errorf("guessPosition = (%s, %v), want (%s, %v)", pos, ok, tc.position, tc.posOK)
			}
			dt, ok := guessType(tc.name)
			if ok != tc.typeOK || dt != tc.dtype {
				t.Errorf("guessType = (%s, %v), want (%s, %v)", dt, ok, tc.dtype, tc.typeOK)
			}
		})
	}
}

func TestExtractDeviceNumber(t *testing.T) {
	if n := extractDeviceNumber("/dev/video12"); n != 12 {
		t.Errorf("got %d, want 12", n)
	}
	if n := extractDeviceNumber("/dev/null"); n != 0 {
		t.Errorf("got %d, want 0", n)
	}
}

func TestMockDiscovery(t *testing.T) {
	ctx := context.Background()
	discovery := NewMockDiscovery(backDual, frontWide)

	devices, err := discovery.ScanDevices(ctx)
	if err != nil {
		t.Fatalf("ScanDevices failed: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("Expected 2 devices, got %d", len(devices))
	}

	// 返されたスライスを変更しても内部状態は変わらない
	devices[0].Position = PositionFront
	again, _ := discovery.ScanDevices(ctx)
	if again[0].Position != PositionBack {
		t.Error("ScanDevices はコピーを返すべきです")
	}

	if !discovery.IsDeviceAvailable(ctx, frontWide.Path) {
		t.Error("Expected mock device to be available")
	}

	discovery.AddDevice(backWide)
	discovery.AddDevice(backWide)
	devices, _ = discovery.ScanDevices(ctx)
	if len(devices) != 3 {
		t.Fatalf("Expected 3 devices after AddDevice, got %d", len(devices))
	}

	discovery.RemoveDevice(backWide.ID)
	if discovery.IsDeviceAvailable(ctx, backWide.Path) {
		t.Error("Expected removed device to be unavailable")
	}

	scanErr := errors.New("scan failed")
	discovery.SetScanError(scanErr)
	if _, err := discovery.ScanDevices(ctx); !errors.Is(err, scanErr) {
		t.Errorf("Expected scan error, got %v", err)
	}
}
