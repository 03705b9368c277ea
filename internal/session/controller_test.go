package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"fullscreencamera/internal/camera"
	"fullscreencamera/internal/library"
	"fullscreencamera/internal/metrics"
	"fullscreencamera/internal/queue"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

var (
	backDual  = camera.Device{ID: "back-dual", Path: "/dev/video0", Position: camera.PositionBack, Type: camera.DeviceTypeDual}
	backWide  = camera.Device{ID: "back-wide", Path: "/dev/video2", Position: camera.PositionBack, Type: camera.DeviceTypeWideAngle}
	frontWide = camera.Device{ID: "front-wide", Path: "/dev/video4", Position: camera.PositionFront, Type: camera.DeviceTypeWideAngle}
)

// fakeExporter は呼び出しを記録するExporter
type fakeExporter struct {
	mu     sync.Mutex
	images []*camera.StillImage
	err    error
}

func (f *fakeExporter) Export(_ context.Context, img *camera.StillImage) (*library.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images = append(f.images, img)
	if f.err != nil {
		return nil, f.err
	}
	return &library.Asset{ID: fmt.Sprintf("asset-%d", len(f.images)), Width: img.Width, Height: img.Height}, nil
}

func (f *fakeExporter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.images)
}

func newTestController(t *testing.T, devices ...camera.Device) (*Controller, *camera.MockSession, *camera.MockDiscovery) {
	t.Helper()
	sess := camera.NewMockSession()
	discovery := camera.NewMockDiscovery(devices...)
	c := NewController(sess, discovery)
	t.Cleanup(func() {
		_ = c.Teardown(context.Background())
	})
	return c, sess, discovery
}

func mustConfigure(t *testing.T, c *Controller) {
	t.Helper()
	if err := c.Configure(context.Background()); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
}

func mustStart(t *testing.T, c *Controller) {
	t.Helper()
	mustConfigure(t, c)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
}

// receive は結果を1件受け取り、その後チャンネルがクローズされることを確認する
func receive(t *testing.T, results <-chan CaptureResult) CaptureResult {
	t.Helper()
	var result CaptureResult
	select {
	case r, ok := <-results:
		if !ok {
			t.Fatal("結果が送られる前にチャンネルがクローズされました")
		}
		result = r
	case <-time.After(2 * time.Second):
		t.Fatal("撮影結果がタイムアウトしました")
	}

	select {
	case _, ok := <-results:
		if ok {
			t.Fatal("結果が2件以上送られました")
		}
	case <-time.After(time.Second):
		t.Fatal("チャンネルがクローズされませんでした")
	}
	return result
}

func TestConfigure(t *testing.T) {
	c, sess, _ := newTestController(t, frontWide, backWide, backDual)
	mustConfigure(t, c)

	want := []string{"begin", "add_input:back-dual", "add_output", "commit"}
	if got := sess.Ops(); !reflect.DeepEqual(got, want) {
		t.Errorf("ops = %v, want %v", got, want)
	}

	phase, err := c.Phase(context.Background())
	if err != nil {
		t.Fatalf("Phase failed: %v", err)
	}
	if phase != PhaseIdle {
		t.Errorf("phase = %s, want %s", phase, PhaseIdle)
	}
	if !c.Ready(context.Background()) {
		t.Error("構成後にReadyになっていません")
	}

	device, ok := c.ActiveDevice(context.Background())
	if !ok || device.ID != "back-dual" {
		t.Errorf("active device = %v (%v), want back-dual", device.ID, ok)
	}

	// 2回目は何もしない
	sess.ResetOps()
	mustConfigure(t, c)
	if got := sess.Ops(); len(got) != 0 {
		t.Errorf("再構成で操作が行われました: %v", got)
	}
}

func TestConfigure_Failures(t *testing.T) {
	testCases := []struct {
		name    string
		devices []camera.Device
		setup   func(*camera.MockSession)
		wantErr error
		wantOps []string
	}{
		{
			name:    "デバイスなし",
			devices: nil,
			wantErr: camera.ErrNoDevice,
			wantOps: []string{"begin", "commit"},
		},
		{
			name:    "入力の追加を拒否",
			devices: []camera.Device{backWide},
			setup: func(s *camera.MockSession) {
				s.SetRejectInput("back-wide", true)
			},
			wantErr: ErrAttachInput,
			wantOps: []string{"begin", "commit"},
		},
		{
			name:    "出力の追加を拒否",
			devices: []camera.Device{backWide},
			setup: func(s *camera.MockSession) {
				s.SetRejectOutput(true)
			},
			wantErr: ErrAttachOutput,
			wantOps: []string{"begin", "add_input:back-wide", "commit"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, sess, _ := newTestController(t, tc.devices...)
			if tc.setup != nil {
				tc.setup(sess)
			}

			err := c.Configure(context.Background())
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if got := sess.Ops(); !reflect.DeepEqual(got, tc.wantOps) {
				t.Errorf("ops = %v, want %v", got, tc.wantOps)
			}
			if sess.Configuring() {
				t.Error("トランザクションがコミットされていません")
			}
			if c.Ready(context.Background()) {
				t.Error("構成失敗後にReadyになっています")
			}
			if phase, _ := c.Phase(context.Background()); phase != PhaseUnconfigured {
				t.Errorf("phase = %s, want %s", phase, PhaseUnconfigured)
			}
		})
	}
}

func TestConfigure_RetryAfterOutputFailure(t *testing.T) {
	c, sess, _ := newTestController(t, backWide)
	sess.SetRejectOutput(true)
	if err := c.Configure(context.Background()); !errors.Is(err, ErrAttachOutput) {
		t.Fatalf("err = %v, want ErrAttachOutput", err)
	}

	sess.SetRejectOutput(false)
	sess.ResetOps()
	mustConfigure(t, c)

	want := []string{"begin", "add_output", "commit"}
	if got := sess.Ops(); !reflect.DeepEqual(got, want) {
		t.Errorf("ops = %v, want %v", got, want)
	}
	if len(sess.Inputs()) != 1 {
		t.Errorf("inputs = %d, want 1", len(sess.Inputs()))
	}
}

func TestStartStop(t *testing.T) {
	c, sess, _ := newTestController(t, backWide)
	ctx := context.Background()

	if err := c.Start(ctx); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("未構成のStart: err = %v, want ErrNotConfigured", err)
	}
	if sess.StartCount() != 0 {
		t.Fatal("未構成でハードウェアが起動されました")
	}

	mustConfigure(t, c)
	for i := 0; i < 3; i++ {
		if err := c.Start(ctx); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
	}
	if sess.StartCount() != 1 {
		t.Errorf("start count = %d, want 1", sess.StartCount())
	}
	if phase, _ := c.Phase(ctx); phase != PhaseRunning {
		t.Errorf("phase = %s, want %s", phase, PhaseRunning)
	}

	for i := 0; i < 3; i++ {
		if err := c.Stop(ctx); err != nil {
			t.Fatalf("Stop failed: %v", err)
		}
	}
	if sess.StopCount() != 1 {
		t.Errorf("stop count = %d, want 1", sess.StopCount())
	}
	if phase, _ := c.Phase(ctx); phase != PhaseIdle {
		t.Errorf("phase = %s, want %s", phase, PhaseIdle)
	}
}

func TestStart_Failure(t *testing.T) {
	c, sess, _ := newTestController(t, backWide)
	mustConfigure(t, c)
	sess.SetShouldFailStart(true)

	if err := c.Start(context.Background()); err == nil {
		t.Fatal("Start should fail")
	}
	if phase, _ := c.Phase(context.Background()); phase != PhaseIdle {
		t.Errorf("phase = %s, want %s", phase, PhaseIdle)
	}
}

func TestSwitchCamera_SingleDevice(t *testing.T) {
	c, sess, _ := newTestController(t, backWide)
	mustStart(t, c)
	sess.ResetOps()

	result, err := c.SwitchCamera(context.Background())
	if err != nil {
		t.Fatalf("SwitchCamera failed: %v", err)
	}
	if result.Switched {
		t.Error("デバイス1台で切り替えが行われました")
	}
	if result.Device.ID != "back-wide" {
		t.Errorf("device = %s, want back-wide", result.Device.ID)
	}
	if got := sess.Ops(); len(got) != 0 {
		t.Errorf("パイプラインが変更されました: %v", got)
	}
}

func TestSwitchCamera_BackAndForth(t *testing.T) {
	c, sess, _ := newTestController(t, backWide, frontWide)
	mustStart(t, c)
	sess.ResetOps()
	ctx := context.Background()

	result, err := c.SwitchCamera(ctx)
	if err != nil {
		t.Fatalf("SwitchCamera failed: %v", err)
	}
	if !result.Switched || result.Device.ID != "front-wide" || result.Position != camera.PositionFront {
		t.Errorf("result = %+v, want switched to front-wide", result)
	}

	want := []string{"begin", "remove_input:back-wide", "add_input:front-wide", "commit"}
	if got := sess.Ops(); !reflect.DeepEqual(got, want) {
		t.Errorf("ops = %v, want %v", got, want)
	}
	if inputs := sess.Inputs(); len(inputs) != 1 {
		t.Errorf("inputs = %d, want 1", len(inputs))
	}

	// 切り替えでフェーズは変わらない
	if phase, _ := c.Phase(ctx); phase != PhaseRunning {
		t.Errorf("phase = %s, want %s", phase, PhaseRunning)
	}
	if sess.StartCount() != 1 || sess.StopCount() != 0 {
		t.Errorf("start/stop = %d/%d, want 1/0", sess.StartCount(), sess.StopCount())
	}
	if !sess.IsRunning() {
		t.Error("切り替え後にセッションが停止しています")
	}

	result, err = c.SwitchCamera(ctx)
	if err != nil {
		t.Fatalf("SwitchCamera failed: %v", err)
	}
	if result.Device.ID != "back-wide" || result.Position != camera.PositionBack {
		t.Errorf("result = %+v, want back-wide", result)
	}
}

func TestSwitchCamera_NoOpposite(t *testing.T) {
	c, sess, _ := newTestController(t, backDual, backWide)
	mustConfigure(t, c)
	sess.ResetOps()

	result, err := c.SwitchCamera(context.Background())
	if err != nil {
		t.Fatalf("SwitchCamera failed: %v", err)
	}
	if result.Switched || result.Device.ID != "back-dual" {
		t.Errorf("result = %+v, want unchanged back-dual", result)
	}
	if got := sess.Ops(); len(got) != 0 {
		t.Errorf("パイプラインが変更されました: %v", got)
	}
}

func TestSwitchCamera_RestoresPreviousInput(t *testing.T) {
	c, sess, _ := newTestController(t, backWide, frontWide)
	mustConfigure(t, c)
	sess.SetRejectInput("front-wide", true)
	sess.ResetOps()

	result, err := c.SwitchCamera(context.Background())
	if !errors.Is(err, ErrAttachInput) {
		t.Fatalf("err = %v, want ErrAttachInput", err)
	}
	if result.Switched || result.Device.ID != "back-wide" {
		t.Errorf("result = %+v, want unchanged back-wide", result)
	}

	want := []string{"begin", "remove_input:back-wide", "add_input:back-wide", "commit"}
	if got := sess.Ops(); !reflect.DeepEqual(got, want) {
		t.Errorf("ops = %v, want %v", got, want)
	}
	inputs := sess.Inputs()
	if len(inputs) != 1 || inputs[0].Device.ID != "back-wide" {
		t.Errorf("inputs = %v, want [back-wide]", inputs)
	}
}

func TestSwitchCamera_RestartFailure(t *testing.T) {
	c, sess, _ := newTestController(t, backWide, frontWide)
	mustStart(t, c)
	sess.SetFailRestart(true)
	ctx := context.Background()

	result, err := c.SwitchCamera(ctx)
	if !errors.Is(err, ErrPipelineStopped) {
		t.Fatalf("err = %v, want ErrPipelineStopped", err)
	}
	if Kind(err) != KindDeviceUnavailable {
		t.Errorf("kind = %s, want %s", Kind(err), KindDeviceUnavailable)
	}
	if result.Device.ID != "front-wide" {
		t.Errorf("device = %s, want front-wide", result.Device.ID)
	}

	// フェーズはセッションの実行状態と一致する
	phase, _ := c.Phase(ctx)
	if phase != PhaseIdle || sess.IsRunning() {
		t.Errorf("phase = %s, session running = %v, want idle/false", phase, sess.IsRunning())
	}

	result2 := receive(t, c.Capture(ctx, camera.OrientationPortrait))
	if !errors.Is(result2.Err, ErrNotRunning) {
		t.Errorf("capture err = %v, want ErrNotRunning", result2.Err)
	}

	// 切り替え先の入力のまま再開できる
	sess.SetFailRestart(false)
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if sess.StartCount() != 2 || !sess.IsRunning() {
		t.Errorf("start count = %d, running = %v, want 2/true", sess.StartCount(), sess.IsRunning())
	}
	if device, _ := c.ActiveDevice(ctx); device.ID != "front-wide" {
		t.Errorf("active device = %s, want front-wide", device.ID)
	}
}

func TestSwitchCamera_RestoreKeepsRunning(t *testing.T) {
	c, sess, _ := newTestController(t, backWide, frontWide)
	mustStart(t, c)
	sess.SetRejectInput("front-wide", true)
	sess.SetFailRestart(true)
	ctx := context.Background()

	if _, err := c.SwitchCamera(ctx); !errors.Is(err, ErrAttachInput) {
		t.Fatalf("err = %v, want ErrAttachInput", err)
	}
	phase, _ := c.Phase(ctx)
	if phase != PhaseRunning || !sess.IsRunning() {
		t.Errorf("phase = %s, session running = %v, want running/true", phase, sess.IsRunning())
	}
}

func TestPreview_FanOut(t *testing.T) {
	c, sess, _ := newTestController(t, backWide)
	mustStart(t, c)

	first, unsubFirst := c.Preview()
	defer unsubFirst()
	second, unsubSecond := c.Preview()
	defer unsubSecond()

	frame := camera.SampleJPEG(2, 2)
	sess.PushFrame(frame)

	for i, ch := range []<-chan []byte{first, second} {
		select {
		case got := <-ch:
			if len(got) != len(frame) {
				t.Errorf("subscriber %d: size = %d, want %d", i, len(got), len(frame))
			}
		case <-time.After(time.Second):
			t.Errorf("subscriber %d: フレームが届きません", i)
		}
	}

	unsubFirst()
	if sess.Subscribers() != 1 {
		t.Errorf("subscribers = %d, want 1", sess.Subscribers())
	}
}

func TestSwitchCamera_Unconfigured(t *testing.T) {
	c, _, _ := newTestController(t, backWide, frontWide)

	if _, err := c.SwitchCamera(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}

func TestCapture_NotRunning(t *testing.T) {
	c, sess, _ := newTestController(t, backWide)
	mustConfigure(t, c)

	result := receive(t, c.Capture(context.Background(), camera.OrientationPortrait))
	if !errors.Is(result.Err, ErrNotRunning) {
		t.Errorf("err = %v, want ErrNotRunning", result.Err)
	}
	if sess.CaptureCount() != 0 {
		t.Error("実行中でないのに撮影リクエストが出されました")
	}
}

func TestCapture_Success(t *testing.T) {
	exporter := &fakeExporter{}
	sess := camera.NewMockSession()
	m := metrics.New()
	c := NewController(sess, camera.NewMockDiscovery(backWide), WithExporter(exporter), WithMetrics(m))
	defer c.Teardown(context.Background())
	mustStart(t, c)

	result := receive(t, c.Capture(context.Background(), camera.OrientationLandscapeLeft))
	if result.Err != nil {
		t.Fatalf("capture failed: %v", result.Err)
	}
	if result.Asset == nil {
		t.Fatal("アセットが返されませんでした")
	}
	img := result.Image
	if img.Width != 4 || img.Height != 3 {
		t.Errorf("size = %dx%d, want 4x3", img.Width, img.Height)
	}
	if img.Orientation != camera.OrientationLandscapeLeft {
		t.Errorf("orientation = %s, want %s", img.Orientation, camera.OrientationLandscapeLeft)
	}
	if img.Format != camera.FormatJPEG || img.DeviceID != "back-wide" {
		t.Errorf("image = %s/%s, want jpeg/back-wide", img.Format, img.DeviceID)
	}
	if exporter.calls() != 1 {
		t.Errorf("export calls = %d, want 1", exporter.calls())
	}

	if got := testutil.ToFloat64(m.Captures.WithLabelValues("ok")); got != 1 {
		t.Errorf("captures ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.AssetsSaved); got != 1 {
		t.Errorf("assets saved = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Phase.WithLabelValues(string(PhaseRunning))); got != 1 {
		t.Errorf("running phase gauge = %v, want 1", got)
	}
}

func TestCapture_Failures(t *testing.T) {
	testCases := []struct {
		name      string
		data      []byte
		err       error
		exportErr error
		wantErr   error
		wantKind  string
		wantCalls int
	}{
		{"撮影エラー", nil, errors.New("sensor"), nil, ErrCaptureFailed, KindCaptureFailure, 0},
		{"デコード不可", []byte{0x00, 0x01, 0x02}, nil, nil, ErrUndecodable, KindCaptureFailure, 0},
		{"空データ", []byte{}, nil, nil, ErrUndecodable, KindCaptureFailure, 0},
		{"認可なし", camera.SampleJPEG(2, 2), nil, library.ErrAuthorizationDenied, library.ErrAuthorizationDenied, KindAuthorizationDenied, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			exporter := &fakeExporter{err: tc.exportErr}
			sess := camera.NewMockSession()
			c := NewController(sess, camera.NewMockDiscovery(backWide), WithExporter(exporter))
			defer c.Teardown(context.Background())
			mustStart(t, c)
			sess.SetCaptureResult(tc.data, tc.err)

			result := receive(t, c.Capture(context.Background(), camera.OrientationPortrait))
			if !errors.Is(result.Err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", result.Err, tc.wantErr)
			}
			if kind := Kind(result.Err); kind != tc.wantKind {
				t.Errorf("kind = %s, want %s", kind, tc.wantKind)
			}
			if result.Asset != nil {
				t.Error("失敗時にアセットが返されました")
			}
			if exporter.calls() != tc.wantCalls {
				t.Errorf("export calls = %d, want %d", exporter.calls(), tc.wantCalls)
			}
		})
	}
}

func TestCapture_Concurrent(t *testing.T) {
	exporter := &fakeExporter{}
	sess := camera.NewMockSession()
	c := NewController(sess, camera.NewMockDiscovery(backWide), WithExporter(exporter))
	defer c.Teardown(context.Background())
	mustStart(t, c)

	const n = 5
	channels := make([]<-chan CaptureResult, n)
	for i := range channels {
		channels[i] = c.Capture(context.Background(), camera.OrientationPortrait)
	}
	for i, ch := range channels {
		if result := receive(t, ch); result.Err != nil {
			t.Errorf("capture %d failed: %v", i, result.Err)
		}
	}
	if sess.CaptureCount() != n {
		t.Errorf("capture requests = %d, want %d", sess.CaptureCount(), n)
	}
	if exporter.calls() != n {
		t.Errorf("export calls = %d, want %d", exporter.calls(), n)
	}
}

func TestCapture_SavesToLibrary(t *testing.T) {
	dir := t.TempDir()
	store, err := library.NewStore(dir, filepath.Join(dir, "library.db"), library.WithPrompt(library.GrantPrompt))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer store.Close()

	exporter := library.NewExporter(store)
	saved := make(chan *library.Asset, 1)
	exporter.OnSaved(func(asset *library.Asset) {
		saved <- asset
	})

	c := NewController(camera.NewMockSession(), camera.NewMockDiscovery(backWide, frontWide), WithExporter(exporter))
	defer c.Teardown(context.Background())
	mustStart(t, c)

	result := receive(t, c.Capture(context.Background(), camera.OrientationPortraitUpsideDown))
	if result.Err != nil {
		t.Fatalf("capture failed: %v", result.Err)
	}

	select {
	case asset := <-saved:
		if asset.ID != result.Asset.ID {
			t.Errorf("saved asset = %s, want %s", asset.ID, result.Asset.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("保存通知が呼ばれませんでした")
	}

	latest, err := store.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if latest.ID != result.Asset.ID || latest.Orientation != camera.OrientationPortraitUpsideDown {
		t.Errorf("latest = %+v", latest)
	}
}

func TestTeardown(t *testing.T) {
	sess := camera.NewMockSession()
	c := NewController(sess, camera.NewMockDiscovery(backWide))
	mustStart(t, c)

	if err := c.Teardown(context.Background()); err != nil {
		t.Fatalf("Teardown failed: %v", err)
	}
	if sess.StopCount() != 1 || sess.IsRunning() {
		t.Errorf("stop count = %d, running = %v", sess.StopCount(), sess.IsRunning())
	}
	if err := c.Configure(context.Background()); !errors.Is(err, queue.ErrClosed) {
		t.Errorf("err = %v, want queue.ErrClosed", err)
	}

	result := receive(t, c.Capture(context.Background(), camera.OrientationPortrait))
	if !errors.Is(result.Err, queue.ErrClosed) {
		t.Errorf("err = %v, want queue.ErrClosed", result.Err)
	}
}

func TestKind(t *testing.T) {
	testCases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{camera.ErrNoDevice, KindDeviceUnavailable},
		{fmt.Errorf("wrap: %w", ErrAttachInput), KindAttachFailure},
		{ErrAttachOutput, KindAttachFailure},
		{fmt.Errorf("%w: sensor", ErrCaptureFailed), KindCaptureFailure},
		{ErrUndecodable, KindCaptureFailure},
		{fmt.Errorf("%w: /dev/video4", ErrPipelineStopped), KindDeviceUnavailable},
		{library.ErrAuthorizationDenied, KindAuthorizationDenied},
		{ErrNotRunning, KindNotRunning},
		{ErrNotConfigured, KindNotConfigured},
		{errors.New("other"), KindInternal},
	}

	for _, tc := range testCases {
		if got := Kind(tc.err); got != tc.want {
			t.Errorf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestScenario_InitialThenSwitch(t *testing.T) {
	c, _, _ := newTestController(t, backDual, frontWide)
	mustStart(t, c)

	device, _ := c.ActiveDevice(context.Background())
	if device.ID != "back-dual" {
		t.Fatalf("initial device = %s, want back-dual", device.ID)
	}

	result, err := c.SwitchCamera(context.Background())
	if err != nil {
		t.Fatalf("SwitchCamera failed: %v", err)
	}
	if result.Device.ID != "front-wide" {
		t.Errorf("switched device = %s, want front-wide", result.Device.ID)
	}
}

func TestScenario_AuthorizationDeniedDiscardsImage(t *testing.T) {
	dir := t.TempDir()
	store, err := library.NewStore(dir, filepath.Join(dir, "library.db"), library.WithPrompt(library.DenyPrompt))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer store.Close()

	c := NewController(camera.NewMockSession(), camera.NewMockDiscovery(backWide), WithExporter(library.NewExporter(store)))
	defer c.Teardown(context.Background())
	mustStart(t, c)

	result := receive(t, c.Capture(context.Background(), camera.OrientationPortrait))
	if !errors.Is(result.Err, library.ErrAuthorizationDenied) {
		t.Fatalf("err = %v, want ErrAuthorizationDenied", result.Err)
	}
	if result.Asset != nil {
		t.Error("認可なしでアセットが作成されました")
	}

	assets, err := store.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(assets) != 0 {
		t.Errorf("assets = %d, want 0", len(assets))
	}

	// パイプラインはそのまま使える
	if phase, _ := c.Phase(context.Background()); phase != PhaseRunning {
		t.Errorf("phase = %s, want running", phase)
	}
}
