package camera

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func TestSplitJPEGFrames(t *testing.T) {
	frameA := []byte{0xFF, 0xD8, 0x01, 0x02, 0xFF, 0xD9}
	frameB := []byte{0xFF, 0xD8, 0x03, 0xFF, 0xD9}

	testCases := []struct {
		name       string
		data       []byte
		wantFrames int
		wantRest   []byte
	}{
		{"空データ", nil, 0, nil},
		{"マーカーなし", []byte{0x00, 0x01}, 0, nil},
		{"1フレーム", frameA, 1, nil},
		{"2フレーム連続", append(append([]byte{}, frameA...), frameB...), 2, nil},
		{"先頭のゴミを捨てる", append([]byte{0x00, 0x00}, frameA...), 1, nil},
		{"未完了フレームは残す", append(append([]byte{}, frameA...), 0xFF, 0xD8, 0x05), 1, []byte{0xFF, 0xD8, 0x05}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			frames, rest := splitJPEGFrames(tc.data)
			if len(frames) != tc.wantFrames {
				t.Fatalf("frames = %d, want %d", len(frames), tc.wantFrames)
			}
			if !bytes.Equal(rest, tc.wantRest) {
				t.Errorf("rest = %x, want %x", rest, tc.wantRest)
			}
			if len(frames) > 0 && !bytes.Equal(frames[0], frameA) {
				t.Errorf("first frame = %x, want %x", frames[0], frameA)
			}
		})
	}
}

func TestReadJPEGStream(t *testing.T) {
	frame := []byte{0xFF, 0xD8, 0x10, 0xFF, 0xD9}
	stream := bytes.Repeat(frame, 3)

	frameChan := make(chan []byte, 3)
	if err := readJPEGStream(context.Background(), bytes.NewReader(stream), frameChan); err != nil {
		t.Fatalf("readJPEGStream failed: %v", err)
	}
	close(frameChan)

	count := 0
	for f := range frameChan {
		if !bytes.Equal(f, frame) {
			t.Errorf("frame = %x, want %x", f, frame)
		}
		count++
	}
	if count != 3 {
		t.Errorf("Expected 3 frames, got %d", count)
	}
}

func TestV4L2Session_TransactionRules(t *testing.T) {
	discovery := NewMockDiscovery(backWide)
	s := NewV4L2Session(discovery, 15)
	in := NewInput(backWide)
	out := NewPhotoOutput(2)

	// トランザクション外では追加できない
	if s.CanAddInput(in) {
		t.Error("トランザクション外で入力追加が許可されました")
	}
	s.AddInput(in)
	if s.currentInputLocked() != nil {
		t.Error("トランザクション外の入力追加が反映されました")
	}

	s.BeginConfiguration()
	if !s.CanAddInput(in) {
		t.Fatal("入力が追加できません")
	}
	s.AddInput(in)
	if s.CanAddInput(NewInput(backWide)) {
		t.Error("2つ目の入力が許可されました")
	}
	if !s.CanAddOutput(out) {
		t.Fatal("出力が追加できません")
	}
	s.AddOutput(out)
	if s.CanAddOutput(NewPhotoOutput(2)) {
		t.Error("2つ目の出力が許可されました")
	}
	s.CommitConfiguration()

	if s.IsRunning() {
		t.Error("開始前に実行中になっています")
	}

	// 未接続のデバイスは追加できない
	s.BeginConfiguration()
	s.RemoveInput(in)
	if s.CanAddInput(NewInput(frontWide)) {
		t.Error("列挙されていないデバイスの入力が許可されました")
	}
	s.CommitConfiguration()
}

func TestV4L2Session_CaptureWhenStopped(t *testing.T) {
	s := NewV4L2Session(NewMockDiscovery(), 15)

	done := make(chan error, 1)
	s.CapturePhoto(PhotoSettings{Format: FormatJPEG}, func(_ []byte, err error) {
		done <- err
	})

	select {
	case err := <-done:
		if err != ErrSessionNotRunning {
			t.Errorf("ErrSessionNotRunning が期待されましたが %v でした", err)
		}
	case <-time.After(time.Second):
		t.Fatal("撮影完了が呼ばれませんでした")
	}

	if err := s.StopRunning(context.Background()); err != nil {
		t.Errorf("停止中のStopRunningはエラーにならないべきです: %v", err)
	}
}
