package camera

import (
	"bytes"
	"testing"
)

// recv はバッファ済みのフレームを1件取り出す
func recv(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case frame, ok := <-ch:
		if !ok {
			t.Fatal("チャンネルがクローズされています")
		}
		return frame
	default:
		t.Fatal("フレームが届いていません")
		return nil
	}
}

func TestFrameHub_FanOut(t *testing.T) {
	hub := NewFrameHub(4)
	first, unsubFirst := hub.Subscribe()
	defer unsubFirst()
	second, unsubSecond := hub.Subscribe()
	defer unsubSecond()

	frames := [][]byte{[]byte("frame-1"), []byte("frame-2"), []byte("frame-3")}
	for _, f := range frames {
		hub.Publish(f)
	}

	// どちらの購読者もすべてのフレームを受け取る
	for name, ch := range map[string]<-chan []byte{"first": first, "second": second} {
		for _, want := range frames {
			if got := recv(t, ch); !bytes.Equal(got, want) {
				t.Errorf("%s: frame = %q, want %q", name, got, want)
			}
		}
	}
}

func TestFrameHub_SubscribeGetsLatest(t *testing.T) {
	hub := NewFrameHub(2)
	hub.Publish([]byte("old"))
	hub.Publish([]byte("latest"))

	ch, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	if got := recv(t, ch); string(got) != "latest" {
		t.Errorf("frame = %q, want latest", got)
	}
}

func TestFrameHub_DropsOldest(t *testing.T) {
	hub := NewFrameHub(1)
	ch, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	hub.Publish([]byte("a"))
	hub.Publish([]byte("b"))

	if got := recv(t, ch); string(got) != "b" {
		t.Errorf("frame = %q, want b", got)
	}
}

func TestFrameHub_Unsubscribe(t *testing.T) {
	hub := NewFrameHub(1)
	ch, unsubscribe := hub.Subscribe()
	if hub.Subscribers() != 1 {
		t.Fatalf("subscribers = %d, want 1", hub.Subscribers())
	}

	unsubscribe()
	unsubscribe() // 2回目は何もしない

	if _, ok := <-ch; ok {
		t.Error("購読解除後もチャンネルが開いています")
	}
	if hub.Subscribers() != 0 {
		t.Errorf("subscribers = %d, want 0", hub.Subscribers())
	}
	hub.Publish([]byte("after"))
}

func TestFrameHub_Reset(t *testing.T) {
	hub := NewFrameHub(1)
	hub.Publish([]byte("stale"))
	hub.Reset()

	if hub.Latest() != nil {
		t.Errorf("latest = %q, want nil", hub.Latest())
	}

	ch, unsubscribe := hub.Subscribe()
	defer unsubscribe()
	select {
	case frame := <-ch:
		t.Errorf("破棄したフレームが届きました: %q", frame)
	default:
	}
}
