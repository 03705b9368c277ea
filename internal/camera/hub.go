package camera

import "sync"

// FrameHub はプレビューフレームを複数の購読者に配る
// 購読者ごとにバッファを持ち、埋まっている場合は古いフレームを捨てる
type FrameHub struct {
	mu     sync.Mutex
	size   int
	subs   map[chan []byte]struct{}
	latest []byte
}

// NewFrameHub は購読者ごとのバッファサイズを指定してFrameHubを作成する
func NewFrameHub(size int) *FrameHub {
	if size <= 0 {
		size = 1
	}
	return &FrameHub{
		size: size,
		subs: make(map[chan []byte]struct{}),
	}
}

// Subscribe は購読を開始する
// 最新フレームがあれば最初に届く。返された関数で購読を解除し、チャンネルはクローズされる
func (h *FrameHub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, h.size)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	if h.latest != nil {
		ch <- h.latest
	}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, ch)
			close(ch)
		})
	}
}

// Publish はフレームをすべての購読者に送る
func (h *FrameHub) Publish(frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = frame
	for ch := range h.subs {
		select {
		case ch <- frame:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- frame:
			default:
			}
		}
	}
}

// Latest は最後に配ったフレームを返す
func (h *FrameHub) Latest() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest
}

// Reset は最新フレームを破棄する
// ストリームを止めたときに呼ぶ
func (h *FrameHub) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = nil
}

// Subscribers は購読者数を返す
func (h *FrameHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
