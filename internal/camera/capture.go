package camera

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"time"
)

var (
	jpegStart = []byte{0xFF, 0xD8}
	jpegEnd   = []byte{0xFF, 0xD9}
)

// V4L2Capturer はffmpeg経由でV4L2デバイスから画像を取得する
type V4L2Capturer struct {
	devicePath string
	width      int
	height     int
	fps        int
	quality    int
}

// NewV4L2Capturer は新しいV4L2Capturerを作成する
func NewV4L2Capturer(devicePath string, res Resolution, fps, quality int) *V4L2Capturer {
	return &V4L2Capturer{
		devicePath: devicePath,
		width:      res.Width,
		height:     res.Height,
		fps:        fps,
		quality:    quality,
	}
}

// IsDeviceAvailable はV4L2デバイスが利用可能かチェックする
func (c *V4L2Capturer) IsDeviceAvailable(ctx context.Context) bool {
	return exec.CommandContext(ctx, "v4l2-ctl", "--device", c.devicePath, "--info").Run() == nil
}

// CaptureFrameAsJPEG は1フレームをキャプチャしてJPEGバイト配列として返す
func (c *V4L2Capturer) CaptureFrameAsJPEG(ctx context.Context) ([]byte, error) {
	cmd := exec.CommandContext(ctx,
		"ffmpeg",
		"-f", "v4l2",
		"-video_size", fmt.Sprintf("%dx%d", c.width, c.height),
		"-i", c.devicePath,
		"-vframes", "1",
		"-f", "image2",
		"-c:v", "mjpeg",
		"-q:v", strconv.Itoa(c.quality),
		"-",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("JPEGフレームキャプチャに失敗: %w (stderr: %s)", err, stderr.String())
	}

	return stdout.Bytes(), nil
}

// TestCapture はデバイステスト用の簡単なキャプチャ機能
func (c *V4L2Capturer) TestCapture(ctx context.Context) error {
	testCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := c.CaptureFrameAsJPEG(testCtx)
	return err
}

// StartStream は連続キャプチャ用のストリームを開始する
// ctx がキャンセルされるとffmpegを終了し、doneをクローズする
func (c *V4L2Capturer) StartStream(ctx context.Context, frameChan chan<- []byte, errorChan chan<- error) (<-chan struct{}, error) {
	cmd := exec.CommandContext(ctx,
		"ffmpeg",
		"-f", "v4l2",
		"-video_size", fmt.Sprintf("%dx%d", c.width, c.height),
		"-r", strconv.Itoa(c.fps),
		"-i", c.devicePath,
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"-q:v", strconv.Itoa(c.quality),
		"-",
	)
	cmd.Stderr = io.Discard

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdoutパイプの作成に失敗: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpegの起動に失敗: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			_ = cmd.Wait() // コンテキストキャンセル時のエラーは無視
		}()

		if err := readJPEGStream(ctx, stdout, frameChan); err != nil {
			slog.Warn("プレビューストリームが終了しました", "device", c.devicePath, "error", err)
			select {
			case errorChan <- err:
			default:
			}
		}
	}()

	return done, nil
}

// readJPEGStream はMJPEGストリームをSOI/EOIマーカーで分割してframeChanに送る
func readJPEGStream(ctx context.Context, r io.Reader, frameChan chan<- []byte) error {
	buffer := make([]byte, 64*1024)
	var pending []byte

	for {
		n, err := r.Read(buffer)
		if n > 0 {
			pending = append(pending, buffer[:n]...)
			var frames [][]byte
			frames, pending = splitJPEGFrames(pending)
			for _, frame := range frames {
				select {
				case frameChan <- frame:
				case <-ctx.Done():
					return nil
				}
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("フレーム読み取りエラー: %w", err)
		}
	}
}

// splitJPEGFrames は完全なJPEGフレームを取り出し、残りのデータを返す
func splitJPEGFrames(data []byte) (frames [][]byte, rest []byte) {
	for {
		startIdx := bytes.Index(data, jpegStart)
		if startIdx == -1 {
			return frames, nil
		}

		endIdx := bytes.Index(data[startIdx+2:], jpegEnd)
		if endIdx == -1 {
			// 完全なフレームがまだない
			return frames, append([]byte(nil), data[startIdx:]...)
		}

		end := startIdx + 2 + endIdx + 2
		frame := make([]byte, end-startIdx)
		copy(frame, data[startIdx:end])
		frames = append(frames, frame)
		data = data[end:]
	}
}
