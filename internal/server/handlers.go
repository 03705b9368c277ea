package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"fullscreencamera/internal/camera"
	"fullscreencamera/internal/config"
	"fullscreencamera/internal/library"
	"fullscreencamera/internal/queue"
	"fullscreencamera/internal/session"

	"github.com/gin-gonic/gin"
)

// Pipeline はHTTPから操作する撮影パイプライン
type Pipeline interface {
	State(ctx context.Context) (session.State, error)
	Devices(ctx context.Context) ([]camera.Device, error)
	SwitchCamera(ctx context.Context) (session.SwitchResult, error)
	Capture(ctx context.Context, orientation camera.Orientation) <-chan session.CaptureResult
	Preview() (<-chan []byte, func())
}

// CameraHandler は撮影APIのハンドラ
type CameraHandler struct {
	config   *config.Config
	pipeline Pipeline
	library  library.Library
}

// HealthCheck はヘルスチェックエンドポイントの実装
func (h *CameraHandler) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	}

	c.JSON(http.StatusOK, response)
}

// GetStatus はパイプライン状態取得エンドポイントの実装
func (h *CameraHandler) GetStatus(c *gin.Context) {
	state, err := h.pipeline.State(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := StatusResponse{
		Phase:  string(state.Phase),
		Preset: string(state.Preset),
		Ready:  state.Ready,
		Server: ServerInfo{
			Host: h.config.Server.Host,
			Port: h.config.Server.Port,
		},
		Timestamp: time.Now(),
	}
	if state.Device != nil {
		info := newCameraInfo(*state.Device, true)
		response.Device = &info
	}

	c.JSON(http.StatusOK, response)
}

// GetCameras はカメラ一覧取得エンドポイントの実装
func (h *CameraHandler) GetCameras(c *gin.Context) {
	ctx := c.Request.Context()

	devices, err := h.pipeline.Devices(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	state, err := h.pipeline.State(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	cameras := make([]CameraInfo, 0, len(devices))
	for _, d := range devices {
		active := state.Device != nil && state.Device.ID == d.ID
		cameras = append(cameras, newCameraInfo(d, active))
	}

	c.JSON(http.StatusOK, CamerasResponse{Cameras: cameras})
}

// SwitchCamera はカメラ切り替えエンドポイントの実装
func (h *CameraHandler) SwitchCamera(c *gin.Context) {
	result, err := h.pipeline.SwitchCamera(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SwitchResponse{
		Switched: result.Switched,
		Position: string(result.Position),
		Device:   newCameraInfo(result.Device, true),
	})
}

// Capture は撮影エンドポイントの実装
// orientation はクライアントが表示中の向き
func (h *CameraHandler) Capture(c *gin.Context) {
	orientation, ok := camera.ParseOrientation(c.Query("orientation"))
	if !ok {
		c.JSON(http.StatusBadRequest, newErrorResponse("invalid_orientation", "無効な向きが指定されました"))
		return
	}

	select {
	case result := <-h.pipeline.Capture(c.Request.Context(), orientation):
		if result.Err != nil {
			respondError(c, result.Err)
			return
		}
		c.JSON(http.StatusOK, CaptureResponse{
			Width:       result.Image.Width,
			Height:      result.Image.Height,
			Orientation: string(result.Image.Orientation),
			Asset:       result.Asset,
		})
	case <-c.Request.Context().Done():
		// クライアントが切断された
		return
	}
}

// ListAssets はアセット一覧取得エンドポイントの実装
func (h *CameraHandler) ListAssets(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, newErrorResponse("invalid_limit", "無効な件数が指定されました"))
			return
		}
		limit = n
	}

	assets, err := h.library.List(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if assets == nil {
		assets = []*library.Asset{}
	}

	c.JSON(http.StatusOK, LibraryResponse{Assets: assets})
}

// GetLatestAsset は最新アセットの画像を返す（サムネイル用）
func (h *CameraHandler) GetLatestAsset(c *gin.Context) {
	asset, err := h.library.Latest(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	h.serveAsset(c, asset)
}

// GetAsset は指定アセットの画像を返す
func (h *CameraHandler) GetAsset(c *gin.Context) {
	asset, err := h.library.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	h.serveAsset(c, asset)
}

func (h *CameraHandler) serveAsset(c *gin.Context, asset *library.Asset) {
	data, err := h.library.ReadAsset(c.Request.Context(), asset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "image/jpeg", data)
}

// GetPreview はMJPEGプレビューの配信エンドポイントの実装
func (h *CameraHandler) GetPreview(c *gin.Context) {
	state, err := h.pipeline.State(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if state.Phase != session.PhaseRunning {
		respondError(c, session.ErrNotRunning)
		return
	}

	h.streamMJPEG(c)
}

// Index は撮影画面を返す
func (h *CameraHandler) Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", getIndexHTML())
}

// streamMJPEG はMJPEGストリームを配信する
func (h *CameraHandler) streamMJPEG(c *gin.Context) {
	// レスポンスヘッダーを設定
	c.Header("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	// レスポンスライターを取得
	writer := c.Writer
	flusher, ok := writer.(http.Flusher)
	if !ok {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	frameChan, unsubscribe := h.pipeline.Preview()
	defer unsubscribe()

	// クライアント切断を検知するためのコンテキスト
	clientGone := c.Request.Context().Done()

	for {
		select {
		case <-clientGone:
			return

		case frame, ok := <-frameChan:
			if !ok {
				return
			}
			if err := writeMJPEGFrame(writer, frame); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeMJPEGFrame はmultipartの1パートを書き込む
func writeMJPEGFrame(w http.ResponseWriter, frame []byte) error {
	if _, err := w.Write([]byte("--frame\r\nContent-Type: image/jpeg\r\nContent-Length: " + strconv.Itoa(len(frame)) + "\r\n\r\n")); err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}
	_, err := w.Write([]byte("\r\n"))
	return err
}

// respondError はエラー種別に応じたレスポンスを返す
func respondError(c *gin.Context, err error) {
	status, code := classifyError(err)
	response := newErrorResponse(code, err.Error())
	c.JSON(status, response)
}

// classifyError はエラーをHTTPステータスとエラーコードに変換する
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, library.ErrNotFound):
		return http.StatusNotFound, "asset_not_found"
	case errors.Is(err, queue.ErrClosed):
		return http.StatusServiceUnavailable, "shutting_down"
	}

	kind := session.Kind(err)
	switch kind {
	case session.KindDeviceUnavailable:
		return http.StatusServiceUnavailable, kind
	case session.KindAttachFailure:
		return http.StatusServiceUnavailable, kind
	case session.KindCaptureFailure:
		return http.StatusBadGateway, kind
	case session.KindAuthorizationDenied:
		return http.StatusForbidden, kind
	case session.KindNotRunning, session.KindNotConfigured:
		return http.StatusConflict, kind
	default:
		return http.StatusInternalServerError, kind
	}
}

func newErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error:     code,
		Message:   message,
		Timestamp: time.Now(),
	}
}
