// Package metrics はカメラパイプラインのPrometheusメトリクスを提供する
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics はアプリケーションのメトリクス一式
type Metrics struct {
	registry *prometheus.Registry

	Captures    *prometheus.CounterVec
	Switches    *prometheus.CounterVec
	AssetsSaved prometheus.Counter
	Phase       *prometheus.GaugeVec
	Configures  *prometheus.CounterVec
}

// New は専用レジストリにメトリクスを登録して返す
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Captures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fullscreencamera",
			Name:      "captures_total",
			Help:      "撮影リクエスト数（結果別）",
		}, []string{"result"}),
		Switches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fullscreencamera",
			Name:      "camera_switches_total",
			Help:      "カメラ切り替え数（結果別）",
		}, []string{"result"}),
		AssetsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fullscreencamera",
			Name:      "assets_saved_total",
			Help:      "フォトライブラリに保存したアセット数",
		}),
		Phase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "fullscreencamera",
			Name:      "pipeline_phase",
			Help:      "現在のパイプラインフェーズ（該当フェーズのみ1）",
		}, []string{"phase"}),
		Configures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fullscreencamera",
			Name:      "configurations_total",
			Help:      "パイプライン構成の試行数（結果別）",
		}, []string{"result"}),
	}

	m.registry.MustRegister(m.Captures, m.Switches, m.AssetsSaved, m.Phase, m.Configures)
	return m
}

// SetPhase は現在のフェーズのみを1にする
func (m *Metrics) SetPhase(current string, all []string) {
	for _, p := range all {
		value := 0.0
		if p == current {
			value = 1
		}
		m.Phase.WithLabelValues(p).Set(value)
	}
}

// Handler は/metrics用のHTTPハンドラを返す
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry はテスト用にレジストリを返す
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
