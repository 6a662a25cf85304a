package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the chat service.
// All Record methods are safe on a nil receiver so components can run without metrics.
type Metrics struct {
	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Chat metrics
	ChatReplies      *prometheus.CounterVec
	ChatDuration     prometheus.Histogram
	ActiveWebsockets prometheus.Gauge

	// Speech metrics
	SpeechRequests      *prometheus.CounterVec
	NormalizeDuration   prometheus.Histogram
	RecognitionDuration prometheus.Histogram

	TempFilesRemoved prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "whalechat_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "whalechat_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),

		ChatReplies: f.NewCounterVec(prometheus.CounterOpts{
			Name: "whalechat_chat_replies_total",
			Help: "Chat turns by outcome",
		}, []string{"outcome"}),
		ChatDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "whalechat_chat_duration_seconds",
			Help:    "Duration of remote chat calls",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1 minute
		}),
		ActiveWebsockets: f.NewGauge(prometheus.GaugeOpts{
			Name: "whalechat_active_websockets",
			Help: "Current number of open chat websockets",
		}),

		SpeechRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "whalechat_speech_requests_total",
			Help: "Speech-to-text requests by outcome code",
		}, []string{"outcome"}),
		NormalizeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "whalechat_audio_normalize_duration_seconds",
			Help:    "Time spent decoding, resampling and writing canonical audio",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		}),
		RecognitionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "whalechat_recognition_duration_seconds",
			Help:    "Time spent in the speech recognizer",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),

		TempFilesRemoved: f.NewCounter(prometheus.CounterOpts{
			Name: "whalechat_tempvoice_files_removed_total",
			Help: "Temporary audio files removed by the janitor",
		}),
	}
}

func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(d.Seconds())
}

// RecordChat records one chat turn; outcome is "ok" or an error code.
func (m *Metrics) RecordChat(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ChatReplies.WithLabelValues(outcome).Inc()
	m.ChatDuration.Observe(d.Seconds())
}

func (m *Metrics) WebsocketOpened() {
	if m == nil {
		return
	}
	m.ActiveWebsockets.Inc()
}

func (m *Metrics) WebsocketClosed() {
	if m == nil {
		return
	}
	m.ActiveWebsockets.Dec()
}

func (m *Metrics) RecordSpeech(outcome string) {
	if m == nil {
		return
	}
	m.SpeechRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveNormalize(d time.Duration) {
	if m == nil {
		return
	}
	m.NormalizeDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveRecognition(d time.Duration) {
	if m == nil {
		return
	}
	m.RecognitionDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordTempFilesRemoved(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.TempFilesRemoved.Add(float64(n))
}
