package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/lotra/internal/api"
	"github.com/MeKo-Tech/lotra/internal/route"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lotra_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lotra_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Translation metrics
	translationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lotra_translations_total",
			Help: "Total number of routed translation requests",
		},
		[]string{"source", "target", "status"}, // status: success, invalid_direction, model_error, timeout
	)

	translationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lotra_translation_duration_seconds",
			Help:    "Translation duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"source", "target"},
	)

	translationChars = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lotra_translation_input_chars",
			Help:    "Length of translated input in characters",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
	)

	detectedLanguages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lotra_detected_languages_total",
			Help: "Languages reported by auto-detection",
		},
		[]string{"language"},
	)

	// Rate limiting metrics
	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lotra_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"}, // type: minute, hour, requests, chars
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lotra_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lotra_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)

func metricsHandler() http.Handler {
	return promhttp.Handler()
}

// ObserveTranslation records a routed request. It is installed as the
// router's observer by the serve command.
func ObserveTranslation(dir route.Direction, elapsed time.Duration, err error) {
	status := "success"
	if err != nil {
		_, resp := api.ClassifyError(err)
		status = resp.ErrorType
	}

	src, tgt := dir.Source.String(), dir.Target.String()
	translationsTotal.WithLabelValues(src, tgt, status).Inc()
	if err == nil {
		translationDuration.WithLabelValues(src, tgt).Observe(elapsed.Seconds())
	}
	if dir.Detected.IsSupported() {
		detectedLanguages.WithLabelValues(dir.Detected.String()).Inc()
	}
}
