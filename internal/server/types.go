package server

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/MeKo-Tech/lotra/internal/route"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	router      *route.Router
	modelsDir   string
	model       string
	corsOrigin  string
	maxBodySize int64
	timeout     time.Duration
	rateLimiter *RateLimiter
	// trustedProxies may set X-Forwarded-For and X-Real-IP.
	trustedProxies []*net.IPNet
	started        time.Time
}

// Config holds server configuration.
type Config struct {
	Host       string
	Port       int
	CORSOrigin string
	MaxBodyKB  int
	TimeoutSec int
	ModelsDir  string
	Model      string
	RateLimit  RateLimitConfig
	// TrustedProxies lists addresses or CIDR ranges whose forwarding
	// headers identify the client. Empty means RemoteAddr is always used.
	TrustedProxies []string
}

// RateLimitConfig configures per-client request limits. Zero disables a
// limit.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxCharsPerDay    int64
}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Success          bool   `json:"success"`
	Status           string `json:"status"`
	TranslatorLoaded bool   `json:"translator_loaded"`
	Backend          string `json:"backend,omitempty"`
	Version          string `json:"version,omitempty"`
	Uptime           string `json:"uptime,omitempty"`
	Time             string `json:"time"`
}

// ModelInfo describes one model file.
type ModelInfo struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Type        string `json:"type"`
	Model       string `json:"model"`
	Description string `json:"description"`
	Present     bool   `json:"present"`
}

// ModelsResponse lists known model files.
type ModelsResponse struct {
	Models []ModelInfo `json:"models"`
	Count  int         `json:"count"`
}

// NewServer creates a server that routes requests through router. The
// router's backend is owned by the server and released by Close.
func NewServer(config Config, router *route.Router) *Server {
	s := &Server{
		router:      router,
		modelsDir:   config.ModelsDir,
		model:       config.Model,
		corsOrigin:  config.CORSOrigin,
		maxBodySize: int64(config.MaxBodyKB) * 1024,
		timeout:     time.Duration(config.TimeoutSec) * time.Second,
		started:     time.Now(),
	}
	if s.corsOrigin == "" {
		s.corsOrigin = "*"
	}
	if s.maxBodySize <= 0 {
		s.maxBodySize = 256 * 1024
	}
	proxies, err := ParseTrustedProxies(config.TrustedProxies)
	if err != nil {
		slog.Warn("Ignoring trusted proxies", "error", err)
	}
	s.trustedProxies = proxies

	if config.RateLimit.Enabled {
		s.rateLimiter = NewRateLimiter(
			config.RateLimit.RequestsPerMinute,
			config.RateLimit.RequestsPerHour,
			config.RateLimit.MaxRequestsPerDay,
			config.RateLimit.MaxCharsPerDay,
		)
	}
	return s
}

// Close releases server resources.
func (s *Server) Close() error {
	if s.router != nil && s.router.Backend() != nil {
		return s.router.Backend().Close()
	}
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/{$}", s.corsMiddleware(s.indexHandler))
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/api/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/models", s.corsMiddleware(s.modelsHandler))
	mux.HandleFunc("/api/supported_languages", s.corsMiddleware(s.languagesHandler))
	mux.HandleFunc("/api/detect", s.corsMiddleware(s.detectHandler))
	mux.HandleFunc("/api/translate", s.corsMiddleware(s.translateHandler))
	mux.HandleFunc("/ws/translate", s.translateWebSocketHandler)
	mux.Handle("/metrics", metricsHandler())
}

// Handler returns an http.Handler with all routes installed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}
