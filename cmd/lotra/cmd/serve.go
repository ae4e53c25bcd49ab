package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/lotra/internal/config"
	"github.com/MeKo-Tech/lotra/internal/route"
	"github.com/MeKo-Tech/lotra/internal/server"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the translation API",
	Long: `Start an HTTP server that provides REST and websocket endpoints for
translation.

The server provides the following endpoints:
  POST /api/translate           - Translate text
  POST /api/detect              - Detect the language of a text
  GET  /api/supported_languages - List supported language codes
  GET  /health, /api/health     - Health check endpoint
  GET  /models                  - List model files
  GET  /metrics                 - Prometheus metrics
  GET  /ws/translate            - Websocket translation

Examples:
  lotra serve
  lotra serve --port 8080
  lotra serve --host 127.0.0.1 --port 3000 --rate-limit-enabled`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		serverConfig := configToServerConfig(cmd, cfg.Server)
		serverConfig.ModelsDir = cfg.ModelsDir
		serverConfig.Model = cfg.Translator.Model

		if serverConfig.Port < 1 || serverConfig.Port > 65535 {
			return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", serverConfig.Port)
		}

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if cmd.Flags().Changed("shutdown-timeout") {
			shutdownTimeout, _ = cmd.Flags().GetInt("shutdown-timeout")
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		router, err := newRouter(ctx, cfg, route.WithObserver(server.ObserveTranslation))
		if err != nil {
			return fmt.Errorf("failed to initialize translator: %w", err)
		}
		apiServer := server.NewServer(serverConfig, router)

		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", serverConfig.Host, serverConfig.Port),
			Handler:           apiServer.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       time.Duration(serverConfig.TimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(serverConfig.TimeoutSec+5) * time.Second,
		}

		go func() {
			slog.Info("Starting translation server", "host", serverConfig.Host, "port", serverConfig.Port,
				"backend", cfg.Backend.Type)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Server error", "error", err)
				cancel()
			}
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal", "signal", sig.String())
		case <-ctx.Done():
			slog.Info("Context cancelled, initiating shutdown")
		}

		slog.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", shutdownTimeout))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(shutdownTimeout)*time.Second)
		defer shutdownCancel()

		slog.Info("Shutting down HTTP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		} else {
			slog.Info("HTTP server shutdown completed")
		}

		slog.Info("Releasing translation backend")
		if err := apiServer.Close(); err != nil {
			slog.Error("Backend cleanup error", "error", err)
		}

		slog.Info("Graceful shutdown completed")
		return nil
	},
}

// configToServerConfig maps the server section of the configuration to
// server.Config, applying CLI flag overrides.
func configToServerConfig(cmd *cobra.Command, sc config.ServerConfig) server.Config {
	out := server.Config{
		Host:       sc.Host,
		Port:       sc.Port,
		CORSOrigin: sc.CORSOrigin,
		MaxBodyKB:  sc.MaxBodyKB,
		TimeoutSec: sc.TimeoutSec,
		RateLimit: server.RateLimitConfig{
			Enabled:           sc.RateLimit.Enabled,
			RequestsPerMinute: sc.RateLimit.RequestsPerMinute,
			RequestsPerHour:   sc.RateLimit.RequestsPerHour,
			MaxRequestsPerDay: sc.RateLimit.MaxRequestsPerDay,
			MaxCharsPerDay:    sc.RateLimit.MaxCharsPerDay,
		},
		TrustedProxies: sc.TrustedProxies,
	}

	f := cmd.Flags()
	if f.Changed("host") {
		out.Host, _ = f.GetString("host")
	}
	if f.Changed("port") {
		out.Port, _ = f.GetInt("port")
	}
	if f.Changed("cors-origin") {
		out.CORSOrigin, _ = f.GetString("cors-origin")
	}
	if f.Changed("max-body-kb") {
		out.MaxBodyKB, _ = f.GetInt("max-body-kb")
	}
	if f.Changed("timeout") {
		out.TimeoutSec, _ = f.GetInt("timeout")
	}
	if f.Changed("trusted-proxies") {
		out.TrustedProxies, _ = f.GetStringSlice("trusted-proxies")
	}
	if f.Changed("rate-limit-enabled") {
		out.RateLimit.Enabled, _ = f.GetBool("rate-limit-enabled")
	}
	if f.Changed("requests-per-minute") {
		out.RateLimit.RequestsPerMinute, _ = f.GetInt("requests-per-minute")
	}
	if f.Changed("requests-per-hour") {
		out.RateLimit.RequestsPerHour, _ = f.GetInt("requests-per-hour")
	}
	if f.Changed("max-requests-per-day") {
		out.RateLimit.MaxRequestsPerDay, _ = f.GetInt("max-requests-per-day")
	}
	if f.Changed("max-chars-per-day") {
		out.RateLimit.MaxCharsPerDay, _ = f.GetInt64("max-chars-per-day")
	}
	return out
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("host", "H", "0.0.0.0", "server host")
	serveCmd.Flags().IntP("port", "p", 5000, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	serveCmd.Flags().Int("max-body-kb", 256, "maximum request body size in KB")
	serveCmd.Flags().Int("timeout", 60, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	// Rate limiting flags
	serveCmd.Flags().StringSlice("trusted-proxies", nil, "proxy addresses or CIDR ranges whose X-Forwarded-For header is trusted")
	serveCmd.Flags().Bool("rate-limit-enabled", false, "enable rate limiting")
	serveCmd.Flags().Int("requests-per-minute", 60, "maximum requests per minute per client")
	serveCmd.Flags().Int("requests-per-hour", 1000, "maximum requests per hour per client")
	serveCmd.Flags().Int("max-requests-per-day", 0, "maximum requests per day per client (0 = unlimited)")
	serveCmd.Flags().Int64("max-chars-per-day", 0, "maximum characters translated per day per client (0 = unlimited)")
}
