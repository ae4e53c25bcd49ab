// Package backend builds the translation engine selected in the configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/lotra/internal/config"
	"github.com/MeKo-Tech/lotra/internal/nllb"
	"github.com/MeKo-Tech/lotra/internal/remote"
	"github.com/MeKo-Tech/lotra/internal/route"
)

// Constructors used by New. Tests replace them to avoid loading models or
// contacting AWS.
var (
	newLocal = func(cfg nllb.Config) (route.Backend, error) {
		t, err := nllb.New(cfg)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
	newRemote = func(ctx context.Context, cfg remote.Config) (route.Backend, error) {
		b, err := remote.NewLambdaBackend(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
)

// New constructs the backend named by cfg.Backend.Type. The caller owns the
// returned handle and must Close it.
func New(ctx context.Context, cfg *config.Config) (route.Backend, error) {
	start := time.Now()

	switch cfg.Backend.Type {
	case config.BackendONNX, "":
		tc := cfg.ToTranslatorConfig()
		slog.Info("Loading translation model",
			"encoder", tc.EncoderPath,
			"decoder", tc.DecoderPath,
			"gpu", tc.GPU.UseGPU)
		b, err := newLocal(tc)
		if err != nil {
			return nil, fmt.Errorf("failed to load translator: %w", err)
		}
		slog.Info("Translation model loaded", "duration", time.Since(start))
		return b, nil

	case config.BackendLambda:
		rc := cfg.ToRemoteConfig()
		b, err := newRemote(ctx, rc)
		if err != nil {
			return nil, fmt.Errorf("failed to create lambda backend: %w", err)
		}
		slog.Info("Using remote translation backend", "function", rc.FunctionName, "region", rc.Region)
		return b, nil

	default:
		return nil, fmt.Errorf("unknown backend type: %s", cfg.Backend.Type)
	}
}

// NewRouter constructs the backend and wraps it in a router. When warmup is
// enabled the model is exercised once before returning.
func NewRouter(ctx context.Context, cfg *config.Config, opts ...route.Option) (*route.Router, error) {
	b, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	r := route.NewRouter(b, opts...)
	if cfg.Translator.Warmup {
		start := time.Now()
		if err := r.Warmup(ctx); err != nil {
			slog.Warn("Warmup failed", "error", err)
		} else {
			slog.Debug("Warmup complete", "duration", time.Since(start))
		}
	}
	return r, nil
}
