// Package lambdafn serves translation requests inside AWS Lambda.
package lambdafn

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/MeKo-Tech/lotra/internal/api"
	"github.com/MeKo-Tech/lotra/internal/route"
)

// Handler answers Lambda events with the same JSON the web API returns.
type Handler struct {
	router *route.Router
	warmer *Warmer
}

// NewHandler creates a Handler. warmer may be nil, in which case warmup
// events only warm the current instance.
func NewHandler(router *route.Router, warmer *Warmer) *Handler {
	if warmer == nil {
		warmer = &Warmer{}
	}
	return &Handler{router: router, warmer: warmer}
}

// Handle processes one raw event.
func (h *Handler) Handle(ctx context.Context, event json.RawMessage) (any, error) {
	if warmup, ok := IsWarmupEvent(event); ok {
		return h.warmer.Handle(ctx, h.router, warmup), nil
	}

	var req api.TranslateRequest
	if err := json.Unmarshal(event, &req); err != nil {
		_, resp := api.ClassifyError(&api.RequestError{Message: "invalid request: " + err.Error()})
		return resp, nil
	}

	status, resp := api.Translate(ctx, h.router, req)
	if status >= 500 {
		slog.Error("Lambda translation failed", "status", status)
	}
	return resp, nil
}
