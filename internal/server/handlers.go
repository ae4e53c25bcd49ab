package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/MeKo-Tech/lotra/internal/api"
	"github.com/MeKo-Tech/lotra/internal/models"
	"github.com/MeKo-Tech/lotra/internal/version"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// A server without a backend still answers, but reports degraded
	loaded := s.router != nil && s.router.Backend() != nil
	response := HealthResponse{
		Success:          true,
		Status:           "healthy",
		TranslatorLoaded: loaded,
		Version:          version.Version,
		Uptime:           time.Since(s.started).Round(time.Second).String(),
		Time:             time.Now().UTC().Format(time.RFC3339),
	}
	if loaded {
		response.Backend = backendName(s.router.Backend())
	} else {
		response.Status = "degraded"
	}

	writeJSON(w, http.StatusOK, response)
}

// modelsHandler returns information about the model files.
func (s *Server) modelsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	infos := models.ListAvailableModels(s.modelsDir)
	list := make([]ModelInfo, 0, len(infos))
	for _, info := range infos {
		// Only list the configured model when one is set
		if s.model != "" && info.Model != s.model {
			continue
		}
		list = append(list, ModelInfo{
			Name:        info.Name,
			Path:        info.Path,
			Type:        info.Type,
			Model:       info.Model,
			Description: info.Description,
			Present:     info.Present,
		})
	}

	writeJSON(w, http.StatusOK, ModelsResponse{Models: list, Count: len(list)})
}

// languagesHandler lists supported languages.
func (s *Server) languagesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, api.NewLanguagesResponse())
}

// detectHandler reports the detected language of the posted text.
func (s *Server) detectHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req api.DetectRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, api.NewDetectResponse(req.Text))
}

// translateHandler routes and translates the posted text.
func (s *Server) translateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse request
	var req api.TranslateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	// Count characters for the daily quota before any routing work
	var chars int
	if req.Text != nil {
		chars = utf8.RuneCountInString(*req.Text)
	}
	if !s.allowRequest(w, r, int64(chars)) {
		return
	}
	translationChars.Observe(float64(chars))

	// Create context with timeout
	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	// Route, translate and map errors to status codes
	status, body := api.Translate(ctx, s.router, req)
	if status >= http.StatusInternalServerError {
		slog.Error("Translate request failed", "request_id", RequestID(r.Context()), "status", status)
	}
	writeJSON(w, status, body)
}

// decodeJSON reads a size-limited JSON body into v. On failure it writes a
// 400 or 413 response and returns false.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// MaxBytesReader reports an oversized body as *http.MaxBytesError
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeErrorResponse(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		s.writeErrorResponse(w, "Invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, api.ErrorResponse{
		Success:   false,
		Error:     message,
		ErrorType: api.ErrorTypeBadRequest,
		Code:      statusCode,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Log error, but can't send another response
		slog.Error("Failed to encode response", "error", err)
	}
}

func backendName(b any) string {
	if n, ok := b.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "custom"
}
