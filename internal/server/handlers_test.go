package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/lotra/internal/api"
	"github.com/MeKo-Tech/lotra/internal/lang"
	"github.com/MeKo-Tech/lotra/internal/models"
	"github.com/MeKo-Tech/lotra/internal/route"
	"github.com/MeKo-Tech/lotra/internal/testutil"
)

func TestServer_HealthHandler(t *testing.T) {
	srv := newTestServer(t, testutil.NewFakeBackend(), nil)
	h := srv.Handler()

	for _, path := range []string{"/health", "/api/health"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			resp := decodeBody[HealthResponse](t, w)
			assert.True(t, resp.Success)
			assert.Equal(t, "healthy", resp.Status)
			assert.True(t, resp.TranslatorLoaded)
			assert.Equal(t, "custom", resp.Backend)
			assert.NotEmpty(t, resp.Time)
		})
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServer_HealthHandler_NoRouter(t *testing.T) {
	srv := &Server{corsOrigin: "*"}
	w := httptest.NewRecorder()
	srv.healthHandler(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	resp := decodeBody[HealthResponse](t, w)
	assert.False(t, resp.TranslatorLoaded)
	assert.Equal(t, "degraded", resp.Status)
}

func TestServer_ModelsHandler(t *testing.T) {
	srv := newTestServer(t, testutil.NewFakeBackend(), func(c *Config) {
		c.Model = models.NLLBDistilled600M
	})
	dir := filepath.Join(srv.modelsDir, models.NLLBDistilled600M)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, models.TokenizerFile), []byte("{}"), 0o600))

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/models", nil))
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeBody[ModelsResponse](t, w)
	require.Equal(t, 3, resp.Count)
	present := map[string]bool{}
	for _, m := range resp.Models {
		assert.Equal(t, models.NLLBDistilled600M, m.Model)
		present[m.Type] = m.Present
	}
	assert.True(t, present[models.TypeTokenizer])
	assert.False(t, present[models.TypeEncoder])
}

func TestServer_LanguagesHandler(t *testing.T) {
	srv := newTestServer(t, testutil.NewFakeBackend(), nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/supported_languages", nil))

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[api.LanguagesResponse](t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, "kor_Hang", resp.Languages["ko"])
	assert.Len(t, resp.Languages, 4)
}

func TestServer_DetectHandler(t *testing.T) {
	srv := newTestServer(t, testutil.NewFakeBackend(), nil)
	w := postJSON(t, srv.Handler(), "/api/detect", `{"text":"カタカナと漢字"}`)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[api.DetectResponse](t, w)
	assert.Equal(t, "ja", resp.Language)
	assert.Equal(t, 5, resp.Scripts.Kana)
	assert.Equal(t, 2, resp.Scripts.Han)
}

func TestServer_TranslateHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		check      func(t *testing.T, w *httptest.ResponseRecorder)
	}{
		{
			name:       "auto detect korean",
			body:       `{"text":"안녕하세요"}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				resp := decodeBody[api.TranslateResponse](t, w)
				assert.True(t, resp.Success)
				assert.Equal(t, "[ko->en] 안녕하세요", resp.Translation)
				assert.Equal(t, "ko", resp.DetectedLang)
				assert.Equal(t, "ko", resp.SrcLang)
				assert.Equal(t, "en", resp.TgtLang)
			},
		},
		{
			name:       "explicit direction",
			body:       `{"text":"Good morning","auto_detect":false,"src_lang":"en","tgt_lang":"ja"}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				resp := decodeBody[api.TranslateResponse](t, w)
				assert.Equal(t, "[en->ja] Good morning", resp.Translation)
				assert.Empty(t, resp.DetectedLang)
			},
		},
		{
			name:       "missing text",
			body:       `{"src_lang":"en"}`,
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				resp := decodeBody[api.ErrorResponse](t, w)
				assert.False(t, resp.Success)
				assert.Equal(t, "No text provided", resp.Error)
			},
		},
		{
			name:       "empty text",
			body:       `{"text":"   "}`,
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.Equal(t, "Empty text", decodeBody[api.ErrorResponse](t, w).Error)
			},
		},
		{
			name:       "same language",
			body:       `{"text":"hi","auto_detect":false,"src_lang":"ko","tgt_lang":"ko"}`,
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				resp := decodeBody[api.ErrorResponse](t, w)
				assert.Equal(t, api.ErrorTypeInvalidDirection, resp.ErrorType)
				assert.Equal(t, string(route.ReasonSameLanguage), resp.Reason)
			},
		},
		{
			name:       "unsupported language",
			body:       `{"text":"hi","auto_detect":false,"src_lang":"en","tgt_lang":"de"}`,
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.Equal(t, api.ErrorTypeBadRequest, decodeBody[api.ErrorResponse](t, w).ErrorType)
			},
		},
		{
			name:       "languages ignored under auto detect",
			body:       `{"text":"Hello","src_lang":"fr","tgt_lang":"xx"}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				resp := decodeBody[api.TranslateResponse](t, w)
				assert.Equal(t, "[en->ko] Hello", resp.Translation)
				assert.Equal(t, "en", resp.SrcLang)
				assert.Equal(t, "ko", resp.TgtLang)
			},
		},
		{
			name:       "invalid json",
			body:       `{"text":`,
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.Equal(t, "Invalid JSON body", decodeBody[api.ErrorResponse](t, w).Error)
			},
		},
		{
			name:       "body too large",
			body:       `{"text":"` + strings.Repeat("a", 20*1024) + `"}`,
			wantStatus: http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, testutil.NewFakeBackend(), nil)
			w := postJSON(t, srv.Handler(), "/api/translate", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
			if tt.check != nil {
				tt.check(t, w)
			}
		})
	}
}

func TestServer_TranslateHandler_ModelError(t *testing.T) {
	backend := testutil.NewFakeBackend()
	backend.Err = errors.New("session run failed")
	srv := newTestServer(t, backend, nil)

	w := postJSON(t, srv.Handler(), "/api/translate", `{"text":"Hello"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeBody[api.ErrorResponse](t, w)
	assert.Equal(t, api.ErrorTypeModel, resp.ErrorType)
	assert.Contains(t, resp.Error, "session run failed")
}

func TestServer_TranslateHandler_Timeout(t *testing.T) {
	backend := testutil.NewFakeBackend()
	backend.Block = true
	srv := newTestServer(t, backend, nil)
	srv.timeout = 20 * time.Millisecond

	w := postJSON(t, srv.Handler(), "/api/translate", `{"text":"Hello"}`)
	require.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, api.ErrorTypeTimeout, decodeBody[api.ErrorResponse](t, w).ErrorType)
}

func TestServer_TranslateHandler_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, testutil.NewFakeBackend(), nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/translate", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServer_Metrics(t *testing.T) {
	srv := newTestServer(t, testutil.NewFakeBackend(), nil)
	ObserveTranslation(route.Direction{Source: lang.Korean, Target: lang.English, Detected: lang.Korean}, time.Millisecond, nil)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `lotra_translations_total{source="ko",status="success",target="en"}`)
	assert.Contains(t, w.Body.String(), `lotra_detected_languages_total{language="ko"}`)
}

func TestServer_Close(t *testing.T) {
	backend := testutil.NewFakeBackend()
	srv := newTestServer(t, backend, nil)
	require.NoError(t, srv.Close())
	assert.True(t, backend.Closed())
}

func TestServer_IndexPage(t *testing.T) {
	srv := newTestServer(t, testutil.NewFakeBackend(), nil)
	h := srv.Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), `fetch("/api/translate"`)
	assert.Contains(t, w.Body.String(), `fetch("/api/supported_languages")`)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
