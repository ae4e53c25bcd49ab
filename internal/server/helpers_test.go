package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/lotra/internal/route"
	"github.com/MeKo-Tech/lotra/internal/testutil"
)

func newTestServer(t *testing.T, backend *testutil.FakeBackend, mutate func(*Config)) *Server {
	t.Helper()
	cfg := Config{
		CORSOrigin: "*",
		MaxBodyKB:  16,
		TimeoutSec: 5,
		ModelsDir:  t.TempDir(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewServer(cfg, route.NewRouter(backend))
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
