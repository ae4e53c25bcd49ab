package support

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/MeKo-Tech/lotra/internal/lang"
	"github.com/MeKo-Tech/lotra/internal/route"
	"github.com/MeKo-Tech/lotra/internal/server"
	"github.com/MeKo-Tech/lotra/internal/testutil"
)

// HTTPTestServerWrapper wraps httptest.Server for integration tests.
type HTTPTestServerWrapper struct {
	Server     *httptest.Server
	TestServer *server.Server
	Backend    *testutil.FakeBackend
}

// createTestHTTPServer serves the real API handlers over a fake backend so
// routing and error mapping are exercised without model files.
func (testCtx *TestContext) createTestHTTPServer(mutate func(*server.Config)) error {
	modelsDir := filepath.Join(testCtx.TempDir, "models")
	if err := os.MkdirAll(modelsDir, 0o750); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	cfg := server.Config{
		Host:       "127.0.0.1",
		CORSOrigin: "*",
		MaxBodyKB:  64,
		TimeoutSec: 5,
		ModelsDir:  modelsDir,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	backend := testutil.NewFakeBackend()
	router := route.NewRouter(backend, route.WithObserver(server.ObserveTranslation))
	srv := server.NewServer(cfg, router)
	ts := httptest.NewServer(srv.Handler())

	u, err := url.Parse(ts.URL)
	if err != nil {
		ts.Close()
		return fmt.Errorf("failed to parse server URL: %w", err)
	}

	testCtx.ServerHost = u.Hostname()
	if portStr := u.Port(); portStr != "" {
		testCtx.ServerPort, _ = strconv.Atoi(portStr)
	}

	testCtx.HTTPTestServer = &HTTPTestServerWrapper{
		Server:     ts,
		TestServer: srv,
		Backend:    backend,
	}

	return nil
}

// stopTestHTTPServer stops the httptest server.
func (testCtx *TestContext) stopTestHTTPServer() error {
	if testCtx.HTTPTestServer == nil {
		return nil
	}
	if testCtx.HTTPTestServer.Server != nil {
		testCtx.HTTPTestServer.Server.Close()
	}
	err := testCtx.HTTPTestServer.TestServer.Close()
	testCtx.HTTPTestServer = nil
	return err
}

func (testCtx *TestContext) fakeBackend() (*testutil.FakeBackend, error) {
	if testCtx.HTTPTestServer == nil {
		return nil, errors.New("the translation API is not running")
	}
	return testCtx.HTTPTestServer.Backend, nil
}

func (testCtx *TestContext) theTranslationAPIIsRunning() error {
	return testCtx.createTestHTTPServer(nil)
}

func (testCtx *TestContext) theTranslationAPIIsRunningWithTimeout(seconds int) error {
	return testCtx.createTestHTTPServer(func(c *server.Config) { c.TimeoutSec = seconds })
}

func (testCtx *TestContext) theTranslationAPIIsRunningWithRequestsPerMinute(limit int) error {
	return testCtx.createTestHTTPServer(func(c *server.Config) {
		c.RateLimit = server.RateLimitConfig{Enabled: true, RequestsPerMinute: limit}
	})
}

func (testCtx *TestContext) theBackendFailsWith(message string) error {
	b, err := testCtx.fakeBackend()
	if err != nil {
		return err
	}
	b.Err = errors.New(message)
	return nil
}

func (testCtx *TestContext) theBackendNeverAnswers() error {
	b, err := testCtx.fakeBackend()
	if err != nil {
		return err
	}
	b.Block = true
	return nil
}

func (testCtx *TestContext) theBackendTranslatesTo(text, translation string) error {
	b, err := testCtx.fakeBackend()
	if err != nil {
		return err
	}
	b.Responses[text] = translation
	return nil
}

func (testCtx *TestContext) theBackendShouldHaveReceivedRequests(n int) error {
	b, err := testCtx.fakeBackend()
	if err != nil {
		return err
	}
	if got := len(b.Calls()); got != n {
		return fmt.Errorf("expected %d backend calls, got %d", n, got)
	}
	return nil
}

// theBackendShouldHaveBeenAskedFor checks the direction of the last call.
func (testCtx *TestContext) theBackendShouldHaveBeenAskedFor(src, tgt string) error {
	b, err := testCtx.fakeBackend()
	if err != nil {
		return err
	}
	calls := b.Calls()
	if len(calls) == 0 {
		return errors.New("the backend was never called")
	}
	last := calls[len(calls)-1]
	if last.Source != lang.Code(src) || last.Target != lang.Code(tgt) {
		return fmt.Errorf("expected %s -> %s, backend got %s -> %s", src, tgt, last.Source, last.Target)
	}
	return nil
}
