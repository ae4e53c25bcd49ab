package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/lotra/internal/config"
	"github.com/MeKo-Tech/lotra/internal/nllb"
	"github.com/MeKo-Tech/lotra/internal/remote"
	"github.com/MeKo-Tech/lotra/internal/route"
	"github.com/MeKo-Tech/lotra/internal/testutil"
)

type warmBackend struct {
	*testutil.FakeBackend
	warmed int
	err    error
}

func (w *warmBackend) Warmup(context.Context) error {
	w.warmed++
	return w.err
}

func stubConstructors(t *testing.T) (*nllb.Config, *remote.Config) {
	t.Helper()
	var gotLocal nllb.Config
	var gotRemote remote.Config
	origLocal, origRemote := newLocal, newRemote
	t.Cleanup(func() { newLocal, newRemote = origLocal, origRemote })

	newLocal = func(cfg nllb.Config) (route.Backend, error) {
		gotLocal = cfg
		return testutil.NewFakeBackend(), nil
	}
	newRemote = func(_ context.Context, cfg remote.Config) (route.Backend, error) {
		gotRemote = cfg
		return testutil.NewFakeBackend(), nil
	}
	return &gotLocal, &gotRemote
}

func TestNew_ONNX(t *testing.T) {
	local, _ := stubConstructors(t)
	cfg := config.DefaultConfig()
	cfg.ModelsDir = "/models"
	cfg.Translator.MaxLength = 200

	b, err := New(context.Background(), &cfg)
	require.NoError(t, err)
	assert.NotNil(t, b)
	assert.Equal(t, 200, local.MaxLength)
	assert.Contains(t, local.EncoderPath, "/models/")
}

func TestNew_Lambda(t *testing.T) {
	_, rem := stubConstructors(t)
	cfg := config.DefaultConfig()
	cfg.Backend.Type = config.BackendLambda
	cfg.Backend.Lambda.FunctionName = "lotra"
	cfg.Backend.Lambda.TimeoutSec = 5

	_, err := New(context.Background(), &cfg)
	require.NoError(t, err)
	assert.Equal(t, "lotra", rem.FunctionName)
	assert.Equal(t, 5*time.Second, rem.Timeout)
}

func TestNew_Errors(t *testing.T) {
	stubConstructors(t)
	newLocal = func(nllb.Config) (route.Backend, error) { return nil, errors.New("no model") }

	cfg := config.DefaultConfig()
	_, err := New(context.Background(), &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load translator: no model")

	cfg.Backend.Type = "grpc"
	_, err = New(context.Background(), &cfg)
	assert.EqualError(t, err, "unknown backend type: grpc")
}

func TestNewRouter_Warmup(t *testing.T) {
	stubConstructors(t)
	wb := &warmBackend{FakeBackend: testutil.NewFakeBackend(), err: errors.New("cold")}
	newLocal = func(nllb.Config) (route.Backend, error) { return wb, nil }

	cfg := config.DefaultConfig()
	r, err := NewRouter(context.Background(), &cfg)
	require.NoError(t, err, "warmup failures are not fatal")
	assert.Same(t, wb, r.Backend())
	assert.Equal(t, 1, wb.warmed)

	cfg.Translator.Warmup = false
	_, err = NewRouter(context.Background(), &cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, wb.warmed)
}
