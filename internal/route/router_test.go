package route_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MeKo-Tech/lotra/internal/lang"
	"github.com/MeKo-Tech/lotra/internal/route"
	"github.com/MeKo-Tech/lotra/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteAndTranslate_AutoJapanese(t *testing.T) {
	backend := testutil.NewFakeBackend()
	backend.Responses["こんにちは"] = "  Hello!  "
	r := route.NewRouter(backend)

	res, err := r.RouteAndTranslate(context.Background(), "こんにちは", route.AutoPolicy())
	require.NoError(t, err)

	assert.Equal(t, lang.Japanese, res.Source)
	assert.Equal(t, lang.English, res.Target)
	assert.Equal(t, lang.Japanese, res.Detected)
	// passed through unmodified
	assert.Equal(t, "  Hello!  ", res.Translation)

	calls := backend.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, testutil.BackendCall{Text: "こんにちは", Source: lang.Japanese, Target: lang.English}, calls[0])
}

func TestRouteAndTranslate_Explicit(t *testing.T) {
	backend := testutil.NewFakeBackend()
	r := route.NewRouter(backend)

	out, err := r.Translate(context.Background(), "Hello", route.Policy{Source: lang.English, Target: lang.Chinese})
	require.NoError(t, err)
	assert.Equal(t, "[en->zh] Hello", out)
}

func TestRouteAndTranslate_TrimsInput(t *testing.T) {
	backend := testutil.NewFakeBackend()
	r := route.NewRouter(backend)

	res, err := r.RouteAndTranslate(context.Background(), "  \tHello world \n", route.AutoPolicy())
	require.NoError(t, err)
	assert.Equal(t, "Hello world", res.Text)
	assert.Equal(t, "[en->ko] Hello world", res.Translation)

	calls := backend.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Hello world", calls[0].Text)
}

func TestRouteAndTranslate_InvalidDirectionSkipsBackend(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		policy route.Policy
		reason route.Reason
	}{
		{"empty", "", route.AutoPolicy(), route.ReasonEmptyText},
		{"whitespace", " \n ", route.AutoPolicy(), route.ReasonEmptyText},
		{"same language", "안녕", route.Policy{Source: lang.Korean, Target: lang.Korean}, route.ReasonSameLanguage},
		{"missing source", "Hello", route.Policy{Target: lang.Korean}, route.ReasonSourceRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := testutil.NewFakeBackend()
			r := route.NewRouter(backend)

			_, err := r.RouteAndTranslate(context.Background(), tt.text, tt.policy)
			require.Error(t, err)
			de, ok := route.IsInvalidDirection(err)
			require.True(t, ok)
			assert.Equal(t, tt.reason, de.Reason)
			assert.Empty(t, backend.Calls())
		})
	}
}

func TestRouteAndTranslate_ModelError(t *testing.T) {
	cause := errors.New("model not loaded")
	backend := testutil.NewFakeBackend()
	backend.Err = cause
	r := route.NewRouter(backend)

	_, err := r.RouteAndTranslate(context.Background(), "Hello", route.AutoPolicy())
	require.Error(t, err)
	assert.True(t, errors.Is(err, route.ErrModel))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, route.ErrInvalidDirection))

	me, ok := route.IsModelError(err)
	require.True(t, ok)
	assert.Equal(t, lang.English, me.Source)
	assert.Equal(t, lang.Korean, me.Target)
	// never retried
	assert.Len(t, backend.Calls(), 1)
}

func TestRouteAndTranslate_ExistingModelErrorUnchanged(t *testing.T) {
	orig := &route.ModelError{Source: lang.Korean, Target: lang.English, Err: errors.New("oom")}
	backend := testutil.NewFakeBackend()
	backend.Err = orig
	r := route.NewRouter(backend)

	_, err := r.RouteAndTranslate(context.Background(), "안녕", route.AutoPolicy())
	me, ok := route.IsModelError(err)
	require.True(t, ok)
	assert.Same(t, orig, me)
}

func TestRouteAndTranslate_ContextCancelled(t *testing.T) {
	backend := testutil.NewFakeBackend()
	backend.Block = true
	r := route.NewRouter(backend)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := r.RouteAndTranslate(ctx, "Hello", route.AutoPolicy())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.True(t, errors.Is(err, route.ErrModel))
}

func TestRouter_Observer(t *testing.T) {
	var dirs []route.Direction
	var errs []error
	backend := testutil.NewFakeBackend()
	r := route.NewRouter(backend, route.WithObserver(func(d route.Direction, _ time.Duration, err error) {
		dirs = append(dirs, d)
		errs = append(errs, err)
	}))

	_, _ = r.RouteAndTranslate(context.Background(), "Hello", route.AutoPolicy())
	_, _ = r.RouteAndTranslate(context.Background(), "", route.AutoPolicy())

	require.Len(t, dirs, 2)
	assert.Equal(t, lang.English, dirs[0].Source)
	assert.NoError(t, errs[0])
	assert.Error(t, errs[1])
}

type warmBackend struct {
	*testutil.FakeBackend
	warmed bool
}

func (w *warmBackend) Warmup(context.Context) error {
	w.warmed = true
	return nil
}

func TestRouter_Warmup(t *testing.T) {
	wb := &warmBackend{FakeBackend: testutil.NewFakeBackend()}
	r := route.NewRouter(wb)
	require.NoError(t, r.Warmup(context.Background()))
	assert.True(t, wb.warmed)

	// backends without warmup are a no-op
	plain := route.NewRouter(testutil.NewFakeBackend())
	assert.NoError(t, plain.Warmup(context.Background()))
	assert.NotNil(t, plain.Backend())
}
