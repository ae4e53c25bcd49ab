package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/lotra/internal/api"
	"github.com/MeKo-Tech/lotra/internal/config"
	"github.com/MeKo-Tech/lotra/internal/route"
)

func TestTranslateCommand_AutoDetect(t *testing.T) {
	fb := useFakeBackend(t)
	setStdinTerminal(t, true)

	output, err := execute(t, "translate", "안녕하세요")
	require.NoError(t, err)
	assert.Equal(t, "[ko->en] 안녕하세요\n", output)
	assert.True(t, fb.Closed())
}

func TestTranslateCommand_Explicit(t *testing.T) {
	useFakeBackend(t)
	setStdinTerminal(t, true)

	output, err := execute(t, "translate", "-s", "en", "-d", "ja", "Good", "morning")
	require.NoError(t, err)
	assert.Equal(t, "[en->ja] Good morning\n", output)
}

func TestTranslateCommand_TextFlagWithSourceAndDestination(t *testing.T) {
	useFakeBackend(t)
	setStdinTerminal(t, true)

	output, err := execute(t, "translate", "-t", "Hello, world", "-s", "en", "-d", "ja")
	require.NoError(t, err)
	assert.Equal(t, "[en->ja] Hello, world\n", output)
}

func TestTranslateCommand_TextFlagAndDirection(t *testing.T) {
	useFakeBackend(t)
	setStdinTerminal(t, true)

	output, err := execute(t, "translate", "-t", "你好", "--show-direction")
	require.NoError(t, err)
	assert.Contains(t, output, "[zh->en] 你好")
	assert.Contains(t, output, "[Chinese → English]")
}

func TestTranslateCommand_Stdin(t *testing.T) {
	useFakeBackend(t)
	setStdinTerminal(t, false)

	output, err := executeWithInput(t, strings.NewReader("Hello\n"), "translate")
	require.NoError(t, err)
	assert.Equal(t, "[en->ko] Hello\n", output)
}

func TestTranslateCommand_JSON(t *testing.T) {
	useFakeBackend(t)
	setStdinTerminal(t, true)

	output, err := execute(t, "translate", "--format", "json", "Hello")
	require.NoError(t, err)

	var resp api.TranslateResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "[en->ko] Hello", resp.Translation)
	assert.Equal(t, "en", resp.DetectedLang)
	assert.Equal(t, "ko", resp.TgtLang)
}

func TestTranslateCommand_Errors(t *testing.T) {
	fb := useFakeBackend(t)
	setStdinTerminal(t, true)

	_, err := execute(t, "translate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no text provided")

	_, err = execute(t, "translate", "-s", "ko", "-d", "ko", "안녕")
	require.Error(t, err)
	assert.ErrorIs(t, err, route.ErrInvalidDirection)
	assert.Contains(t, err.Error(), "source and target must differ")

	_, err = execute(t, "translate", "-s", "de", "Hallo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --source")

	_, err = execute(t, "translate", "--format", "xml", "Hello")
	require.Error(t, err)

	fb.Err = errors.New("session exploded")
	output, err := execute(t, "translate", "--format", "json", "Hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, route.ErrModel)
	assert.Contains(t, output, `"error_type": "model_error"`)
}

func TestTranslateCommand_InvalidDirectionSkipsModelLoad(t *testing.T) {
	setStdinTerminal(t, true)
	loaded := false
	orig := newRouter
	newRouter = func(context.Context, *config.Config, ...route.Option) (*route.Router, error) {
		loaded = true
		return nil, errors.New("model unavailable")
	}
	t.Cleanup(func() { newRouter = orig })

	output, err := execute(t, "translate", "--no-auto-detect", "--format", "json", "Hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, route.ErrInvalidDirection)
	assert.Contains(t, output, `"reason": "source_required"`)
	assert.False(t, loaded)
}
