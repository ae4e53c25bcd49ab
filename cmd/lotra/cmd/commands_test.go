package cmd

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/lotra/internal/config"
	"github.com/MeKo-Tech/lotra/internal/models"
	"github.com/MeKo-Tech/lotra/internal/onnx"
)

func TestFileCommand(t *testing.T) {
	useFakeBackend(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(in, []byte("안녕하세요\n\nHello\n"), 0o600))

	output, err := execute(t, "file", in)
	require.NoError(t, err)
	assert.Contains(t, output, "notes_translated.txt")
	assert.Contains(t, output, "2 lines translated, 0 failed")

	data, err := os.ReadFile(filepath.Join(dir, "notes_translated.txt"))
	require.NoError(t, err)
	assert.Equal(t, "[ko->en] 안녕하세요\n\n[en->ko] Hello\n", string(data))
}

func TestFileCommand_OutputAndFormat(t *testing.T) {
	useFakeBackend(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "notes.txt")
	out := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(in, []byte("Hello\n"), 0o600))

	_, err := execute(t, "file", in, "-o", out, "--format", "csv", "-d", "zh", "--quiet", "--stats")
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[en->zh] Hello")
}

func TestFileCommand_Errors(t *testing.T) {
	useFakeBackend(t)

	_, err := execute(t, "file")
	require.Error(t, err)

	_, err = execute(t, "file", filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot access")

	in := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(in, []byte("x\n"), 0o600))
	_, err = execute(t, "file", in, "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestLanguagesCommand(t *testing.T) {
	output, err := execute(t, "languages")
	require.NoError(t, err)
	assert.Contains(t, output, "CODE")
	assert.Contains(t, output, "kor_Hang")
	assert.Contains(t, output, "日本語")

	output, err = execute(t, "languages", "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Success   bool              `json:"success"`
		Languages map[string]string `json:"languages"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "zho_Hans", resp.Languages["zh"])

	_, err = execute(t, "languages", "--format", "xml")
	require.Error(t, err)
}

func TestConfigShowCommand(t *testing.T) {
	output, err := execute(t, "config", "show")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(output), &cfg))
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.True(t, cfg.Translator.AutoDetect)
}

func TestConfigInitCommand(t *testing.T) {
	file := filepath.Join(t.TempDir(), "lotra.yaml")

	output, err := execute(t, "config", "init", file)
	require.NoError(t, err)
	assert.Contains(t, output, "Wrote default configuration")
	assert.FileExists(t, file)

	_, err = execute(t, "config", "init", file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestConfigPathsCommand(t *testing.T) {
	output, err := execute(t, "config", "paths")
	require.NoError(t, err)
	assert.Contains(t, output, ".")
}

func stubRuntime(t *testing.T, err error) {
	t.Helper()
	orig := checkRuntime
	checkRuntime = func(bool) (onnx.RuntimeInfo, error) {
		return onnx.RuntimeInfo{LibraryPath: "/usr/lib/libonnxruntime.so", Version: "1.21.0"}, err
	}
	t.Cleanup(func() { checkRuntime = orig })
}

func TestTestCommand(t *testing.T) {
	stubRuntime(t, nil)
	modelsDir := t.TempDir()
	modelDir := filepath.Join(modelsDir, models.DefaultModel)
	require.NoError(t, os.MkdirAll(modelDir, 0o750))
	for _, f := range []string{models.EncoderFile, models.DecoderFile, models.TokenizerFile} {
		require.NoError(t, os.WriteFile(filepath.Join(modelDir, f), []byte("x"), 0o600))
	}

	output, err := execute(t, "--models-dir", modelsDir, "test")
	require.NoError(t, err)
	assert.Contains(t, output, "ONNX Runtime 1.21.0")
	assert.Contains(t, output, "All checks passed")
}

func TestTestCommand_Failures(t *testing.T) {
	stubRuntime(t, errors.New("library not found"))

	output, err := execute(t, "--models-dir", t.TempDir(), "test")
	require.Error(t, err)
	assert.Contains(t, output, "ONNX Runtime test failed")
	assert.Contains(t, output, "model file not found")
}

func TestInteractiveCommand_Plain(t *testing.T) {
	fb := useFakeBackend(t)

	output, err := executeWithInput(t, strings.NewReader("Hello\nq\n"), "interactive", "--plain")
	require.NoError(t, err)
	assert.Contains(t, output, "[English → Korean]")
	assert.Contains(t, output, "[en->ko] Hello")
	assert.Len(t, fb.Calls(), 1)
	assert.True(t, fb.Closed())
}
