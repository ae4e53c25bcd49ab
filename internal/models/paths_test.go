package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetModelsDir(t *testing.T) {
	tests := []struct {
		name           string
		explicitDir    string
		envVar         string
		expectedResult string
	}{
		{
			name:           "explicit directory takes precedence",
			explicitDir:    "/explicit/path",
			envVar:         "/env/path",
			expectedResult: "/explicit/path",
		},
		{
			name:           "environment variable used when no explicit dir",
			explicitDir:    "",
			envVar:         "/env/path",
			expectedResult: "/env/path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvModelsDir, tt.envVar)
			assert.Equal(t, tt.expectedResult, GetModelsDir(tt.explicitDir))
		})
	}
}

func TestGetModelsDir_ProjectRootDefault(t *testing.T) {
	t.Setenv(EnvModelsDir, "")
	root, err := findProjectRoot()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, DefaultModelsDir), GetModelsDir(""))
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestResolveModelPath(t *testing.T) {
	dir := t.TempDir()

	// flat layout when nothing exists
	assert.Equal(t, filepath.Join(dir, DefaultModel, EncoderFile), ResolveModelPath(dir, "", EncoderFile))

	// onnx/ subdirectory is preferred when present
	nested := filepath.Join(dir, DefaultModel, "onnx", EncoderFile)
	writeFile(t, nested)
	assert.Equal(t, nested, ResolveModelPath(dir, DefaultModel, EncoderFile))
}

func TestGetPathsAndValidate(t *testing.T) {
	dir := t.TempDir()
	p := GetPaths(dir, DefaultModel)

	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), EncoderFile)
	assert.Contains(t, err.Error(), TokenizerFile)

	writeFile(t, p.Encoder)
	writeFile(t, p.Decoder)
	writeFile(t, p.Tokenizer)
	assert.NoError(t, p.Validate())
}

func TestValidateModelExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.onnx")
	assert.Error(t, ValidateModelExists(path))
	writeFile(t, path)
	assert.NoError(t, ValidateModelExists(path))
}

func TestListAvailableModels(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, DefaultModel, TokenizerFile))

	list := ListAvailableModels(dir)
	require.Len(t, list, 6)

	var present int
	for _, m := range list {
		assert.NotEmpty(t, m.Name)
		assert.NotEmpty(t, m.Filename)
		if m.Present {
			present++
			assert.Equal(t, TypeTokenizer, m.Type)
			assert.Equal(t, DefaultModel, m.Model)
		}
	}
	assert.Equal(t, 1, present)
}
