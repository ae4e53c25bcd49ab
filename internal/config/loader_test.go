package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func newTestLoader() *Loader {
	return NewLoaderWithViper(viper.New())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	require.NotNil(t, loader)
	assert.Same(t, viper.GetViper(), loader.GetViper())
}

func TestLoadWithNoConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := newTestLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)
}

func TestLoadFromSearchPath(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, filepath.Join(dir, "lotra.yaml"), `
log_level: debug
translator:
  auto_detect: false
  source: ko
server:
  port: 8088
  trusted_proxies:
    - 10.0.0.0/8
    - 127.0.0.1
`)

	loader := newTestLoader()
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.Translator.AutoDetect)
	assert.Equal(t, "ko", cfg.Translator.Source)
	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.Server.TrustedProxies)
	// untouched keys keep their defaults
	assert.Equal(t, 512, cfg.Translator.MaxLength)
	assert.Equal(t, "lotra.yaml", filepath.Base(loader.GetConfigFileUsed()))
}

func TestLoadWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	writeFile(t, path, `
models_dir: /srv/models
backend:
  type: lambda
  lambda:
    function_name: lotra-prod
    region: ap-northeast-2
gpu:
  enabled: true
  memory_limit: 4GB
`)

	cfg, err := newTestLoader().LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/models", cfg.ModelsDir)
	assert.Equal(t, BackendLambda, cfg.Backend.Type)
	assert.Equal(t, "lotra-prod", cfg.Backend.Lambda.FunctionName)
	assert.Equal(t, "ap-northeast-2", cfg.Backend.Lambda.Region)
	assert.Equal(t, 60, cfg.Backend.Lambda.TimeoutSec)
	assert.True(t, cfg.GPU.Enabled)
	assert.Equal(t, "4GB", cfg.GPU.MemoryLimit)
}

func TestLoadWithFile_Missing(t *testing.T) {
	_, err := newTestLoader().LoadWithFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file does not exist")
}

func TestLoadWithFile_Invalid(t *testing.T) {
	dir := t.TempDir()

	broken := filepath.Join(dir, "broken.yaml")
	writeFile(t, broken, "server: [port")
	_, err := newTestLoader().LoadWithFile(broken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")

	invalid := filepath.Join(dir, "invalid.yaml")
	writeFile(t, invalid, "log_level: loud\n")
	_, err = newTestLoader().LoadWithFile(invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")

	cfg, err := newTestLoader().LoadWithFileWithoutValidation(invalid)
	require.NoError(t, err)
	assert.Equal(t, "loud", cfg.LogLevel)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LOTRA_LOG_LEVEL", "warn")
	t.Setenv("LOTRA_SERVER_PORT", "9090")
	t.Setenv("LOTRA_TRANSLATOR_MAX_LENGTH", "64")
	t.Setenv("LOTRA_BACKEND_TYPE", "lambda")
	t.Setenv("LOTRA_BACKEND_LAMBDA_FUNCTION_NAME", "from-env")

	cfg, err := newTestLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 64, cfg.Translator.MaxLength)
	assert.Equal(t, BackendLambda, cfg.Backend.Type)
	assert.Equal(t, "from-env", cfg.Backend.Lambda.FunctionName)
}

func TestLoaderAccessors(t *testing.T) {
	loader := newTestLoader()
	loader.Set("translator.target", "zh")
	assert.Equal(t, "zh", loader.GetString("translator.target"))
	assert.Equal(t, "zh", loader.Get("translator.target"))
	assert.NotEmpty(t, loader.GetResolvedConfig())
}

func TestGenerateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "lotra.yaml")
	require.NoError(t, GenerateDefaultConfigFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var cfg Config
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, DefaultConfig(), cfg)

	err = GenerateDefaultConfigFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	loaded, err := newTestLoader().LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *loaded)
}

func TestGetConfigSearchPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	paths := GetConfigSearchPaths()
	assert.Equal(t, ".", paths[0])
	assert.Contains(t, paths, filepath.Join("/xdg", "lotra"))
	assert.Equal(t, "/etc/lotra", paths[len(paths)-1])
}
