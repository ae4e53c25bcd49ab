//nolint:lll
package config

import (
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/lotra/internal/lang"
	"github.com/MeKo-Tech/lotra/internal/models"
	"github.com/MeKo-Tech/lotra/internal/nllb"
	"github.com/MeKo-Tech/lotra/internal/onnx"
	"github.com/MeKo-Tech/lotra/internal/remote"
	"github.com/MeKo-Tech/lotra/internal/route"
)

// Backend types.
const (
	BackendONNX   = "onnx"
	BackendLambda = "lambda"
)

// Config represents the complete configuration for lotra. It is shared by
// every command and can be loaded from files, environment variables and
// command-line flags.
type Config struct {
	// Global settings
	ModelsDir string `mapstructure:"models_dir" yaml:"models_dir" json:"models_dir"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" json:"log_format"`
	LogFile   string `mapstructure:"log_file" yaml:"log_file" json:"log_file"`
	Verbose   bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Translator TranslatorConfig `mapstructure:"translator" yaml:"translator" json:"translator"`
	Backend    BackendConfig    `mapstructure:"backend" yaml:"backend" json:"backend"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server" json:"server"`
	Batch      BatchConfig      `mapstructure:"batch" yaml:"batch" json:"batch"`
	GPU        GPUConfig        `mapstructure:"gpu" yaml:"gpu" json:"gpu"`
}

// TranslatorConfig controls direction policy and generation.
type TranslatorConfig struct {
	Model          string `mapstructure:"model" yaml:"model" json:"model"`
	AutoDetect     bool   `mapstructure:"auto_detect" yaml:"auto_detect" json:"auto_detect"`
	Source         string `mapstructure:"source" yaml:"source" json:"source"`
	Target         string `mapstructure:"target" yaml:"target" json:"target"`
	MaxLength      int    `mapstructure:"max_length" yaml:"max_length" json:"max_length"`
	MaxInputTokens int    `mapstructure:"max_input_tokens" yaml:"max_input_tokens" json:"max_input_tokens"`
	NumThreads     int    `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
	Warmup         bool   `mapstructure:"warmup" yaml:"warmup" json:"warmup"`
}

// BackendConfig selects the translation engine.
type BackendConfig struct {
	Type   string       `mapstructure:"type" yaml:"type" json:"type"`
	Lambda LambdaConfig `mapstructure:"lambda" yaml:"lambda" json:"lambda"`
}

// LambdaConfig configures the remote Lambda backend.
type LambdaConfig struct {
	FunctionName string `mapstructure:"function_name" yaml:"function_name" json:"function_name"`
	Region       string `mapstructure:"region" yaml:"region" json:"region"`
	TimeoutSec   int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxBodyKB       int             `mapstructure:"max_body_kb" yaml:"max_body_kb" json:"max_body_kb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
	// TrustedProxies are addresses or CIDR ranges allowed to set X-Forwarded-For.
	TrustedProxies []string `mapstructure:"trusted_proxies" yaml:"trusted_proxies,omitempty" json:"trusted_proxies,omitempty"`
}

// RateLimitConfig contains per-client limits. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool  `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int   `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int   `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int   `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxCharsPerDay    int64 `mapstructure:"max_chars_per_day" yaml:"max_chars_per_day" json:"max_chars_per_day"`
}

// BatchConfig contains file translation settings.
type BatchConfig struct {
	Workers         int    `mapstructure:"workers" yaml:"workers" json:"workers"`
	Format          string `mapstructure:"format" yaml:"format" json:"format"`
	ContinueOnError bool   `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}

// GPUConfig contains GPU acceleration settings.
type GPUConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Device      int    `mapstructure:"device" yaml:"device" json:"device"`
	MemoryLimit string `mapstructure:"memory_limit" yaml:"memory_limit" json:"memory_limit"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() Config {
	return Config{
		ModelsDir: models.DefaultModelsDir,
		LogLevel:  "info",
		LogFormat: "json",
		Translator: TranslatorConfig{
			Model:          models.DefaultModel,
			AutoDetect:     true,
			MaxLength:      512,
			MaxInputTokens: 1024,
			Warmup:         true,
		},
		Backend: BackendConfig{
			Type: BackendONNX,
			Lambda: LambdaConfig{
				TimeoutSec: 60,
			},
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5000,
			CORSOrigin:      "*",
			MaxBodyKB:       256,
			TimeoutSec:      60,
			ShutdownTimeout: 10,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 60,
				RequestsPerHour:   1000,
			},
		},
		Batch: BatchConfig{
			Workers:         4,
			Format:          "text",
			ContinueOnError: true,
		},
		GPU: GPUConfig{
			Enabled:     false,
			Device:      0,
			MemoryLimit: "auto",
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if c.LogFormat != "" && !slices.Contains(validLogFormats, c.LogFormat) {
		return fmt.Errorf("invalid log format: %s (must be one of: %s)", c.LogFormat, strings.Join(validLogFormats, ", "))
	}

	validBackends := []string{BackendONNX, BackendLambda}
	if !slices.Contains(validBackends, c.Backend.Type) {
		return fmt.Errorf("invalid backend type: %s (must be one of: %s)", c.Backend.Type, strings.Join(validBackends, ", "))
	}
	if c.Backend.Type == BackendLambda && c.Backend.Lambda.FunctionName == "" {
		return fmt.Errorf("backend.lambda.function_name is required for the %s backend", BackendLambda)
	}

	if _, err := lang.Parse(c.Translator.Source); err != nil {
		return fmt.Errorf("invalid translator.source: %w", err)
	}
	if _, err := lang.Parse(c.Translator.Target); err != nil {
		return fmt.Errorf("invalid translator.target: %w", err)
	}
	if c.Translator.MaxLength <= 0 {
		return fmt.Errorf("invalid max length: %d (must be positive)", c.Translator.MaxLength)
	}
	if c.Translator.MaxInputTokens < 3 {
		return fmt.Errorf("invalid max input tokens: %d (must be at least 3)", c.Translator.MaxInputTokens)
	}
	if c.Translator.NumThreads < 0 {
		return fmt.Errorf("invalid num threads: %d (must not be negative)", c.Translator.NumThreads)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxBodyKB <= 0 {
		return fmt.Errorf("invalid max body size: %d (must be positive)", c.Server.MaxBodyKB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	for _, p := range c.Server.TrustedProxies {
		if net.ParseIP(p) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(p); err != nil {
			return fmt.Errorf("invalid trusted proxy %q (must be an IP address or CIDR range)", p)
		}
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}

	validFormats := []string{"text", "json", "csv"}
	if c.Batch.Format != "" && !slices.Contains(validFormats, c.Batch.Format) {
		return fmt.Errorf("invalid batch format: %s (must be one of: %s)", c.Batch.Format, strings.Join(validFormats, ", "))
	}

	if c.GPU.Device < 0 {
		return fmt.Errorf("invalid GPU device: %d (must not be negative)", c.GPU.Device)
	}
	if c.GPU.MemoryLimit != "auto" && c.GPU.MemoryLimit != "" {
		if _, err := parseMemoryLimit(c.GPU.MemoryLimit); err != nil {
			return fmt.Errorf("invalid GPU memory limit: %w", err)
		}
	}

	return nil
}

// DefaultPolicy returns the direction policy used when a request sets none.
// Invalid codes are rejected by Validate and parse to lang.Unknown here.
func (c *Config) DefaultPolicy() route.Policy {
	src, _ := lang.Parse(c.Translator.Source)
	tgt, _ := lang.Parse(c.Translator.Target)
	return route.Policy{AutoDetect: c.Translator.AutoDetect, Source: src, Target: tgt}
}

// ToTranslatorConfig converts the configuration into an nllb.Config.
func (c *Config) ToTranslatorConfig() nllb.Config {
	cfg := nllb.ConfigForModel(c.ModelsDir, c.Translator.Model)
	cfg.MaxLength = c.Translator.MaxLength
	cfg.MaxInputTokens = c.Translator.MaxInputTokens
	cfg.NumThreads = c.Translator.NumThreads
	cfg.GPU = c.toGPUConfig()
	return cfg
}

func (c *Config) toGPUConfig() onnx.GPUConfig {
	gpu := onnx.DefaultGPUConfig()
	gpu.UseGPU = c.GPU.Enabled
	gpu.DeviceID = c.GPU.Device
	if limit, err := parseMemoryLimit(c.GPU.MemoryLimit); err == nil {
		gpu.GPUMemLimit = limit
	}
	return gpu
}

// ToRemoteConfig converts the configuration into a remote.Config.
func (c *Config) ToRemoteConfig() remote.Config {
	return remote.Config{
		FunctionName: c.Backend.Lambda.FunctionName,
		Region:       c.Backend.Lambda.Region,
		Timeout:      time.Duration(c.Backend.Lambda.TimeoutSec) * time.Second,
	}
}

// parseMemoryLimit converts a limit such as "2GB" or "512MB" to bytes. "auto"
// and "" yield zero, meaning no limit.
func parseMemoryLimit(limit string) (uint64, error) {
	if limit == "" || limit == "auto" {
		return 0, nil
	}

	upper := strings.ToUpper(strings.TrimSpace(limit))
	units := []struct {
		suffix string
		factor float64
	}{
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
		{"B", 1},
	}
	for _, u := range units {
		if !strings.HasSuffix(upper, u.suffix) {
			continue
		}
		n, err := strconv.ParseFloat(strings.TrimSuffix(upper, u.suffix), 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid number in memory limit: %s", limit)
		}
		return uint64(n * u.factor), nil
	}
	return 0, fmt.Errorf("memory limit must end with one of: B, KB, MB, GB")
}
