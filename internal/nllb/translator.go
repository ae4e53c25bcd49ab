// Package nllb runs NLLB-200 translation locally with ONNX Runtime.
package nllb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MeKo-Tech/lotra/internal/lang"
	"github.com/MeKo-Tech/lotra/internal/models"
	"github.com/MeKo-Tech/lotra/internal/onnx"
)

// ErrClosed is returned by Translate after Close.
var ErrClosed = errors.New("translator is closed")

// Config holds translator settings.
type Config struct {
	EncoderPath   string
	DecoderPath   string
	TokenizerPath string

	// MaxLength caps the number of generated tokens.
	MaxLength int
	// MaxInputTokens truncates long inputs before encoding.
	MaxInputTokens int
	NumThreads     int
	GPU            onnx.GPUConfig
}

// DefaultConfig returns the default configuration for the distilled 600M
// model under the default models directory.
func DefaultConfig() Config {
	return ConfigForModel("", models.DefaultModel)
}

// ConfigForModel returns the default configuration with file paths resolved
// for model under modelsDir.
func ConfigForModel(modelsDir, model string) Config {
	p := models.GetPaths(modelsDir, model)
	return Config{
		EncoderPath:    p.Encoder,
		DecoderPath:    p.Decoder,
		TokenizerPath:  p.Tokenizer,
		MaxLength:      512,
		MaxInputTokens: 1024,
		NumThreads:     0,
		GPU:            onnx.DefaultGPUConfig(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxLength <= 0 {
		return fmt.Errorf("max length must be positive, got %d", c.MaxLength)
	}
	if c.MaxInputTokens < 3 {
		return fmt.Errorf("max input tokens must be at least 3, got %d", c.MaxInputTokens)
	}
	if c.NumThreads < 0 {
		return fmt.Errorf("num threads must be non-negative, got %d", c.NumThreads)
	}
	if err := onnx.ValidateGPUConfig(c.GPU); err != nil {
		return err
	}
	return models.Paths{Encoder: c.EncoderPath, Decoder: c.DecoderPath, Tokenizer: c.TokenizerPath}.Validate()
}

// Translator translates text with an NLLB encoder-decoder model using greedy
// decoding. It is safe for concurrent use.
type Translator struct {
	cfg   Config
	tok   *Tokenizer
	model seq2seq

	mu     sync.RWMutex
	closed bool
}

// New loads the tokenizer and model sessions described by cfg.
func New(cfg Config) (*Translator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid translator config: %w", err)
	}

	tok, err := LoadTokenizer(cfg.TokenizerPath)
	if err != nil {
		return nil, err
	}
	slog.Debug("Tokenizer loaded", "path", cfg.TokenizerPath, "type", tok.Kind(), "vocab", tok.VocabSize())

	start := time.Now()
	model, err := newONNXModel(cfg)
	if err != nil {
		return nil, err
	}
	slog.Info("Translation model loaded",
		"encoder", cfg.EncoderPath,
		"decoder", cfg.DecoderPath,
		"gpu", cfg.GPU.UseGPU,
		"duration", time.Since(start))

	return newTranslator(cfg, tok, model), nil
}

func newTranslator(cfg Config, tok *Tokenizer, model seq2seq) *Translator {
	return &Translator{cfg: cfg, tok: tok, model: model}
}

// Translate translates text from src to tgt.
func (t *Translator) Translate(ctx context.Context, text string, src, tgt lang.Code) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return "", ErrClosed
	}

	srcID, err := t.tok.LanguageID(src)
	if err != nil {
		return "", err
	}
	tgtID, err := t.tok.LanguageID(tgt)
	if err != nil {
		return "", err
	}

	ids := t.tok.Encode(text)
	if len(ids) == 0 {
		return "", nil
	}
	if limit := t.cfg.MaxInputTokens - 2; len(ids) > limit {
		slog.Warn("Input truncated", "tokens", len(ids), "limit", limit)
		ids = ids[:limit]
	}

	input := make([]int64, 0, len(ids)+2)
	input = append(input, srcID)
	input = append(input, ids...)
	input = append(input, t.tok.EOS())

	out, err := t.generate(ctx, input, tgtID)
	if err != nil {
		return "", err
	}
	return t.tok.Decode(out), nil
}

// generate runs greedy decoding. The decoder prefix starts with </s> followed
// by the target language token, which is forced rather than predicted.
func (t *Translator) generate(ctx context.Context, input []int64, tgtID int64) ([]int64, error) {
	enc, err := t.model.Encode(input)
	if err != nil {
		return nil, err
	}

	eos := t.tok.EOS()
	prefix := []int64{eos, tgtID}
	for len(prefix) < t.cfg.MaxLength {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logits, err := t.model.Decode(enc, prefix)
		if err != nil {
			return nil, err
		}
		next := onnx.ArgMax(logits)
		if next < 0 {
			return nil, errors.New("decoder returned empty logits")
		}
		if int64(next) == eos {
			break
		}
		prefix = append(prefix, int64(next))
	}
	return prefix[2:], nil
}

// Warmup runs a short translation to load kernels before the first request.
func (t *Translator) Warmup(ctx context.Context) error {
	start := time.Now()
	if _, err := t.Translate(ctx, "Hello", lang.English, lang.Korean); err != nil {
		return fmt.Errorf("warmup failed: %w", err)
	}
	slog.Debug("Translator warmed up", "duration", time.Since(start))
	return nil
}

// Close releases the model sessions. Further calls to Translate fail.
func (t *Translator) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.model.Close()
}

// Name identifies the backend kind.
func (t *Translator) Name() string {
	return "onnx"
}
