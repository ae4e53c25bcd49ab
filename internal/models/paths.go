package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Model file names as produced by a Hugging Face optimum ONNX export.
const (
	EncoderFile   = "encoder_model.onnx"
	DecoderFile   = "decoder_model.onnx"
	TokenizerFile = "tokenizer.json"
)

// Model directory names.
const (
	NLLBDistilled600M = "nllb-200-distilled-600M"
	NLLBDistilled1_3B = "nllb-200-distilled-1.3B"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = NLLBDistilled600M

// File type categories.
const (
	TypeEncoder   = "encoder"
	TypeDecoder   = "decoder"
	TypeTokenizer = "tokenizer"
)

// Default models directory.
const DefaultModelsDir = "models"

// Environment variable for models directory override.
const EnvModelsDir = "LOTRA_MODELS_DIR"

// findProjectRoot finds the project root by looking for go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", errors.New("could not find project root (go.mod not found)")
}

// ModelInfo contains metadata about a model file.
type ModelInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Model       string `json:"model"`
	Description string `json:"description"`
	Filename    string `json:"filename"`
	Path        string `json:"path,omitempty"`
	Present     bool   `json:"present"`
}

// Paths holds the resolved files of one model.
type Paths struct {
	Encoder   string
	Decoder   string
	Tokenizer string
}

// GetModelsDir returns the models directory path.
// Priority: 1. Explicit modelsDir parameter, 2. Environment variable, 3. Project root + default.
func GetModelsDir(modelsDir string) string {
	if modelsDir != "" {
		return modelsDir
	}

	if envDir := os.Getenv(EnvModelsDir); envDir != "" {
		return envDir
	}

	if projectRoot, err := findProjectRoot(); err == nil {
		return filepath.Join(projectRoot, DefaultModelsDir)
	}

	return DefaultModelsDir
}

// ResolveModelPath resolves a model file to its full path. Exports that keep
// the ONNX graphs in an onnx/ subdirectory are found as well.
func ResolveModelPath(modelsDir, model, filename string) string {
	baseDir := GetModelsDir(modelsDir)
	if model == "" {
		model = DefaultModel
	}

	nested := filepath.Join(baseDir, model, "onnx", filename)
	if _, err := os.Stat(nested); err == nil {
		return nested
	}
	return filepath.Join(baseDir, model, filename)
}

// GetPaths returns the encoder, decoder and tokenizer paths for model.
func GetPaths(modelsDir, model string) Paths {
	return Paths{
		Encoder:   ResolveModelPath(modelsDir, model, EncoderFile),
		Decoder:   ResolveModelPath(modelsDir, model, DecoderFile),
		Tokenizer: ResolveModelPath(modelsDir, model, TokenizerFile),
	}
}

// ValidateModelExists checks if a model file exists at the given path.
func ValidateModelExists(modelPath string) error {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", modelPath)
	}
	return nil
}

// Validate checks that every file in p exists.
func (p Paths) Validate() error {
	var errs []error
	for _, path := range []string{p.Encoder, p.Decoder, p.Tokenizer} {
		if err := ValidateModelExists(path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ListAvailableModels returns the known model files and whether each one is
// present under modelsDir.
func ListAvailableModels(modelsDir string) []ModelInfo {
	var out []ModelInfo
	for _, model := range []string{NLLBDistilled600M, NLLBDistilled1_3B} {
		p := GetPaths(modelsDir, model)
		for _, f := range []struct {
			typ, file, path, desc string
		}{
			{TypeEncoder, EncoderFile, p.Encoder, "Encoder graph"},
			{TypeDecoder, DecoderFile, p.Decoder, "Decoder graph"},
			{TypeTokenizer, TokenizerFile, p.Tokenizer, "SentencePiece tokenizer (tokenizer.json)"},
		} {
			out = append(out, ModelInfo{
				Name:        model + "/" + f.typ,
				Type:        f.typ,
				Model:       model,
				Description: f.desc,
				Filename:    f.file,
				Path:        f.path,
				Present:     ValidateModelExists(f.path) == nil,
			})
		}
	}
	return out
}
