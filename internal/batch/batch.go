// Package batch translates text files line by line.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNoFiles is returned when discovery finds nothing to translate.
var ErrNoFiles = errors.New("no text files found")

// DefaultOutputPath returns "<stem>_translated<ext>" next to input. For json
// and csv reports the extension follows the format.
func DefaultOutputPath(input, format string) string {
	ext := filepath.Ext(input)
	stem := strings.TrimSuffix(input, ext)
	switch format {
	case FormatJSON:
		ext = ".json"
	case FormatCSV:
		ext = ".csv"
	}
	return stem + "_translated" + ext
}

// TranslateFile translates the file at input and returns the per-line result.
// It does not write any output.
func TranslateFile(ctx context.Context, tr Translator, input string, cfg Config) (*FileResult, error) {
	data, err := os.ReadFile(input) //nolint:gosec // G304: reading a user-provided input file is expected
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", input, err)
	}

	doc := splitDocument(string(data))
	start := time.Now()
	lines, err := translateLines(ctx, tr, doc.lines, cfg)
	res := &FileResult{
		Input:    input,
		Lines:    lines,
		Duration: time.Since(start),
		doc:      doc,
	}
	if err != nil {
		return res, fmt.Errorf("failed to translate %s: %w", input, err)
	}

	translated, empty, failed := res.Counts()
	slog.Info("Translated file",
		"file", input,
		"lines", len(lines),
		"translated", translated,
		"empty", empty,
		"failed", failed,
		"duration", res.Duration)
	return res, nil
}

// ProcessFiles discovers text files under paths, translates each one and
// writes the output in cfg.Format.
func ProcessFiles(ctx context.Context, tr Translator, paths []string, cfg Config) (*Result, error) {
	files, err := discoverTextFiles(paths, cfg.Recursive, cfg.IncludePatterns, cfg.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover text files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if cfg.Output != "" && len(files) > 1 {
		return nil, fmt.Errorf("output path %s given for %d input files; use an output directory", cfg.Output, len(files))
	}

	start := time.Now()
	result := &Result{WorkerCount: cfg.Workers}
	for _, file := range files {
		fr, err := TranslateFile(ctx, tr, file, cfg)
		if err != nil {
			return nil, err
		}
		fr.Output = outputPathFor(file, cfg)
		if err := fr.Save(cfg.Format); err != nil {
			return nil, err
		}
		result.Files = append(result.Files, fr)
	}
	result.Duration = time.Since(start)
	return result, nil
}

func outputPathFor(input string, cfg Config) string {
	if cfg.Output != "" {
		return cfg.Output
	}
	out := DefaultOutputPath(input, cfg.Format)
	if cfg.OutputDir != "" {
		out = filepath.Join(cfg.OutputDir, filepath.Base(out))
	}
	return out
}
