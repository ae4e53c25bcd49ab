package batch

import (
	"fmt"
	"io"
	"time"

	"github.com/MeKo-Tech/lotra/internal/route"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Config holds all configuration for file translation.
type Config struct {
	Policy route.Policy

	// Workers bounds the number of lines translated concurrently.
	Workers int
	// ContinueOnError keeps failed lines in their original text instead of
	// aborting the file.
	ContinueOnError bool
	Format          string

	// Output is the output path for a single input. OutputDir places
	// outputs for multiple inputs; empty means next to each input.
	Output    string
	OutputDir string

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Progress receives per-line progress. Nil disables reporting.
	Progress ProgressCallback
}

// DefaultConfig returns a Config with auto-detection, four workers and text
// output.
func DefaultConfig() Config {
	return Config{
		Policy:          route.AutoPolicy(),
		Workers:         4,
		ContinueOnError: true,
		Format:          FormatText,
		IncludePatterns: []string{"*.txt", "*.md"},
	}
}

// LineResult is the outcome for one input line.
type LineResult struct {
	Index       int           `json:"line"`
	Text        string        `json:"text"`
	Translation string        `json:"translation"`
	Source      string        `json:"src_lang,omitempty"`
	Target      string        `json:"tgt_lang,omitempty"`
	Detected    string        `json:"detected_lang,omitempty"`
	Status      string        `json:"status"` // translated, empty, failed
	Error       string        `json:"error,omitempty"`
	Elapsed     time.Duration `json:"-"`
}

// Line statuses.
const (
	StatusTranslated = "translated"
	StatusEmpty      = "empty"
	StatusFailed     = "failed"
)

// FileResult holds the result of translating one file.
type FileResult struct {
	Input    string        `json:"file"`
	Output   string        `json:"output"`
	Lines    []LineResult  `json:"lines"`
	Duration time.Duration `json:"-"`

	doc document
}

// Counts returns the number of translated, empty and failed lines.
func (r *FileResult) Counts() (translated, empty, failed int) {
	for _, l := range r.Lines {
		switch l.Status {
		case StatusTranslated:
			translated++
		case StatusEmpty:
			empty++
		case StatusFailed:
			failed++
		}
	}
	return translated, empty, failed
}

// Result holds the result of a batch run.
type Result struct {
	Files       []*FileResult
	Duration    time.Duration
	WorkerCount int
}

// PrintStats writes processing statistics to w.
func (r *Result) PrintStats(w io.Writer) {
	var lines, translated, empty, failed int
	for _, f := range r.Files {
		t, e, fl := f.Counts()
		translated += t
		empty += e
		failed += fl
		lines += len(f.Lines)
	}

	_, _ = fmt.Fprintf(w, "\nTranslation Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Files: %d\n", len(r.Files))
	_, _ = fmt.Fprintf(w, "  Lines: %d\n", lines)
	_, _ = fmt.Fprintf(w, "  Translated: %d\n", translated)
	_, _ = fmt.Fprintf(w, "  Empty: %d\n", empty)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", failed)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", r.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", r.Duration.Round(time.Millisecond))
	if secs := r.Duration.Seconds(); secs > 0 && translated > 0 {
		_, _ = fmt.Fprintf(w, "  Throughput: %.1f lines/sec\n", float64(translated)/secs)
	}
}
