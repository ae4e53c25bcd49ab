package batch

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Format renders the file result in the given format. Text output is the
// translated document with the input's line endings.
func (r *FileResult) Format(format string) (string, error) {
	switch format {
	case FormatJSON:
		return r.formatJSON()
	case FormatCSV:
		return r.formatCSV()
	case FormatText, "":
		return r.formatText(), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

// Save writes the formatted result to r.Output.
func (r *FileResult) Save(format string) error {
	out, err := r.Format(format)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(r.Output); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(r.Output, []byte(out), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", r.Output, err)
	}
	return nil
}

func (r *FileResult) formatText() string {
	lines := make([]string, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = l.Translation
	}
	return r.doc.join(lines)
}

func (r *FileResult) formatJSON() (string, error) {
	translated, empty, failed := r.Counts()
	report := struct {
		*FileResult
		Translated int `json:"translated"`
		Empty      int `json:"empty"`
		Failed     int `json:"failed"`
	}{r, translated, empty, failed}

	bts, err := json.MarshalIndent(report, "", "  ")
	return string(bts), err
}

func (r *FileResult) formatCSV() (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	records := [][]string{{"line", "text", "translation", "src_lang", "tgt_lang", "detected_lang", "status", "error"}}
	for _, l := range r.Lines {
		records = append(records, []string{
			strconv.Itoa(l.Index), l.Text, l.Translation, l.Source, l.Target, l.Detected, l.Status, l.Error,
		})
	}
	if err := w.WriteAll(records); err != nil {
		return "", err
	}
	return buf.String(), nil
}
