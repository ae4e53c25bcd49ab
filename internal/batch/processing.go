package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MeKo-Tech/lotra/internal/route"
)

// Translator routes and translates a single text. *route.Router implements it.
type Translator interface {
	RouteAndTranslate(ctx context.Context, text string, p route.Policy) (*route.Result, error)
}

// document is a text file split into lines with its line-ending style.
type document struct {
	lines           []string
	crlf            bool
	trailingNewline bool
}

func splitDocument(content string) document {
	doc := document{crlf: strings.Contains(content, "\r\n")}
	if content == "" {
		return doc
	}
	if doc.crlf {
		content = strings.ReplaceAll(content, "\r\n", "\n")
	}
	if strings.HasSuffix(content, "\n") {
		doc.trailingNewline = true
		content = strings.TrimSuffix(content, "\n")
	}
	doc.lines = strings.Split(content, "\n")
	return doc
}

func (d document) join(lines []string) string {
	sep := "\n"
	if d.crlf {
		sep = "\r\n"
	}
	out := strings.Join(lines, sep)
	if d.trailingNewline {
		out += sep
	}
	return out
}

// translateLines translates every non-empty line with at most workers lines
// in flight. The result has one entry per input line, in input order.
func translateLines(ctx context.Context, tr Translator, lines []string, cfg Config) ([]LineResult, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	progress := cfg.Progress
	if progress == nil {
		progress = NoOpProgressCallback{}
	}

	results := make([]LineResult, len(lines))
	progress.OnStart(len(lines))

	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, line := range lines {
		results[i] = LineResult{Index: i + 1, Text: line, Translation: line}
		if strings.TrimSpace(line) == "" {
			results[i].Status = StatusEmpty
			progress.OnProgress(int(done.Add(1)), len(lines))
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			res, err := tr.RouteAndTranslate(gctx, strings.TrimSpace(line), cfg.Policy)
			lr := &results[i]
			lr.Elapsed = time.Since(start)
			if err != nil {
				lr.Status = StatusFailed
				lr.Error = err.Error()
				progress.OnError(lr.Index, err)
				slog.Warn("Line translation failed, keeping original text", "line", lr.Index, "error", err)
				if !cfg.ContinueOnError || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return fmt.Errorf("line %d: %w", lr.Index, err)
				}
			} else {
				lr.Status = StatusTranslated
				lr.Translation = res.Translation
				lr.Source = res.Source.String()
				lr.Target = res.Target.String()
				if res.Detected != "" {
					lr.Detected = res.Detected.String()
				}
			}
			progress.OnProgress(int(done.Add(1)), len(lines))
			return nil
		})
	}

	err := g.Wait()
	progress.OnComplete()
	if err != nil {
		return results, err
	}
	return results, nil
}
