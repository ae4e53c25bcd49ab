package tui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/MeKo-Tech/lotra/internal/route"
)

var quitWords = map[string]bool{"quit": true, "exit": true, "q": true}

// RunPlain runs a line-mode translation loop reading from in and writing to
// out. It returns when in is exhausted, the user types quit, exit or q, or ctx
// is canceled. Failed translations are reported and the loop continues.
func RunPlain(ctx context.Context, in io.Reader, out io.Writer, opts Options) error {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	_, _ = fmt.Fprintln(out, strings.Repeat("=", 60))
	_, _ = fmt.Fprintln(out, "   lotra interactive mode")
	_, _ = fmt.Fprintln(out, "   Type 'quit', 'exit' or 'q' to leave.")
	if opts.Policy.AutoDetect {
		_, _ = fmt.Fprintln(out, "   Language auto-detection enabled.")
	}
	_, _ = fmt.Fprintln(out, strings.Repeat("=", 60))

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		_, _ = fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(out)
			return scanner.Err()
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if quitWords[strings.ToLower(text)] {
			_, _ = fmt.Fprintln(out, "Bye.")
			return nil
		}

		tctx, cancel := context.WithTimeout(ctx, timeout)
		res, err := opts.Translator.RouteAndTranslate(tctx, text, opts.Policy)
		cancel()
		if err != nil {
			_, _ = fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		_, _ = fmt.Fprintf(out, "[%s → %s]\n%s\n", res.Source.Name(), res.Target.Name(), res.Translation)
	}
}

var _ Translator = (*route.Router)(nil)
