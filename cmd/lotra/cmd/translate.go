package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/lotra/internal/api"
	"github.com/MeKo-Tech/lotra/internal/route"
)

// stdinIsTerminal reports whether stdin is interactive. Tests override it.
var stdinIsTerminal = func() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// translateCmd translates a single text.
var translateCmd = &cobra.Command{
	Use:   "translate [text...]",
	Short: "Translate text between English, Korean, Japanese and Chinese",
	Long: `Translate a text given as arguments, with --text, or on stdin.

Without --source the language is detected from the text and the target is
the default partner: Korean and English translate into each other, Japanese
and Chinese translate into English. --destination takes effect only together
with --source or --no-auto-detect.

Examples:
  lotra translate "안녕하세요"
  lotra translate -t "Hello, world" -s en -d ja
  echo "今日は" | lotra translate --format json`,
	SilenceUsage: true,
	RunE:         runTranslateCommand,
}

func runTranslateCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	text, err := inputText(cmd, args)
	if err != nil {
		return err
	}

	policy, err := policyFromFlags(cmd, cfg)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	if format != "text" && format != "json" {
		return fmt.Errorf("unsupported output format: %s (must be text or json)", format)
	}

	// Reject impossible directions before paying for the model load.
	if _, err := route.Resolve(strings.TrimSpace(text), policy); err != nil {
		if format == "json" {
			_, body := api.ClassifyError(err)
			_ = writeJSONOut(cmd.OutOrStdout(), body)
		}
		return translateError(err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	router, err := newRouter(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = router.Backend().Close() }()

	res, err := router.RouteAndTranslate(ctx, text, policy)
	if err != nil {
		if format == "json" {
			_, body := api.ClassifyError(err)
			_ = writeJSONOut(cmd.OutOrStdout(), body)
		}
		return translateError(err)
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		return writeJSONOut(out, api.NewTranslateResponse(res))
	}
	_, _ = fmt.Fprintln(out, res.Translation)
	if show, _ := cmd.Flags().GetBool("show-direction"); show {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "[%s → %s]\n", res.Source.Name(), res.Target.Name())
	}
	return nil
}

// inputText joins the positional arguments, or falls back to --text and then
// to stdin when it is not a terminal.
func inputText(cmd *cobra.Command, args []string) (string, error) {
	text := strings.Join(args, " ")
	if flagText, _ := cmd.Flags().GetString("text"); text == "" && flagText != "" {
		text = flagText
	}
	if text == "" && !stdinIsTerminal() {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		text = strings.TrimRight(string(data), "\r\n")
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("no text provided (pass it as arguments, with --text, or on stdin)")
	}
	return text, nil
}

// translateError turns routing errors into short CLI messages.
func translateError(err error) error {
	if _, ok := route.IsInvalidDirection(err); ok {
		return fmt.Errorf("cannot translate: %w", err)
	}
	return fmt.Errorf("translation failed: %w", err)
}

func writeJSONOut(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func init() {
	rootCmd.AddCommand(translateCmd)
	translateCmd.Flags().StringP("text", "t", "", "text to translate")
	translateCmd.Flags().StringP("format", "f", "text", "output format: text, json")
	translateCmd.Flags().Bool("show-direction", false, "print the resolved language pair to stderr")
	addPolicyFlags(translateCmd)
}
