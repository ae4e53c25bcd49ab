package cmd

import (
	"context"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/lotra/internal/batch"
	"github.com/MeKo-Tech/lotra/internal/config"
)

// fileCmd translates text files line by line.
var fileCmd = &cobra.Command{
	Use:   "file <input>...",
	Short: "Translate text files line by line",
	Long: `Translate one or more text files line by line. Each non-empty line is
translated independently; empty lines are preserved and lines that fail to
translate are kept in their original text.

The output for notes.txt is written to notes_translated.txt unless --output
or --output-dir is given. Directories are scanned for files matching
--include (default *.txt, *.md).

Examples:
  lotra file notes.txt
  lotra file notes.txt -o notes_ko.txt -s en -d ko
  lotra file docs/ --recursive --output-dir translated/ --workers 8
  lotra file notes.txt --format csv --progress`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runFileCommand,
}

// configToBatchConfig maps centralized configuration to batch.Config.
// CLI flags override config file values.
func configToBatchConfig(cmd *cobra.Command, cfg *config.Config) (batch.Config, error) {
	bc := batch.DefaultConfig()

	policy, err := policyFromFlags(cmd, cfg)
	if err != nil {
		return bc, err
	}
	bc.Policy = policy

	bc.Workers = cfg.Batch.Workers
	if cmd.Flags().Changed("workers") {
		bc.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if bc.Workers <= 0 {
		bc.Workers = runtime.NumCPU()
	}

	bc.Format = cfg.Batch.Format
	if cmd.Flags().Changed("format") {
		bc.Format, _ = cmd.Flags().GetString("format")
	}
	switch bc.Format {
	case batch.FormatText, batch.FormatJSON, batch.FormatCSV:
	default:
		return bc, fmt.Errorf("unsupported output format: %s (must be text, json or csv)", bc.Format)
	}

	bc.ContinueOnError = cfg.Batch.ContinueOnError
	if failFast, _ := cmd.Flags().GetBool("fail-fast"); failFast {
		bc.ContinueOnError = false
	}

	// File selection and output settings are CLI-only.
	bc.Output, _ = cmd.Flags().GetString("output")
	bc.OutputDir, _ = cmd.Flags().GetString("output-dir")
	bc.Recursive, _ = cmd.Flags().GetBool("recursive")
	if cmd.Flags().Changed("include") {
		bc.IncludePatterns, _ = cmd.Flags().GetStringSlice("include")
	}
	bc.ExcludePatterns, _ = cmd.Flags().GetStringSlice("exclude")

	if showProgress, _ := cmd.Flags().GetBool("progress"); showProgress {
		bc.Progress = batch.NewConsoleProgressCallback(cmd.ErrOrStderr(), "Translating: ")
	}
	return bc, nil
}

func runFileCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	bc, err := configToBatchConfig(cmd, cfg)
	if err != nil {
		return err
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

	result, err := batch.ProcessFiles(ctx, router, args, bc)
	if err != nil {
		return fmt.Errorf("file translation failed: %w", err)
	}

	quiet, _ := cmd.Flags().GetBool("quiet")
	if !quiet {
		out := cmd.OutOrStdout()
		for _, f := range result.Files {
			translated, _, failed := f.Counts()
			_, _ = fmt.Fprintf(out, "%s → %s (%d lines translated, %d failed)\n", f.Input, f.Output, translated, failed)
		}
	}
	if stats, _ := cmd.Flags().GetBool("stats"); stats {
		result.PrintStats(cmd.ErrOrStderr())
	}
	return nil
}

func init() {
	rootCmd.AddCommand(fileCmd)
	addPolicyFlags(fileCmd)

	fileCmd.Flags().StringP("output", "o", "", "output file for a single input (default: <name>_translated<ext>)")
	fileCmd.Flags().String("output-dir", "", "directory for output files (default: next to each input)")
	fileCmd.Flags().StringP("format", "f", "text", "output format: text, json, csv")

	fileCmd.Flags().IntP("workers", "w", 0, fmt.Sprintf("number of lines translated in parallel (default from config, 0 = %d)", runtime.NumCPU()))
	fileCmd.Flags().Bool("fail-fast", false, "stop at the first line that fails instead of keeping its original text")

	fileCmd.Flags().BoolP("recursive", "r", false, "scan directories recursively")
	fileCmd.Flags().StringSlice("include", []string{"*.txt", "*.md"}, "file patterns to include when scanning directories")
	fileCmd.Flags().StringSlice("exclude", nil, "file patterns to exclude")

	fileCmd.Flags().Bool("progress", false, "show a progress bar on stderr")
	fileCmd.Flags().Bool("stats", false, "print translation statistics on stderr")
	fileCmd.Flags().BoolP("quiet", "q", false, "do not print per-file summaries")
}
