package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/lotra/internal/config"
	"github.com/MeKo-Tech/lotra/internal/models"
	"github.com/MeKo-Tech/lotra/internal/onnx"
)

// checkRuntime is replaced in tests so they do not need ONNX Runtime.
var checkRuntime = onnx.CheckRuntime

// testCmd represents the test command.
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test ONNX Runtime setup and model files",
	Long: `Test the ONNX Runtime installation and verify that the NLLB model files
are present.

This command checks that:
- ONNX Runtime can be found and initialized
- the encoder, decoder and tokenizer files exist in the models directory`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		out := cmd.OutOrStdout()
		errOut := cmd.ErrOrStderr()

		_, _ = fmt.Fprintln(out, cmd.Short)
		_, _ = fmt.Fprintln(out)

		if cfg.Backend.Type == config.BackendLambda {
			_, _ = fmt.Fprintf(out, "Backend is lambda (function %q); no local runtime needed.\n", cfg.Backend.Lambda.FunctionName)
			return nil
		}

		failed := false
		_, _ = fmt.Fprintln(out, "Testing ONNX Runtime setup...")
		info, err := checkRuntime(cfg.GPU.Enabled)
		if err != nil {
			failed = true
			_, _ = fmt.Fprintf(errOut, "❌ ONNX Runtime test failed: %v\n", err)
			_, _ = fmt.Fprintln(out, "Please ensure ONNX Runtime is installed and LOTRA_ONNXRUNTIME_LIB points to it.")
		} else {
			_, _ = fmt.Fprintf(out, "✅ ONNX Runtime %s (%s)\n", info.Version, info.LibraryPath)
		}

		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintf(out, "Checking model files for %s...\n", cfg.Translator.Model)
		paths := models.GetPaths(cfg.ModelsDir, cfg.Translator.Model)
		for _, p := range []string{paths.Encoder, paths.Decoder, paths.Tokenizer} {
			if err := models.ValidateModelExists(p); err != nil {
				failed = true
				_, _ = fmt.Fprintf(errOut, "❌ %v\n", err)
			} else {
				_, _ = fmt.Fprintf(out, "✅ %s\n", p)
			}
		}

		_, _ = fmt.Fprintln(out)
		if failed {
			return errors.New("setup check failed")
		}
		_, _ = fmt.Fprintln(out, "🎉 All checks passed! lotra is ready for use.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(testCmd)
}
