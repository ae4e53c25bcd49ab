package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/lotra/internal/backend"
	"github.com/MeKo-Tech/lotra/internal/config"
	"github.com/MeKo-Tech/lotra/internal/lang"
	"github.com/MeKo-Tech/lotra/internal/logging"
	"github.com/MeKo-Tech/lotra/internal/models"
	"github.com/MeKo-Tech/lotra/internal/route"
	"github.com/MeKo-Tech/lotra/internal/version"
)

var (
	// Global configuration loader.
	configLoader *config.Loader
	// Global configuration.
	globalConfig *config.Config
	// Configuration file path.
	cfgFile string
	// Closes the rotating log file, if any.
	logCloser io.Closer
)

// newRouter builds the translation router. Tests replace it with a router
// over a fake backend.
var newRouter = func(ctx context.Context, cfg *config.Config, opts ...route.Option) (*route.Router, error) {
	return backend.NewRouter(ctx, cfg, opts...)
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "lotra",
	Short: "Local translator for English, Korean, Japanese and Chinese",
	Long: `lotra translates text between English, Korean, Japanese and Chinese with
the NLLB-200 model running locally on ONNX Runtime.

The source language is detected from the text unless given explicitly.
Korean and English translate into each other by default; Japanese and
Chinese translate into English.

Examples:
  lotra translate "안녕하세요"
  lotra translate -s en -d ja "Good morning"
  lotra file notes.txt -o notes_en.txt
  lotra interactive
  lotra serve --port 5000`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, _ := cmd.PersistentFlags().GetBool("version")
		if v {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "lotra version "+version.String())
			return nil
		}
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if logCloser != nil {
		_ = logCloser.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
// This allows tests to execute commands without calling os.Exit().
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is search in ., $HOME, $HOME/.config/lotra, /etc/lotra)")
	pf.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "json", "log format (json, text)")
	pf.String("log-file", "", "write logs to a rotating file instead of stderr")

	defaultModelsDir := models.DefaultModelsDir
	if envDir := os.Getenv(models.EnvModelsDir); envDir != "" {
		defaultModelsDir = envDir
	}
	pf.String("models-dir", defaultModelsDir,
		"directory containing NLLB models (can also be set via LOTRA_MODELS_DIR environment variable)")
	pf.String("backend", config.BackendONNX, "translation backend (onnx, lambda)")
	pf.Bool("no-gpu", false, "disable GPU acceleration even if enabled in the config")
	pf.Bool("version", false, "print version information and exit")

	_ = viper.BindPFlag("verbose", pf.Lookup("verbose"))
	_ = viper.BindPFlag("log_level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("log_format", pf.Lookup("log-format"))
	_ = viper.BindPFlag("log_file", pf.Lookup("log-file"))
	_ = viper.BindPFlag("models_dir", pf.Lookup("models-dir"))
	_ = viper.BindPFlag("backend.type", pf.Lookup("backend"))

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if globalConfig == nil {
			initConfig()
		}
		cfg := GetConfig()

		if logCloser != nil {
			_ = logCloser.Close()
		}
		closer, err := logging.Setup(logging.Options{
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			File:    cfg.LogFile,
			Verbose: cfg.Verbose,
		})
		if err != nil {
			return err
		}
		logCloser = closer
		return nil
	}
}

// initConfig loads .env, then reads the config file and environment.
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
	}

	configLoader = config.NewLoader()

	var err error
	if cfgFile != "" {
		globalConfig, err = configLoader.LoadWithFile(cfgFile)
	} else {
		globalConfig, err = configLoader.Load()
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
}

// GetConfig returns the global configuration with CLI flag overrides applied.
func GetConfig() *config.Config {
	if globalConfig == nil {
		initConfig()
	}

	// Flags are bound after the first load, so unmarshal again to pick them up.
	loader := GetConfigLoader()
	var cfg config.Config
	if err := loader.GetViper().Unmarshal(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error unmarshaling updated configuration: %v\n", err)
		return globalConfig
	}

	if noGPU, _ := rootCmd.PersistentFlags().GetBool("no-gpu"); noGPU {
		cfg.GPU.Enabled = false
	}
	return &cfg
}

// GetConfigLoader returns the global configuration loader.
func GetConfigLoader() *config.Loader {
	if configLoader == nil {
		configLoader = config.NewLoader()
	}
	return configLoader
}

// addPolicyFlags registers the direction flags shared by translate, file and
// interactive.
func addPolicyFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("source", "s", "", "source language (en, ko, ja, zh); disables auto-detection")
	cmd.Flags().StringP("destination", "d", "", "target language (en, ko, ja, zh); default depends on the source")
	cmd.Flags().Bool("auto-detect", true, "detect the source language from the text")
	cmd.Flags().Bool("no-auto-detect", false, "do not detect the source language")
}

// policyFromFlags merges the direction flags over the configured policy. An
// explicit --source turns auto-detection off unless --auto-detect is also
// given.
func policyFromFlags(cmd *cobra.Command, cfg *config.Config) (route.Policy, error) {
	p := cfg.DefaultPolicy()

	if cmd.Flags().Changed("source") {
		s, _ := cmd.Flags().GetString("source")
		src, err := lang.Parse(s)
		if err != nil {
			return p, fmt.Errorf("invalid --source: %w", err)
		}
		p.Source = src
		p.AutoDetect = false
	}
	if cmd.Flags().Changed("destination") {
		d, _ := cmd.Flags().GetString("destination")
		tgt, err := lang.Parse(d)
		if err != nil {
			return p, fmt.Errorf("invalid --destination: %w", err)
		}
		p.Target = tgt
	}
	if cmd.Flags().Changed("auto-detect") {
		p.AutoDetect, _ = cmd.Flags().GetBool("auto-detect")
	}
	if noAuto, _ := cmd.Flags().GetBool("no-auto-detect"); noAuto {
		p.AutoDetect = false
	}
	if p.AutoDetect && cmd.Flags().Changed("destination") {
		slog.Warn("--destination is ignored while auto-detect is on; pass --source or --no-auto-detect to use it",
			"destination", p.Target)
	}

	slog.Debug("Resolved direction policy", "auto_detect", p.AutoDetect, "source", p.Source, "target", p.Target)
	return p, nil
}
