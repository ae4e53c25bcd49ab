package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/lotra/internal/tui"
)

// interactiveCmd starts the terminal translator.
var interactiveCmd = &cobra.Command{
	Use:     "interactive",
	Aliases: []string{"i", "tui"},
	Short:   "Translate interactively in the terminal",
	Long: `Start a full-screen terminal translator. Type text, press ctrl+t to
translate, ctrl+r to swap source and translation, ctrl+y to copy the
translation to the clipboard, and esc to quit.

With --plain a simple line-by-line prompt is used instead; type quit, exit
or q to leave.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		policy, err := policyFromFlags(cmd, cfg)
		if err != nil {
			return err
		}

		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		ctx, stop := signal.NotifyContext(parent, syscall.SIGTERM)
		defer stop()

		router, err := newRouter(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = router.Backend().Close() }()

		opts := tui.Options{
			Translator: router,
			Policy:     policy,
			Timeout:    time.Duration(cfg.Server.TimeoutSec) * time.Second,
		}
		if plain, _ := cmd.Flags().GetBool("plain"); plain || !stdinIsTerminal() {
			return tui.RunPlain(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		}
		return tui.Run(ctx, opts)
	},
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
	interactiveCmd.Flags().Bool("plain", false, "use a line-mode prompt instead of the full-screen UI")
	addPolicyFlags(interactiveCmd)
}
