package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/lotra/internal/api"
	"github.com/MeKo-Tech/lotra/internal/lang"
	"github.com/MeKo-Tech/lotra/internal/route"
)

// languagesCmd lists the supported languages.
var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List supported languages",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		out := cmd.OutOrStdout()

		switch format {
		case "json":
			return writeJSONOut(out, api.NewLanguagesResponse())
		case "text":
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "CODE\tNAME\tNATIVE\tNLLB\tDEFAULT TARGET")
			for _, c := range lang.Supported() {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					c, c.Name(), c.NativeName(), c.NLLB(), route.DefaultPartner(c))
			}
			return tw.Flush()
		default:
			return fmt.Errorf("unsupported output format: %s (must be text or json)", format)
		}
	},
}

func init() {
	rootCmd.AddCommand(languagesCmd)
	languagesCmd.Flags().StringP("format", "f", "text", "output format: text, json")
}
