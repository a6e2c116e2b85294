package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/insightloom/internal/ai"
)

var modelsProvider string

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List known chat models with context size and pricing",
	Example: `  insightloom models
  insightloom models --provider ollama`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		provider := strings.ToLower(strings.TrimSpace(modelsProvider))
		if provider != "" {
			if _, ok := ai.DefaultModel(provider); !ok {
				return fmt.Errorf("unknown provider %q (available: %s)", provider, strings.Join(ai.Providers(), ", "))
			}
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PROVIDER\tMODEL\tCONTEXT\tIN $/1K\tOUT $/1K")
		for _, mi := range ai.Models(provider) {
			name := mi.Name
			if def, _ := ai.DefaultModel(mi.Provider); def == mi.Name {
				name += " (default)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", mi.Provider, name,
				humanize.Comma(int64(mi.ContextTokens)), price(mi.InputPerK), price(mi.OutputPerK))
		}
		return w.Flush()
	},
}

func price(v float64) string {
	if v == 0 {
		return "-"
	}
	return fmt.Sprintf("%.5f", v)
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.Flags().StringVar(&modelsProvider, "provider", "", "only list models for this provider")
}
