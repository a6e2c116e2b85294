package cmd

import (
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/insightloom/internal/dashboard"
	"github.com/KaramelBytes/insightloom/internal/forecast"
)

var forecastSeed int64

var forecastCmd = &cobra.Command{
	Use:   "forecast <name> <chart-id|all>",
	Short: "Extend line, bar and area charts with a short linear forecast",
	Example: `  insightloom forecast sales all
  insightloom forecast sales 6f1c... --seed 42`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, d, err := loadDashboard(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer st.Close()

		var engine *forecast.Engine
		if cmd.Flags().Changed("seed") {
			engine = forecast.NewEngine(rand.New(rand.NewSource(forecastSeed)))
		}
		svc := newService(serviceOptions{Engine: engine})

		var results []dashboard.ForecastResult
		if args[1] == "all" {
			results, err = svc.ForecastAll(cmd.Context(), d)
			if err != nil {
				return err
			}
		} else {
			res, err := svc.Forecast(d, args[1])
			if err != nil {
				return err
			}
			results = []dashboard.ForecastResult{res}
		}

		changed := 0
		for _, r := range results {
			if r.Forecasted {
				changed++
				fmt.Printf("✓ %s: added %d forecast point(s)\n", r.Title, r.Points)
				continue
			}
			fmt.Printf("⚠ %s: %s\n", r.Title, r.Notice)
		}
		if changed == 0 {
			return nil
		}
		if err := st.Save(cmd.Context(), d); err != nil {
			return err
		}
		fmt.Printf("✓ Saved dashboard '%s'\n", d.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(forecastCmd)
	forecastCmd.Flags().Int64Var(&forecastSeed, "seed", 0, "seed the forecast jitter for reproducible output")
}
