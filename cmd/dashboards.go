package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/insightloom/internal/utils"
)

var (
	showFormat   string
	exportOutput string
	exportFormat string
)

var dashboardsCmd = &cobra.Command{
	Use:     "dashboards",
	Aliases: []string{"list", "ls"},
	Short:   "List saved dashboards",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		entries, err := st.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No dashboards yet. Create one with 'insightloom analyze <file>'.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSOURCE\tROWS\tCHARTS\tSIZE\tUPDATED")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
				e.Name, e.Source, humanize.Comma(int64(e.Rows)), e.Charts,
				humanize.Bytes(uint64(e.PayloadSize)), humanize.Time(e.UpdatedAt))
		}
		return w.Flush()
	},
}

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a saved dashboard",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, d, err := loadDashboard(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer st.Close()
		out, err := renderDashboard(d, showFormat, settings().SampleRows)
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <name>",
	Short: "Write a saved dashboard to a JSON or YAML file",
	Example: `  insightloom export sales -o sales.json
  insightloom export sales -o sales.yaml --format yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportOutput == "" {
			return fmt.Errorf("--output is required")
		}
		if exportFormat != "json" && exportFormat != "yaml" {
			return fmt.Errorf("unsupported --format: %s (use json|yaml)", exportFormat)
		}
		st, d, err := loadDashboard(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer st.Close()
		out, err := renderDashboard(d, exportFormat, 0)
		if err != nil {
			return err
		}
		if err := utils.SafeWriteFile(exportOutput, out); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Printf("✓ Exported '%s' to %s\n", d.Name, exportOutput)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved dashboard",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("✓ Deleted dashboard '%s'\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dashboardsCmd, showCmd, exportCmd, deleteCmd)
	showCmd.Flags().StringVar(&showFormat, "format", "markdown", "output format: markdown|json|yaml")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "destination file")
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "export format: json|yaml")
}
