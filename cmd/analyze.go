package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/insightloom/internal/dataset"
	"github.com/KaramelBytes/insightloom/internal/utils"
)

var (
	anaName       string
	anaOutputPath string
	anaDelimiter  string
	anaSampleRows int
	anaMaxRows    int
	anaSheetName  string
	anaSheetIndex int
	anaJSON       bool
	anaNoSave     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Profile a CSV/TSV/XLSX file and build a chart dashboard",
	Example: `  insightloom analyze sales.csv
  insightloom analyze report.xlsx --sheet-name Q3 --name q3
  insightloom analyze data.tsv --json --no-save`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		opt := dataset.LoadOptions{MaxRows: anaMaxRows, SheetName: anaSheetName, SheetIndex: anaSheetIndex}
		switch anaDelimiter {
		case "":
		case ",":
			opt.Delimiter = ','
		case "\t", "tab":
			opt.Delimiter = '\t'
		case ";":
			opt.Delimiter = ';'
		default:
			return fmt.Errorf("unsupported --delimiter: %s", anaDelimiter)
		}

		ds, err := dataset.LoadFile(path, opt)
		if err != nil {
			return err
		}
		name := strings.TrimSpace(anaName)
		if name == "" {
			base := filepath.Base(path)
			name = strings.TrimSuffix(base, filepath.Ext(base))
		}

		svc := newService(serviceOptions{})
		d := svc.Build(name, filepath.Base(path), ds)

		if !anaNoSave {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Save(cmd.Context(), d); err != nil {
				return err
			}
		}

		sampleRows := anaSampleRows
		if !cmd.Flags().Changed("sample-rows") && settings().SampleRows > 0 {
			sampleRows = settings().SampleRows
		}
		format := "markdown"
		if anaJSON {
			format = "json"
		}
		out, err := renderDashboard(d, format, sampleRows)
		if err != nil {
			return err
		}
		if anaOutputPath != "" {
			if err := utils.SafeWriteFile(anaOutputPath, out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Printf("✓ Wrote dashboard to %s\n", anaOutputPath)
		} else {
			fmt.Println(string(out))
		}
		if !anaNoSave && !anaJSON {
			fmt.Printf("✓ Saved dashboard '%s' (%d charts)\n", d.Name, len(d.Charts))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&anaName, "name", "", "dashboard name (default: file name without extension)")
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the dashboard")
	analyzeCmd.Flags().StringVar(&anaDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (auto-detect if omitted)")
	analyzeCmd.Flags().IntVar(&anaSampleRows, "sample-rows", 5, "number of sample rows to show")
	analyzeCmd.Flags().IntVar(&anaMaxRows, "max-rows", 100000, "maximum rows to read (0 = unlimited)")
	analyzeCmd.Flags().StringVar(&anaSheetName, "sheet-name", "", "XLSX: sheet name to analyze (overrides --sheet-index)")
	analyzeCmd.Flags().IntVar(&anaSheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used when --sheet-name is empty)")
	analyzeCmd.Flags().BoolVar(&anaJSON, "json", false, "print the dashboard as JSON")
	analyzeCmd.Flags().BoolVar(&anaNoSave, "no-save", false, "do not persist the dashboard")
}
