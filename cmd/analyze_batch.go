package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/insightloom/internal/dataset"
)

var (
	abDelimiter  string
	abMaxRows    int
	abSheetName  string
	abSheetIndex int
	abQuiet      bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Build and save dashboards for multiple CSV/TSV/XLSX files",
	Example: `  insightloom analyze-batch 'exports/*.csv'
  insightloom analyze-batch a.xlsx b.xlsx --sheet-name Summary`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}

		opt := dataset.LoadOptions{MaxRows: abMaxRows, SheetName: abSheetName, SheetIndex: abSheetIndex}
		switch abDelimiter {
		case "":
		case ",":
			opt.Delimiter = ','
		case "\t", "tab":
			opt.Delimiter = '\t'
		case ";":
			opt.Delimiter = ';'
		default:
			return fmt.Errorf("unsupported --delimiter: %s", abDelimiter)
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		svc := newService(serviceOptions{})

		names := batchNames(files, abSheetName)
		total := len(files)
		for i, path := range files {
			if !abQuiet {
				fmt.Printf("[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			ds, err := dataset.LoadFile(path, opt)
			if err != nil {
				return err
			}
			d := svc.Build(names[i], filepath.Base(path), ds)
			if err := st.Save(cmd.Context(), d); err != nil {
				return err
			}
			if !abQuiet {
				fmt.Printf("✓ Saved dashboard '%s' (%d rows, %d charts)\n", d.Name, d.Rows, len(d.Charts))
			}
		}
		return nil
	},
}

// expandInputs resolves globs, keeps literal paths that exist and dedupes, sorted.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

// batchNames derives dashboard names from file names. Files sharing a base name are
// prefixed with their parent directory; a selected sheet adds a "__sheet-<slug>" suffix.
func batchNames(files []string, sheetName string) []string {
	count := map[string]int{}
	for _, f := range files {
		count[stem(f)]++
	}
	suffix := ""
	if sheetName != "" {
		suffix = "__sheet-" + slug(sheetName, "sheet")
	}
	out := make([]string, len(files))
	for i, f := range files {
		name := stem(f)
		if count[name] > 1 {
			name = filepath.Base(filepath.Dir(f)) + "-" + name
		}
		out[i] = name + suffix
	}
	return out
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func slug(s, fallback string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else if r == ' ' || r == '-' || r == '_' {
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return fallback
	}
	return out
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVar(&abDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	analyzeBatchCmd.Flags().IntVar(&abMaxRows, "max-rows", 100000, "maximum rows to read per file (0 = unlimited)")
	analyzeBatchCmd.Flags().StringVar(&abSheetName, "sheet-name", "", "XLSX: sheet name to analyze (overrides --sheet-index)")
	analyzeBatchCmd.Flags().IntVar(&abSheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used when --sheet-name is empty)")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress output")
}
