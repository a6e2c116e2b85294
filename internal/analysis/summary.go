package analysis

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/insightloom/internal/dataset"
)

// Summary is a markdown-friendly description of a profiled dataset.
type Summary struct {
	Name     string
	Rows     int
	Columns  []string
	Profiles []ColumnProfile
	Samples  []dataset.Row
}

// Summarize profiles ds and keeps up to sampleRows leading rows for display.
func Summarize(ds *dataset.Dataset, sampleRows int) *Summary {
	if sampleRows <= 0 {
		sampleRows = 5
	}
	s := &Summary{Profiles: Profile(ds)}
	if ds != nil {
		s.Name = ds.Name
		s.Rows = ds.Len()
		s.Columns = ds.Columns
		s.Samples = ds.Head(sampleRows)
	}
	return s
}

// Markdown renders a compact report suitable for prompts or terminal output.
func (s *Summary) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if s.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", s.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", s.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(s.Profiles)))

	b.WriteString("[SCHEMA]\n")
	for _, p := range s.Profiles {
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %d, quality %d%%, unique %d)",
			safeName(p.Name), p.Type, p.NonNullCount, p.NullCount, p.QualityPercent, p.UniqueCount))
		if p.Stats != nil {
			st := p.Stats
			b.WriteString(fmt.Sprintf(" - min %.4g, max %.4g, mean %.4g, median %.4g, std %.4g",
				st.Min, st.Max, st.Mean, st.Median, st.Std))
		}
		b.WriteString("\n")
	}

	if len(s.Samples) > 0 && len(s.Columns) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		b.WriteString("| ")
		for i, c := range s.Columns {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c))
		}
		b.WriteString(" |\n| ")
		for i := range s.Columns {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range s.Samples {
			b.WriteString("| ")
			for i, c := range s.Columns {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := dataset.Text(row[c])
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
