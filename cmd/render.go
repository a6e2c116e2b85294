package cmd

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/insightloom/internal/dashboard"
	"github.com/KaramelBytes/insightloom/internal/utils"
)

// renderDashboard formats d as markdown, json or yaml.
func renderDashboard(d *dashboard.Dashboard, format string, sampleRows int) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "markdown", "md":
		return []byte(dashboardMarkdown(d, sampleRows)), nil
	case "json":
		return utils.PrettyJSON(d)
	case "yaml", "yml":
		b, err := yaml.Marshal(d)
		if err != nil {
			return nil, fmt.Errorf("marshal yaml: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported --format: %s (use markdown|json|yaml)", format)
	}
}

func dashboardMarkdown(d *dashboard.Dashboard, sampleRows int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", d.Name)
	b.WriteString(d.Summary(sampleRows).Markdown())
	b.WriteString("\n[CHARTS]\n")
	if len(d.Charts) == 0 {
		b.WriteString("(no charts: the dataset has no numeric columns)\n")
	}
	for _, c := range d.Charts {
		fmt.Fprintf(&b, "\n## %s (%s)\n", c.Title, c.ChartType)
		fmt.Fprintf(&b, "id: %s\n", c.ID)
		fields := "x=" + c.XField
		if c.YField != "" {
			fields += " y=" + c.YField
		}
		if c.ColorField != "" {
			fields += " color=" + c.ColorField
		}
		hist := len(c.Historical())
		fmt.Fprintf(&b, "fields: %s, points: %d", fields, hist)
		if n := len(c.Series) - hist; n > 0 {
			fmt.Fprintf(&b, " (+%d forecast)", n)
		}
		b.WriteString("\n")
		if c.Description != "" {
			fmt.Fprintf(&b, "%s\n", c.Description)
		}
		for _, in := range c.Insights {
			fmt.Fprintf(&b, "- %s\n", in)
		}
	}
	return b.String()
}
