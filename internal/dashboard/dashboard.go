// Package dashboard assembles profiled datasets, selected charts and their insights into
// dashboards, and applies forecasts and chat-driven chart changes to them.
package dashboard

import (
	"time"

	"github.com/KaramelBytes/insightloom/internal/analysis"
	"github.com/KaramelBytes/insightloom/internal/charts"
	"github.com/KaramelBytes/insightloom/internal/dataset"
)

// Dashboard is the persisted unit: a dataset's profile, its charts and a row sample.
type Dashboard struct {
	ID        string                   `json:"id" yaml:"id"`
	Name      string                   `json:"name" yaml:"name"`
	Source    string                   `json:"source" yaml:"source"`
	Rows      int                      `json:"rows" yaml:"rows"`
	Columns   []string                 `json:"columns" yaml:"columns"`
	Profiles  []analysis.ColumnProfile `json:"profiles" yaml:"profiles"`
	Charts    []charts.ChartSpec       `json:"charts" yaml:"charts"`
	Sample    []dataset.Row            `json:"sample,omitempty" yaml:"sample,omitempty"`
	CreatedAt time.Time                `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time                `json:"updatedAt" yaml:"updatedAt"`
}

// ChartIndex returns the position of the chart with the given ID.
func (d *Dashboard) ChartIndex(id string) (int, bool) {
	for i := range d.Charts {
		if d.Charts[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// Summary rebuilds the dataset summary from stored profiles, keeping sampleRows rows.
func (d *Dashboard) Summary(sampleRows int) *analysis.Summary {
	s := &analysis.Summary{
		Name:     d.Source,
		Rows:     d.Rows,
		Columns:  d.Columns,
		Profiles: d.Profiles,
		Samples:  d.Sample,
	}
	if sampleRows >= 0 && len(s.Samples) > sampleRows {
		s.Samples = s.Samples[:sampleRows]
	}
	return s
}
