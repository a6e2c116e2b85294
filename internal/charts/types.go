// Package charts defines chart specifications, the heuristic chart selector and the
// protocol that reconciles proposed charts with a dashboard's chart set.
package charts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/insightloom/internal/dataset"
)

// ChartType names a supported visualization.
type ChartType string

const (
	Line    ChartType = "line"
	Bar     ChartType = "bar"
	Area    ChartType = "area"
	Pie     ChartType = "pie"
	Scatter ChartType = "scatter"
)

// ParseChartType normalizes s into a known chart type.
func ParseChartType(s string) (ChartType, bool) {
	t := ChartType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case Line, Bar, Area, Pie, Scatter:
		return t, true
	}
	return "", false
}

// ForecastKey marks synthesized points in a series.
const ForecastKey = "isForecast"

// Point is one row-like entry of a chart series.
type Point map[string]any

// IsForecast reports whether the point was synthesized by a forecast.
func (p Point) IsForecast() bool {
	b, ok := p[ForecastKey].(bool)
	return ok && b
}

// Number parses the field as a finite number.
func (p Point) Number(field string) (float64, bool) {
	return dataset.ParseNumber(p[field])
}

// Label renders the field as display text.
func (p Point) Label(field string) string {
	return dataset.Text(p[field])
}

// Clone returns a shallow copy; point values are scalars.
func (p Point) Clone() Point {
	out := make(Point, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// ChartSpec is a chart's type, series and field bindings. Merge identity is the
// (XField, YField) pair, not ID.
type ChartSpec struct {
	ID          string    `json:"id" yaml:"id"`
	ChartType   ChartType `json:"chartType" yaml:"chartType"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Series      []Point   `json:"series" yaml:"series"`
	XField      string    `json:"xField" yaml:"xField"`
	YField      string    `json:"yField,omitempty" yaml:"yField,omitempty"`
	ColorField  string    `json:"colorField,omitempty" yaml:"colorField,omitempty"`
	Insights    []string  `json:"insights,omitempty" yaml:"insights,omitempty"`
}

// Historical returns the points not flagged as forecasts, in series order.
func (c ChartSpec) Historical() []Point {
	out := make([]Point, 0, len(c.Series))
	for _, p := range c.Series {
		if !p.IsForecast() {
			out = append(out, p)
		}
	}
	return out
}

// HasForecast reports whether any point in the series is a forecast.
func (c ChartSpec) HasForecast() bool {
	for _, p := range c.Series {
		if p.IsForecast() {
			return true
		}
	}
	return false
}

// CategoryField is the category dimension: ColorField for pie charts when set, else XField.
func (c ChartSpec) CategoryField() string {
	if c.ChartType == Pie && c.ColorField != "" {
		return c.ColorField
	}
	return c.XField
}

// SameFields reports whether both charts bind the same (XField, YField) pair.
func (c ChartSpec) SameFields(o ChartSpec) bool {
	return c.XField == o.XField && c.YField == o.YField
}

// Clone deep-copies the series and insights.
func (c ChartSpec) Clone() ChartSpec {
	out := c
	if c.Series != nil {
		out.Series = make([]Point, len(c.Series))
		for i, p := range c.Series {
			out.Series[i] = p.Clone()
		}
	}
	if c.Insights != nil {
		out.Insights = append([]string(nil), c.Insights...)
	}
	return out
}

var (
	ErrUnknownType  = errors.New("unknown chart type")
	ErrMissingField = errors.New("missing field binding")
)

// Validate checks the field-binding invariants: XField always, YField for every type but pie.
func (c ChartSpec) Validate() error {
	if _, ok := ParseChartType(string(c.ChartType)); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownType, c.ChartType)
	}
	if strings.TrimSpace(c.XField) == "" {
		return fmt.Errorf("%w: xField", ErrMissingField)
	}
	if c.ChartType != Pie && strings.TrimSpace(c.YField) == "" {
		return fmt.Errorf("%w: yField for %s chart", ErrMissingField, c.ChartType)
	}
	return nil
}
