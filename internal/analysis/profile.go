package analysis

import (
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/insightloom/internal/dataset"
)

// ColumnType is the inferred semantic type of a column.
type ColumnType string

const (
	Numerical   ColumnType = "numerical"
	Categorical ColumnType = "categorical"
	Temporal    ColumnType = "temporal"
	Text        ColumnType = "text"
)

// minCategoricalUnique is the floor of the categorical cardinality threshold.
const minCategoricalUnique = 10

// NumericStats summarizes a numerical column.
type NumericStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// ColumnProfile captures the inferred type, null accounting and statistics of one column.
type ColumnProfile struct {
	Name           string        `json:"name" yaml:"name"`
	Type           ColumnType    `json:"semanticType" yaml:"semanticType"`
	NullCount      int           `json:"nullCount" yaml:"nullCount"`
	NonNullCount   int           `json:"nonNullCount" yaml:"nonNullCount"`
	UniqueCount    int           `json:"uniqueCount" yaml:"uniqueCount"`
	QualityPercent int           `json:"qualityPercent" yaml:"qualityPercent"`
	Stats          *NumericStats `json:"stats,omitempty" yaml:"stats,omitempty"`
}

// Profile profiles every column of ds in header order.
func Profile(ds *dataset.Dataset) []ColumnProfile {
	if ds == nil {
		return nil
	}
	out := make([]ColumnProfile, 0, len(ds.Columns))
	for _, c := range ds.Columns {
		out = append(out, ProfileColumn(ds, c))
	}
	return out
}

// ProfileColumn classifies a single column. Classification order: numerical, temporal,
// categorical, text; the first rule that holds wins.
func ProfileColumn(ds *dataset.Dataset, name string) ColumnProfile {
	p := ColumnProfile{Name: name}
	total := ds.Len()

	var present []any
	for _, v := range ds.Values(name) {
		if dataset.IsMissing(v) {
			p.NullCount++
			continue
		}
		present = append(present, v)
	}
	p.NonNullCount = len(present)
	if total > 0 {
		p.QualityPercent = int(math.Round(100 * float64(p.NonNullCount) / float64(total)))
	}

	distinct := make(map[string]struct{}, len(present))
	for _, v := range present {
		distinct[strings.TrimSpace(dataset.Text(v))] = struct{}{}
	}
	p.UniqueCount = len(distinct)

	if len(present) == 0 {
		p.Type = Text
		return p
	}
	if nums, ok := allNumeric(present); ok {
		p.Type = Numerical
		p.Stats = numericStats(nums)
		return p
	}
	if anyTemporal(present) {
		p.Type = Temporal
		return p
	}
	limit := max(minCategoricalUnique, total/10)
	if p.UniqueCount <= limit {
		p.Type = Categorical
		return p
	}
	p.Type = Text
	return p
}

func allNumeric(values []any) ([]float64, bool) {
	nums := make([]float64, 0, len(values))
	for _, v := range values {
		x, ok := dataset.ParseNumber(v)
		if !ok {
			return nil, false
		}
		nums = append(nums, x)
	}
	return nums, true
}

func anyTemporal(values []any) bool {
	for _, v := range values {
		s := dataset.Text(v)
		lower := strings.ToLower(s)
		if strings.Contains(lower, "date") || strings.Contains(lower, "time") {
			return true
		}
		if _, ok := dataset.ParseTime(s); ok {
			return true
		}
	}
	return false
}

// numericStats uses the population standard deviation. For even counts the median is the
// upper middle element; values are never averaged.
func numericStats(xs []float64) *NumericStats {
	if len(xs) == 0 {
		return nil
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mean, std := stat.PopMeanStdDev(xs, nil)
	return &NumericStats{
		Mean:   mean,
		Median: sorted[len(sorted)/2],
		Std:    std,
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
	}
}

// OfType returns the profiles of the given type, preserving column order.
func OfType(profiles []ColumnProfile, t ColumnType) []ColumnProfile {
	var out []ColumnProfile
	for _, p := range profiles {
		if p.Type == t {
			out = append(out, p)
		}
	}
	return out
}

// FirstOfType returns the name of the first column of type t.
func FirstOfType(profiles []ColumnProfile, t ColumnType) (string, bool) {
	for _, p := range profiles {
		if p.Type == t {
			return p.Name, true
		}
	}
	return "", false
}
