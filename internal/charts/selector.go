package charts

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/KaramelBytes/insightloom/internal/analysis"
	"github.com/KaramelBytes/insightloom/internal/dataset"
)

// DefaultSampleSize is the number of leading rows the selector works on.
const DefaultSampleSize = 50

// Selector proposes charts from a profiled dataset.
type Selector struct {
	// SampleSize caps the rows used for every chart; 0 means DefaultSampleSize.
	SampleSize int
}

// Select runs the default selector.
func Select(ds *dataset.Dataset, profiles []analysis.ColumnProfile) []ChartSpec {
	return Selector{}.Select(ds, profiles)
}

// columnSet holds column names by semantic type in header order.
type columnSet struct {
	temporal    []string
	numerical   []string
	categorical []string
}

type rule struct {
	name    string
	applies func(cs columnSet) bool
	build   func(sample []dataset.Row, cs columnSet) ChartSpec
}

// rules fire independently, each at most once, in this order.
var rules = []rule{
	{
		name:    "trend",
		applies: func(cs columnSet) bool { return len(cs.temporal) > 0 && len(cs.numerical) > 0 },
		build:   buildLine,
	},
	{
		name:    "breakdown",
		applies: func(cs columnSet) bool { return len(cs.categorical) > 0 && len(cs.numerical) > 0 },
		build:   buildBar,
	},
	{
		name:    "correlation",
		applies: func(cs columnSet) bool { return len(cs.numerical) >= 2 },
		build:   buildScatter,
	},
	{
		name:    "distribution",
		applies: func(cs columnSet) bool { return len(cs.numerical) > 0 },
		build:   buildArea,
	},
}

// Select returns 0-4 charts. It is deterministic for a given dataset and profile set.
func (s Selector) Select(ds *dataset.Dataset, profiles []analysis.ColumnProfile) []ChartSpec {
	n := s.SampleSize
	if n <= 0 {
		n = DefaultSampleSize
	}
	sample := ds.Head(n)
	cs := columnSet{}
	for _, p := range profiles {
		switch p.Type {
		case analysis.Temporal:
			cs.temporal = append(cs.temporal, p.Name)
		case analysis.Numerical:
			cs.numerical = append(cs.numerical, p.Name)
		case analysis.Categorical:
			cs.categorical = append(cs.categorical, p.Name)
		}
	}
	var out []ChartSpec
	for _, r := range rules {
		if !r.applies(cs) {
			continue
		}
		c := r.build(sample, cs)
		c.ID = chartID(c)
		out = append(out, c)
	}
	return out
}

// chartID derives a stable name-based UUID from the chart's type and bindings.
func chartID(c ChartSpec) string {
	key := fmt.Sprintf("insightloom/chart/%s/%s/%s/%s", c.ChartType, c.XField, c.YField, c.ColorField)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

func buildLine(sample []dataset.Row, cs columnSet) ChartSpec {
	x, y := cs.temporal[0], cs.numerical[0]
	series := make([]Point, 0, len(sample))
	for _, r := range sample {
		v, ok := dataset.ParseNumber(r[y])
		if !ok {
			continue
		}
		series = append(series, Point{x: dataset.Text(r[x]), y: v})
	}
	return ChartSpec{
		ChartType:   Line,
		Title:       fmt.Sprintf("%s over %s", y, x),
		Description: fmt.Sprintf("Trend of %s across %s", y, x),
		Series:      series,
		XField:      x,
		YField:      y,
	}
}

func buildBar(sample []dataset.Row, cs columnSet) ChartSpec {
	x, y := cs.categorical[0], cs.numerical[0]
	var order []string
	sums := make(map[string]float64)
	for _, r := range sample {
		if dataset.IsMissing(r[x]) {
			continue
		}
		key := dataset.Text(r[x])
		if _, seen := sums[key]; !seen {
			order = append(order, key)
			sums[key] = 0
		}
		if v, ok := dataset.ParseNumber(r[y]); ok {
			sums[key] += v
		}
	}
	series := make([]Point, 0, len(order))
	for _, k := range order {
		series = append(series, Point{x: k, y: sums[k]})
	}
	return ChartSpec{
		ChartType:   Bar,
		Title:       fmt.Sprintf("%s by %s", y, x),
		Description: fmt.Sprintf("Total %s for each %s", y, x),
		Series:      series,
		XField:      x,
		YField:      y,
	}
}

func buildScatter(sample []dataset.Row, cs columnSet) ChartSpec {
	x, y := cs.numerical[0], cs.numerical[1]
	series := make([]Point, 0, len(sample))
	for _, r := range sample {
		xv, okx := dataset.ParseNumber(r[x])
		yv, oky := dataset.ParseNumber(r[y])
		if !okx || !oky {
			continue
		}
		series = append(series, Point{x: xv, y: yv})
	}
	return ChartSpec{
		ChartType:   Scatter,
		Title:       fmt.Sprintf("%s vs %s", y, x),
		Description: fmt.Sprintf("Relationship between %s and %s", x, y),
		Series:      series,
		XField:      x,
		YField:      y,
	}
}

func buildArea(sample []dataset.Row, cs columnSet) ChartSpec {
	y := cs.numerical[0]
	x := "index"
	if y == x {
		x = "_index"
	}
	series := make([]Point, 0, len(sample))
	for i, r := range sample {
		v, ok := dataset.ParseNumber(r[y])
		if !ok {
			continue
		}
		series = append(series, Point{x: i + 1, y: v})
	}
	return ChartSpec{
		ChartType:   Area,
		Title:       fmt.Sprintf("%s distribution", y),
		Description: fmt.Sprintf("Values of %s by row", y),
		Series:      series,
		XField:      x,
		YField:      y,
	}
}
