// Package insights turns a chart's series into short natural-language observations.
package insights

import (
	"fmt"
	"math"
	"sort"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/insightloom/internal/charts"
)

// MaxInsights caps the list returned by Generate.
const MaxInsights = 5

// Generate computes insights for c from its historical points, appends the chart's own
// insights and truncates the result to MaxInsights.
func Generate(c charts.ChartSpec) []string {
	hist := c.Historical()
	var out []string
	switch {
	case len(hist) == 0:
		out = []string{noData(c)}
	case c.ChartType == charts.Line || c.ChartType == charts.Area:
		out = trend(c, hist)
	case c.ChartType == charts.Bar:
		out = breakdown(c, hist)
	case c.ChartType == charts.Pie:
		out = share(c, hist)
	case c.ChartType == charts.Scatter:
		out = correlation(c, hist)
	}
	seen := make(map[string]bool, len(out))
	for _, s := range out {
		seen[s] = true
	}
	for _, s := range c.Insights {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	if len(out) > MaxInsights {
		out = out[:MaxInsights]
	}
	return out
}

func noData(c charts.ChartSpec) string {
	if c.Title != "" {
		return fmt.Sprintf("No data available for %s", c.Title)
	}
	return "No data available for this chart"
}

// labeled is one point reduced to its label and magnitude.
type labeled struct {
	label string
	value float64
}

func collect(points []charts.Point, labelField, valueField string) []labeled {
	out := make([]labeled, 0, len(points))
	for _, p := range points {
		v, ok := p.Number(valueField)
		if !ok {
			continue
		}
		out = append(out, labeled{label: p.Label(labelField), value: v})
	}
	return out
}

func values(ls []labeled) []float64 {
	out := make([]float64, len(ls))
	for i, l := range ls {
		out[i] = l.value
	}
	return out
}

func trend(c charts.ChartSpec, hist []charts.Point) []string {
	pts := collect(hist, c.XField, c.YField)
	if len(pts) == 0 {
		return []string{noData(c)}
	}
	y := c.YField
	first, last := pts[0].value, pts[len(pts)-1].value
	var out []string

	switch {
	case last > first:
		out = append(out, fmt.Sprintf("Upward trend: %s grew %s from %s to %s", y, changeText(first, last), Number(first), Number(last)))
	case last < first:
		out = append(out, fmt.Sprintf("Downward trend: %s fell %s from %s to %s", y, changeText(first, last), Number(first), Number(last)))
	default:
		out = append(out, fmt.Sprintf("%s is flat at %s from first to last point", y, Number(first)))
	}

	peak := pts[0]
	for _, p := range pts[1:] {
		if p.value > peak.value {
			peak = p
		}
	}
	out = append(out, fmt.Sprintf("Peak %s of %s at %s", y, Number(peak.value), peak.label))

	vs := values(pts)
	mean, std := stat.PopMeanStdDev(vs, nil)
	above := 0
	for _, v := range vs {
		if v > mean {
			above++
		}
	}
	out = append(out, fmt.Sprintf("Average %s is %s, with %s of points above average",
		y, Number(mean), Percent(100*float64(above)/float64(len(vs)))))

	if mean != 0 {
		cv := math.Abs(std / mean * 100)
		level := "high"
		switch {
		case cv < 15:
			level = "low"
		case cv < 30:
			level = "moderate"
		}
		out = append(out, fmt.Sprintf("Volatility is %s (coefficient of variation %s)", level, Percent(cv)))
	}
	return out
}

// changeText is the absolute percent change from first to last, or a note when first is zero.
func changeText(first, last float64) string {
	if first == 0 {
		return "from a zero baseline"
	}
	return Percent(math.Abs((last - first) / math.Abs(first) * 100))
}

func breakdown(c charts.ChartSpec, hist []charts.Point) []string {
	pts := collect(hist, c.XField, c.YField)
	if len(pts) == 0 {
		return []string{noData(c)}
	}
	total := floats.Sum(values(pts))
	hi, lo := pts[0], pts[0]
	for _, p := range pts[1:] {
		if p.value > hi.value {
			hi = p
		}
		if p.value < lo.value {
			lo = p
		}
	}
	out := []string{fmt.Sprintf("Total %s across %d categories is %s", c.YField, len(pts), Number(total))}
	out = append(out, fmt.Sprintf("%s is the largest at %s (%s of total)", hi.label, Number(hi.value), shareOf(hi.value, total)))
	if len(pts) > 1 {
		out = append(out, fmt.Sprintf("%s is the smallest at %s", lo.label, Number(lo.value)))
	}

	mean := total / float64(len(pts))
	var aboveCount int
	var aboveSum float64
	for _, p := range pts {
		if p.value > mean {
			aboveCount++
			aboveSum += p.value
		}
	}
	if aboveCount > 0 && aboveCount <= 3 && len(pts) > 3 {
		out = append(out, fmt.Sprintf("%d of %d categories are above average and together make up %s of total",
			aboveCount, len(pts), shareOf(aboveSum, total)))
	}
	if len(pts) > 1 && lo.value != 0 {
		gap := (hi.value - lo.value) / math.Abs(lo.value) * 100
		out = append(out, fmt.Sprintf("The gap between %s and %s is %s", hi.label, lo.label, Percent(gap)))
	}
	return out
}

func share(c charts.ChartSpec, hist []charts.Point) []string {
	pts := collect(hist, c.CategoryField(), c.YField)
	if len(pts) == 0 {
		return []string{noData(c)}
	}
	vs := values(pts)
	total := floats.Sum(vs)
	dom := pts[0]
	for _, p := range pts[1:] {
		if p.value > dom.value {
			dom = p
		}
	}
	out := []string{fmt.Sprintf("%s dominates with %s of total", dom.label, shareOf(dom.value, total))}

	mean := total / float64(len(pts))
	near := 0
	for _, v := range vs {
		if math.Abs(v-mean) <= 0.3*math.Abs(mean) {
			near++
		}
	}
	shape := "uneven"
	if float64(near) >= 0.7*float64(len(pts)) {
		shape = "balanced"
	}
	out = append(out, fmt.Sprintf("Distribution across %d categories is %s", len(pts), shape))

	if len(vs) >= 3 {
		sorted := append([]float64(nil), vs...)
		sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
		out = append(out, fmt.Sprintf("Top 3 categories account for %s of total", shareOf(sorted[0]+sorted[1]+sorted[2], total)))
	}
	return out
}

func correlation(c charts.ChartSpec, hist []charts.Point) []string {
	var xs, ys []float64
	for _, p := range hist {
		x, okx := p.Number(c.XField)
		y, oky := p.Number(c.YField)
		if okx && oky {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	if len(xs) == 0 {
		return []string{noData(c)}
	}
	r := Pearson(xs, ys)
	var strength string
	switch {
	case r > 0.7:
		strength = "Strong positive"
	case r > 0.3:
		strength = "Moderate positive"
	case r < -0.7:
		strength = "Strong negative"
	case r < -0.3:
		strength = "Moderate negative"
	default:
		strength = "Weak"
	}
	return []string{
		fmt.Sprintf("%s correlation between %s and %s (r = %.2f)", strength, c.XField, c.YField, r),
		fmt.Sprintf("Based on %d data points", len(xs)),
	}
}

// Pearson returns the correlation coefficient of xs and ys, or 0 when it is undefined.
func Pearson(xs, ys []float64) float64 {
	if len(xs) < 2 || len(xs) != len(ys) {
		return 0
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// Number formats v with thousands separators and at most two decimals.
func Number(v float64) string {
	return humanize.CommafWithDigits(math.Round(v*100)/100, 2)
}

// Percent formats v as a percentage with at most one decimal.
func Percent(v float64) string {
	return humanize.FtoaWithDigits(math.Round(v*10)/10, 1) + "%"
}

func shareOf(part, total float64) string {
	if total == 0 {
		return Percent(0)
	}
	return Percent(part / total * 100)
}
