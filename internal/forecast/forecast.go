// Package forecast extends a chart's historical series with a naive linear trend.
package forecast

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/insightloom/internal/charts"
	"github.com/KaramelBytes/insightloom/internal/dataset"
	"github.com/KaramelBytes/insightloom/internal/insights"
)

const (
	// MaxHorizon caps the number of forecast points.
	MaxHorizon = 12
	// horizonRatio is the forecast length relative to the historical count.
	horizonRatio = 0.3
	// jitterFraction bounds the random perturbation of each prediction.
	jitterFraction = 0.05
	// minHistory is the number of historical points a fit needs.
	minHistory = 2
)

var (
	ErrNotForecastable  = errors.New("chart type cannot be forecast")
	ErrInsufficientData = errors.New("not enough historical data to forecast")
)

// Source supplies uniform values in [0, 1). *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// Engine produces forecasts. It is safe for concurrent use.
type Engine struct {
	mu  sync.Mutex
	src Source
}

// NewEngine returns an engine drawing jitter from src; nil seeds one from the clock.
func NewEngine(src Source) *Engine {
	if src == nil {
		src = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{src: src}
}

// Forecastable reports whether c's type and bindings allow a forecast.
func Forecastable(c charts.ChartSpec) bool {
	switch c.ChartType {
	case charts.Line, charts.Bar, charts.Area:
		return c.YField != ""
	}
	return false
}

// Horizon returns the number of points forecast for n historical points.
func Horizon(n int) int {
	h := int(math.Ceil(horizonRatio * float64(n)))
	if h > MaxHorizon {
		return MaxHorizon
	}
	return h
}

// Fit is an ordinary least-squares fit of ys against their 0-based index.
func Fit(ys []float64) (slope, intercept float64) {
	xs := make([]float64, len(ys))
	for i := range xs {
		xs[i] = float64(i)
	}
	intercept, slope = stat.LinearRegression(xs, ys, nil, false)
	return slope, intercept
}

// Forecast returns a new chart whose series is c's historical points followed by forecast
// points. Earlier forecast points in c are discarded, never refit. c is not modified.
func (e *Engine) Forecast(c charts.ChartSpec) (charts.ChartSpec, error) {
	if !Forecastable(c) {
		return charts.ChartSpec{}, fmt.Errorf("%w: %s", ErrNotForecastable, c.ChartType)
	}
	hist := c.Historical()
	var (
		ys     []float64
		lastX  any
		series = make([]charts.Point, 0, len(hist)+MaxHorizon)
	)
	for _, p := range hist {
		series = append(series, p.Clone())
		if v, ok := p.Number(c.YField); ok {
			ys = append(ys, v)
			lastX = p[c.XField]
		}
	}
	if len(ys) < minHistory {
		return charts.ChartSpec{}, fmt.Errorf("%w: %d points, need %d", ErrInsufficientData, len(ys), minHistory)
	}

	n := len(ys)
	slope, intercept := Fit(ys)
	h := Horizon(n)
	jitter := e.draw(h)
	var last float64
	for i := 1; i <= h; i++ {
		predicted := slope*float64(n+i-1) + intercept
		predicted *= 1 + jitter[i-1]*jitterFraction
		predicted = math.Round(math.Max(predicted, 0)*100) / 100
		last = predicted
		series = append(series, charts.Point{
			c.XField:           NextLabel(lastX, i),
			c.YField:           predicted,
			charts.ForecastKey: true,
		})
	}

	out := c.Clone()
	out.Series = series
	out.Insights = withoutSummary(c.Insights)
	out.Insights = append(insights.Generate(out), summary(c.YField, ys[n-1], last, h))
	return out, nil
}

// draw returns k values uniform in [-1, 1).
func (e *Engine) draw(k int) []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]float64, k)
	for i := range out {
		out[i] = 2*e.src.Float64() - 1
	}
	return out
}

// summaryPrefix marks the sentence describing forecast points.
const summaryPrefix = "Forecast: "

// withoutSummary drops an earlier forecast summary so a re-forecast replaces it.
func withoutSummary(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !strings.HasPrefix(s, summaryPrefix) {
			out = append(out, s)
		}
	}
	return out
}

func summary(field string, lastActual, lastForecast float64, h int) string {
	periods := "periods"
	if h == 1 {
		periods = "period"
	}
	direction := "stay flat"
	switch {
	case lastForecast > lastActual:
		direction = "rise"
	case lastForecast < lastActual:
		direction = "decline"
	}
	msg := fmt.Sprintf(summaryPrefix+"%s is expected to %s to %s over the next %d %s",
		field, direction, insights.Number(lastForecast), h, periods)
	if lastActual != 0 {
		change := (lastForecast - lastActual) / math.Abs(lastActual) * 100
		sign := ""
		if change > 0 {
			sign = "+"
		}
		msg += fmt.Sprintf(" (%s%s vs last actual %s)", sign, insights.Percent(change), insights.Number(lastActual))
	}
	return msg
}

var digitRun = regexp.MustCompile(`\d+`)

// NextLabel synthesizes the x-label i steps after last. Numbers and plain numeric strings are
// incremented; other text keeps
// everything but its last digit run, which is incremented with its zero padding preserved;
// anything else becomes "Forecast i".
func NextLabel(last any, i int) any {
	switch v := last.(type) {
	case int:
		return v + i
	case int64:
		return v + int64(i)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return dataset.Text(f + float64(i))
		}
		locs := digitRun.FindAllStringIndex(v, -1)
		if len(locs) == 0 {
			break
		}
		loc := locs[len(locs)-1]
		run := v[loc[0]:loc[1]]
		n, err := strconv.ParseInt(run, 10, 64)
		if err != nil {
			break
		}
		return v[:loc[0]] + fmt.Sprintf("%0*d", len(run), n+int64(i)) + v[loc[1]:]
	default:
		if f, ok := dataset.ParseNumber(v); ok {
			return f + float64(i)
		}
	}
	return fmt.Sprintf("Forecast %d", i)
}
