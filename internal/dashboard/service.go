package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/insightloom/internal/ai"
	"github.com/KaramelBytes/insightloom/internal/analysis"
	"github.com/KaramelBytes/insightloom/internal/charts"
	"github.com/KaramelBytes/insightloom/internal/dataset"
	"github.com/KaramelBytes/insightloom/internal/forecast"
	"github.com/KaramelBytes/insightloom/internal/insights"
)

// ErrChartNotFound is returned when a chart ID does not exist on the dashboard.
var ErrChartNotFound = errors.New("chart not found")

// Options configures a Service. Zero values select defaults.
type Options struct {
	Logger      *zap.Logger
	Runtime     ai.Runtime
	Model       string
	Engine      *forecast.Engine
	SampleRows  int
	ChatTimeout time.Duration
	MaxTokens   int
	// Temperature is left to the backend default when nil.
	Temperature *float64
	PromptLimit int
	Now         func() time.Time
}

// Service builds dashboards and applies forecasts and chat updates to them.
type Service struct {
	log         *zap.Logger
	runtime     ai.Runtime
	model       string
	engine      *forecast.Engine
	sampleRows  int
	chatTimeout time.Duration
	maxTokens   int
	temperature *float64
	promptLimit int
	now         func() time.Time
}

// New returns a Service.
func New(opts Options) *Service {
	s := &Service{
		log:         opts.Logger,
		runtime:     opts.Runtime,
		model:       opts.Model,
		engine:      opts.Engine,
		sampleRows:  opts.SampleRows,
		chatTimeout: opts.ChatTimeout,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		promptLimit: opts.PromptLimit,
		now:         opts.Now,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.engine == nil {
		s.engine = forecast.NewEngine(nil)
	}
	if s.sampleRows <= 0 {
		s.sampleRows = 5
	}
	if s.chatTimeout <= 0 {
		s.chatTimeout = 90 * time.Second
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Build profiles ds, selects charts and synthesizes their insights.
func (s *Service) Build(name, source string, ds *dataset.Dataset) *Dashboard {
	profiles := analysis.Profile(ds)
	selected := charts.Select(ds, profiles)
	for i := range selected {
		selected[i].Insights = insights.Generate(selected[i])
	}
	now := s.now().UTC()
	d := &Dashboard{
		ID:        uuid.NewString(),
		Name:      name,
		Source:    source,
		Profiles:  profiles,
		Charts:    selected,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if ds != nil {
		d.Rows = ds.Len()
		d.Columns = append([]string(nil), ds.Columns...)
		d.Sample = ds.Head(ai.PromptSampleRows)
	}
	s.log.Info("dashboard built",
		zap.String("name", name),
		zap.Int("rows", d.Rows),
		zap.Int("columns", len(d.Columns)),
		zap.Int("charts", len(selected)))
	return d
}

// ForecastResult reports what happened to one chart.
type ForecastResult struct {
	ChartID    string `json:"chartId"`
	Title      string `json:"title"`
	Forecasted bool   `json:"forecasted"`
	Points     int    `json:"points,omitempty"`
	Notice     string `json:"notice,omitempty"`
}

// Forecast replaces the chart with its forecast-extended version. Charts that cannot be
// forecast are left unchanged and reported through the result notice.
func (s *Service) Forecast(d *Dashboard, chartID string) (ForecastResult, error) {
	i, ok := d.ChartIndex(chartID)
	if !ok {
		return ForecastResult{}, fmt.Errorf("%w: %s", ErrChartNotFound, chartID)
	}
	next, res, err := s.forecastOne(d.Charts[i])
	if err != nil {
		return res, err
	}
	if res.Forecasted {
		d.Charts[i] = next
		d.UpdatedAt = s.now().UTC()
	}
	return res, nil
}

// ForecastAll forecasts every chart concurrently. Results are in chart order.
func (s *Service) ForecastAll(ctx context.Context, d *Dashboard) ([]ForecastResult, error) {
	next := make([]charts.ChartSpec, len(d.Charts))
	results := make([]ForecastResult, len(d.Charts))

	g, gctx := errgroup.WithContext(ctx)
	for i := range d.Charts {
		c := d.Charts[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			spec, res, err := s.forecastOne(c)
			if err != nil {
				return err
			}
			next[i], results[i] = spec, res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	changed := false
	for i, res := range results {
		if res.Forecasted {
			d.Charts[i] = next[i]
			changed = true
		}
	}
	if changed {
		d.UpdatedAt = s.now().UTC()
	}
	return results, nil
}

func (s *Service) forecastOne(c charts.ChartSpec) (charts.ChartSpec, ForecastResult, error) {
	res := ForecastResult{ChartID: c.ID, Title: c.Title}
	out, err := s.engine.Forecast(c)
	switch {
	case errors.Is(err, forecast.ErrNotForecastable):
		res.Notice = fmt.Sprintf("%s charts cannot be forecast", c.ChartType)
		s.log.Debug("forecast skipped", zap.String("chart", c.ID), zap.String("reason", res.Notice))
		return c, res, nil
	case errors.Is(err, forecast.ErrInsufficientData):
		res.Notice = "not enough historical points to forecast"
		s.log.Debug("forecast skipped", zap.String("chart", c.ID), zap.String("reason", res.Notice))
		return c, res, nil
	case err != nil:
		return c, res, fmt.Errorf("forecast chart %s: %w", c.ID, err)
	}
	res.Forecasted = true
	res.Points = len(out.Series) - len(out.Historical())
	s.log.Info("chart forecast",
		zap.String("chart", c.ID),
		zap.String("type", string(c.ChartType)),
		zap.Int("points", res.Points))
	return out, res, nil
}

// ChatResult is the outcome of a chat request against a dashboard.
type ChatResult struct {
	Response    string   `json:"response"`
	Updated     []string `json:"updated"`
	Added       []string `json:"added"`
	Warnings    []string `json:"warnings,omitempty"`
	ParseMethod string   `json:"parseMethod"`
	Usage       ai.Usage `json:"usage"`
	RequestID   string   `json:"requestId,omitempty"`
}

// Prompt assembles the chat prompt for query without calling a backend.
func (s *Service) Prompt(d *Dashboard, query string) ai.ChartPrompt {
	return ai.ChartPrompt{
		Query:      query,
		Summary:    d.Summary(s.sampleRows).Markdown(),
		Charts:     d.Charts,
		Sample:     d.Sample,
		TokenLimit: s.promptLimit,
	}
}

// Chat sends query to the runtime and merges the proposed charts into d. On any error the
// dashboard is left unchanged.
func (s *Service) Chat(ctx context.Context, d *Dashboard, query string) (*ChatResult, error) {
	if s.runtime == nil {
		return nil, errors.New("no completion runtime configured")
	}
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query cannot be empty")
	}
	msgs, err := s.Prompt(d, query).Messages()
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.chatTimeout)
	defer cancel()
	start := time.Now()
	completion, err := s.runtime.Complete(ctx, ai.CompletionRequest{
		Model:       s.model,
		Messages:    msgs,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
		JSON:        true,
	})
	if err != nil {
		s.log.Warn("chat completion failed", zap.String("dashboard", d.Name), zap.Error(err))
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	parsed := ai.ParseChartResponse(completion.Content)
	proposals := make([]charts.ChartSpec, len(parsed.Charts))
	for i, p := range parsed.Charts {
		p.Insights = insights.Generate(p)
		proposals[i] = p
	}
	merged := charts.Merge(d.Charts, proposals)
	d.Charts = merged.Charts
	if len(merged.Updated)+len(merged.Added) > 0 {
		d.UpdatedAt = s.now().UTC()
	}

	s.log.Info("chat applied",
		zap.String("dashboard", d.Name),
		zap.String("parse", parsed.ParseMethod),
		zap.Int("updated", len(merged.Updated)),
		zap.Int("added", len(merged.Added)),
		zap.Int("dropped", len(parsed.Warnings)),
		zap.Duration("elapsed", time.Since(start)))

	return &ChatResult{
		Response:    parsed.Response,
		Updated:     merged.Updated,
		Added:       merged.Added,
		Warnings:    parsed.Warnings,
		ParseMethod: parsed.ParseMethod,
		Usage:       completion.Usage,
		RequestID:   completion.RequestID,
	}, nil
}
