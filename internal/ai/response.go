package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/insightloom/internal/charts"
)

// Parse methods recorded on ChartResponse.
const (
	ParseDirect   = "direct"
	ParseFenced   = "fenced"
	ParseEmbedded = "embedded"
	ParseFallback = "fallback"
)

// ChartResponse is a decoded chat completion: a natural-language reply plus chart proposals.
type ChartResponse struct {
	Response    string             `json:"response"`
	Charts      []charts.ChartSpec `json:"charts"`
	ParseMethod string             `json:"-"`
	Warnings    []string           `json:"-"`
}

// wireChart accepts the aliases models tend to produce: data for series and type for chartType.
type wireChart struct {
	ID          string         `json:"id"`
	ChartType   string         `json:"chartType"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Series      []charts.Point `json:"series"`
	Data        []charts.Point `json:"data"`
	XField      string         `json:"xField"`
	YField      string         `json:"yField"`
	ColorField  string         `json:"colorField"`
	Insights    []string       `json:"insights"`
}

type wireResponse struct {
	Response *string     `json:"response"`
	Charts   []wireChart `json:"charts"`
}

var errNotEnvelope = errors.New("not a chart response object")

// ParseChartResponse decodes raw completion text. It tries the text as JSON, then a fenced
// ```json block, then the first embedded JSON object, and finally keeps the raw text as the
// reply with no charts. Proposals that fail validation are dropped and reported in Warnings.
func ParseChartResponse(raw string) ChartResponse {
	trimmed := strings.TrimSpace(raw)

	if w, err := decodeEnvelope(trimmed); err == nil {
		return w.toResponse(ParseDirect)
	}
	if inner, ok := fencedJSON(trimmed); ok {
		if w, err := decodeEnvelope(inner); err == nil {
			return w.toResponse(ParseFenced)
		}
	}
	if w, ok := embeddedJSON(trimmed); ok {
		return w.toResponse(ParseEmbedded)
	}
	return ChartResponse{
		Response:    trimmed,
		Charts:      []charts.ChartSpec{},
		ParseMethod: ParseFallback,
		Warnings:    []string{"completion was not valid JSON; showing raw text with no chart changes"},
	}
}

func decodeEnvelope(s string) (*wireResponse, error) {
	if !strings.HasPrefix(s, "{") {
		return nil, errNotEnvelope
	}
	var w wireResponse
	if err := json.Unmarshal([]byte(s), &w); err != nil {
		return nil, err
	}
	if w.Response == nil && w.Charts == nil {
		return nil, errNotEnvelope
	}
	return &w, nil
}

// fencedJSON returns the body of a markdown code fence, with or without a json tag.
func fencedJSON(s string) (string, bool) {
	start := strings.Index(s, "```")
	if start < 0 {
		return "", false
	}
	body := s[start+3:]
	for _, tag := range []string{"json", "JSON"} {
		if strings.HasPrefix(body, tag) {
			body = body[len(tag):]
			break
		}
	}
	end := strings.Index(body, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(body[:end]), true
}

// embeddedJSON scans for the first '{' that starts a decodable response object.
func embeddedJSON(s string) (*wireResponse, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(s[i:]))
		var w wireResponse
		if err := dec.Decode(&w); err != nil {
			continue
		}
		if w.Response == nil && w.Charts == nil {
			continue
		}
		return &w, true
	}
	return nil, false
}

func (w *wireResponse) toResponse(method string) ChartResponse {
	out := ChartResponse{Charts: []charts.ChartSpec{}, ParseMethod: method}
	if w.Response != nil {
		out.Response = strings.TrimSpace(*w.Response)
	}
	for i, wc := range w.Charts {
		spec, err := wc.toSpec()
		if err != nil {
			label := wc.Title
			if label == "" {
				label = wc.ID
			}
			out.Warnings = append(out.Warnings, fmt.Sprintf("chart %d (%q) dropped: %v", i+1, label, err))
			continue
		}
		out.Charts = append(out.Charts, spec)
	}
	return out
}

func (wc wireChart) toSpec() (charts.ChartSpec, error) {
	name := wc.ChartType
	if name == "" {
		name = wc.Type
	}
	ct, ok := charts.ParseChartType(name)
	if !ok {
		return charts.ChartSpec{}, fmt.Errorf("%w: %q", charts.ErrUnknownType, name)
	}
	series := wc.Series
	if series == nil {
		series = wc.Data
	}
	if series == nil {
		series = []charts.Point{}
	}
	spec := charts.ChartSpec{
		ID:          strings.TrimSpace(wc.ID),
		ChartType:   ct,
		Title:       strings.TrimSpace(wc.Title),
		Description: strings.TrimSpace(wc.Description),
		Series:      series,
		XField:      strings.TrimSpace(wc.XField),
		YField:      strings.TrimSpace(wc.YField),
		ColorField:  strings.TrimSpace(wc.ColorField),
		Insights:    wc.Insights,
	}
	if err := spec.Validate(); err != nil {
		return charts.ChartSpec{}, err
	}
	return spec, nil
}
