package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/KaramelBytes/insightloom/internal/charts"
	"github.com/KaramelBytes/insightloom/internal/dataset"
	"github.com/KaramelBytes/insightloom/internal/utils"
)

// PromptSampleRows caps the raw rows embedded in a chat prompt.
const PromptSampleRows = 50

const chartSystemPrompt = `You are a data visualization assistant working on a dashboard.
Answer the user's request and propose chart changes.

Reply with a single JSON object and nothing else:
{"response": "<short answer for the user>", "charts": [<chart>, ...]}

Each chart object has:
- "id": keep the id of an existing chart to update it; omit it for a new chart
- "chartType": one of line, bar, area, pie, scatter
- "title", "description"
- "xField": the category or x-axis column (required)
- "yField": the value column (required for every type except pie)
- "colorField": optional grouping column
- "series": array of row objects keyed by xField/yField
- "insights": optional short observations

Only use column names that exist in the dataset. Return "charts": [] when no chart should change.`

// ChartPrompt gathers everything a chat request sends to the model.
type ChartPrompt struct {
	Query   string
	Summary string
	Charts  []charts.ChartSpec
	Sample  []dataset.Row
	// TokenLimit truncates the user message when positive.
	TokenLimit int
}

// Messages assembles the system and user messages for a chat completion.
func (p ChartPrompt) Messages() ([]Message, error) {
	user, err := p.userMessage()
	if err != nil {
		return nil, err
	}
	if p.TokenLimit > 0 && utils.CountTokens(user) > p.TokenLimit {
		user = utils.TruncateToTokenLimit(user, p.TokenLimit)
	}
	return []Message{
		{Role: "system", Content: chartSystemPrompt},
		{Role: "user", Content: user},
	}, nil
}

// Tokens estimates the prompt size across all messages.
func (p ChartPrompt) Tokens() (int, error) {
	msgs, err := p.Messages()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, m := range msgs {
		n += utils.CountTokens(m.Content)
	}
	return n, nil
}

func (p ChartPrompt) userMessage() (string, error) {
	var b strings.Builder
	b.WriteString("[REQUEST]\n")
	b.WriteString(strings.TrimSpace(p.Query))
	b.WriteString("\n\n")

	if s := strings.TrimSpace(p.Summary); s != "" {
		b.WriteString(s)
		b.WriteString("\n\n")
	}

	b.WriteString("[CURRENT CHARTS]\n")
	if len(p.Charts) == 0 {
		b.WriteString("(none)\n")
	}
	for _, c := range p.Charts {
		fmt.Fprintf(&b, "- id=%s type=%s title=%q xField=%s", c.ID, c.ChartType, c.Title, c.XField)
		if c.YField != "" {
			fmt.Fprintf(&b, " yField=%s", c.YField)
		}
		if c.ColorField != "" {
			fmt.Fprintf(&b, " colorField=%s", c.ColorField)
		}
		fmt.Fprintf(&b, " points=%d\n", len(c.Series))
	}

	sample := p.Sample
	if len(sample) > PromptSampleRows {
		sample = sample[:PromptSampleRows]
	}
	if len(sample) > 0 {
		raw, err := json.Marshal(sample)
		if err != nil {
			return "", fmt.Errorf("marshal sample rows: %w", err)
		}
		fmt.Fprintf(&b, "\n[SAMPLE ROWS (%d)]\n", len(sample))
		b.Write(raw)
		b.WriteString("\n")
	}
	return b.String(), nil
}
