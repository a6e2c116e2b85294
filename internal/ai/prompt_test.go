package ai

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/insightloom/internal/charts"
	"github.com/KaramelBytes/insightloom/internal/dataset"
)

func TestChartPromptMessages(t *testing.T) {
	rows := make([]dataset.Row, 0, 80)
	for i := 0; i < 80; i++ {
		rows = append(rows, dataset.Row{"month": fmt.Sprintf("m%02d", i), "sales": i})
	}
	p := ChartPrompt{
		Query:   "  show sales as a bar chart ",
		Summary: "[DATASET SUMMARY]\nRows: 80",
		Charts: []charts.ChartSpec{
			{ID: "abc", ChartType: charts.Line, Title: "Sales over month", XField: "month", YField: "sales"},
		},
		Sample: rows,
	}
	msgs, err := p.Messages()
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Contains(t, msgs[0].Content, `"chartType"`)

	user := msgs[1].Content
	assert.True(t, strings.HasPrefix(user, "[REQUEST]\nshow sales as a bar chart\n"))
	assert.Contains(t, user, "[DATASET SUMMARY]")
	assert.Contains(t, user, `- id=abc type=line title="Sales over month" xField=month yField=sales points=0`)
	assert.Contains(t, user, "[SAMPLE ROWS (50)]")
	assert.Contains(t, user, `"month":"m49"`)
	assert.NotContains(t, user, `"month":"m50"`)
}

func TestChartPromptNoChartsAndTruncation(t *testing.T) {
	p := ChartPrompt{Query: strings.Repeat("x", 4000), TokenLimit: 10}
	msgs, err := p.Messages()
	require.NoError(t, err)
	assert.Equal(t, 40, len([]rune(msgs[1].Content)))

	p.TokenLimit = 0
	p.Query = "hi"
	msgs, err = p.Messages()
	require.NoError(t, err)
	assert.Contains(t, msgs[1].Content, "[CURRENT CHARTS]\n(none)")

	n, err := p.Tokens()
	require.NoError(t, err)
	assert.Greater(t, n, 0)
}
