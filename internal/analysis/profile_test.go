package analysis

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/insightloom/internal/dataset"
)

func column(name string, values ...any) *dataset.Dataset {
	rows := make([]dataset.Row, len(values))
	for i, v := range values {
		rows[i] = dataset.Row{name: v}
	}
	return dataset.New("t.csv", []string{name}, rows)
}

func TestProfileColumnNumericalStats(t *testing.T) {
	ds := column("v", "1", 2, "3", 4.0)
	p := ProfileColumn(ds, "v")
	require.Equal(t, Numerical, p.Type)
	require.NotNil(t, p.Stats)
	assert.InDelta(t, 2.5, p.Stats.Mean, 1e-9)
	// even count: upper middle element
	assert.Equal(t, 3.0, p.Stats.Median)
	assert.InDelta(t, math.Sqrt(1.25), p.Stats.Std, 1e-9)
	assert.Equal(t, 1.0, p.Stats.Min)
	assert.Equal(t, 4.0, p.Stats.Max)
	assert.Equal(t, 100, p.QualityPercent)
	assert.Equal(t, 4, p.UniqueCount)
}

func TestProfileColumnOddMedian(t *testing.T) {
	p := ProfileColumn(column("v", "9", "1", "5"), "v")
	require.NotNil(t, p.Stats)
	assert.Equal(t, 5.0, p.Stats.Median)
}

func TestProfileColumnPriority(t *testing.T) {
	cases := []struct {
		name   string
		values []any
		want   ColumnType
	}{
		{"all numeric", []any{"1", "2", "3"}, Numerical},
		{"date token breaks numeric", []any{"1", "2", "date3"}, Temporal},
		{"iso dates", []any{"2024-01-01", "2024-01-02", nil}, Temporal},
		{"time keyword", []any{"lunch time", "x"}, Temporal},
		{"few distinct labels", []any{"north", "south", "north", "east"}, Categorical},
		{"all missing", []any{nil, "  ", nil}, Text},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := ProfileColumn(column("c", tc.values...), "c")
			assert.Equal(t, tc.want, p.Type)
			if tc.want != Numerical {
				assert.Nil(t, p.Stats)
			}
		})
	}
}

func TestProfileColumnHighCardinalityIsText(t *testing.T) {
	var values []any
	for i := 0; i < 20; i++ {
		values = append(values, fmt.Sprintf("comment %c", 'a'+i))
	}
	values = append(values, "5")
	p := ProfileColumn(column("note", values...), "note")
	assert.Equal(t, Text, p.Type)
	assert.Equal(t, 21, p.UniqueCount)
}

func TestProfileColumnCategoricalThresholdScalesWithRows(t *testing.T) {
	// 200 rows, 15 distinct values: 15 <= max(10, 20)
	var values []any
	for i := 0; i < 200; i++ {
		values = append(values, fmt.Sprintf("k%d", i%15))
	}
	p := ProfileColumn(column("k", values...), "k")
	assert.Equal(t, Categorical, p.Type)
}

func TestProfileNullAccountingAndQuality(t *testing.T) {
	ds := dataset.New("t", []string{"a", "b"}, []dataset.Row{
		{"a": "1", "b": nil},
		{"a": nil, "b": nil},
		{"a": "3", "b": "x"},
		{"a": "4"},
	})
	profiles := Profile(ds)
	require.Len(t, profiles, 2)
	for _, p := range profiles {
		assert.Equal(t, ds.Len(), p.NullCount+p.NonNullCount, p.Name)
		assert.GreaterOrEqual(t, p.QualityPercent, 0)
		assert.LessOrEqual(t, p.QualityPercent, 100)
	}
	assert.Equal(t, 75, profiles[0].QualityPercent)
	assert.Equal(t, 25, profiles[1].QualityPercent)
}

func TestProfileEmptyDataset(t *testing.T) {
	ds := dataset.New("empty", []string{"a"}, nil)
	p := ProfileColumn(ds, "a")
	assert.Equal(t, Text, p.Type)
	assert.Equal(t, 0, p.QualityPercent)
	assert.Nil(t, p.Stats)
	assert.Nil(t, Profile(nil))
}

func TestFirstOfType(t *testing.T) {
	profiles := []ColumnProfile{{Name: "a", Type: Text}, {Name: "b", Type: Numerical}, {Name: "c", Type: Numerical}}
	name, ok := FirstOfType(profiles, Numerical)
	assert.True(t, ok)
	assert.Equal(t, "b", name)
	_, ok = FirstOfType(profiles, Temporal)
	assert.False(t, ok)
	assert.Len(t, OfType(profiles, Numerical), 2)
}

func TestSummaryMarkdown(t *testing.T) {
	ds := dataset.New("sales.csv", []string{"month", "sales"}, []dataset.Row{
		{"month": "2024-01", "sales": "10"},
		{"month": "2024-02", "sales": "a|b"},
	})
	md := Summarize(ds, 5).Markdown()
	for _, want := range []string{
		"[DATASET SUMMARY]", "File: sales.csv", "Rows: 2", "[SCHEMA]",
		"- month: temporal", "- sales: categorical", "| month | sales |", "a/b",
	} {
		assert.True(t, strings.Contains(md, want), "missing %q in:\n%s", want, md)
	}
}
