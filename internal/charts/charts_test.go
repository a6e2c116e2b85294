package charts

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/insightloom/internal/analysis"
	"github.com/KaramelBytes/insightloom/internal/dataset"
)

func salesDataset() *dataset.Dataset {
	return dataset.New("sales.csv", []string{"month", "region", "sales", "units"}, []dataset.Row{
		{"month": "2024-01", "region": "north", "sales": "10", "units": "1"},
		{"month": "2024-02", "region": "south", "sales": "20", "units": "2"},
		{"month": "2024-03", "region": "north", "sales": "30", "units": nil},
	})
}

func TestSelectFiresEveryApplicableRule(t *testing.T) {
	ds := salesDataset()
	got := Select(ds, analysis.Profile(ds))
	require.Len(t, got, 4)

	types := []ChartType{got[0].ChartType, got[1].ChartType, got[2].ChartType, got[3].ChartType}
	assert.Equal(t, []ChartType{Line, Bar, Scatter, Area}, types)

	assert.Equal(t, []Point{
		{"month": "2024-01", "sales": 10.0},
		{"month": "2024-02", "sales": 20.0},
		{"month": "2024-03", "sales": 30.0},
	}, got[0].Series)

	// grouped in order of first occurrence
	assert.Equal(t, []Point{
		{"region": "north", "sales": 40.0},
		{"region": "south", "sales": 20.0},
	}, got[1].Series)

	// row with a missing units value is skipped
	assert.Equal(t, "sales", got[2].XField)
	assert.Equal(t, "units", got[2].YField)
	assert.Len(t, got[2].Series, 2)

	assert.Equal(t, "index", got[3].XField)
	assert.Equal(t, Point{"index": 3, "sales": 30.0}, got[3].Series[2])

	for _, c := range got {
		require.NoError(t, c.Validate())
		assert.NotEmpty(t, c.ID)
	}
}

func TestSelectIsDeterministic(t *testing.T) {
	ds := salesDataset()
	profiles := analysis.Profile(ds)
	first := Select(ds, profiles)
	second := Select(ds, profiles)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("Select not deterministic (-first +second):\n%s", diff)
	}
}

func TestSelectNoApplicableRules(t *testing.T) {
	ds := dataset.New("notes", []string{"note"}, []dataset.Row{{"note": "hello"}})
	assert.Empty(t, Select(ds, analysis.Profile(ds)))
	assert.Empty(t, Select(dataset.New("empty", nil, nil), nil))
}

func TestSelectSampleCap(t *testing.T) {
	var rows []dataset.Row
	for i := 0; i < 80; i++ {
		rows = append(rows, dataset.Row{"v": i})
	}
	ds := dataset.New("big", []string{"v"}, rows)
	got := Select(ds, analysis.Profile(ds))
	require.Len(t, got, 1)
	assert.Equal(t, Area, got[0].ChartType)
	assert.Len(t, got[0].Series, DefaultSampleSize)

	got = Selector{SampleSize: 10}.Select(ds, analysis.Profile(ds))
	assert.Len(t, got[0].Series, 10)
}

func TestSelectAreaAvoidsIndexCollision(t *testing.T) {
	ds := dataset.New("idx", []string{"index"}, []dataset.Row{{"index": "5"}, {"index": "6"}})
	got := Select(ds, analysis.Profile(ds))
	require.Len(t, got, 1)
	assert.Equal(t, "_index", got[0].XField)
	assert.Equal(t, Point{"_index": 1, "index": 5.0}, got[0].Series[0])
}

func TestValidate(t *testing.T) {
	assert.NoError(t, ChartSpec{ChartType: Pie, XField: "cat"}.Validate())
	assert.ErrorIs(t, ChartSpec{ChartType: "radar", XField: "a", YField: "b"}.Validate(), ErrUnknownType)
	assert.ErrorIs(t, ChartSpec{ChartType: Line, YField: "b"}.Validate(), ErrMissingField)
	assert.ErrorIs(t, ChartSpec{ChartType: Bar, XField: "a"}.Validate(), ErrMissingField)
}

func TestHistoricalAndClone(t *testing.T) {
	c := ChartSpec{Series: []Point{{"y": 1.0}, {"y": 2.0, ForecastKey: true}}, Insights: []string{"a"}}
	assert.Len(t, c.Historical(), 1)
	assert.True(t, c.HasForecast())

	cp := c.Clone()
	cp.Series[0]["y"] = 99.0
	cp.Insights[0] = "b"
	assert.Equal(t, 1.0, c.Series[0]["y"])
	assert.Equal(t, "a", c.Insights[0])
}

func existingCharts() []ChartSpec {
	return []ChartSpec{
		{ID: "c1", ChartType: Line, Title: "Sales", XField: "month", YField: "sales", Series: []Point{{"month": "Jan", "sales": 1.0}}},
		{ID: "c2", ChartType: Bar, Title: "Units", XField: "region", YField: "units", Series: []Point{{"region": "n", "units": 2.0}}},
	}
}

func TestMergeUpdatesInPlace(t *testing.T) {
	current := existingCharts()
	proposal := ChartSpec{ChartType: Area, Title: "Other title", XField: "region", YField: "units",
		Series: []Point{{"region": "s", "units": 5.0}}, Insights: []string{"new"}}

	res := Merge(current, []ChartSpec{proposal})
	require.Len(t, res.Charts, 2)
	got := res.Charts[1]
	assert.Equal(t, "c2", got.ID)
	assert.Equal(t, Bar, got.ChartType)
	assert.Equal(t, "Units", got.Title)
	assert.Equal(t, proposal.Series, got.Series)
	assert.Equal(t, FallbackDescription, got.Description)
	assert.Equal(t, []string{"new"}, got.Insights)
	assert.Equal(t, []string{"c2"}, res.Updated)
	assert.Empty(t, res.Added)

	// input untouched
	if diff := cmp.Diff(existingCharts(), current); diff != "" {
		t.Fatalf("current mutated (-want +got):\n%s", diff)
	}
}

func TestMergeAppendLaw(t *testing.T) {
	current := existingCharts()
	proposal := ChartSpec{ChartType: Scatter, XField: "price", YField: "units", Description: "d",
		Series: []Point{{"price": 1.0, "units": 2.0}}}

	res := Merge(current, []ChartSpec{proposal})
	require.Len(t, res.Charts, len(current)+1)
	if diff := cmp.Diff(current, res.Charts[:len(current)]); diff != "" {
		t.Fatalf("prior charts changed (-want +got):\n%s", diff)
	}
	added := res.Charts[len(current)]
	assert.NotEmpty(t, added.ID)
	assert.Equal(t, []string{added.ID}, res.Added)
	assert.Equal(t, "price", added.XField)
}

func TestMergeIdempotent(t *testing.T) {
	batch := []ChartSpec{
		{ChartType: Line, XField: "month", YField: "sales", Series: []Point{{"month": "Feb", "sales": 3.0}}},
		{ChartType: Pie, XField: "region", YField: "revenue", Series: []Point{{"region": "n", "revenue": 9.0}}},
	}
	once := Merge(existingCharts(), batch)
	twice := Merge(once.Charts, batch)
	if diff := cmp.Diff(once.Charts, twice.Charts); diff != "" {
		t.Fatalf("second merge changed charts (-once +twice):\n%s", diff)
	}
	assert.Empty(t, twice.Added)
	assert.Len(t, twice.Updated, 2)
}

func TestMergeBatchSeesEarlierAppends(t *testing.T) {
	p1 := ChartSpec{ChartType: Bar, XField: "a", YField: "b", Series: []Point{{"a": "x", "b": 1.0}}}
	p2 := ChartSpec{ChartType: Bar, XField: "a", YField: "b", Series: []Point{{"a": "x", "b": 2.0}}}
	res := Merge(nil, []ChartSpec{p1, p2})
	require.Len(t, res.Charts, 1)
	assert.Equal(t, p2.Series, res.Charts[0].Series)
	assert.Len(t, res.Added, 1)
	assert.Len(t, res.Updated, 1)
}

func TestMergeIDRoundTripDisambiguatesDuplicatePairs(t *testing.T) {
	current := []ChartSpec{
		{ID: "first", ChartType: Line, XField: "m", YField: "v"},
		{ID: "second", ChartType: Bar, XField: "m", YField: "v"},
	}
	res := Merge(current, []ChartSpec{{ID: "second", ChartType: Bar, XField: "m", YField: "v", Description: "picked"}})
	assert.Equal(t, []string{"second"}, res.Updated)
	assert.Equal(t, "picked", res.Charts[1].Description)
	assert.Empty(t, res.Charts[0].Description)

	// id with a different pair is ignored; the pair match decides
	res = Merge(current, []ChartSpec{{ID: "second", XField: "m", YField: "other"}})
	require.Len(t, res.Charts, 3)
	assert.NotEqual(t, "second", res.Charts[2].ID)
}
