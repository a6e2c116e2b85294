package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/insightloom/internal/charts"
	"github.com/KaramelBytes/insightloom/internal/dashboard"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "dashboards.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleDashboard(name string, updated time.Time) *dashboard.Dashboard {
	return &dashboard.Dashboard{
		ID:      name + "-id",
		Name:    name,
		Source:  name + ".csv",
		Rows:    3,
		Columns: []string{"month", "sales"},
		Charts: []charts.ChartSpec{{
			ID:        "c1",
			ChartType: charts.Line,
			Title:     "sales over month",
			XField:    "month",
			YField:    "sales",
			Series: []charts.Point{
				{"month": "Jan", "sales": 10.0},
				{"month": "Feb", "sales": 20.0},
				{"month": "Mar", "sales": 30.0, charts.ForecastKey: true},
			},
			Insights: []string{"Upward trend"},
		}},
		CreatedAt: updated.Add(-time.Hour),
		UpdatedAt: updated,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	d := sampleDashboard("sales", now)
	require.NoError(t, s.Save(ctx, d))

	got, err := s.Load(ctx, "sales")
	require.NoError(t, err)
	if diff := cmp.Diff(d, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	byID, err := s.Load(ctx, "sales-id")
	require.NoError(t, err)
	assert.Equal(t, "sales", byID.Name)
	assert.True(t, byID.Charts[0].HasForecast())
}

func TestSaveReplacesByName(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	now := time.Now().UTC()
	d := sampleDashboard("sales", now)
	require.NoError(t, s.Save(ctx, d))

	d.Charts = nil
	d.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, s.Save(ctx, d))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 0, list[0].Charts)
}

func TestListOrderedByUpdate(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Save(ctx, sampleDashboard("old", base)))
	require.NoError(t, s.Save(ctx, sampleDashboard("new", base.Add(24*time.Hour))))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].Name)
	assert.Equal(t, "old", list[1].Name)
	assert.Equal(t, 1, list[0].Charts)
	assert.Equal(t, 3, list[0].Rows)
	assert.Greater(t, list[0].PayloadSize, 0)
	assert.True(t, list[1].UpdatedAt.Equal(base))
}

func TestListOrderedWithinSameSecond(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 5, 0, time.UTC)
	require.NoError(t, s.Save(ctx, sampleDashboard("whole", base)))
	require.NoError(t, s.Save(ctx, sampleDashboard("half", base.Add(500*time.Millisecond))))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "half", list[0].Name)
	assert.Equal(t, "whole", list[1].Name)
	assert.True(t, list[0].UpdatedAt.Equal(base.Add(500*time.Millisecond)))
}

func TestDeleteAndNotFound(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, sampleDashboard("sales", time.Now())))

	require.NoError(t, s.Delete(ctx, "sales"))
	_, err := s.Load(ctx, "sales")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(s.Delete(ctx, "sales"), ErrNotFound))
}

func TestSaveValidates(t *testing.T) {
	s := openTemp(t)
	assert.Error(t, s.Save(context.Background(), &dashboard.Dashboard{ID: "x"}))
	assert.Error(t, s.Save(context.Background(), &dashboard.Dashboard{Name: "x"}))
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboards.db")
	s, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), sampleDashboard("sales", time.Now())))
	require.NoError(t, s.Close())

	s, err = Open(path, nil)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.Load(context.Background(), "sales")
	require.NoError(t, err)

	var versions int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&versions))
	assert.Equal(t, 1, versions)
}
