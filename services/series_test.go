package services

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engagement-dashboard/models"
)

func annotated(handle string, followers int64, at time.Time, likes int64) *models.AnnotatedPost {
	return Annotate(&models.RawPost{
		Handle:        handle,
		FollowerCount: followers,
		PostedAt:      at,
		PostID:        handle + at.String(),
		Likes:         likes,
	})
}

func seriesTable() *models.CombinedTable {
	day := func(m time.Month, d, h int) time.Time { return time.Date(2024, m, d, h, 0, 0, 0, time.UTC) }
	return models.NewCombinedTable(
		[]*models.AnnotatedPost{
			annotated("alice", 100, day(3, 15, 18), 10), // Fri, W11
			annotated("alice", 100, day(3, 15, 9), 30),  // Fri, W11
			annotated("alice", 100, day(3, 11, 9), 5),   // Mon, W11
			annotated("alice", 100, day(2, 28, 9), 1),   // Wed, W09
		},
		[]*models.AnnotatedPost{
			annotated("bob", 0, day(3, 15, 12), 7),
			annotated("bob", 0, day(3, 14, 12), 3),
		},
	)
}

type pointView struct {
	Handle    string
	Label     string
	Value     float64
	Count     int
	Undefined int
}

func view(points []models.SeriesPoint) []pointView {
	out := make([]pointView, 0, len(points))
	for _, p := range points {
		out = append(out, pointView{p.Handle, p.Label, p.Value, p.Count, p.Undefined})
	}
	return out
}

func TestBuildSeriesPerDateSum(t *testing.T) {
	s, err := BuildSeries(seriesTable(), models.PeriodDate, models.ColLikes, models.AggSum)
	require.NoError(t, err)

	want := []pointView{
		{"alice", "2024-02-28", 1, 1, 0},
		{"alice", "2024-03-11", 5, 1, 0},
		{"alice", "2024-03-15", 40, 2, 0},
		{"bob", "2024-03-14", 3, 1, 0},
		{"bob", "2024-03-15", 7, 1, 0},
	}
	if diff := cmp.Diff(want, view(s.Points)); diff != "" {
		t.Errorf("series mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildSeriesPerWeekMeanSkipsUndefined(t *testing.T) {
	s, err := BuildSeries(seriesTable(), models.PeriodWeek, models.ColLikeRatio, models.AggMean)
	require.NoError(t, err)

	want := []pointView{
		{"alice", "2024-W09", 1, 1, 0},
		{"alice", "2024-W11", 15, 3, 0},
		{"bob", "2024-W11", math.NaN(), 0, 2},
	}
	if diff := cmp.Diff(want, view(s.Points), cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("series mismatch (-want +got):\n%s", diff)
	}

	// Week buckets start on Monday.
	assert.Equal(t, "2024-03-11", s.Points[1].Bucket.Format("2006-01-02"))
	assert.Equal(t, time.Monday, s.Points[0].Bucket.Weekday())
}

func TestBuildSeriesPerMonth(t *testing.T) {
	s, err := BuildSeries(seriesTable(), models.PeriodMonth, models.ColLikes, models.AggSum)
	require.NoError(t, err)

	want := []pointView{
		{"alice", "2024-02", 1, 1, 0},
		{"alice", "2024-03", 45, 3, 0},
		{"bob", "2024-03", 10, 2, 0},
	}
	if diff := cmp.Diff(want, view(s.Points)); diff != "" {
		t.Errorf("series mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, s.Points[1].Bucket.Day())
}

func TestBuildSeriesEmptyTable(t *testing.T) {
	s, err := BuildSeries(models.NewCombinedTable(), models.PeriodDate, models.ColLikes, models.AggSum)
	require.NoError(t, err)
	assert.Empty(t, s.Points)
}

func TestBuildSeriesRejectsBadInput(t *testing.T) {
	_, err := BuildSeries(seriesTable(), models.PeriodDate, models.Metric("text"), models.AggSum)
	assert.Error(t, err)
	_, err = BuildSeries(seriesTable(), models.Period("year"), models.ColLikes, models.AggSum)
	assert.Error(t, err)
	_, err = BuildSeries(seriesTable(), models.PeriodDate, models.ColLikes, models.Aggregation("max"))
	assert.Error(t, err)
}

func TestISOWeekBucketAcrossYearBoundary(t *testing.T) {
	row := annotated("alice", 1, time.Date(2024, 12, 31, 10, 0, 0, 0, time.UTC), 1)
	start, label, err := Bucket(row, models.PeriodWeek)
	require.NoError(t, err)
	assert.Equal(t, "2025-W01", label)
	assert.Equal(t, "2024-12-30", start.Format("2006-01-02"))
}

func TestWeekBucketUsesStoredCalendarDate(t *testing.T) {
	brt := time.FixedZone("BRT", -3*3600)
	row := annotated("alice", 1, time.Date(2024, 3, 17, 23, 30, 0, 0, brt), 1)
	// Databases hand timestamps back in the session zone.
	row.PostedAt = row.PostedAt.UTC()

	start, label, err := Bucket(row, models.PeriodWeek)
	require.NoError(t, err)
	assert.Equal(t, 11, row.Week)
	assert.Equal(t, "2024-W11", label)
	assert.Equal(t, "2024-03-11", start.Format("2006-01-02"))
}

func TestRollingMean(t *testing.T) {
	points := []models.SeriesPoint{
		{Handle: "alice", Value: 2},
		{Handle: "alice", Value: 4},
		{Handle: "bob", Value: 100},
		{Handle: "alice", Value: math.NaN()},
		{Handle: "alice", Value: 9},
		{Handle: "bob", Value: math.NaN()},
	}

	got := RollingMean(points, 2)
	want := []float64{2, 3, 100, math.NaN(), 6.5, math.NaN()}
	for i, w := range want {
		if math.IsNaN(w) {
			assert.True(t, math.IsNaN(got[i].Value), "point %d should stay undefined", i)
			continue
		}
		assert.InDelta(t, w, got[i].Value, 1e-12, "point %d", i)
	}
	assert.Equal(t, 4.0, points[1].Value, "input must be left untouched")
}

func TestRollingMeanLeadingUndefined(t *testing.T) {
	got := RollingMean([]models.SeriesPoint{{Handle: "bob", Value: math.NaN()}}, 3)
	assert.True(t, math.IsNaN(got[0].Value))
}
