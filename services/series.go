package services

import (
	"fmt"
	"math"
	"sort"
	"time"

	"engagement-dashboard/models"
)

// Bucket returns the start and label of the period bucket a row falls in.
// Weeks are ISO weeks starting on Monday. Every bucket is derived from the
// row's calendar date, which stays in the post's own zone even when PostedAt
// was read back in another one.
func Bucket(row *models.AnnotatedPost, period models.Period) (time.Time, string, error) {
	d := row.Date
	switch period {
	case models.PeriodDate:
		return d, d.Format("2006-01-02"), nil
	case models.PeriodWeek:
		year, week := d.ISOWeek()
		offset := (int(d.Weekday()) + 6) % 7
		return d.AddDate(0, 0, -offset), fmt.Sprintf("%04d-W%02d", year, week), nil
	case models.PeriodMonth:
		start := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location())
		return start, start.Format("2006-01"), nil
	}
	return time.Time{}, "", fmt.Errorf("series: unknown period %q", period)
}

type seriesKey struct {
	handle string
	label  string
}

// BuildSeries groups the table by (identity, period bucket) and reduces the
// metric in each group. NaN values are skipped and counted as undefined; a
// group with no defined value reduces to NaN. Points are ordered by identity
// in table order, then by bucket.
func BuildSeries(table *models.CombinedTable, period models.Period, metric models.Metric, agg models.Aggregation) (*models.Series, error) {
	if _, err := models.ParseMetric(string(metric)); err != nil {
		return nil, fmt.Errorf("series: %w", err)
	}
	if agg != models.AggSum && agg != models.AggMean {
		return nil, fmt.Errorf("series: unknown aggregation %q", agg)
	}

	groups := make(map[seriesKey]*models.SeriesPoint)
	labels := make(map[string][]string)

	for _, row := range table.Rows {
		start, label, err := Bucket(row, period)
		if err != nil {
			return nil, err
		}
		v, err := row.Float(string(metric))
		if err != nil {
			return nil, fmt.Errorf("series: %w", err)
		}

		key := seriesKey{handle: row.Handle, label: label}
		pt, ok := groups[key]
		if !ok {
			pt = &models.SeriesPoint{Handle: row.Handle, Bucket: start, Label: label}
			groups[key] = pt
			labels[row.Handle] = append(labels[row.Handle], label)
		}
		if math.IsNaN(v) {
			pt.Undefined++
			continue
		}
		pt.Value += v
		pt.Count++
	}

	series := &models.Series{Metric: metric, Period: period, Aggregation: agg}
	for _, handle := range table.Handles() {
		ls := labels[handle]
		sort.Strings(ls)
		for _, l := range ls {
			pt := *groups[seriesKey{handle: handle, label: l}]
			switch {
			case pt.Count == 0:
				pt.Value = math.NaN()
			case agg == models.AggMean:
				pt.Value /= float64(pt.Count)
			}
			series.Points = append(series.Points, pt)
		}
	}
	return series, nil
}

// RollingMean returns a copy of points where each value is the mean of the
// last window defined values of the same identity, the current one included.
// Undefined points stay undefined.
func RollingMean(points []models.SeriesPoint, window int) []models.SeriesPoint {
	if window < 1 {
		window = 1
	}

	out := make([]models.SeriesPoint, len(points))
	buffers := make(map[string][]float64)

	for i, p := range points {
		out[i] = p
		buf := buffers[p.Handle]
		if !math.IsNaN(p.Value) {
			buf = append(buf, p.Value)
			if len(buf) > window {
				buf = buf[1:]
			}
			buffers[p.Handle] = buf
		}
		if math.IsNaN(p.Value) || len(buf) == 0 {
			out[i].Value = math.NaN()
			continue
		}
		sum := 0.0
		for _, v := range buf {
			sum += v
		}
		out[i].Value = sum / float64(len(buf))
	}
	return out
}
