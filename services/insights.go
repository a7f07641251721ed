package services

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"engagement-dashboard/models"
	"engagement-dashboard/utils"
)

// DefaultDistributionMetrics are the box plot metrics of the dashboard.
var DefaultDistributionMetrics = []models.Metric{models.ColLikes, models.ColReposts, models.ColReplies}

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate summarises each metric per identity. Undefined (NaN) values are
// counted but excluded from the statistics.
func (s *InsightService) Generate(t *models.CombinedTable, metrics []models.Metric) (*models.InsightReport, error) {
	report := &models.InsightReport{TotalPosts: t.Len()}
	if len(metrics) == 0 {
		metrics = DefaultDistributionMetrics
	}

	handles := t.Handles()
	report.Identities = len(handles)

	byHandle := make(map[string][]*models.AnnotatedPost, len(handles))
	for _, r := range t.Rows {
		byHandle[r.Handle] = append(byHandle[r.Handle], r)
	}

	for _, h := range handles {
		for _, m := range metrics {
			d := models.Distribution{Handle: h, Metric: m}
			values := make([]float64, 0, len(byHandle[h]))
			for _, r := range byHandle[h] {
				v, err := r.Float(string(m))
				if err != nil {
					return nil, fmt.Errorf("insights: %w", err)
				}
				if math.IsNaN(v) {
					d.Undefined++
					continue
				}
				values = append(values, v)
			}
			summarise(&d, values)
			report.Distributions = append(report.Distributions, d)
		}
	}

	s.logger.Debug("[insights] %d distributions over %d posts", len(report.Distributions), report.TotalPosts)
	return report, nil
}

// summarise fills the five-number summary and mean. Quantiles use linear
// interpolation between closest ranks.
func summarise(d *models.Distribution, values []float64) {
	d.Count = len(values)
	if d.Count == 0 {
		nan := math.NaN()
		d.Min, d.Q1, d.Median, d.Q3, d.Max, d.Mean = nan, nan, nan, nan, nan, nan
		return
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	total := 0.0
	for _, v := range sorted {
		total += v
	}

	d.Min = sorted[0]
	d.Max = sorted[len(sorted)-1]
	d.Q1 = quantile(sorted, 0.25)
	d.Median = quantile(sorted, 0.5)
	d.Q3 = quantile(sorted, 0.75)
	d.Mean = total / float64(len(sorted))
}

func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Print renders the distributions as one table per metric.
func (s *InsightService) Print(w io.Writer, r *models.InsightReport) {
	fmt.Fprintf(w, "\n\033[1;35m  Engagement distributions\033[0m — %d posts, %d identities\n\n",
		r.TotalPosts, r.Identities)

	if len(r.Distributions) == 0 {
		fmt.Fprintln(w, "  No posts to summarise")
		return
	}

	var order []models.Metric
	byMetric := make(map[models.Metric][]models.Distribution)
	for _, d := range r.Distributions {
		if _, ok := byMetric[d.Metric]; !ok {
			order = append(order, d.Metric)
		}
		byMetric[d.Metric] = append(byMetric[d.Metric], d)
	}

	for _, m := range order {
		t := newTable(w)
		t.SetTitle(string(m))
		t.AppendHeader(table.Row{"Identity", "Posts", "Undefined", "Min", "Q1", "Median", "Q3", "Max", "Mean"})
		for _, d := range byMetric[m] {
			t.AppendRow(table.Row{
				d.Handle, d.Count, d.Undefined,
				formatValue(d.Min), formatValue(d.Q1), formatValue(d.Median),
				formatValue(d.Q3), formatValue(d.Max), formatValue(d.Mean),
			})
		}
		t.Render()
		fmt.Fprintln(w)
	}
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.Style().Title.Align = text.AlignLeft
	return t
}

func formatValue(v float64) string {
	switch {
	case math.IsNaN(v):
		return "n/a"
	case v == math.Trunc(v) && math.Abs(v) < 1e15:
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.4f", v)
}
