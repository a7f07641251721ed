package models

import (
	"fmt"
	"strings"
)

// Period is the calendar unit rows are bucketed by before charting.
type Period string

const (
	PeriodDate  Period = "date"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParsePeriod validates a period name.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodDate, PeriodWeek, PeriodMonth:
		return p, nil
	}
	return "", fmt.Errorf("invalid period %q: must be one of date, week, month", s)
}

// Metric names a numeric column of the combined table.
type Metric string

// NumericColumns lists every column a Metric may refer to.
var NumericColumns = []string{
	ColFollowerCount, ColFollowingCount,
	ColLikes, ColReposts, ColReplies,
	ColLikeRatio, ColRepostRatio, ColReplyRatio, ColEngagementRatio,
	ColDay, ColWeek, ColMonth,
}

// DefaultMetrics mirrors the line charts of the dashboard.
var DefaultMetrics = []Metric{
	ColEngagementRatio, ColLikeRatio, ColRepostRatio, ColReplyRatio,
	ColLikes, ColReposts, ColReplies,
}

// ParseMetric validates a metric name against the numeric columns.
func ParseMetric(s string) (Metric, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	// Older exports call reposts "retweets".
	name = strings.ReplaceAll(name, "retweets", "reposts")
	name = strings.ReplaceAll(name, "rt_ratio", "repost_ratio")
	for _, c := range NumericColumns {
		if c == name {
			return Metric(c), nil
		}
	}
	return "", fmt.Errorf("invalid metric %q: must be a numeric column (%s)", s, strings.Join(NumericColumns, ", "))
}

// ParseMetrics parses a comma-separated metric list. An empty string yields
// DefaultMetrics.
func ParseMetrics(s string) ([]Metric, error) {
	if strings.TrimSpace(s) == "" {
		out := make([]Metric, len(DefaultMetrics))
		copy(out, DefaultMetrics)
		return out, nil
	}
	var out []Metric
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		m, err := ParseMetric(part)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Aggregation reduces the metric values that fall in one bucket.
type Aggregation string

const (
	AggSum  Aggregation = "sum"
	AggMean Aggregation = "mean"
)

// ParseAggregation validates an aggregation name.
func ParseAggregation(s string) (Aggregation, error) {
	switch a := Aggregation(strings.ToLower(strings.TrimSpace(s))); a {
	case AggSum, AggMean:
		return a, nil
	case "":
		return AggSum, nil
	}
	return "", fmt.Errorf("invalid aggregation %q: must be sum or mean", s)
}
