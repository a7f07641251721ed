package models

import "time"

// LoadState describes how much of an identity's data made it into the table.
type LoadState string

const (
	LoadLoaded  LoadState = "loaded"
	LoadPartial LoadState = "partial"
	LoadEmpty   LoadState = "empty"
	LoadFailed  LoadState = "failed"
)

// LoadStatus is reported once per requested identity.
type LoadStatus struct {
	Handle   string
	State    LoadState
	Posts    int
	Err      error
	Duration time.Duration
}

// SeriesPoint is one (identity, period bucket) cell of a chart series.
type SeriesPoint struct {
	Handle    string
	Bucket    time.Time
	Label     string
	Value     float64
	Count     int
	Undefined int
}

// Series is a chart-ready metric over time for every identity.
type Series struct {
	Metric      Metric
	Period      Period
	Aggregation Aggregation
	Points      []SeriesPoint
}

// Distribution summarises one metric for one identity (box plot numbers).
type Distribution struct {
	Handle    string
	Metric    Metric
	Count     int
	Undefined int
	Min       float64
	Q1        float64
	Median    float64
	Q3        float64
	Max       float64
	Mean      float64
}

// InsightReport holds the per-identity distributions of the combined table.
type InsightReport struct {
	TotalPosts    int
	Identities    int
	Distributions []Distribution
}
