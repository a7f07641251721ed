package services

import (
	"context"
	"errors"
	"fmt"

	"engagement-dashboard/models"
	"engagement-dashboard/utils"
)

// PipelineOptions selects what the dashboard computes from the combined table.
type PipelineOptions struct {
	Period              models.Period
	Metrics             []models.Metric
	Aggregation         models.Aggregation
	DistributionMetrics []models.Metric
	Limit               int
}

// Validate checks the options a caller supplied.
func (o PipelineOptions) Validate() error {
	if o.Limit < 1 {
		return fmt.Errorf("pipeline: limit must be a positive integer, got %d", o.Limit)
	}
	if _, err := models.ParsePeriod(string(o.Period)); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if _, err := models.ParseAggregation(string(o.Aggregation)); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	metrics := make([]models.Metric, 0, len(o.Metrics)+len(o.DistributionMetrics))
	metrics = append(metrics, o.Metrics...)
	for _, m := range append(metrics, o.DistributionMetrics...) {
		if _, err := models.ParseMetric(string(m)); err != nil {
			return fmt.Errorf("pipeline: %w", err)
		}
	}
	return nil
}

// PipelineResult bundles the combined table with everything derived from it.
type PipelineResult struct {
	*CorpusResult
	Series   []*models.Series
	Insights *models.InsightReport
}

// Pipeline runs corpus aggregation followed by analysis.
type Pipeline struct {
	corpus   *Corpus
	insights *InsightService
	opts     PipelineOptions
	logger   *utils.Logger
}

// NewPipeline validates opts and creates a Pipeline.
func NewPipeline(corpus *Corpus, opts PipelineOptions, logger *utils.Logger) (*Pipeline, error) {
	if opts.Aggregation == "" {
		opts.Aggregation = models.AggSum
	}
	if len(opts.Metrics) == 0 {
		opts.Metrics = models.DefaultMetrics
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{
		corpus:   corpus,
		insights: NewInsightService(logger),
		opts:     opts,
		logger:   logger,
	}, nil
}

// Run aggregates handles and analyses the combined table. When every
// identity failed the partial result is returned with ErrNoIdentityLoaded.
func (p *Pipeline) Run(ctx context.Context, handles []string) (*PipelineResult, error) {
	corpusRes, err := p.corpus.Aggregate(ctx, handles, p.opts.Limit)
	if corpusRes == nil {
		return nil, err
	}
	if err != nil && !errors.Is(err, ErrNoIdentityLoaded) {
		return nil, err
	}

	series, insights, aerr := Analyze(corpusRes.Table, p.opts, p.insights)
	if aerr != nil {
		return nil, aerr
	}
	return &PipelineResult{CorpusResult: corpusRes, Series: series, Insights: insights}, err
}

// Analyze derives the series and distributions of an existing table.
func Analyze(t *models.CombinedTable, opts PipelineOptions, insights *InsightService) ([]*models.Series, *models.InsightReport, error) {
	agg := opts.Aggregation
	if agg == "" {
		agg = models.AggSum
	}
	metrics := opts.Metrics
	if len(metrics) == 0 {
		metrics = models.DefaultMetrics
	}

	series := make([]*models.Series, 0, len(metrics))
	for _, m := range metrics {
		s, err := BuildSeries(t, opts.Period, m, agg)
		if err != nil {
			return nil, nil, err
		}
		series = append(series, s)
	}

	report, err := insights.Generate(t, opts.DistributionMetrics)
	if err != nil {
		return nil, nil, err
	}
	return series, report, nil
}
