package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"engagement-dashboard/config"
	"engagement-dashboard/models"
	"engagement-dashboard/scraper"
	"engagement-dashboard/scraper/archive"
	"engagement-dashboard/scraper/twitter"
	"engagement-dashboard/services"
	"engagement-dashboard/storage"
	"engagement-dashboard/utils"
)

// newFetcher builds the fetch chain: source, retries, then cache.
func newFetcher(cfg *config.Config, logger *utils.Logger) (*services.FetchCache, string) {
	var source scraper.Fetcher
	name := "twitter"
	if cfg.ArchiveDir != "" {
		source = archive.New(cfg.ArchiveDir, logger)
		name = "archive " + cfg.ArchiveDir
	} else {
		source = twitter.New(cfg, logger)
	}

	retrying := scraper.NewRetryingFetcher(source, cfg.MaxRetries, cfg.RetryBaseDelay, logger)
	return services.NewFetchCache(retrying, cfg.CacheSize, cfg.CacheTTL, logger), name
}

// openStore opens the named backend. It returns nil for "none".
func openStore(ctx context.Context, cfg *config.Config, backend string, logger *utils.Logger) (storage.Store, error) {
	switch backend {
	case "", "none":
		return nil, nil
	case "postgres":
		return storage.NewPostgresWriter(ctx, cfg.DSN(), logger)
	case "sqlite":
		return storage.NewSQLiteWriter(cfg.SQLitePath)
	}
	return nil, fmt.Errorf("unknown storage backend %q (want none, postgres or sqlite)", backend)
}

// openReader opens a backend for reading a stored table.
func openReader(ctx context.Context, cfg *config.Config, backend, csvPath string, logger *utils.Logger) (storage.TableReader, error) {
	if backend == "csv" {
		if csvPath == "" {
			csvPath = cfg.CSVOutputPath
		}
		if csvPath == "" {
			return nil, fmt.Errorf("csv backend needs --csv or CSV_OUTPUT_PATH")
		}
		return storage.NewCSVReader(csvPath), nil
	}
	store, err := openStore(ctx, cfg, backend, logger)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("report needs a storage backend (postgres, sqlite or csv)")
	}
	return store, nil
}

// chartFlags are the period/metric/aggregation selectors shared by commands.
// Empty values fall back to the configuration.
type chartFlags struct {
	period  string
	metrics string
	agg     string
	smooth  int
}

func (f *chartFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.period, "period", "", "bucket size: date, week or month (default CHART_PERIOD)")
	fs.StringVar(&f.metrics, "metrics", "", "comma-separated metric columns (default CHART_METRICS or all)")
	fs.StringVar(&f.agg, "agg", "", "aggregation per bucket: sum or mean (default CHART_AGGREGATION)")
	fs.IntVar(&f.smooth, "smooth", 0, "trailing rolling-mean window applied to printed series")
}

func (f *chartFlags) options(cfg *config.Config, limit int) (services.PipelineOptions, error) {
	period, err := models.ParsePeriod(orDefault(f.period, cfg.ChartPeriod))
	if err != nil {
		return services.PipelineOptions{}, err
	}
	metrics, err := models.ParseMetrics(orDefault(f.metrics, cfg.ChartMetrics))
	if err != nil {
		return services.PipelineOptions{}, err
	}
	agg, err := models.ParseAggregation(orDefault(f.agg, cfg.ChartAgg))
	if err != nil {
		return services.PipelineOptions{}, err
	}
	return services.PipelineOptions{
		Period:              period,
		Metrics:             metrics,
		Aggregation:         agg,
		DistributionMetrics: services.DefaultDistributionMetrics,
		Limit:               limit,
	}, nil
}

// printAnalysis writes every series followed by the distribution tables.
func (f *chartFlags) printAnalysis(w io.Writer, series []*models.Series, report *models.InsightReport, insights *services.InsightService, label services.Labeler) {
	for _, s := range series {
		if f.smooth > 1 {
			smoothed := *s
			smoothed.Points = services.RollingMean(s.Points, f.smooth)
			s = &smoothed
		}
		services.PrintSeries(w, s, label)
		fmt.Fprintln(w)
	}
	insights.Print(w, report)
}

func orDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
