package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"engagement-dashboard/models"
	"engagement-dashboard/scraper"
	"engagement-dashboard/scraper/archive"
	"engagement-dashboard/services"
	"engagement-dashboard/storage"
	"engagement-dashboard/utils"
)

var loadFlags struct {
	chart     chartFlags
	handles   []string
	limit     int
	csvPath   string
	store     string
	snapshots string
	every     time.Duration
	refresh   []string
}

func init() {
	fs := loadCmd.Flags()
	loadFlags.chart.register(fs)
	fs.StringSliceVar(&loadFlags.handles, "handles", nil, "identities to load (default: watchlist selection)")
	fs.IntVar(&loadFlags.limit, "limit", 0, "maximum posts per identity (default FETCH_LIMIT)")
	fs.StringVar(&loadFlags.csvPath, "csv", "", "write the combined table to this CSV file (default CSV_OUTPUT_PATH)")
	fs.StringVar(&loadFlags.store, "store", "", "persist the combined table: none, postgres or sqlite (default STORAGE_BACKEND)")
	fs.StringVar(&loadFlags.snapshots, "save-archive", "", "save fetched posts as JSONL snapshots in this directory")
	fs.DurationVar(&loadFlags.every, "every", 0, "reload on this interval until interrupted")
	fs.StringSliceVar(&loadFlags.refresh, "refresh", nil, "identities refetched on every reload instead of served from cache (\"all\" for every one)")
	rootCmd.AddCommand(loadCmd)
}

var loadCmd = &cobra.Command{
	Use:   "load [--handles a,b] [--limit N] [--period date|week|month]",
	Short: "Fetches the selected identities and prints their engagement series.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		wl, err := loadWatchlist()
		if err != nil {
			return err
		}
		handles := loadFlags.handles
		if len(handles) == 0 {
			handles = wl.Selected()
		}

		limit := loadFlags.limit
		if limit == 0 {
			limit = cfg.FetchLimit
		}
		opts, err := loadFlags.chart.options(cfg, limit)
		if err != nil {
			return err
		}

		fetcher, source := newFetcher(cfg, logger)
		corpus := services.NewCorpus(fetcher, logger, services.WithConcurrency(cfg.MaxConcurrency, cfg.RateLimitMs))
		pipeline, err := services.NewPipeline(corpus, opts, logger)
		if err != nil {
			return err
		}

		store, err := openStore(ctx, cfg, orDefault(loadFlags.store, cfg.StorageBackend), logger)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}

		logger.Info("=== Engagement dashboard: %d identities from %s ===", len(handles), source)
		logger.Info("Config: limit %d | period %s | agg %s | concurrency %d | rate %dms",
			limit, opts.Period, opts.Aggregation, cfg.MaxConcurrency, cfg.RateLimitMs)

		for round := 1; ; round++ {
			if round > 1 {
				refreshCache(fetcher, handles)
			}

			err := runLoad(ctx, cmd, pipeline, handles, store, wl.Label)
			switch {
			case err == nil:
			case loadFlags.every > 0 && ctx.Err() != nil:
				return nil
			case loadFlags.every > 0 && errors.Is(err, services.ErrNoIdentityLoaded):
				logger.Warn("Round %d loaded no identity, retrying on the next tick", round)
			default:
				return err
			}
			if loadFlags.every <= 0 {
				return nil
			}

			hits, misses := fetcher.Stats()
			logger.Info("Next reload in %v (cache: %d entries, %d hits, %d misses)",
				loadFlags.every, fetcher.Len(), hits, misses)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(loadFlags.every):
			}
		}
	},
}

// refreshCache drops the cached results named by --refresh before a reload.
func refreshCache(fetcher *services.FetchCache, handles []string) {
	refresh := utils.NewHandleSet()
	for _, h := range loadFlags.refresh {
		refresh.Add(scraper.NormalizeHandle(h))
	}
	if refresh.Size() == 0 {
		return
	}
	if refresh.Contains("all") {
		logger.Info("Refreshing every identity (%d cached results dropped)", fetcher.Purge())
		return
	}
	for _, h := range handles {
		h = scraper.NormalizeHandle(h)
		if refresh.Contains(h) {
			logger.Info("Refreshing %s (%d cached results dropped)", h, fetcher.Invalidate(h))
		}
	}
}

func runLoad(ctx context.Context, cmd *cobra.Command, pipeline *services.Pipeline, handles []string, store storage.Store, label services.Labeler) error {
	res, err := pipeline.Run(ctx, handles)
	if res == nil {
		return err
	}
	out := cmd.OutOrStdout()

	services.PrintStatuses(out, res.Statuses, label)
	fmt.Fprintln(out)
	if errors.Is(err, services.ErrNoIdentityLoaded) {
		logger.Error("No identity could be loaded, nothing to report")
		return err
	}

	if path := orDefault(loadFlags.csvPath, cfg.CSVOutputPath); path != "" {
		if err := writeCSV(path, res.Table); err != nil {
			logger.Error("CSV write failed: %v", err)
		} else {
			logger.Info("Combined table saved to %s", path)
		}
	}

	if store != nil {
		if err := store.Write(res.Table); err != nil {
			logger.Error("Storage write failed: %v", err)
		} else {
			logger.Info("Combined table stored (%d rows)", res.Table.Len())
		}
	}

	if loadFlags.snapshots != "" {
		saveSnapshots(loadFlags.snapshots, res.Table)
	}

	loadFlags.chart.printAnalysis(out, res.Series, res.Insights, services.NewInsightService(logger), label)
	return nil
}

func writeCSV(path string, table *models.CombinedTable) error {
	w, err := storage.NewCSVWriter(path)
	if err != nil {
		return err
	}
	if err := w.Write(table); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// saveSnapshots writes one archive snapshot per identity so later runs can
// replay them with ARCHIVE_DIR.
func saveSnapshots(dir string, table *models.CombinedTable) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Error("Snapshot dir: %v", err)
		return
	}
	arch := archive.New(dir, logger)

	byHandle := make(map[string][]*models.RawPost)
	for _, r := range table.Rows {
		raw := r.RawPost
		byHandle[r.Handle] = append(byHandle[r.Handle], &raw)
	}
	for _, h := range table.Handles() {
		if err := arch.Save(h, byHandle[h]); err != nil {
			logger.Error("Snapshot %s: %v", h, err)
			continue
		}
		logger.Info("Snapshot saved: %s", arch.Path(h))
	}
}
