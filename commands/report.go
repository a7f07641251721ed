package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"engagement-dashboard/services"
)

var reportFlags struct {
	chart   chartFlags
	store   string
	csvPath string
}

func init() {
	fs := reportCmd.Flags()
	reportFlags.chart.register(fs)
	fs.StringVar(&reportFlags.store, "store", "", "backend to read: postgres, sqlite or csv (default STORAGE_BACKEND)")
	fs.StringVar(&reportFlags.csvPath, "csv", "", "CSV file to read with --store csv (default CSV_OUTPUT_PATH)")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report [--store postgres|sqlite|csv]",
	Short: "Prints series and distributions of a previously stored table.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		opts, err := reportFlags.chart.options(cfg, cfg.FetchLimit)
		if err != nil {
			return err
		}

		reader, err := openReader(ctx, cfg, orDefault(reportFlags.store, cfg.StorageBackend), reportFlags.csvPath, logger)
		if err != nil {
			return err
		}
		defer reader.Close()

		table, err := reader.FetchAll()
		if err != nil {
			return fmt.Errorf("report: %w", err)
		}
		logger.Info("Loaded %d stored rows for %d identities", table.Len(), len(table.Handles()))

		insights := services.NewInsightService(logger)
		series, report, err := services.Analyze(table, opts, insights)
		if err != nil {
			return fmt.Errorf("report: %w", err)
		}
		wl, err := loadWatchlist()
		if err != nil {
			return err
		}
		reportFlags.chart.printAnalysis(cmd.OutOrStdout(), series, report, insights, wl.Label)
		return nil
	},
}
