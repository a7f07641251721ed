package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"engagement-dashboard/config"
)

func init() {
	rootCmd.AddCommand(watchlistCmd)
}

func loadWatchlist() (*config.Watchlist, error) {
	return config.LoadWatchlist(cfg.WatchlistPath)
}

var watchlistCmd = &cobra.Command{
	Use:   "watchlist",
	Short: "Lists the configured identities; selected ones are loaded by default.",
	RunE: func(cmd *cobra.Command, args []string) error {
		wl, err := loadWatchlist()
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"Handle", "Label", "Default"})
		for _, id := range wl.Identities {
			mark := ""
			if id.Selected {
				mark = "✓"
			}
			t.AppendRow(table.Row{"@" + id.Handle, id.Label, mark})
		}
		t.Render()
		return nil
	},
}
