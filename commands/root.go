package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"engagement-dashboard/config"
	"engagement-dashboard/utils"
)

var rootCmd = &cobra.Command{
	Use:   "engagement",
	Short: "engagement scrapes public profiles and reports per-post engagement metrics.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		logger = utils.NewLogger()
	},
	SilenceUsage: true,
}

var (
	cfg    *config.Config
	logger *utils.Logger
)

// ExecuteContext runs the root command, exiting with status 1 on error.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
