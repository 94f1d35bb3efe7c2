package cmd

import (
	"fmt"
	"os"

	"github.com/pgviews/pgviews/cmd/docs"
	"github.com/pgviews/pgviews/cmd/lint"
	"github.com/pgviews/pgviews/cmd/order"
	"github.com/pgviews/pgviews/cmd/refresh"
	"github.com/pgviews/pgviews/cmd/sync"
	"github.com/pgviews/pgviews/internal/logger"
	"github.com/pgviews/pgviews/internal/version"
	"github.com/spf13/cobra"
)

var Debug bool

var RootCmd = &cobra.Command{
	Use:   "pgviews",
	Short: "PostgreSQL derived view manager",
	Long: fmt.Sprintf(`pgviews recreates SQL views and materialized views in dependency order.

Version: %s

Commands:
  sync     Drop and recreate every view
  refresh  Refresh materialized views
  order    Print views in creation order
  lint     Check view definitions without connecting
  docs     Document synced views as JSON

Use "pgviews [command] --help" for more information about a command.`, version.String()),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Setup(Debug)
	},
}

func init() {
	RootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "Enable debug logging")
	RootCmd.AddCommand(sync.SyncCmd)
	RootCmd.AddCommand(refresh.RefreshCmd)
	RootCmd.AddCommand(order.OrderCmd)
	RootCmd.AddCommand(lint.LintCmd)
	RootCmd.AddCommand(docs.DocsCmd)
	RootCmd.AddCommand(VersionCmd)
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
