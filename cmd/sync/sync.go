package sync

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pgviews/pgviews/cmd/util"
	"github.com/pgviews/pgviews/internal/color"
	"github.com/pgviews/pgviews/internal/fingerprint"
	"github.com/pgviews/pgviews/internal/logger"
	"github.com/pgviews/pgviews/internal/manifest"
	"github.com/pgviews/pgviews/internal/sqlcheck"
	"github.com/pgviews/pgviews/internal/synchronizer"
	"github.com/pgviews/pgviews/view"
	"github.com/spf13/cobra"
)

var (
	syncManifest          string
	syncGrantTo           string
	syncConnections       []string
	syncDryRun            bool
	syncConcurrency       int
	syncExpectFingerprint string
	syncSkipLint          bool
	syncNoColor           bool
)

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Drop and recreate every view",
	Long: `Drop the view schema on each connection and recreate every view declared in
the manifest, in dependency order, inside one transaction per connection.
A failure rolls back that connection only; other connections still commit.`,
	RunE:         runSync,
	SilenceUsage: true,
	PreRunE:      util.PreRunEWithManifest(&syncManifest),
}

func init() {
	SyncCmd.Flags().StringVar(&syncManifest, "manifest", "", "Path to the view manifest (env: PGVIEWS_MANIFEST)")
	SyncCmd.Flags().StringVar(&syncGrantTo, "grant-select-to", "", "Role granted USAGE on the schema and SELECT on every non-hidden view (overrides grant_to)")
	SyncCmd.Flags().StringSliceVar(&syncConnections, "connection", nil, "Only sync these connections (default: all)")
	SyncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Print the statements and fingerprint without connecting")
	SyncCmd.Flags().IntVar(&syncConcurrency, "concurrency", 0, "Connections synced at once (default: all)")
	SyncCmd.Flags().StringVar(&syncExpectFingerprint, "expect-fingerprint", "", "Abort unless the planned DDL matches this fingerprint (single connection only)")
	SyncCmd.Flags().BoolVar(&syncSkipLint, "skip-lint", false, "Do not warn about undeclared dependencies")
	SyncCmd.Flags().BoolVar(&syncNoColor, "no-color", false, "Disable colored output")
}

func runSync(cmd *cobra.Command, args []string) error {
	log := logger.For("sync")
	out := cmd.OutOrStdout()
	c := color.New(!syncNoColor)

	m, reg, err := manifest.LoadRegistry(syncManifest)
	if err != nil {
		return err
	}

	grantTo := m.GrantTo
	if cmd.Flags().Changed("grant-select-to") {
		grantTo = syncGrantTo
	}

	views, err := util.SelectConnections(reg.ByConnection(), syncConnections)
	if err != nil {
		return err
	}

	if !syncSkipLint {
		warnUndeclared(out, c, views, m.Namespace)
	}

	s := synchronizer.New(synchronizer.Options{
		Namespace:   m.Namespace,
		GrantTo:     grantTo,
		Concurrency: syncConcurrency,
	})

	if syncExpectFingerprint != "" {
		if err := checkFingerprint(s, views, syncExpectFingerprint); err != nil {
			return err
		}
	}

	if syncDryRun {
		return printPlan(out, c, s, views)
	}

	// A connection whose views cannot be ordered, or that cannot be reached,
	// fails on its own. The rest still sync.
	var errs []error
	ready := make(map[string][]*view.Descriptor, len(views))
	for _, conn := range util.SortedConnections(views) {
		if _, err := s.Plan(views[conn]); err != nil {
			fmt.Fprintf(out, "%s %s: %v\n", c.StatusSymbol(false), conn, err)
			errs = append(errs, fmt.Errorf("connection %s: %w", conn, err))
			continue
		}
		ready[conn] = views[conn]
	}

	conns := make(map[string]synchronizer.Conn, len(ready))
	for _, conn := range util.SortedConnections(ready) {
		dbs, err := m.Connect(cmd.Context(), conn)
		if err != nil {
			fmt.Fprintf(out, "%s %s: %v\n", c.StatusSymbol(false), conn, err)
			errs = append(errs, err)
			delete(ready, conn)
			continue
		}
		defer manifest.CloseAll(dbs)
		conns[conn] = synchronizer.WrapDB(dbs[conn])
	}
	if len(ready) == 0 {
		return errors.Join(errs...)
	}

	log.Debug("Starting sync", "manifest", syncManifest, "connections", len(conns))
	summary, err := s.Sync(cmd.Context(), conns, ready)
	printSummary(out, c, summary)
	if err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func warnUndeclared(out io.Writer, c *color.Color, views map[string][]*view.Descriptor, namespace string) {
	log := logger.For("lint")
	for _, conn := range util.SortedConnections(views) {
		for _, d := range views[conn] {
			result, err := sqlcheck.Check(d, namespace)
			if err != nil {
				log.Warn("Could not lint view", "view", d.Name(), "error", err)
				continue
			}
			for _, rel := range result.Undeclared {
				fmt.Fprintf(out, "%s view %s reads %s.%s without declaring it as a dependency\n",
					c.Warning("warning:"), d.Name(), namespace, rel)
			}
		}
	}
}

func checkFingerprint(s *synchronizer.Synchronizer, views map[string][]*view.Descriptor, expected string) error {
	if len(views) != 1 {
		return fmt.Errorf("--expect-fingerprint needs exactly one connection, got %d (use --connection)", len(views))
	}
	for _, group := range views {
		stmts, err := s.Plan(group)
		if err != nil {
			return err
		}
		fp, err := fingerprint.Compute(stmts)
		if err != nil {
			return err
		}
		if err := fingerprint.Compare(expected, fp); err != nil {
			return err
		}
	}
	return nil
}

func printPlan(out io.Writer, c *color.Color, s *synchronizer.Synchronizer, views map[string][]*view.Descriptor) error {
	for _, conn := range util.SortedConnections(views) {
		stmts, err := s.Plan(views[conn])
		if err != nil {
			return fmt.Errorf("connection %s: %w", conn, err)
		}
		fp, err := fingerprint.Compute(stmts)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "%s\n", c.Bold(fmt.Sprintf("-- connection: %s (%s)", conn, fp)))
		for _, stmt := range stmts {
			fmt.Fprintln(out, stmt.SQL)
			if len(stmt.Args) > 0 {
				fmt.Fprintf(out, "%s\n", c.Cyan(fmt.Sprintf("-- params: %v", stmt.Args)))
			}
		}
		fmt.Fprintln(out)
	}
	return nil
}

func printSummary(out io.Writer, c *color.Color, summary *synchronizer.Summary) {
	if summary == nil {
		return
	}
	for _, r := range summary.Results {
		if r.Err != nil {
			fmt.Fprintf(out, "%s %s: %v\n", c.StatusSymbol(false), r.Connection, r.Err)
			continue
		}
		fmt.Fprintf(out, "%s %s: %d views (fingerprint %s, %s)\n",
			c.StatusSymbol(true), r.Connection, r.Views, r.Fingerprint.Short(), r.Duration.Round(time.Millisecond))
	}
}
