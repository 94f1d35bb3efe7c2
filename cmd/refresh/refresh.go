package refresh

import (
	"fmt"

	"github.com/pgviews/pgviews/cmd/util"
	"github.com/pgviews/pgviews/internal/manifest"
	"github.com/pgviews/pgviews/internal/refresh"
	"github.com/pgviews/pgviews/view"
	"github.com/spf13/cobra"
)

var (
	refreshManifest     string
	refreshViews        []string
	refreshConnection   string
	refreshConcurrently bool
	refreshAll          bool
)

var RefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh materialized views",
	Long: `Refresh one or more materialized views created by sync. With --all every
materialized view on the connection is refreshed, upstream views first.
--concurrently keeps the view readable during the refresh and requires a
primary_key on the view.`,
	RunE:         runRefresh,
	SilenceUsage: true,
	PreRunE:      util.PreRunEWithManifest(&refreshManifest),
}

func init() {
	RefreshCmd.Flags().StringVar(&refreshManifest, "manifest", "", "Path to the view manifest (env: PGVIEWS_MANIFEST)")
	RefreshCmd.Flags().StringSliceVar(&refreshViews, "view", nil, "Name of a materialized view to refresh (repeatable)")
	RefreshCmd.Flags().StringVar(&refreshConnection, "connection", view.DefaultConnection, "Connection the views live on")
	RefreshCmd.Flags().BoolVar(&refreshConcurrently, "concurrently", false, "Refresh without locking out readers")
	RefreshCmd.Flags().BoolVar(&refreshAll, "all", false, "Refresh every materialized view on the connection")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	if refreshAll == (len(refreshViews) > 0) {
		return fmt.Errorf("exactly one of --view and --all is required")
	}

	m, reg, err := manifest.LoadRegistry(refreshManifest)
	if err != nil {
		return err
	}

	r := refresh.New(m.Namespace)

	// Resolve and check every view before connecting, so a typo or a
	// concurrent refresh of an unkeyed view never opens a connection.
	var targets []*view.Descriptor
	if refreshAll {
		targets, err = r.Targets(reg.ByConnection()[refreshConnection], refreshConcurrently)
		if err != nil {
			return fmt.Errorf("connection %s: %w", refreshConnection, err)
		}
	}
	for _, name := range refreshViews {
		d, ok := reg.Lookup(view.Ref{Connection: refreshConnection, Name: name})
		if !ok {
			return fmt.Errorf("view %q is not declared on connection %q", name, refreshConnection)
		}
		if _, err := d.RefreshSQL(m.Namespace, refreshConcurrently); err != nil {
			return err
		}
		targets = append(targets, d)
	}

	dbs, err := m.Connect(cmd.Context(), refreshConnection)
	if err != nil {
		return err
	}
	defer manifest.CloseAll(dbs)
	db := dbs[refreshConnection]

	out := cmd.OutOrStdout()
	for _, d := range targets {
		if err := r.Refresh(cmd.Context(), db, d, refreshConcurrently); err != nil {
			return err
		}
		if !refreshAll {
			fmt.Fprintf(out, "Refreshed %s\n", d.QualifiedName(m.Namespace))
		}
	}
	if refreshAll {
		fmt.Fprintf(out, "Refreshed %d materialized views on %s\n", len(targets), refreshConnection)
	}
	return nil
}
