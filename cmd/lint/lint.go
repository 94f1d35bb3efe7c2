package lint

import (
	"fmt"

	"github.com/pgviews/pgviews/cmd/util"
	"github.com/pgviews/pgviews/internal/color"
	"github.com/pgviews/pgviews/internal/manifest"
	"github.com/pgviews/pgviews/internal/sqlcheck"
	"github.com/pgviews/pgviews/view"
	"github.com/spf13/cobra"
)

var (
	lintManifest string
	lintNoColor  bool
)

var LintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Check view definitions without connecting",
	Long: `Parse every view body and check that it is a single SELECT statement, that
every relation it reads from the view schema is a declared dependency, and
that the views of each connection can be ordered.`,
	RunE:         runLint,
	SilenceUsage: true,
	PreRunE:      util.PreRunEWithManifest(&lintManifest),
}

func init() {
	LintCmd.Flags().StringVar(&lintManifest, "manifest", "", "Path to the view manifest (env: PGVIEWS_MANIFEST)")
	LintCmd.Flags().BoolVar(&lintNoColor, "no-color", false, "Disable colored output")
}

func runLint(cmd *cobra.Command, args []string) error {
	m, reg, err := manifest.LoadRegistry(lintManifest)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	c := color.New(!lintNoColor)
	views := reg.ByConnection()
	problems := 0

	for _, conn := range util.SortedConnections(views) {
		if _, err := view.Sort(views[conn]); err != nil {
			fmt.Fprintf(out, "%s %s: %v\n", c.Failure("error:"), conn, err)
			problems++
		}

		for _, d := range views[conn] {
			result, err := sqlcheck.Check(d, m.Namespace)
			if err != nil {
				fmt.Fprintf(out, "%s %s/%s: %v\n", c.Failure("error:"), conn, d.Name(), err)
				problems++
				continue
			}
			for _, rel := range result.Undeclared {
				fmt.Fprintf(out, "%s %s/%s: reads %s.%s without declaring it as a dependency\n",
					c.Warning("warning:"), conn, d.Name(), m.Namespace, rel)
				problems++
			}
		}
	}

	if problems > 0 {
		return fmt.Errorf("found %d problems in %d views", problems, reg.Len())
	}
	fmt.Fprintf(out, "%s %d views OK\n", c.StatusSymbol(true), reg.Len())
	return nil
}
