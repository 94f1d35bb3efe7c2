package docs

import (
	"fmt"
	"io"
	"os"

	"github.com/pgviews/pgviews/cmd/util"
	"github.com/pgviews/pgviews/internal/docs"
	"github.com/pgviews/pgviews/internal/manifest"
	"github.com/spf13/cobra"
)

var (
	docsManifest    string
	docsConnections []string
	docsOutput      string
)

var DocsCmd = &cobra.Command{
	Use:          "docs",
	Short:        "Document synced views as JSON",
	Long:         "Read the columns of every non-hidden view from the database catalog and write them, with descriptions and dependencies, as JSON.",
	RunE:         runDocs,
	SilenceUsage: true,
	PreRunE:      util.PreRunEWithManifest(&docsManifest),
}

func init() {
	DocsCmd.Flags().StringVar(&docsManifest, "manifest", "", "Path to the view manifest (env: PGVIEWS_MANIFEST)")
	DocsCmd.Flags().StringSliceVar(&docsConnections, "connection", nil, "Only document these connections (default: all)")
	DocsCmd.Flags().StringVar(&docsOutput, "output", "", "Write JSON to this file instead of stdout")
}

func runDocs(cmd *cobra.Command, args []string) error {
	m, reg, err := manifest.LoadRegistry(docsManifest)
	if err != nil {
		return err
	}
	views, err := util.SelectConnections(reg.ByConnection(), docsConnections)
	if err != nil {
		return err
	}

	conns := util.SortedConnections(views)
	dbs, err := m.Connect(cmd.Context(), conns...)
	if err != nil {
		return err
	}
	defer manifest.CloseAll(dbs)

	var all []docs.ViewDoc
	for _, conn := range conns {
		collected, err := docs.Collect(cmd.Context(), dbs[conn], m.Namespace, views[conn])
		if err != nil {
			return fmt.Errorf("connection %s: %w", conn, err)
		}
		all = append(all, collected...)
	}

	var w io.Writer = cmd.OutOrStdout()
	if docsOutput != "" {
		f, err := os.Create(docsOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return docs.WriteJSON(w, all)
}
