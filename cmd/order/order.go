package order

import (
	"fmt"
	"strings"

	"github.com/pgviews/pgviews/cmd/util"
	"github.com/pgviews/pgviews/internal/manifest"
	"github.com/pgviews/pgviews/view"
	"github.com/spf13/cobra"
)

var (
	orderManifest    string
	orderConnections []string
	orderLayers      bool
)

var OrderCmd = &cobra.Command{
	Use:          "order",
	Short:        "Print views in creation order",
	Long:         "Print the views of each connection in the order sync creates them. With --layers, views that can be created together share a line.",
	RunE:         runOrder,
	SilenceUsage: true,
	PreRunE:      util.PreRunEWithManifest(&orderManifest),
}

func init() {
	OrderCmd.Flags().StringVar(&orderManifest, "manifest", "", "Path to the view manifest (env: PGVIEWS_MANIFEST)")
	OrderCmd.Flags().StringSliceVar(&orderConnections, "connection", nil, "Only print these connections (default: all)")
	OrderCmd.Flags().BoolVar(&orderLayers, "layers", false, "Group views into dependency layers")
}

func runOrder(cmd *cobra.Command, args []string) error {
	_, reg, err := manifest.LoadRegistry(orderManifest)
	if err != nil {
		return err
	}
	views, err := util.SelectConnections(reg.ByConnection(), orderConnections)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, conn := range util.SortedConnections(views) {
		layers, err := view.Layers(views[conn])
		if err != nil {
			return fmt.Errorf("connection %s: %w", conn, err)
		}

		fmt.Fprintf(out, "%s:\n", conn)
		for i, layer := range layers {
			names := make([]string, len(layer))
			for j, d := range layer {
				names[j] = d.Name()
			}
			if orderLayers {
				fmt.Fprintf(out, "  %d: %s\n", i+1, strings.Join(names, ", "))
				continue
			}
			for _, name := range names {
				fmt.Fprintf(out, "  %s\n", name)
			}
		}
	}
	return nil
}
