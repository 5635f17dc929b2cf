package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moolen/depscope/internal/export"
)

var (
	exportFormat string
	exportStdout bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the resolved graph as a GraphML or JSON snapshot",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", string(export.FormatGraphML),
		"Snapshot format: graphml or json")
	exportCmd.Flags().BoolVar(&exportStdout, "stdout", false,
		"Write to stdout instead of the snapshot directory")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	g, err := a.resolveGraph(ctx)
	if err != nil {
		return err
	}

	exporter := export.NewExporter(a.cfg.Snapshot.Dir)
	format := export.Format(exportFormat)

	if exportStdout {
		return exporter.Write(cmd.OutOrStdout(), g, format)
	}

	path, err := exporter.Snapshot(g, format)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
