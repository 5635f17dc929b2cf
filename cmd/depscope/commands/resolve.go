package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve conflicting evidence into the dependency graph",
	Long: `Resolve groups all stored claims by directed edge, picks one winning
claim per edge by weighted scoring (confidence, source priority,
reliability, corroboration, recency), and prints the resulting graph.`,
	RunE: runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
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

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d services, %d edges\n\n", g.VertexCount(), g.EdgeCount())

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FROM\tTO\tTYPE\tCONFIDENCE\tBAND\tSOURCE")
	for _, claim := range g.Edges() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\t%s\n",
			claim.FromService, claim.ToService, claim.DependencyType,
			claim.Confidence, claim.Band(), claim.Source)
	}
	return w.Flush()
}
