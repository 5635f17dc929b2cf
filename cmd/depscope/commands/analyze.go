package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/moolen/depscope/internal/analytics"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run analytics on the resolved dependency graph",
}

var criticalityCmd = &cobra.Command{
	Use:   "criticality",
	Short: "Rank services by composite criticality",
	Long: `Criticality combines betweenness centrality, PageRank, degree
centrality, and incident edge confidence into one score per service.`,
	RunE: runCriticality,
}

var topologyCmd = &cobra.Command{
	Use:   "topology",
	Short: "Print graph-level topology metrics",
	RunE:  runTopology,
}

var bottlenecksCmd = &cobra.Command{
	Use:   "bottlenecks",
	Short: "Find high-betweenness, high-fan-in services",
	RunE:  runBottlenecks,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Score each edge's evidence health",
	RunE:  runHealth,
}

var impactCmd = &cobra.Command{
	Use:   "impact <service>",
	Short: "Estimate the cascade impact of a service failure",
	Long: `Impact lists the services directly depending on the given service and
those transitively affected upstream if it fails.`,
	Args: cobra.ExactArgs(1),
	RunE: runImpact,
}

func init() {
	analyzeCmd.AddCommand(criticalityCmd)
	analyzeCmd.AddCommand(topologyCmd)
	analyzeCmd.AddCommand(bottlenecksCmd)
	analyzeCmd.AddCommand(healthCmd)
	analyzeCmd.AddCommand(impactCmd)
}

func runCriticality(cmd *cobra.Command, args []string) error {
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

	scores := analytics.NewAnalyzer().Criticality(g)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tSCORE\tBETWEENNESS\tPAGERANK\tDEGREE\tAVG CONFIDENCE")
	for _, s := range scores {
		fmt.Fprintf(w, "%s\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\n",
			s.Service, s.Score, s.Betweenness, s.PageRank, s.DegreeCentrality, s.AvgConfidence)
	}
	return w.Flush()
}

func runTopology(cmd *cobra.Command, args []string) error {
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

	topo := analytics.NewAnalyzer().Topology(g)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "services:               %d\n", topo.Services)
	fmt.Fprintf(out, "edges:                  %d\n", topo.Edges)
	fmt.Fprintf(out, "density:                %.4f\n", topo.Density)
	fmt.Fprintf(out, "clustering coefficient: %.4f\n", topo.ClusteringCoefficient)
	fmt.Fprintf(out, "diameter:               %d\n", topo.Diameter)
	return nil
}

func runBottlenecks(cmd *cobra.Command, args []string) error {
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

	bottlenecks := analytics.NewAnalyzer().Bottlenecks(g)
	if len(bottlenecks) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no bottlenecks detected")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tRISK\tBETWEENNESS\tIN-DEGREE")
	for _, b := range bottlenecks {
		fmt.Fprintf(w, "%s\t%s\t%.3f\t%d\n",
			b.Service, b.Risk, b.Betweenness, b.InDegree)
	}
	return w.Flush()
}

func runHealth(cmd *cobra.Command, args []string) error {
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

	health, err := analytics.NewAnalyzer().Health(ctx, g, a.evidence, a.tracker)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EDGE\tSTATUS\tSCORE\tMEAN CONF\tCONSISTENCY\tRELIABILITY\tCLAIMS")
	for _, h := range health {
		fmt.Fprintf(w, "%s->%s\t%s\t%.3f\t%.3f\t%.3f\t%.3f\t%d\n",
			h.From, h.To, h.Status, h.Score, h.MeanConfidence,
			h.Consistency, h.Reliability, h.ClaimCount)
	}
	return w.Flush()
}

func runImpact(cmd *cobra.Command, args []string) error {
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

	service := args[0]
	if _, ok := g.VertexID(service); !ok {
		return fmt.Errorf("unknown service %q", service)
	}

	impact := analytics.NewAnalyzer().Impact(g, service)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "failure impact of %s:\n", service)
	fmt.Fprintf(out, "  direct:   {%s}\n", strings.Join(impact.Direct, ", "))
	fmt.Fprintf(out, "  indirect: {%s}\n", strings.Join(impact.Indirect, ", "))
	fmt.Fprintf(out, "  total:    %d services\n", impact.Total)
	return nil
}
