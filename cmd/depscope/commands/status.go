package commands

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/moolen/depscope/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show evidence store and reliability statistics",
	RunE:  runStatus,
}

// statsProvider is implemented by both store backends.
type statsProvider interface {
	Stats(ctx context.Context) (*store.Stats, error)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	provider, ok := a.evidence.(statsProvider)
	if !ok {
		return fmt.Errorf("store backend %q does not report statistics", a.cfg.Store.Backend)
	}
	stats, err := provider.Stats(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "backend:  %s\n", a.cfg.Store.Backend)
	fmt.Fprintf(out, "claims:   %d\n", stats.ClaimCount)
	fmt.Fprintf(out, "services: %d\n", stats.ServiceCount)
	fmt.Fprintf(out, "edges:    %d\n", stats.EdgeCount)

	if len(stats.ClaimsBySource) > 0 {
		fmt.Fprintln(out, "\nclaims by source:")
		sources := make([]string, 0, len(stats.ClaimsBySource))
		for s := range stats.ClaimsBySource {
			sources = append(sources, s)
		}
		sort.Strings(sources)

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, s := range sources {
			fmt.Fprintf(w, "  %s\t%d\n", s, stats.ClaimsBySource[s])
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	snapshot := a.tracker.Snapshot()
	if len(snapshot) > 0 {
		sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].Source < snapshot[j].Source })
		fmt.Fprintln(out, "\nsource reliability:")
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, s := range snapshot {
			fmt.Fprintf(w, "  %s\t%.3f\t(%d/%d correct)\n", s.Source, s.Score, s.CorrectCount, s.ClaimCount)
		}
		return w.Flush()
	}
	return nil
}
