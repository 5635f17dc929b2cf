package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var transitiveCmd = &cobra.Command{
	Use:   "transitive [service]",
	Short: "Compute transitive dependency closures",
	Long: `Transitive prints, per service, every service reachable through the
resolved dependency graph. With a service argument only that service's
closure is printed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTransitive,
}

func runTransitive(cmd *cobra.Command, args []string) error {
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

	if len(args) == 1 {
		service := args[0]
		if _, ok := g.VertexID(service); !ok {
			return fmt.Errorf("unknown service %q", service)
		}
		reachable := g.ReachableFrom(service)
		fmt.Fprintf(out, "%s -> {%s}\n", service, strings.Join(reachable, ", "))
		return nil
	}

	closure := g.TransitiveClosure()
	services := make([]string, 0, len(closure))
	for name := range closure {
		services = append(services, name)
	}
	sort.Strings(services)

	for _, name := range services {
		fmt.Fprintf(out, "%s -> {%s}\n", name, strings.Join(closure[name], ", "))
	}
	return nil
}
