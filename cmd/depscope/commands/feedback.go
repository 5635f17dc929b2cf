package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback <source> <correct|incorrect>",
	Short: "Record operator feedback on a source's accuracy",
	Long: `Feedback updates the per-source reliability score used by conflict
resolution: reliability = correct observations / total observations.
The counters persist in the snapshot directory across runs.`,
	Args: cobra.ExactArgs(2),
	RunE: runFeedback,
}

func runFeedback(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	source := args[0]
	var correct bool
	switch args[1] {
	case "correct":
		correct = true
	case "incorrect":
		correct = false
	default:
		return fmt.Errorf("verdict must be %q or %q, got %q", "correct", "incorrect", args[1])
	}

	a.tracker.Update(source, correct)
	if err := a.persistTracker(); err != nil {
		return fmt.Errorf("persisting reliability state: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s reliability is now %.3f\n", source, a.tracker.Score(source))
	return nil
}
