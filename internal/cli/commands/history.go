package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/leapstack-labs/layerlint/internal/cli/output"
	"github.com/leapstack-labs/layerlint/internal/state"
	"github.com/spf13/cobra"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit int // Maximum runs to list
	Prune int // Keep only this many most recent runs; 0 disables pruning
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded analysis runs",
		Long: `List runs stored with 'layerlint analyse --record', newest first.

Use --prune to drop old runs and their violations.`,
		Example: `  # Last 20 runs
  layerlint history

  # Keep only the 5 most recent runs
  layerlint history --prune 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd.Context(), NewCommandContext(cmd), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.Flags().IntVar(&opts.Prune, "prune", 0, "Delete all but the N most recent runs")

	return cmd
}

func runHistory(ctx context.Context, cc *CommandContext, opts *HistoryOptions) error {
	store, err := openStore(cc.Cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	r := cc.Renderer
	if opts.Prune > 0 {
		removed, err := store.PruneRuns(ctx, opts.Prune)
		if err != nil {
			return err
		}
		cc.Logger.Info("pruned runs", "removed", removed, "kept", opts.Prune)
		if r.EffectiveMode() != output.ModeJSON {
			r.Success(fmt.Sprintf("Removed %d runs", removed))
		}
	}

	runs, err := store.ListRuns(ctx, opts.Limit)
	if err != nil {
		return err
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		if runs == nil {
			runs = []*state.Run{}
		}
		return r.JSON(runs)
	case output.ModeMarkdown:
		r.Println("# Run History")
		r.Println("")
	}

	if len(runs) == 0 {
		r.Println("No recorded runs.")
		return nil
	}
	rows := make([][]string, len(runs))
	for i, run := range runs {
		rows[i] = []string{
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			run.Duration.String(),
			strconv.Itoa(run.Entities),
			strconv.Itoa(run.Edges),
			strconv.Itoa(run.Violations),
			strconv.Itoa(run.Skipped),
		}
	}
	r.Table([]string{"Run", "Started", "Duration", "Entities", "Edges", "Violations", "Skipped"}, rows)
	return nil
}
