package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leapstack-labs/layerlint/internal/cli/config"
	"github.com/leapstack-labs/layerlint/internal/cli/output"
	"github.com/leapstack-labs/layerlint/internal/state"
	"github.com/leapstack-labs/layerlint/internal/watch"
	"github.com/leapstack-labs/layerlint/pkg/analysis"
	"github.com/leapstack-labs/layerlint/pkg/core"
	"github.com/leapstack-labs/layerlint/pkg/ruleset"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrViolationsFound is returned by analyse when violations are reported
// and --fail-on-violation is set.
var ErrViolationsFound = errors.New("violations found")

// AnalyseOptions holds options for the analyse command.
type AnalyseOptions struct {
	Baseline        bool // Report only violations absent from the last recorded run
	Record          bool // Store this run in the state database
	Watch           bool // Re-run when the depfile or graph changes
	FailOnViolation bool // Return an error when violations are reported
	ShowSkipped     bool // List violations suppressed by skip_violations
}

// NewAnalyseCommand creates the analyse command.
func NewAnalyseCommand() *cobra.Command {
	opts := &AnalyseOptions{}
	cmd := &cobra.Command{
		Use:     "analyse",
		Aliases: []string{"analyze"},
		Short:   "Check dependencies against the layer ruleset",
		Long: `Resolve layer membership for every entity in the graph and report each
dependency whose layers the ruleset does not allow.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Analyse using ./layerlint.yaml and ./graph.yaml
  layerlint analyse

  # Only fail on violations introduced since the last recorded run
  layerlint analyse --baseline --record

  # Re-run whenever the depfile or graph changes
  layerlint analyse --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContext(cmd)
			if opts.Watch {
				return watchAnalyse(cmd.Context(), cc, opts)
			}
			return runAnalyse(cmd.Context(), cc, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Baseline, "baseline", false, "Report only violations not present in the last recorded run")
	cmd.Flags().BoolVar(&opts.Record, "record", false, "Record this run in the state database")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-run when the depfile or graph file changes")
	cmd.Flags().BoolVar(&opts.FailOnViolation, "fail-on-violation", true, "Exit with an error when violations are reported")
	cmd.Flags().BoolVar(&opts.ShowSkipped, "show-skipped", false, "List violations suppressed by skip_violations")

	return cmd
}

// AnalyseJSONOutput is the JSON output structure for analyse.
type AnalyseJSONOutput struct {
	Violations     []core.Violation      `json:"violations"`
	Skipped        []core.Violation      `json:"skipped,omitempty"`
	UnmatchedSkips []core.DependencyEdge `json:"unmatched_skips"`
	Untracked      []core.DependencyEdge `json:"untracked,omitempty"`
	Stats          ruleset.Stats         `json:"stats"`
	Baseline       *BaselineJSON         `json:"baseline,omitempty"`
	RunID          string                `json:"run_id,omitempty"`
}

// BaselineJSON describes the comparison against a previous run.
type BaselineJSON struct {
	RunID string           `json:"run_id,omitempty"`
	Fixed []core.Violation `json:"fixed"`
}

// analyseReport is what one analyse run prints.
type analyseReport struct {
	result     *analysis.Result
	violations []core.Violation
	baseline   *state.Run
	fixed      []core.Violation
	compared   bool
	runID      string
}

func runAnalyse(ctx context.Context, cc *CommandContext, opts *AnalyseOptions) error {
	report, err := analyseOnce(ctx, cc, opts)
	if err != nil {
		return err
	}
	if err := renderAnalyse(cc.Renderer, report, opts); err != nil {
		return err
	}
	if opts.FailOnViolation && len(report.violations) > 0 {
		return fmt.Errorf("%d %w", len(report.violations), ErrViolationsFound)
	}
	return nil
}

func analyseOnce(ctx context.Context, cc *CommandContext, opts *AnalyseOptions) (*analyseReport, error) {
	start := time.Now()
	cfg, err := loadConfiguration(cc.Cfg, cc.Logger)
	if err != nil {
		return nil, err
	}

	res, err := cc.NewAnalyser().Analyse(ctx, cfg)
	if err != nil {
		return nil, err
	}

	report := &analyseReport{result: res, violations: res.Violations()}
	if !opts.Baseline && !opts.Record {
		return report, nil
	}

	store, err := openStore(cc.Cfg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	if opts.Baseline {
		diff, prev, err := store.CompareLatest(ctx, report.violations)
		if err != nil {
			return nil, err
		}
		report.compared = true
		report.baseline = prev
		report.violations = diff.Fresh
		report.fixed = diff.Fixed
	}

	if opts.Record {
		stats := res.Stats()
		run := &state.Run{
			StartedAt: start.UTC(),
			Duration:  time.Since(start),
			Depfile:   cc.Cfg.Depfile,
			Entities:  len(res.Entities()),
			Edges:     stats.Edges,
			Skipped:   stats.Skipped,
			Untracked: stats.Untracked,
		}
		if err := store.RecordRun(ctx, run, res.Violations()); err != nil {
			return nil, err
		}
		report.runID = run.ID
		cc.Logger.Info("recorded run", "id", run.ID, "violations", run.Violations)
	}
	return report, nil
}

func watchAnalyse(ctx context.Context, cc *CommandContext, opts *AnalyseOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	files := []string{cc.Cfg.Depfile, cc.Cfg.Graph}
	if used := config.GetConfigFileUsed(); used != "" {
		files = append(files, used)
	}
	w, err := watch.New(files, watch.WithLogger(cc.Logger))
	if err != nil {
		return err
	}

	once := func(ctx context.Context) error {
		err := runAnalyse(ctx, cc, opts)
		if errors.Is(err, ErrViolationsFound) {
			return nil
		}
		if err != nil {
			cc.Renderer.Error(err.Error())
		}
		return err
	}

	_ = once(ctx)
	cc.Renderer.Println(cc.Renderer.Muted("Watching for changes. Press Ctrl+C to stop."))
	return w.Run(ctx, once)
}

func renderAnalyse(r *output.Renderer, rep *analyseReport, opts *AnalyseOptions) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return renderAnalyseJSON(r, rep, opts)
	case output.ModeMarkdown:
		renderAnalyseMarkdown(r, rep, opts)
	default:
		renderAnalyseText(r, rep, opts)
	}
	return nil
}

func renderAnalyseJSON(r *output.Renderer, rep *analyseReport, opts *AnalyseOptions) error {
	out := AnalyseJSONOutput{
		Violations:     rep.violations,
		UnmatchedSkips: rep.result.UnmatchedSkips(),
		Untracked:      rep.result.Untracked(),
		Stats:          rep.result.Stats(),
		RunID:          rep.runID,
	}
	if opts.ShowSkipped {
		out.Skipped = rep.result.Skipped()
	}
	if rep.compared {
		out.Baseline = &BaselineJSON{Fixed: rep.fixed}
		if rep.baseline != nil {
			out.Baseline.RunID = rep.baseline.ID
		}
	}
	return r.JSON(out)
}

// groupBySourceLayer groups violations by source layer, keeping first-seen order.
func groupBySourceLayer(violations []core.Violation) ([]string, map[string][]core.Violation) {
	var order []string
	groups := make(map[string][]core.Violation)
	for _, v := range violations {
		if _, ok := groups[v.SourceLayer]; !ok {
			order = append(order, v.SourceLayer)
		}
		groups[v.SourceLayer] = append(groups[v.SourceLayer], v)
	}
	return order, groups
}

func violationRows(violations []core.Violation) [][]string {
	titleCaser := cases.Title(language.English)
	rows := make([][]string, len(violations))
	for i, v := range violations {
		rows[i] = []string{v.Edge.Source, v.Edge.Target, v.TargetLayer, titleCaser.String(v.Reason.String())}
	}
	return rows
}

func edgeRows(edges []core.DependencyEdge) [][]string {
	rows := make([][]string, len(edges))
	for i, e := range edges {
		rows[i] = []string{e.Source, e.Target}
	}
	return rows
}

var violationHeader = []string{"Source", "Target", "Target Layer", "Reason"}

func renderAnalyseText(r *output.Renderer, rep *analyseReport, opts *AnalyseOptions) {
	styles := r.Styles()
	stats := rep.result.Stats()

	r.Println("")
	order, groups := groupBySourceLayer(rep.violations)
	for _, l := range order {
		r.Println(styles.Header2.Render(l))
		r.Table(violationHeader, violationRows(groups[l]))
		r.Println("")
	}

	if opts.ShowSkipped && len(rep.result.Skipped()) > 0 {
		r.Println(styles.Header2.Render("Skipped"))
		r.Table(violationHeader, violationRows(rep.result.Skipped()))
		r.Println("")
	}
	if unmatched := rep.result.UnmatchedSkips(); len(unmatched) > 0 {
		r.Warning(fmt.Sprintf("%d skip_violations entries matched nothing", len(unmatched)))
		for _, e := range unmatched {
			r.Println(styles.Muted.Render("  " + e.String()))
		}
		r.Println("")
	}
	if untracked := rep.result.Untracked(); len(untracked) > 0 {
		r.Println(styles.Header2.Render("Untracked"))
		r.Table([]string{"Source", "Target"}, edgeRows(untracked))
		r.Println("")
	}

	if rep.compared {
		r.Println(styles.Muted.Render(baselineLine(rep)))
	}
	summary := fmt.Sprintf("%d violations, %d skipped, %d allowed, %d edges",
		len(rep.violations), stats.Skipped, stats.Permitted+stats.SameLayer, stats.Edges)
	if len(rep.violations) == 0 {
		r.Success(summary)
	} else {
		r.Println(styles.Error.Render("✗ " + summary))
	}
	if rep.runID != "" {
		r.Println(styles.Muted.Render("Recorded run " + rep.runID))
	}
}

func renderAnalyseMarkdown(r *output.Renderer, rep *analyseReport, opts *AnalyseOptions) {
	stats := rep.result.Stats()

	r.Println("# Layer Violations")
	r.Println("")

	order, groups := groupBySourceLayer(rep.violations)
	for _, l := range order {
		r.Println("## " + l)
		r.Println("")
		r.Table(violationHeader, violationRows(groups[l]))
		r.Println("")
	}

	if opts.ShowSkipped && len(rep.result.Skipped()) > 0 {
		r.Println("## Skipped")
		r.Println("")
		r.Table(violationHeader, violationRows(rep.result.Skipped()))
		r.Println("")
	}
	if unmatched := rep.result.UnmatchedSkips(); len(unmatched) > 0 {
		r.Println("## Unmatched skip entries")
		r.Println("")
		r.Table([]string{"Source", "Target"}, edgeRows(unmatched))
		r.Println("")
	}
	if untracked := rep.result.Untracked(); len(untracked) > 0 {
		r.Println("## Untracked")
		r.Println("")
		r.Table([]string{"Source", "Target"}, edgeRows(untracked))
		r.Println("")
	}

	if rep.compared {
		r.Println("_" + baselineLine(rep) + "_")
		r.Println("")
	}
	r.Printf("**Violations:** %d | **Skipped:** %d | **Allowed:** %d | **Edges:** %d\n",
		len(rep.violations), stats.Skipped, stats.Permitted+stats.SameLayer, stats.Edges)
	if rep.runID != "" {
		r.Printf("\nRecorded run `%s`\n", rep.runID)
	}
}

func baselineLine(rep *analyseReport) string {
	if rep.baseline == nil {
		return "No recorded run to compare against; every violation is new."
	}
	return fmt.Sprintf("Compared with run %s (%s): %d new, %d fixed.",
		rep.baseline.ID, rep.baseline.StartedAt.Format(time.RFC3339), len(rep.violations), len(rep.fixed))
}
