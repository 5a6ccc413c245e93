package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/duet/internal/harness"
	"github.com/roach88/duet/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Parallel int
	Metrics  bool
}

// RunSummary is the JSON output of the run command.
type RunSummary struct {
	Results []*harness.Result `json:"results"`
	Passed  int               `json:"passed"`
	Failed  int               `json:"failed"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>...",
		Short: "Run two-realm scenarios",
		Long: `Run scenario files: each instantiates a class in realm A and realm B,
drives writes and emits on either side, and checks the resulting values and
sync journal.

With --db every scenario's journal is also written to a SQLite database,
readable with the trace command.

Example:
  duet run ./scenarios/*.yaml
  duet run --db ./journal.db --metrics ./scenarios/model_d.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "also record journals in this SQLite database")
	cmd.Flags().IntVar(&opts.Parallel, "parallel", 4, "scenarios run at once (0 = no limit)")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print each scenario's metrics")

	return cmd
}

func runScenarios(opts *RunOptions, paths []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger(cmd.ErrOrStderr())

	scenarios := make([]*harness.Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := harness.LoadScenario(path)
		if err != nil {
			return formatter.fail(ErrCodeScenario, fmt.Sprintf("%s: %v", path, err))
		}
		formatter.VerboseLog("Loaded scenario %s from %s", s.Name, path)
		scenarios = append(scenarios, s)
	}

	hopts := []harness.Option{harness.WithLogger(logger)}
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return formatter.fail(ErrCodeStoreFailed, fmt.Sprintf("opening journal: %v", err))
		}
		defer func() {
			if err := st.Close(); err != nil {
				logger.Error("error closing journal", "error", err)
			}
		}()
		hopts = append(hopts, harness.WithJournal(st))
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := harness.RunAll(ctx, scenarios, opts.Parallel, hopts...)
	if err != nil {
		return formatter.fail(ErrCodeScenario, err.Error())
	}

	summary := RunSummary{Results: results}
	for _, r := range results {
		if r.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}

	if formatter.JSON() {
		if err := formatter.Success(summary); err != nil {
			return err
		}
	} else if err := writeRunText(formatter, opts, summary); err != nil {
		return err
	}

	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", summary.Failed))
	}
	return nil
}

func writeRunText(formatter *OutputFormatter, opts *RunOptions, summary RunSummary) error {
	w := formatter.Writer
	for _, r := range summary.Results {
		status := "PASS"
		if !r.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%s %s (%d journal entries)\n", status, r.Name, len(r.Trace))
		for _, msg := range r.Errors {
			fmt.Fprintf(w, "  %s\n", msg)
		}
		for _, msg := range r.Warnings {
			formatter.VerboseLog("  warning: %s", msg)
		}
		if opts.Metrics {
			if err := r.Metrics.WriteSummary(w); err != nil {
				return err
			}
		}
	}
	fmt.Fprintf(w, "\n%d passed, %d failed\n", summary.Passed, summary.Failed)
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
