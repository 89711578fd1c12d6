package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/querypipe/internal/engine"
	"github.com/roach88/querypipe/internal/harness"
	"github.com/roach88/querypipe/internal/mutate"
	"github.com/roach88/querypipe/internal/store"
)

// FuzzOptions holds flags for the fuzz command.
type FuzzOptions struct {
	*RootOptions
	Set      string
	TestID   string
	Seeds    int
	Start    int64
	Config   string
	Database string
	Parallel int
	MaxRows  int
	Metrics  string
}

// FuzzResult is the summary of a fuzzing session.
type FuzzResult struct {
	TestID   string                  `json:"test_id"`
	RunID    string                  `json:"run_id,omitempty"`
	Executed int                     `json:"executed"`
	Outcomes map[harness.Outcome]int `json:"outcomes"`
	Failure  *FuzzFailure            `json:"failure,omitempty"`
}

// FuzzFailure describes the execution that stopped a session.
type FuzzFailure struct {
	Seed    int64  `json:"seed"`
	Query   string `json:"query"`
	Message string `json:"message"`
}

// NewFuzzCommand creates the fuzz command.
func NewFuzzCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FuzzOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fuzz <model-dir>",
		Short: "Execute one mutation per seed against a data set",
		Long: `Mutate the base query over a data set once per seed, compile and execute every
mutation, and classify failures against the harness config.

Noise and known failures are counted and skipped. The first unclassified
failure stops the session and exits 1. With --db the model's fixtures are
loaded into SQLite, queries read from it, and every execution is recorded
for replay.

Example:
  qpipe fuzz ./model --set Customers --seeds 500
  qpipe fuzz ./model --set Orders --db ./runs.db --config ./harness.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFuzz(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Set, "set", "", "data set the base query reads (required)")
	_ = cmd.MarkFlagRequired("set")
	cmd.Flags().StringVar(&opts.TestID, "test-id", "", "test id for classification and the ledger (default: the set name)")
	cmd.Flags().IntVar(&opts.Seeds, "seeds", 100, "number of seeds to run")
	cmd.Flags().Int64Var(&opts.Start, "start", 0, "first seed")
	cmd.Flags().StringVar(&opts.Config, "config", "", "harness config (YAML)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database for fixtures and the run ledger")
	cmd.Flags().IntVar(&opts.Parallel, "parallel", 0, "concurrent executions (default: GOMAXPROCS)")
	cmd.Flags().IntVar(&opts.MaxRows, "max-rows", engine.DefaultMaxRows, "row quota per execution (0 disables)")
	cmd.Flags().StringVar(&opts.Metrics, "metrics", "", "write execution metrics to this file in Prometheus text format")

	return cmd
}

func runFuzz(opts *FuzzOptions, modelDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(formatter.GetErrWriter(), opts.Verbose)

	if opts.Seeds < 0 {
		return NewExitError(ExitCommandError, "--seeds must not be negative")
	}

	m, err := loadModel(modelDir)
	if err != nil {
		return reportLoadError(formatter, err)
	}
	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return reportLoadError(formatter, err)
	}
	base, err := m.Source(opts.Set)
	if err != nil {
		return reportLoadError(formatter, &LoadError{Code: ErrCodeUnknownSet, Message: err.Error()})
	}
	testID := opts.TestID
	if testID == "" {
		testID = opts.Set
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := harness.NewRegistry()
	cfg.Apply(registry)
	reg := prometheus.NewRegistry()
	execOpts := []harness.Option{
		harness.WithRegistry(registry),
		harness.WithLogger(logger),
		harness.WithMetrics(harness.NewMetrics(reg)),
		harness.WithMaxRows(opts.MaxRows),
	}

	source := memorySource(m)
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		if err := seedStore(ctx, st, m); err != nil {
			return reportLoadError(formatter, &LoadError{Code: ErrCodeDatabase, Message: err.Error()})
		}
		source = st
		execOpts = append(execOpts, harness.WithLedger(st, harness.UUIDv7Generator{}))
	}

	exec := harness.NewExecutor(source, execOpts...)
	gen := mutate.NewGenerator(
		mutate.WithDenylist(cfg.MutatorDenylist()),
		mutate.WithLogger(logger),
	)
	fuzzer := harness.NewFuzzer(gen, exec, opts.Parallel)

	seeds := make([]int64, opts.Seeds)
	for i := range seeds {
		seeds[i] = opts.Start + int64(i)
	}

	logger.Info("fuzzing", "test_id", testID, "set", opts.Set, "seeds", len(seeds), "run_id", exec.RunID())
	results, runErr := fuzzer.Run(ctx, testID, base, seeds)

	if opts.Metrics != "" {
		if err := prometheus.WriteToTextfile(opts.Metrics, reg); err != nil {
			logger.Error("failed to write metrics", "path", opts.Metrics, "error", err)
		}
	}

	summary := summariseFuzz(testID, exec.RunID(), results, runErr)
	if err := outputFuzz(formatter, summary); err != nil {
		return err
	}

	if runErr != nil {
		if ctx.Err() != nil {
			return WrapExitError(ExitCommandError, "fuzzing interrupted", runErr)
		}
		return WrapExitError(ExitFailure, "fuzzing failed", runErr)
	}
	return nil
}

func summariseFuzz(testID, runID string, results []harness.Result, runErr error) FuzzResult {
	summary := FuzzResult{
		TestID:   testID,
		RunID:    runID,
		Outcomes: make(map[harness.Outcome]int),
	}
	for _, res := range results {
		if res.Outcome == "" {
			continue
		}
		summary.Executed++
		summary.Outcomes[res.Outcome]++
		if res.Failed() && summary.Failure == nil {
			summary.Failure = &FuzzFailure{Seed: res.Seed, Query: res.Query, Message: res.Err.Error()}
		}
	}
	if summary.Failure == nil && runErr != nil {
		summary.Failure = &FuzzFailure{Message: runErr.Error()}
	}
	return summary
}

func outputFuzz(formatter *OutputFormatter, summary FuzzResult) error {
	if formatter.Format == "json" {
		return formatter.Success(summary)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Test %s: %d execution(s)\n", summary.TestID, summary.Executed)
	for _, o := range harness.Outcomes {
		if n := summary.Outcomes[o]; n > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", o, n)
		}
	}
	if summary.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", summary.RunID)
	}
	if f := summary.Failure; f != nil {
		fmt.Fprintln(w)
		if f.Query != "" {
			fmt.Fprintf(w, "FAILED seed=%d\n  query: %s\n  error: %s\n", f.Seed, f.Query, f.Message)
		} else {
			fmt.Fprintf(w, "FAILED: %s\n", f.Message)
		}
	}
	return nil
}
